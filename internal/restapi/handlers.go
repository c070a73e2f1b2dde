package restapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"domain-orchestrator/internal/apperrors"
)

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func respondError(c echo.Context, err error) error {
	return c.JSON(apperrors.HTTPStatus(err), errorBody(err))
}

type postResponse struct {
	NffgUUID string `json:"nffg-uuid"`
}

func (s *Server) handlePostGraph(c echo.Context) error {
	var wire nffgWire
	if err := c.Bind(&wire); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	graphID, err := s.coord.PostGraph(c.Request().Context(), userID(c), fromWire(wire))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, postResponse{NffgUUID: graphID})
}

func (s *Server) handlePutGraph(c echo.Context) error {
	id := c.Param("id")
	var wire nffgWire
	if err := c.Bind(&wire); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	if err := s.coord.PutGraph(c.Request().Context(), userID(c), id, fromWire(wire)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, postResponse{NffgUUID: id})
}

func (s *Server) handleGetGraph(c echo.Context) error {
	id := c.Param("id")
	graph, err := s.coord.GetGraph(c.Request().Context(), userID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toWire(graph))
}

func (s *Server) handleDeleteGraph(c echo.Context) error {
	id := c.Param("id")
	_ = s.coord.DeleteGraph(c.Request().Context(), userID(c), id)
	return c.NoContent(http.StatusNoContent)
}

type listEntry struct {
	NffgUUID         string   `json:"nffg-uuid"`
	ForwardingGraph  nffgWire `json:"forwarding-graph"`
}

type listResponse struct {
	NFFG []listEntry `json:"NF-FG"`
}

func (s *Server) handleListGraphs(c echo.Context) error {
	graphs, err := s.coord.ListGraphs(c.Request().Context(), userID(c))
	if err != nil {
		return respondError(c, err)
	}
	resp := listResponse{}
	for id, g := range graphs {
		resp.NFFG = append(resp.NFFG, listEntry{NffgUUID: id, ForwardingGraph: toWire(g)})
	}
	return c.JSON(http.StatusOK, resp)
}

type statusResponse struct {
	Status     string `json:"status"`
	Percentage int    `json:"percentage"`
}

func (s *Server) handleStatusGraph(c echo.Context) error {
	id := c.Param("id")
	status, err := s.coord.StatusGraph(c.Request().Context(), userID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: status.Status, Percentage: status.Percentage})
}

type topologyDeviceWire struct {
	SwitchID  string `json:"switch_id"`
	Available bool   `json:"available"`
}

type topologyLinkWire struct {
	SrcSwitch string `json:"src_switch"`
	SrcPort   string `json:"src_port"`
	DstSwitch string `json:"dst_switch"`
	DstPort   string `json:"dst_port"`
}

type topologyResponse struct {
	Devices []topologyDeviceWire `json:"devices"`
	Links   []topologyLinkWire   `json:"links"`
}

func (s *Server) handleTopology(c echo.Context) error {
	devices, links, err := s.topo.Snapshot(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	resp := topologyResponse{}
	for _, d := range devices {
		resp.Devices = append(resp.Devices, topologyDeviceWire{SwitchID: d.SwitchID, Available: d.Available})
	}
	for _, l := range links {
		resp.Links = append(resp.Links, topologyLinkWire{SrcSwitch: l.SrcSwitch, SrcPort: l.SrcPort, DstSwitch: l.DstSwitch, DstPort: l.DstPort})
	}
	return c.JSON(http.StatusOK, resp)
}
