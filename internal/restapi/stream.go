package restapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"domain-orchestrator/internal/logger"
)

const statusPollInterval = 250 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type statusFrame struct {
	Status     string `json:"status"`
	Percentage int    `json:"percentage"`
}

// handleStatusStream upgrades /NF-FG/status/<id>/stream to a WebSocket and
// pushes a statusFrame every statusPollInterval until the graph reaches a
// terminal status (complete/error) or the client disconnects -- a live view
// onto the progress-monotonicity property statusGraph already guarantees.
func (s *Server) handleStatusStream(c echo.Context) error {
	id := c.Param("id")
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := c.Request().Context()
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st, err := s.coord.StatusGraph(ctx, userID(c), id)
			if err != nil {
				_ = conn.WriteJSON(map[string]string{"error": err.Error()})
				return nil
			}
			if err := conn.WriteJSON(statusFrame{Status: st.Status, Percentage: st.Percentage}); err != nil {
				logger.WarnCtx(ctx, "status stream: write failed", zap.String("graph_id", id), zap.Error(err))
				return nil
			}
			if st.Status == "complete" || st.Status == "error" {
				return nil
			}
		}
	}
}
