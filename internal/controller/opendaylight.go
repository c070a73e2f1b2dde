package controller

import (
	"context"
	"fmt"
)

// opendaylightClient implements Client against the OpenDaylight northbound
// REST API, backed by its operational topology model per the endpoints
// design.
type opendaylightClient struct {
	http httpDialect
}

// NewOpenDaylight constructs a Client for an OpenDaylight controller.
func NewOpenDaylight(endpoint, username, password string) Client {
	return &opendaylightClient{http: newHTTPDialect(endpoint, username, password)}
}

type odlNode struct {
	ID string `json:"node-id"`
}

type odlTopologyResponse struct {
	Topology []struct {
		Node []odlNode `json:"node"`
		Link []struct {
			Source struct {
				SourceNode string `json:"source-node"`
				SourceTP   string `json:"source-tp"`
			} `json:"source"`
			Dest struct {
				DestNode string `json:"dest-node"`
				DestTP   string `json:"dest-tp"`
			} `json:"destination"`
		} `json:"link"`
	} `json:"network-topology"`
}

func (c *opendaylightClient) fetchTopology(ctx context.Context) (odlTopologyResponse, error) {
	var resp odlTopologyResponse
	err := c.http.doJSON(ctx, "GET", "/restconf/operational/network-topology:network-topology", nil, &resp)
	return resp, err
}

func (c *opendaylightClient) ListDevices(ctx context.Context) ([]Device, error) {
	resp, err := c.fetchTopology(ctx)
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, t := range resp.Topology {
		for _, n := range t.Node {
			devices = append(devices, Device{SwitchID: n.ID, Available: true})
		}
	}
	return devices, nil
}

func (c *opendaylightClient) ListLinks(ctx context.Context) ([]Link, error) {
	resp, err := c.fetchTopology(ctx)
	if err != nil {
		return nil, err
	}
	var links []Link
	for _, t := range resp.Topology {
		for _, l := range t.Link {
			links = append(links, Link{
				SrcSwitch: l.Source.SourceNode, SrcPort: l.Source.SourceTP,
				DstSwitch: l.Dest.DestNode, DstPort: l.Dest.DestTP,
			})
		}
	}
	return links, nil
}

type odlNodeConnector struct {
	ID string `json:"id"`
}

type odlNodeDetailResponse struct {
	Node []struct {
		NodeConnector []odlNodeConnector `json:"node-connector"`
	} `json:"node"`
}

func (c *opendaylightClient) ListDevicePorts(ctx context.Context, switchID string) ([]Port, error) {
	var resp odlNodeDetailResponse
	path := fmt.Sprintf("/restconf/operational/opendaylight-inventory:nodes/node/%s", switchID)
	if err := c.http.doJSON(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	var ports []Port
	for _, n := range resp.Node {
		for _, nc := range n.NodeConnector {
			ports = append(ports, Port{SwitchID: switchID, Number: nc.ID, Name: nc.ID})
		}
	}
	return ports, nil
}

func (c *opendaylightClient) CreateFlow(ctx context.Context, switchID string, flow FlowSpec) error {
	body := map[string]interface{}{
		"flow-node-inventory:flow": map[string]interface{}{
			"id":       flow.Name,
			"priority": flow.Priority,
			"match":    flow.Match,
			"instructions": map[string]interface{}{
				"instruction": []map[string]interface{}{
					{"apply-actions": map[string]interface{}{"action": flow.Actions}},
				},
			},
		},
	}
	path := fmt.Sprintf("/restconf/config/opendaylight-inventory:nodes/node/%s/table/0/flow/%s", switchID, flow.Name)
	return c.http.doJSON(ctx, "PUT", path, body, nil)
}

func (c *opendaylightClient) DeleteFlow(ctx context.Context, switchID, flowName string) error {
	path := fmt.Sprintf("/restconf/config/opendaylight-inventory:nodes/node/%s/table/0/flow/%s", switchID, flowName)
	err := c.http.doJSON(ctx, "DELETE", path, nil, nil)
	if wireErr, ok := err.(*WireError); ok && wireErr.IsNotFound() {
		return nil
	}
	return err
}

func (c *opendaylightClient) ActivateApp(ctx context.Context, appName string) error {
	return c.http.doJSON(ctx, "POST", fmt.Sprintf("/restconf/operations/%s:activate", appName), nil, nil)
}

func (c *opendaylightClient) DeactivateApp(ctx context.Context, appName string) error {
	return c.http.doJSON(ctx, "POST", fmt.Sprintf("/restconf/operations/%s:deactivate", appName), nil, nil)
}

func (c *opendaylightClient) IsAppActive(ctx context.Context, appName string) (bool, error) {
	var resp struct {
		Active bool `json:"active"`
	}
	if err := c.http.doJSON(ctx, "GET", fmt.Sprintf("/restconf/operational/%s:status", appName), nil, &resp); err != nil {
		return false, err
	}
	return resp.Active, nil
}

func (c *opendaylightClient) PushAppConfiguration(ctx context.Context, appName string, config map[string]interface{}) error {
	return c.http.doJSON(ctx, "PUT", fmt.Sprintf("/restconf/config/%s:configuration", appName), config, nil)
}

func (c *opendaylightClient) AddGreTunnel(ctx context.Context, bridge, portName, localIP, remoteIP, greKey string) (string, error) {
	body := map[string]interface{}{
		"bridge": bridge, "port": portName, "local-ip": localIP, "remote-ip": remoteIP, "key": greKey,
	}
	var resp struct {
		BridgePort string `json:"bridge-port"`
	}
	if err := c.http.doJSON(ctx, "POST", "/restconf/operations/ovsdb:add-gre-tunnel", body, &resp); err != nil {
		return "", err
	}
	return resp.BridgePort, nil
}

func (c *opendaylightClient) DeleteGreTunnel(ctx context.Context, bridge, portName string) error {
	path := fmt.Sprintf("/restconf/config/network-topology:network-topology/topology/ovsdb:1/node/%s/%s", bridge, portName)
	err := c.http.doJSON(ctx, "DELETE", path, nil, nil)
	if wireErr, ok := err.(*WireError); ok && wireErr.IsNotFound() {
		return nil
	}
	return err
}

func (c *opendaylightClient) AddPort(ctx context.Context, bridge, portName string) error {
	body := map[string]interface{}{"bridge": bridge, "port": portName}
	return c.http.doJSON(ctx, "POST", "/restconf/operations/ovsdb:add-port", body, nil)
}
