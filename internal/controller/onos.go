package controller

import (
	"context"
	"fmt"
)

// onosClient implements Client against the ONOS REST northbound API, per
// the endpoints named in the external interfaces design:
// /onos/v1/devices, /onos/v1/links, /onos/v1/flows/{dev},
// /onos/v1/applications/{name}/active.
type onosClient struct {
	http httpDialect
}

// NewONOS constructs a Client for an ONOS controller.
func NewONOS(endpoint, username, password string) Client {
	return &onosClient{http: newHTTPDialect(endpoint, username, password)}
}

type onosDevice struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
}

type onosDevicesResponse struct {
	Devices []onosDevice `json:"devices"`
}

func (c *onosClient) ListDevices(ctx context.Context) ([]Device, error) {
	var resp onosDevicesResponse
	if err := c.http.doJSON(ctx, "GET", "/onos/v1/devices", nil, &resp); err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(resp.Devices))
	for _, d := range resp.Devices {
		devices = append(devices, Device{SwitchID: d.ID, Available: d.Available})
	}
	return devices, nil
}

type onosLink struct {
	Src struct {
		Device string `json:"device"`
		Port   string `json:"port"`
	} `json:"src"`
	Dst struct {
		Device string `json:"device"`
		Port   string `json:"port"`
	} `json:"dst"`
}

type onosLinksResponse struct {
	Links []onosLink `json:"links"`
}

func (c *onosClient) ListLinks(ctx context.Context) ([]Link, error) {
	var resp onosLinksResponse
	if err := c.http.doJSON(ctx, "GET", "/onos/v1/links", nil, &resp); err != nil {
		return nil, err
	}
	links := make([]Link, 0, len(resp.Links))
	for _, l := range resp.Links {
		links = append(links, Link{
			SrcSwitch: l.Src.Device, SrcPort: l.Src.Port,
			DstSwitch: l.Dst.Device, DstPort: l.Dst.Port,
		})
	}
	return links, nil
}

type onosPort struct {
	Port string `json:"port"`
	Name string `json:"name"`
}

type onosPortsResponse struct {
	Ports []onosPort `json:"ports"`
}

func (c *onosClient) ListDevicePorts(ctx context.Context, switchID string) ([]Port, error) {
	var resp onosPortsResponse
	if err := c.http.doJSON(ctx, "GET", fmt.Sprintf("/onos/v1/devices/%s/ports", switchID), nil, &resp); err != nil {
		return nil, err
	}
	ports := make([]Port, 0, len(resp.Ports))
	for _, p := range resp.Ports {
		ports = append(ports, Port{SwitchID: switchID, Number: p.Port, Name: p.Name})
	}
	return ports, nil
}

func (c *onosClient) CreateFlow(ctx context.Context, switchID string, flow FlowSpec) error {
	body := map[string]interface{}{
		"priority":    flow.Priority,
		"isPermanent": true,
		"deviceId":    switchID,
		"treatment":   map[string]interface{}{"instructions": flow.Actions},
		"selector":    map[string]interface{}{"criteria": flow.Match},
	}
	return c.http.doJSON(ctx, "POST", fmt.Sprintf("/onos/v1/flows/%s", switchID), body, nil)
}

func (c *onosClient) DeleteFlow(ctx context.Context, switchID, flowName string) error {
	err := c.http.doJSON(ctx, "DELETE", fmt.Sprintf("/onos/v1/flows/%s/%s", switchID, flowName), nil, nil)
	if wireErr, ok := err.(*WireError); ok && wireErr.IsNotFound() {
		return nil // delete is idempotent
	}
	return err
}

func (c *onosClient) ActivateApp(ctx context.Context, appName string) error {
	return c.http.doJSON(ctx, "POST", fmt.Sprintf("/onos/v1/applications/%s/active", appName), nil, nil)
}

func (c *onosClient) DeactivateApp(ctx context.Context, appName string) error {
	return c.http.doJSON(ctx, "DELETE", fmt.Sprintf("/onos/v1/applications/%s/active", appName), nil, nil)
}

type onosAppStatus struct {
	State string `json:"state"`
}

func (c *onosClient) IsAppActive(ctx context.Context, appName string) (bool, error) {
	var resp onosAppStatus
	if err := c.http.doJSON(ctx, "GET", fmt.Sprintf("/onos/v1/applications/%s", appName), nil, &resp); err != nil {
		return false, err
	}
	return resp.State == "ACTIVE", nil
}

func (c *onosClient) PushAppConfiguration(ctx context.Context, appName string, config map[string]interface{}) error {
	return c.http.doJSON(ctx, "POST", fmt.Sprintf("/onos/v1/network/configuration/apps/%s", appName), config, nil)
}

func (c *onosClient) AddGreTunnel(ctx context.Context, bridge, portName, localIP, remoteIP, greKey string) (string, error) {
	body := map[string]interface{}{
		"bridge": bridge, "port": portName, "local_ip": localIP, "remote_ip": remoteIP, "key": greKey,
	}
	var resp struct {
		BridgePort string `json:"bridge_port"`
	}
	if err := c.http.doJSON(ctx, "POST", "/onos/v1/gre-tunnels", body, &resp); err != nil {
		return "", err
	}
	return resp.BridgePort, nil
}

func (c *onosClient) DeleteGreTunnel(ctx context.Context, bridge, portName string) error {
	err := c.http.doJSON(ctx, "DELETE", fmt.Sprintf("/onos/v1/gre-tunnels/%s/%s", bridge, portName), nil, nil)
	if wireErr, ok := err.(*WireError); ok && wireErr.IsNotFound() {
		return nil
	}
	return err
}

func (c *onosClient) AddPort(ctx context.Context, bridge, portName string) error {
	body := map[string]interface{}{"bridge": bridge, "port": portName}
	return c.http.doJSON(ctx, "POST", "/onos/v1/ports", body, nil)
}
