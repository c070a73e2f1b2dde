// Package controller defines the ControllerClient capability surface shared
// by the two supported SDN controller dialects (ONOS, OpenDaylight) and a
// resilient wrapper that guards every call with a circuit breaker, grounded
// on the same fallback pattern the teacher uses for router protocol
// adapters.
package controller

import "context"

// Device is one switch reported by the controller's device inventory.
type Device struct {
	SwitchID  string
	Available bool
}

// Port is one physical port on a Device.
type Port struct {
	SwitchID string
	Number   string
	Name     string
}

// Link is a directed connection between two switch ports.
type Link struct {
	SrcSwitch string
	SrcPort   string
	DstSwitch string
	DstPort   string
}

// Client is the capability set every controller dialect must implement.
// It is intentionally the only seam between the realisation engine and the
// wire protocol: the Realiser, TopologyProvider and VNF-activation code
// never know which dialect backs an implementation.
type Client interface {
	ListDevices(ctx context.Context) ([]Device, error)
	ListLinks(ctx context.Context) ([]Link, error)
	ListDevicePorts(ctx context.Context, switchID string) ([]Port, error)

	CreateFlow(ctx context.Context, switchID string, flow FlowSpec) error
	DeleteFlow(ctx context.Context, switchID, flowName string) error

	ActivateApp(ctx context.Context, appName string) error
	DeactivateApp(ctx context.Context, appName string) error
	IsAppActive(ctx context.Context, appName string) (bool, error)
	PushAppConfiguration(ctx context.Context, appName string, config map[string]interface{}) error

	AddGreTunnel(ctx context.Context, bridge, portName, localIP, remoteIP, greKey string) (bridgePort string, err error)
	DeleteGreTunnel(ctx context.Context, bridge, portName string) error
	AddPort(ctx context.Context, bridge, portName string) error
}

// FlowSpec is the controller-agnostic description of one OpenFlow entry.
// Dialect implementations translate it into their own REST body shape.
type FlowSpec struct {
	Name       string
	Priority   int
	Match      map[string]interface{}
	Actions    []map[string]interface{}
}
