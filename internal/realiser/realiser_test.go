package realiser_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-orchestrator/internal/config"
	"domain-orchestrator/internal/controller"
	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/profile"
	"domain-orchestrator/internal/realiser"
	"domain-orchestrator/internal/resourcedescription"
	"domain-orchestrator/internal/store"
	"domain-orchestrator/internal/topology"
	"domain-orchestrator/internal/vlan"
)

// fakeController is a minimal controller.Client backed by an in-memory
// topology fixture, enough to drive the realiser's routing and flow-push
// calls without a real SDN controller.
type fakeController struct {
	mu      sync.Mutex
	devices []controller.Device
	links   []controller.Link
	ports   map[string][]controller.Port
	flows   []controller.FlowSpec
}

func (f *fakeController) ListDevices(ctx context.Context) ([]controller.Device, error) { return f.devices, nil }
func (f *fakeController) ListLinks(ctx context.Context) ([]controller.Link, error)      { return f.links, nil }
func (f *fakeController) ListDevicePorts(ctx context.Context, switchID string) ([]controller.Port, error) {
	return f.ports[switchID], nil
}
func (f *fakeController) CreateFlow(ctx context.Context, switchID string, flow controller.FlowSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flows = append(f.flows, flow)
	return nil
}
func (f *fakeController) DeleteFlow(ctx context.Context, switchID, flowName string) error { return nil }
func (f *fakeController) ActivateApp(ctx context.Context, appName string) error           { return nil }
func (f *fakeController) DeactivateApp(ctx context.Context, appName string) error         { return nil }
func (f *fakeController) IsAppActive(ctx context.Context, appName string) (bool, error)   { return true, nil }
func (f *fakeController) PushAppConfiguration(ctx context.Context, appName string, cfg map[string]interface{}) error {
	return nil
}
func (f *fakeController) AddGreTunnel(ctx context.Context, bridge, portName, localIP, remoteIP, greKey string) (string, error) {
	return "", nil
}
func (f *fakeController) DeleteGreTunnel(ctx context.Context, bridge, portName string) error { return nil }
func (f *fakeController) AddPort(ctx context.Context, bridge, portName string) error          { return nil }

func newRealiser(t *testing.T, ctl *fakeController) *realiser.Realiser {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ranges, err := config.ParseVlanRanges("100-110")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Vlan.AvailableIDs = "100-110"

	return &realiser.Realiser{
		Topology:  topology.New(ctl),
		Vlans:     vlan.New(ranges, s),
		Client:    ctl,
		Store:     s,
		Resources: mustResourceDescription(t),
		Config:    cfg,
	}
}

func mustResourceDescription(t *testing.T) *resourcedescription.ResourceDescription {
	t.Helper()
	rd, err := resourcedescription.New(t.TempDir() + "/domain-description.json")
	require.NoError(t, err)
	return rd
}

func TestRealise_SameSwitchInterfaceEndpoints(t *testing.T) {
	ctx := context.Background()
	ctl := &fakeController{
		devices: []controller.Device{{SwitchID: "s1", Available: true}},
		ports: map[string][]controller.Port{
			"s1": {{SwitchID: "s1", Number: "1", Name: "p1"}, {SwitchID: "s1", Number: "2", Name: "p2"}},
		},
	}
	r := newRealiser(t, ctl)

	graph := nffg.NFFG{
		Endpoints: []nffg.Endpoint{
			{GraphID: "A", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s1", InterfaceName: "p1"}},
			{GraphID: "B", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s1", InterfaceName: "p2"}},
		},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"}},
		}},
	}
	p := profile.Build(graph)

	sessionID, err := r.Store.StoreGraph(ctx, "user1", "g1", "", graph)
	require.NoError(t, err)

	require.NoError(t, r.Realise(ctx, "user1", "g1", sessionID, p))
	require.Len(t, ctl.flows, 1)
	assert.Equal(t, "1", ctl.flows[0].Match["port_in"])
}

func TestRealise_CrossSwitchTwoHopsAllocatesVlan(t *testing.T) {
	ctx := context.Background()
	ctl := &fakeController{
		devices: []controller.Device{{SwitchID: "s1"}, {SwitchID: "s2"}},
		links: []controller.Link{
			{SrcSwitch: "s1", SrcPort: "3", DstSwitch: "s2", DstPort: "3"},
			{SrcSwitch: "s2", SrcPort: "3", DstSwitch: "s1", DstPort: "3"},
		},
		ports: map[string][]controller.Port{
			"s1": {{SwitchID: "s1", Number: "1", Name: "p1"}, {SwitchID: "s1", Number: "3", Name: "p3"}},
			"s2": {{SwitchID: "s2", Number: "1", Name: "p1"}, {SwitchID: "s2", Number: "3", Name: "p3"}},
		},
	}
	r := newRealiser(t, ctl)

	graph := nffg.NFFG{
		Endpoints: []nffg.Endpoint{
			{GraphID: "A", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s1", InterfaceName: "p1"}},
			{GraphID: "B", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s2", InterfaceName: "p1"}},
		},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"}},
		}},
	}
	p := profile.Build(graph)

	sessionID, err := r.Store.StoreGraph(ctx, "user1", "g1", "", graph)
	require.NoError(t, err)

	require.NoError(t, r.Realise(ctx, "user1", "g1", sessionID, p))
	require.Len(t, ctl.flows, 2)

	first, second := ctl.flows[0], ctl.flows[1]
	assert.Equal(t, "1", first.Match["port_in"])
	_, hasVlan := second.Match["vlan_id"]
	assert.True(t, hasVlan)
}

func TestRealise_DisconnectedTopologyFailsNoPath(t *testing.T) {
	ctx := context.Background()
	ctl := &fakeController{
		devices: []controller.Device{{SwitchID: "s1"}, {SwitchID: "s2"}},
		ports: map[string][]controller.Port{
			"s1": {{SwitchID: "s1", Number: "1", Name: "p1"}},
			"s2": {{SwitchID: "s2", Number: "1", Name: "p1"}},
		},
	}
	r := newRealiser(t, ctl)

	graph := nffg.NFFG{
		Endpoints: []nffg.Endpoint{
			{GraphID: "A", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s1", InterfaceName: "p1"}},
			{GraphID: "B", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s2", InterfaceName: "p1"}},
		},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"}},
		}},
	}
	p := profile.Build(graph)

	sessionID, err := r.Store.StoreGraph(ctx, "user1", "g1", "", graph)
	require.NoError(t, err)

	err = r.Realise(ctx, "user1", "g1", sessionID, p)
	require.Error(t, err)
	assert.Empty(t, ctl.flows)
}
