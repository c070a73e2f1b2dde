package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-orchestrator/internal/config"
	"domain-orchestrator/internal/controller"
	"domain-orchestrator/internal/events"
	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/realiser"
	"domain-orchestrator/internal/resourcedescription"
	"domain-orchestrator/internal/session"
	"domain-orchestrator/internal/store"
	"domain-orchestrator/internal/topology"
	"domain-orchestrator/internal/validation"
	"domain-orchestrator/internal/validation/stages"
	"domain-orchestrator/internal/vlan"
)

type fakeController struct {
	mu         sync.Mutex
	devices    []controller.Device
	ports      map[string][]controller.Port
	flows      []controller.FlowSpec
	deactivated []string
}

func (f *fakeController) ListDevices(ctx context.Context) ([]controller.Device, error) { return f.devices, nil }
func (f *fakeController) ListLinks(ctx context.Context) ([]controller.Link, error)      { return nil, nil }
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
func (f *fakeController) DeactivateApp(ctx context.Context, appName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, appName)
	return nil
}
func (f *fakeController) IsAppActive(ctx context.Context, appName string) (bool, error) { return true, nil }
func (f *fakeController) PushAppConfiguration(ctx context.Context, appName string, cfg map[string]interface{}) error {
	return nil
}
func (f *fakeController) AddGreTunnel(ctx context.Context, bridge, portName, localIP, remoteIP, greKey string) (string, error) {
	return "", nil
}
func (f *fakeController) DeleteGreTunnel(ctx context.Context, bridge, portName string) error { return nil }
func (f *fakeController) AddPort(ctx context.Context, bridge, portName string) error          { return nil }

func newCoordinator(t *testing.T, ctl *fakeController) *session.Coordinator {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ranges, err := config.ParseVlanRanges("100-110")
	require.NoError(t, err)

	rd, err := resourcedescription.New(t.TempDir() + "/domain-description.json")
	require.NoError(t, err)
	require.NoError(t, rd.Set([]resourcedescription.Capability{{Name: "firewall", ApplicationName: "firewall-app"}}))

	cfg := &config.Config{}
	cfg.Vlan.AvailableIDs = "100-110"

	r := &realiser.Realiser{
		Topology:  topology.New(ctl),
		Vlans:     vlan.New(ranges, s),
		Client:    ctl,
		Store:     s,
		Resources: rd,
		Config:    cfg,
	}

	engine := validation.NewEngine(validation.EngineConfig{})
	engine.RegisterStage(stages.CapabilityStage{})
	engine.RegisterStage(stages.EndpointStage{})
	engine.RegisterStage(stages.MatchStage{})
	engine.RegisterStage(stages.ActionStage{})
	engine.RegisterStage(stages.VlanRangeStage{})

	bus, err := events.NewEventBus(events.DefaultEventBusOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	publisher := events.NewPublisher(bus, "test")

	return session.New(r, engine, publisher, cfg)
}

func sameSwitchGraph() nffg.NFFG {
	return nffg.NFFG{
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
}

func TestPostGraph_RealisesAndCompletes(t *testing.T) {
	ctx := context.Background()
	ctl := &fakeController{
		devices: []controller.Device{{SwitchID: "s1"}},
		ports: map[string][]controller.Port{
			"s1": {{SwitchID: "s1", Number: "1", Name: "p1"}, {SwitchID: "s1", Number: "2", Name: "p2"}},
		},
	}
	c := newCoordinator(t, ctl)

	graphID, err := c.PostGraph(ctx, "user1", sameSwitchGraph())
	require.NoError(t, err)
	assert.NotEmpty(t, graphID)

	st, err := c.StatusGraph(ctx, "user1", graphID)
	require.NoError(t, err)
	assert.Equal(t, "complete", st.Status)
	assert.Equal(t, 100, st.Percentage)

	got, err := c.GetGraph(ctx, "user1", graphID)
	require.NoError(t, err)
	assert.Len(t, got.FlowRules, 1)
}

func TestPostGraph_NoPathRollsBackToError(t *testing.T) {
	ctx := context.Background()
	ctl := &fakeController{
		devices: []controller.Device{{SwitchID: "s1"}, {SwitchID: "s2"}},
		ports: map[string][]controller.Port{
			"s1": {{SwitchID: "s1", Number: "1", Name: "p1"}},
			"s2": {{SwitchID: "s2", Number: "1", Name: "p1"}},
		},
	}
	c := newCoordinator(t, ctl)

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

	_, err := c.PostGraph(ctx, "user1", graph)
	require.Error(t, err)
}

func TestDeleteGraph_RemovesGraph(t *testing.T) {
	ctx := context.Background()
	ctl := &fakeController{
		devices: []controller.Device{{SwitchID: "s1"}},
		ports: map[string][]controller.Port{
			"s1": {{SwitchID: "s1", Number: "1", Name: "p1"}, {SwitchID: "s1", Number: "2", Name: "p2"}},
		},
	}
	c := newCoordinator(t, ctl)

	graphID, err := c.PostGraph(ctx, "user1", sameSwitchGraph())
	require.NoError(t, err)

	require.NoError(t, c.DeleteGraph(ctx, "user1", graphID))

	_, err = c.GetGraph(ctx, "user1", graphID)
	require.Error(t, err)
}

func TestPutGraph_NoGraphFoundWithoutPriorPost(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, &fakeController{})
	err := c.PutGraph(ctx, "user1", "does-not-exist", sameSwitchGraph())
	require.Error(t, err)
}
