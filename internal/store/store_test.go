package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleGraph() nffg.NFFG {
	return nffg.NFFG{
		Endpoints: []nffg.Endpoint{
			{GraphID: "A", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s1", InterfaceName: "eth0"}},
			{GraphID: "B", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s1", InterfaceName: "eth1"}},
		},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Type:            nffg.FlowRuleLogical,
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"}},
		}},
	}
}

func TestStoreGraph_RoundTrips(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sessionID, err := s.StoreGraph(ctx, "user1", "graph1", "sample", sampleGraph())
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	loaded, err := s.LoadGraph(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, loaded.Endpoints, 2)
	require.Len(t, loaded.FlowRules, 1)

	assert.Equal(t, "endpoint:A", loaded.FlowRules[0].Match.PortIn)
	assert.Equal(t, nffg.ActionOutput, loaded.FlowRules[0].Actions[0].Kind)
	assert.Equal(t, "endpoint:B", loaded.FlowRules[0].Actions[0].OutputTo)

	var epA *nffg.Endpoint
	for i := range loaded.Endpoints {
		if loaded.Endpoints[i].GraphID == "A" {
			epA = &loaded.Endpoints[i]
		}
	}
	require.NotNil(t, epA)
	require.NotNil(t, epA.Port)
	assert.Equal(t, "s1", epA.Port.SwitchID)
	assert.Equal(t, "eth0", epA.Port.InterfaceName)
}

func TestLoadGraph_UnknownSessionReturnsSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadGraph(context.Background(), "nope")
	require.Error(t, err)
}

func TestListGraphs_ReturnsEveryOwnedGraph(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.StoreGraph(ctx, "user1", "g1", "", sampleGraph())
	require.NoError(t, err)
	_, err = s.StoreGraph(ctx, "user1", "g2", "", sampleGraph())
	require.NoError(t, err)
	_, err = s.StoreGraph(ctx, "user2", "g3", "", sampleGraph())
	require.NoError(t, err)

	graphs, err := s.ListGraphs(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, graphs, 2)
	_, hasG1 := graphs["g1"]
	_, hasG2 := graphs["g2"]
	assert.True(t, hasG1)
	assert.True(t, hasG2)
}

func TestAddFlowRule_TracksDirectEndpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sessionID, err := s.StoreGraph(ctx, "user1", "g1", "", sampleGraph())
	require.NoError(t, err)

	_, err = s.AddFlowRule(ctx, sessionID, nffg.FlowRule{
		GraphFlowRuleID: "f1",
		InternalID:      "f1_0",
		SwitchID:        "s1",
		Type:            nffg.FlowRuleExternal,
		Match:           nffg.Match{PortIn: "port:eth0", PortInType: nffg.PortInPort},
		Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "port:eth1"}},
	})
	require.NoError(t, err)

	direct, err := s.IsDirectEndpoint(ctx, "s1", "port:eth0")
	require.NoError(t, err)
	assert.True(t, direct)

	notDirect, err := s.IsDirectEndpoint(ctx, "s1", "port:eth9")
	require.NoError(t, err)
	assert.False(t, notDirect)
}

func TestBusyVlansOn_ReportsInstalledVlans(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sessionID, err := s.StoreGraph(ctx, "user1", "g1", "", sampleGraph())
	require.NoError(t, err)

	vid := 42
	_, err = s.AddFlowRule(ctx, sessionID, nffg.FlowRule{
		GraphFlowRuleID: "f1",
		InternalID:      "f1_0",
		SwitchID:        "s1",
		Type:            nffg.FlowRuleExternal,
		Match:           nffg.Match{PortIn: "port:eth0", PortInType: nffg.PortInPort, VlanID: &vid},
		Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "port:eth1"}},
	})
	require.NoError(t, err)

	busy, err := s.BusyVlansOn(ctx, "s1", "port:eth0", nffg.Match{PortInType: nffg.PortInPort})
	require.NoError(t, err)
	assert.True(t, busy[42])
	assert.False(t, busy[43])
}

func TestUpdateGraph_AppliesNewAndDeletedEntities(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sessionID, err := s.StoreGraph(ctx, "user1", "g1", "", sampleGraph())
	require.NoError(t, err)

	diff := nffg.NFFG{
		Endpoints: []nffg.Endpoint{
			{GraphID: "A", Status: nffg.StatusToBeDeleted},
			{GraphID: "C", Kind: nffg.EndpointInterface, Status: nffg.StatusNew,
				Port: &nffg.Port{SwitchID: "s1", InterfaceName: "eth2"}},
		},
	}
	require.NoError(t, s.UpdateGraph(ctx, sessionID, diff))

	loaded, err := s.LoadGraph(ctx, sessionID)
	require.NoError(t, err)

	var ids []string
	for _, ep := range loaded.Endpoints {
		ids = append(ids, ep.GraphID)
	}
	assert.NotContains(t, ids, "A")
	assert.Contains(t, ids, "B")
	assert.Contains(t, ids, "C")
}

func TestDeleteGraph_RemovesEverything(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sessionID, err := s.StoreGraph(ctx, "user1", "g1", "", sampleGraph())
	require.NoError(t, err)

	require.NoError(t, s.DeleteGraph(ctx, sessionID))

	loaded, err := s.LoadGraph(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Endpoints)
	assert.Empty(t, loaded.FlowRules)
}

func TestFlowRuleProgress_CountsAlreadyDeployed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sessionID, err := s.StoreGraph(ctx, "user1", "g1", "", sampleGraph())
	require.NoError(t, err)

	done, total, err := s.FlowRuleProgress(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, done)
}
