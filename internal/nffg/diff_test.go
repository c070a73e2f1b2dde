package nffg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-orchestrator/internal/nffg"
)

func TestDiff_NewEndpointFlipsDependentFlowToNew(t *testing.T) {
	old := nffg.NFFG{
		Endpoints: []nffg.Endpoint{{GraphID: "A"}, {GraphID: "B"}},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"}},
		}},
	}
	updated := nffg.NFFG{
		Endpoints: []nffg.Endpoint{{GraphID: "A"}, {GraphID: "B"}, {GraphID: "C"}},
		FlowRules: []nffg.FlowRule{
			{
				GraphFlowRuleID: "f1",
				Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
				Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"}},
			},
			{
				GraphFlowRuleID: "f2",
				Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
				Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:C"}},
			},
		},
	}

	diff := nffg.Diff(old, updated)

	var c nffg.Endpoint
	for _, e := range diff.Endpoints {
		if e.GraphID == "C" {
			c = e
		}
	}
	assert.Equal(t, nffg.StatusNew, c.Status)

	byGID := map[string]nffg.FlowRule{}
	for _, f := range diff.FlowRules {
		byGID[f.GraphFlowRuleID] = f
	}
	assert.Equal(t, nffg.StatusNew, byGID["f2"].Status, "f2 references the newly added endpoint C")
}

func TestDiff_RemovedEndpointMarkedToBeDeleted(t *testing.T) {
	old := nffg.NFFG{Endpoints: []nffg.Endpoint{{GraphID: "A"}, {GraphID: "B"}}}
	updated := nffg.NFFG{Endpoints: []nffg.Endpoint{{GraphID: "A"}}}

	diff := nffg.Diff(old, updated)

	found := false
	for _, e := range diff.Endpoints {
		if e.GraphID == "B" {
			found = true
			assert.Equal(t, nffg.StatusToBeDeleted, e.Status)
		}
	}
	require.True(t, found, "expected endpoint B in diff")
}

func TestDiff_UnchangedFlowStaysAlreadyDeployed(t *testing.T) {
	graph := nffg.NFFG{
		Endpoints: []nffg.Endpoint{{GraphID: "A"}, {GraphID: "B"}},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"}},
		}},
	}

	diff := nffg.Diff(graph, graph)
	require.Len(t, diff.FlowRules, 1)
	assert.Equal(t, nffg.StatusAlreadyDeployed, diff.FlowRules[0].Status)
}

func TestDiff_EndpointPortChangeFlipsEndpointAndDependentFlowToNew(t *testing.T) {
	old := nffg.NFFG{
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
	updated := nffg.NFFG{
		Endpoints: []nffg.Endpoint{
			{GraphID: "A", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s1", InterfaceName: "p1"}},
			{GraphID: "B", Kind: nffg.EndpointInterface, Port: &nffg.Port{SwitchID: "s2", InterfaceName: "p9"}},
		},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"}},
		}},
	}

	diff := nffg.Diff(old, updated)

	byGID := map[string]nffg.Endpoint{}
	for _, e := range diff.Endpoints {
		byGID[e.GraphID] = e
	}
	assert.Equal(t, nffg.StatusToBeUpdated, byGID["B"].Status, "B kept its gid but moved to a new switch/port")
	assert.Equal(t, nffg.StatusAlreadyDeployed, byGID["A"].Status, "A is untouched")

	flowsByGID := map[string]nffg.FlowRule{}
	for _, f := range diff.FlowRules {
		flowsByGID[f.GraphFlowRuleID] = f
	}
	assert.Equal(t, nffg.StatusNew, flowsByGID["f1"].Status, "f1 must be reinstalled against B's new port")
}

func TestDiff_VnfPortChangeFlipsToBeUpdated(t *testing.T) {
	old := nffg.NFFG{Vnfs: []nffg.Vnf{{
		GraphVnfID:           "v1",
		FunctionalCapability: "firewall",
		Ports:                []nffg.VnfPort{{GraphPortID: "p1", Name: "in"}},
	}}}
	updated := nffg.NFFG{Vnfs: []nffg.Vnf{{
		GraphVnfID:           "v1",
		FunctionalCapability: "firewall",
		Ports:                []nffg.VnfPort{{GraphPortID: "p1", Name: "in"}, {GraphPortID: "p2", Name: "out"}},
	}}}

	diff := nffg.Diff(old, updated)
	require.Len(t, diff.Vnfs, 1)
	assert.Equal(t, nffg.StatusToBeUpdated, diff.Vnfs[0].Status)
}

func TestDiff_RemovedFlowMarkedToBeDeleted(t *testing.T) {
	old := nffg.NFFG{FlowRules: []nffg.FlowRule{{GraphFlowRuleID: "f1"}, {GraphFlowRuleID: "f2"}}}
	updated := nffg.NFFG{FlowRules: []nffg.FlowRule{{GraphFlowRuleID: "f1"}}}

	diff := nffg.Diff(old, updated)
	byGID := map[string]nffg.FlowRule{}
	for _, f := range diff.FlowRules {
		byGID[f.GraphFlowRuleID] = f
	}
	assert.Equal(t, nffg.StatusToBeDeleted, byGID["f2"].Status)
}
