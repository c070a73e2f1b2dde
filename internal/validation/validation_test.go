package validation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/validation"
	"domain-orchestrator/internal/validation/stages"
)

func newEngine() *validation.Engine {
	e := validation.NewEngine(validation.EngineConfig{})
	e.RegisterStage(stages.CapabilityStage{})
	e.RegisterStage(stages.EndpointStage{})
	e.RegisterStage(stages.MatchStage{})
	e.RegisterStage(stages.ActionStage{})
	e.RegisterStage(stages.VlanRangeStage{})
	return e
}

func TestValidate_CleanGraphPasses(t *testing.T) {
	graph := nffg.NFFG{
		Endpoints: []nffg.Endpoint{{GraphID: "A", Kind: nffg.EndpointInterface}},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions:         []nffg.Action{{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"}},
		}},
	}
	input := validation.NewStageInput(graph)

	result := newEngine().Validate(context.Background(), input)
	require.True(t, result.Valid)
	assert.Equal(t, 5, result.StagesRun)
}

func TestValidate_UnknownEndpointKindFailsUselessInfo(t *testing.T) {
	graph := nffg.NFFG{
		Endpoints: []nffg.Endpoint{{GraphID: "A", Kind: "bogus"}},
	}
	input := validation.NewStageInput(graph)

	result := newEngine().Validate(context.Background(), input)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "UselessInfo", result.Errors[0].Code)
}

func TestValidate_BadPortInFailsGraphErrorAndStopsPipeline(t *testing.T) {
	graph := nffg.NFFG{
		Endpoints: []nffg.Endpoint{{GraphID: "A", Kind: nffg.EndpointInterface}},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "port:17", PortInType: nffg.PortInPort},
		}},
	}
	input := validation.NewStageInput(graph)

	result := newEngine().Validate(context.Background(), input)
	require.False(t, result.Valid)
	assert.Equal(t, "GraphError", result.Errors[0].Code)
	// Stops after stage 3 (match); action/vlan-range stages never ran.
	assert.Equal(t, 3, result.StagesRun)
}

func TestValidate_MissingCapability(t *testing.T) {
	graph := nffg.NFFG{
		Vnfs: []nffg.Vnf{{GraphVnfID: "v1", FunctionalCapability: "firewall"}},
	}
	input := validation.NewStageInput(graph)
	input.AvailableCapabilities = map[string]bool{"nat": true}

	result := newEngine().Validate(context.Background(), input)
	require.False(t, result.Valid)
	assert.Equal(t, "CapabilityMissing", result.Errors[0].Code)
}

func TestValidate_TooManyOutputActions(t *testing.T) {
	graph := nffg.NFFG{
		Endpoints: []nffg.Endpoint{{GraphID: "A", Kind: nffg.EndpointInterface}},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions: []nffg.Action{
				{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"},
				{Kind: nffg.ActionOutput, OutputTo: "endpoint:C"},
			},
		}},
	}
	input := validation.NewStageInput(graph)

	result := newEngine().Validate(context.Background(), input)
	require.False(t, result.Valid)
	assert.Equal(t, "GraphError", result.Errors[0].Code)
}

func TestValidate_VlanOutsideAllowedRange(t *testing.T) {
	graph := nffg.NFFG{
		Endpoints: []nffg.Endpoint{{GraphID: "A", Kind: nffg.EndpointInterface}},
		FlowRules: []nffg.FlowRule{{
			GraphFlowRuleID: "f1",
			Match:           nffg.Match{PortIn: "endpoint:A", PortInType: nffg.PortInEndpoint},
			Actions: []nffg.Action{
				{Kind: nffg.ActionSetVlanID, SetVlanID: 4000},
				{Kind: nffg.ActionOutput, OutputTo: "endpoint:B"},
			},
		}},
	}
	input := validation.NewStageInput(graph)
	input.VlanRanges = []validation.VlanRange{{Low: 100, High: 200}}

	result := newEngine().Validate(context.Background(), input)
	require.False(t, result.Valid)
	assert.Equal(t, "GraphError", result.Errors[0].Code)
}
