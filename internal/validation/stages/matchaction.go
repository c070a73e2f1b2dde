package stages

import (
	"context"
	"fmt"
	"strings"

	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/validation"
)

// MatchStage fails with GraphError when a flow rule's match.port_in is not
// of the symbolic form "endpoint:<gid>".
type MatchStage struct{}

func (MatchStage) Number() int  { return 3 }
func (MatchStage) Name() string { return "match" }

func (MatchStage) Validate(_ context.Context, input *validation.StageInput) *validation.ValidationResult {
	result := validation.NewResult()
	for _, f := range input.Graph.FlowRules {
		if f.Match.PortInType != nffg.PortInEndpoint || !strings.HasPrefix(f.Match.PortIn, "endpoint:") {
			result.AddError(&validation.ValidationError{
				Stage:     3,
				StageName: "match",
				Severity:  validation.SeverityError,
				Field:     fmt.Sprintf("flowrule[%s].match.port_in", f.GraphFlowRuleID),
				Message:   fmt.Sprintf("match.port_in %q is not of the form endpoint:<gid>", f.Match.PortIn),
				Code:      "GraphError",
			})
		}
	}
	return result
}

// ActionStage fails with GraphError when a flow rule carries more than one
// output action (drop and output are both output dispositions).
type ActionStage struct{}

func (ActionStage) Number() int  { return 4 }
func (ActionStage) Name() string { return "action" }

func (ActionStage) Validate(_ context.Context, input *validation.StageInput) *validation.ValidationResult {
	result := validation.NewResult()
	for _, f := range input.Graph.FlowRules {
		outputs := 0
		for _, a := range f.Actions {
			if a.IsOutput() {
				outputs++
			}
		}
		if outputs > 1 {
			result.AddError(&validation.ValidationError{
				Stage:     4,
				StageName: "action",
				Severity:  validation.SeverityError,
				Field:     fmt.Sprintf("flowrule[%s].actions", f.GraphFlowRuleID),
				Message:   fmt.Sprintf("flow rule has %d output actions, at most one is allowed", outputs),
				Code:      "GraphError",
			})
		}
	}
	return result
}

// VlanRangeStage fails with GraphError when a push/set VLAN action's id
// falls outside the configured allowed ranges.
type VlanRangeStage struct{}

func (VlanRangeStage) Number() int  { return 5 }
func (VlanRangeStage) Name() string { return "vlan-range" }

func (VlanRangeStage) Validate(_ context.Context, input *validation.StageInput) *validation.ValidationResult {
	result := validation.NewResult()
	for _, f := range input.Graph.FlowRules {
		for _, a := range f.Actions {
			if a.Kind != nffg.ActionPushVlan && a.Kind != nffg.ActionSetVlanID {
				continue
			}
			if !vidInRanges(a.SetVlanID, input.VlanRanges) {
				result.AddError(&validation.ValidationError{
					Stage:     5,
					StageName: "vlan-range",
					Severity:  validation.SeverityError,
					Field:     fmt.Sprintf("flowrule[%s].actions", f.GraphFlowRuleID),
					Message:   fmt.Sprintf("vlan id %d is outside the allowed ranges", a.SetVlanID),
					Code:      "GraphError",
				})
			}
		}
	}
	return result
}

func vidInRanges(vid int, ranges []validation.VlanRange) bool {
	for _, r := range ranges {
		if r.Contains(vid) {
			return true
		}
	}
	return false
}
