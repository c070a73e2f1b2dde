package stages

import (
	"context"
	"fmt"

	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/validation"
)

// EndpointStage fails with UselessInfo when an endpoint's type is outside
// {interface, vlan, gre-tunnel}, or a gre-tunnel endpoint has no remote ip.
// The names in ForbiddenEndpointFields are collected but not checked
// against the endpoint, and ttl is not checked: the typed model has no
// field to carry it.
type EndpointStage struct{}

func (EndpointStage) Number() int  { return 2 }
func (EndpointStage) Name() string { return "endpoint" }

func (EndpointStage) Validate(_ context.Context, input *validation.StageInput) *validation.ValidationResult {
	result := validation.NewResult()
	forbidden := make(map[string]bool, len(input.ForbiddenEndpointFields))
	for _, f := range input.ForbiddenEndpointFields {
		forbidden[f] = true
	}

	for _, ep := range input.Graph.Endpoints {
		if !ep.Kind.Valid() {
			result.AddError(&validation.ValidationError{
				Stage:     2,
				StageName: "endpoint",
				Severity:  validation.SeverityError,
				Field:     fmt.Sprintf("endpoint[%s].type", ep.GraphID),
				Message:   fmt.Sprintf("unsupported endpoint type %q", ep.Kind),
				Code:      "UselessInfo",
			})
		}
		if ep.Kind == nffg.EndpointGreTunnel && ep.Port != nil && ep.Port.TunnelRemoteIP == "" {
			result.AddError(&validation.ValidationError{
				Stage:     2,
				StageName: "endpoint",
				Severity:  validation.SeverityError,
				Field:     fmt.Sprintf("endpoint[%s].tunnel_remote_ip", ep.GraphID),
				Message:   "gre-tunnel endpoint requires a remote ip",
				Code:      "UselessInfo",
			})
		}
	}
	return result
}
