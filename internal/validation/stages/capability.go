// Package stages implements the precondition checks the Realiser runs
// before attempting to realise a submitted graph (component design 4.5.1).
// Each stage's Code matches an apperrors.Kind name so the Realiser can
// translate the first blocking finding into the typed error it returns.
package stages

import (
	"context"
	"fmt"
	"strings"

	"domain-orchestrator/internal/validation"
)

// CapabilityStage fails with CapabilityMissing when a referenced VNF's
// functional capability is not offered by the current domain.
type CapabilityStage struct{}

func (CapabilityStage) Number() int { return 1 }
func (CapabilityStage) Name() string { return "capability" }

func (CapabilityStage) Validate(_ context.Context, input *validation.StageInput) *validation.ValidationResult {
	result := validation.NewResult()
	for _, vnf := range input.Graph.Vnfs {
		capability := strings.ToLower(strings.TrimSpace(vnf.FunctionalCapability))
		if capability == "" {
			continue
		}
		if !input.AvailableCapabilities[capability] {
			result.AddError(&validation.ValidationError{
				Stage:     1,
				StageName: "capability",
				Severity:  validation.SeverityError,
				Field:     fmt.Sprintf("vnf[%s].functional_capability", vnf.GraphVnfID),
				Message:   fmt.Sprintf("no application implements capability %q", vnf.FunctionalCapability),
				Code:      "CapabilityMissing",
			})
		}
	}
	return result
}
