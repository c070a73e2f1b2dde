package validation

import (
	"context"

	"domain-orchestrator/internal/nffg"
)

// Stage defines the interface for a precondition validation stage run
// before a graph is realised.
type Stage interface {
	// Number returns the stage's position in the pipeline.
	Number() int

	// Name returns the human-readable stage name.
	Name() string

	// Validate performs validation and returns findings.
	Validate(ctx context.Context, input *StageInput) *ValidationResult
}

// StageInput holds the data passed to each precondition stage: the
// submitted graph plus whatever lookups a stage needs to check it against
// the domain's current capabilities and VLAN policy.
type StageInput struct {
	Graph nffg.NFFG

	// AvailableCapabilities is the set of VNF functional capabilities (case
	// folded) the domain currently offers, used by the CapabilityMissing check.
	AvailableCapabilities map[string]bool

	// ForbiddenEndpointFields lists endpoint field names that must be absent.
	ForbiddenEndpointFields []string

	// VlanRanges is the configured set of allowed push/set VLAN ids.
	VlanRanges []VlanRange
}

// VlanRange mirrors config.VlanRange without importing the config package,
// keeping validation's dependency surface limited to nffg.
type VlanRange struct {
	Low  int
	High int
}

func (r VlanRange) Contains(vid int) bool { return vid >= r.Low && vid <= r.High }

// NewStageInput creates a new stage input for the given graph.
func NewStageInput(graph nffg.NFFG) *StageInput {
	return &StageInput{
		Graph:                 graph,
		AvailableCapabilities: make(map[string]bool),
	}
}

// stageRegistry holds registered validation stages.
type stageRegistry struct {
	stages []Stage
}

// newStageRegistry creates a new empty stage registry.
func newStageRegistry() *stageRegistry {
	return &stageRegistry{
		stages: make([]Stage, 0, 7),
	}
}

// Register adds a stage to the registry.
// Stages are automatically sorted by number when the engine runs.
func (r *stageRegistry) Register(stage Stage) {
	r.stages = append(r.stages, stage)
}

// GetStages returns all registered stages sorted by number.
func (r *stageRegistry) GetStages() []Stage {
	// Simple insertion sort (max 7 stages).
	sorted := make([]Stage, len(r.stages))
	copy(sorted, r.stages)
	for i := 1; i < len(sorted); i++ {
		key := sorted[i]
		j := i - 1
		for j >= 0 && sorted[j].Number() > key.Number() {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = key
	}
	return sorted
}
