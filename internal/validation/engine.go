package validation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"domain-orchestrator/internal/logger"
)

// Engine orchestrates the precondition validation pipeline run before a
// graph is realised. It runs stages sequentially, stopping on the first
// blocking error unless ContinueOnError is set.
type Engine struct {
	registry        *stageRegistry
	continueOnError bool
}

// EngineConfig holds configuration for the validation engine.
type EngineConfig struct {
	// ContinueOnError, if true, runs all stages even after errors.
	// Default (false) stops at the first stage with blocking errors.
	ContinueOnError bool
}

// NewEngine creates a new validation engine.
func NewEngine(config EngineConfig) *Engine {
	return &Engine{
		registry:        newStageRegistry(),
		continueOnError: config.ContinueOnError,
	}
}

// RegisterStage adds a validation stage to the engine.
func (e *Engine) RegisterStage(stage Stage) {
	e.registry.Register(stage)
}

// Validate runs the full validation pipeline on the given input.
// Returns the aggregate result with findings from all executed stages.
func (e *Engine) Validate(ctx context.Context, input *StageInput) *ValidationResult {
	result := NewResult()
	stages := e.registry.GetStages()

	if len(stages) == 0 {
		logger.WarnCtx(ctx, "validation: no stages registered, skipping")
		return result
	}

	for _, stage := range stages {
		select {
		case <-ctx.Done():
			result.AddError(&ValidationError{
				Stage:     stage.Number(),
				StageName: stage.Name(),
				Severity:  SeverityError,
				Field:     "",
				Message:   fmt.Sprintf("validation canceled: %v", ctx.Err()),
				Code:      "CANCELED",
			})
			return result
		default:
		}

		stageResult := stage.Validate(ctx, input)
		result.Merge(stageResult)
		result.StagesRun++

		// Stop on first blocking error unless configured to continue
		if stageResult.HasErrors() && !e.continueOnError {
			logger.WarnCtx(ctx, "validation: stage failed, stopping pipeline",
				zap.Int("stage", stage.Number()), zap.String("stage_name", stage.Name()))
			break
		}
	}

	return result
}

// StageCount returns the number of registered stages.
func (e *Engine) StageCount() int {
	return len(e.registry.GetStages())
}
