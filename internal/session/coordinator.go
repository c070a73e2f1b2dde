// Package session implements SessionCoordinator: the top-level object the
// REST façade calls into for one request, owning session-id minting,
// precondition validation, realisation orchestration, failure rollback and
// status transitions.
package session

import (
	"context"

	"github.com/google/uuid"

	"domain-orchestrator/internal/apperrors"
	"domain-orchestrator/internal/config"
	"domain-orchestrator/internal/events"
	"domain-orchestrator/internal/logger"
	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/profile"
	"domain-orchestrator/internal/realiser"
	"domain-orchestrator/internal/validation"
	"go.uber.org/zap"
)

// Coordinator is the SessionCoordinator of the component design: it owns no
// storage of its own, delegating everything to the Realiser's wired
// GraphStore/ControllerClient/ResourceDescription, and adds the request-
// level concerns those leaves don't: validation, diffing, concurrency
// control and rollback.
type Coordinator struct {
	Realiser  *realiser.Realiser
	Engine    *validation.Engine
	Publisher *events.Publisher
	Config    *config.Config

	switchLocks *switchLockTable
	graphLocks  *keyedMutex
}

// New constructs a Coordinator. engine may be nil, in which case validation
// is skipped (useful for tests that exercise realisation directly).
func New(r *realiser.Realiser, engine *validation.Engine, publisher *events.Publisher, cfg *config.Config) *Coordinator {
	return &Coordinator{
		Realiser:    r,
		Engine:      engine,
		Publisher:   publisher,
		Config:      cfg,
		switchLocks: newSwitchLockTable(),
		graphLocks:  newKeyedMutex(),
	}
}

// PostGraph implements postGraph(nffg): mints a fresh graph id, persists a
// skeleton, runs validation and realisation, and rolls back on failure.
func (c *Coordinator) PostGraph(ctx context.Context, userID string, graph nffg.NFFG) (string, error) {
	graphID, err := c.freshGraphID(ctx)
	if err != nil {
		return "", err
	}

	release := c.graphLocks.lock(userID + "/" + graphID)
	defer release()

	if err := c.validate(ctx, graph); err != nil {
		return "", err
	}

	sessionID, err := c.Realiser.Store.StoreGraph(ctx, userID, graphID, "", graph)
	if err != nil {
		return "", err
	}

	p := profile.Build(graph)
	if err := c.realiseLocked(ctx, userID, graphID, sessionID, p); err != nil {
		c.rollback(ctx, sessionID, graph, err)
		return "", err
	}

	if err := c.Realiser.Store.UpdateStatus(ctx, sessionID, string(events.SessionStatusComplete)); err != nil {
		return "", err
	}
	c.publishStatus(ctx, sessionID, graphID, events.SessionStatusComplete, events.SessionStatusInitialization)
	return graphID, nil
}

// PutGraph implements putGraph(nffg, nffg_id): reconciles a resubmitted
// graph against the session's currently persisted one.
func (c *Coordinator) PutGraph(ctx context.Context, userID, graphID string, updated nffg.NFFG) error {
	release := c.graphLocks.lock(userID + "/" + graphID)
	defer release()

	sessionID, err := c.Realiser.Store.SessionForGraph(ctx, userID, graphID)
	if err != nil {
		return err
	}

	if err := c.validate(ctx, updated); err != nil {
		return err
	}

	old, err := c.Realiser.Store.LoadGraph(ctx, sessionID)
	if err != nil {
		return err
	}

	diff := nffg.Diff(old, updated)
	if err := c.Realiser.Store.UpdateStatus(ctx, sessionID, string(events.SessionStatusUpdating)); err != nil {
		return err
	}
	if err := c.Realiser.Store.UpdateGraph(ctx, sessionID, diff); err != nil {
		c.rollback(ctx, sessionID, old, err)
		return err
	}

	p := profile.Build(diff)
	if err := c.realiseLocked(ctx, userID, graphID, sessionID, p); err != nil {
		c.rollback(ctx, sessionID, updated, err)
		return err
	}

	if err := c.Realiser.Store.UpdateStatus(ctx, sessionID, string(events.SessionStatusComplete)); err != nil {
		return err
	}
	c.publishStatus(ctx, sessionID, graphID, events.SessionStatusComplete, events.SessionStatusUpdating)
	return nil
}

// DeleteGraph implements deleteGraph(nffg_id): deactivates every VNF
// application the graph activated and tears down its persisted state. A
// graph with no active session returns the lookup error; once the session
// is found, teardown is best-effort (errors are logged, never surfaced).
func (c *Coordinator) DeleteGraph(ctx context.Context, userID, graphID string) error {
	release := c.graphLocks.lock(userID + "/" + graphID)
	defer release()

	sessionID, err := c.Realiser.Store.SessionForGraph(ctx, userID, graphID)
	if err != nil {
		return err
	}

	graph, err := c.Realiser.Store.LoadGraph(ctx, sessionID)
	if err != nil {
		logger.WarnCtx(ctx, "deleteGraph: failed loading graph before teardown", zap.String("session_id", sessionID), zap.Error(err))
	} else {
		c.deactivateVnfs(ctx, graph)
	}

	if err := c.Realiser.Store.DeleteGraph(ctx, sessionID); err != nil {
		logger.WarnCtx(ctx, "deleteGraph: cascade delete failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := c.Realiser.Store.UpdateEnded(ctx, sessionID); err != nil {
		logger.WarnCtx(ctx, "deleteGraph: failed to mark session ended", zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

// GetGraph implements getGraph(nffg_id): returns the reconstructed logical
// NF-FG, excluding every type=external flow rule.
func (c *Coordinator) GetGraph(ctx context.Context, userID, graphID string) (nffg.NFFG, error) {
	sessionID, err := c.Realiser.Store.SessionForGraph(ctx, userID, graphID)
	if err != nil {
		return nffg.NFFG{}, err
	}
	graph, err := c.Realiser.Store.LoadGraph(ctx, sessionID)
	if err != nil {
		return nffg.NFFG{}, err
	}
	graph.ID = graphID
	return graph, nil
}

// ListGraphs implements the bare `/NF-FG/` listing endpoint.
func (c *Coordinator) ListGraphs(ctx context.Context, userID string) (map[string]nffg.NFFG, error) {
	return c.Realiser.Store.ListGraphs(ctx, userID)
}

// Status is the (status, percentage) pair statusGraph returns.
type Status struct {
	Status     string
	Percentage int
}

// StatusGraph implements statusGraph(nffg_id).
func (c *Coordinator) StatusGraph(ctx context.Context, userID, graphID string) (Status, error) {
	sessionID, err := c.Realiser.Store.SessionForGraph(ctx, userID, graphID)
	if err != nil {
		return Status{}, err
	}
	status, _, err := c.Realiser.Store.SessionStatus(ctx, sessionID)
	if err != nil {
		return Status{}, err
	}
	done, total, err := c.Realiser.Store.FlowRuleProgress(ctx, sessionID)
	if err != nil {
		return Status{}, err
	}
	pct := 100
	if total > 0 {
		pct = done * 100 / total
	}
	return Status{Status: status, Percentage: pct}, nil
}

// freshGraphID mints a UUID that collides with no existing graph id,
// retrying the astronomically unlikely collision case rather than trusting
// uniqueness blindly.
func (c *Coordinator) freshGraphID(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		candidate := uuid.NewString()
		exists, err := c.Realiser.Store.GraphIDExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", apperrors.GraphError("could not mint a unique graph id")
}

// validate runs the precondition pipeline (§4.5.1) ahead of realisation.
func (c *Coordinator) validate(ctx context.Context, graph nffg.NFFG) error {
	if c.Engine == nil {
		return nil
	}
	input := validation.NewStageInput(graph)
	if c.Realiser.Resources != nil {
		input.AvailableCapabilities = c.Realiser.Resources.Capabilities()
	}
	if c.Config != nil {
		input.ForbiddenEndpointFields = c.Config.ForbiddenEndpointFields
		for _, vr := range c.Config.VlanRanges() {
			input.VlanRanges = append(input.VlanRanges, validation.VlanRange{Low: vr.Low, High: vr.High})
		}
	}
	result := c.Engine.Validate(ctx, input)
	if !result.Valid {
		return apperrors.GraphError(result.Summary())
	}
	return nil
}

// realiseLocked acquires every switch lock a graph's paths touch, in
// canonical sorted order, before driving the Realiser -- the §5 rule that
// preserves VLAN-uniqueness across a shared link under concurrent requests.
func (c *Coordinator) realiseLocked(ctx context.Context, userID, graphID, sessionID string, p *profile.Graph) error {
	switches, err := c.Realiser.InvolvedSwitches(ctx, p)
	if err != nil {
		return err
	}
	release := c.switchLocks.acquire(switches)
	defer release()
	return c.Realiser.Realise(ctx, userID, graphID, sessionID, p)
}

// rollback implements §7's whole-graph rollback: deactivate every VNF
// application the graph may have activated, delete every persisted entity,
// and record the failure. Each step is best-effort so a failure partway
// through still frees as many resources as possible.
func (c *Coordinator) rollback(ctx context.Context, sessionID string, graph nffg.NFFG, cause error) {
	logger.ErrorCtx(ctx, "realisation failed, rolling back session", zap.String("session_id", sessionID), zap.Error(cause))
	c.deactivateVnfs(ctx, graph)
	if err := c.Realiser.Store.DeleteGraph(ctx, sessionID); err != nil {
		logger.ErrorCtx(ctx, "rollback: cascade delete failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := c.Realiser.Store.UpdateError(ctx, sessionID, cause.Error()); err != nil {
		logger.ErrorCtx(ctx, "rollback: failed to record session error", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (c *Coordinator) deactivateVnfs(ctx context.Context, graph nffg.NFFG) {
	if c.Config != nil && c.Config.DomainOrchestrator.DetachedMode {
		return
	}
	for _, v := range graph.Vnfs {
		if v.ApplicationName == "" {
			continue
		}
		if err := c.Realiser.Client.DeactivateApp(ctx, v.ApplicationName); err != nil {
			logger.WarnCtx(ctx, "rollback: failed to deactivate vnf application",
				zap.String("application", v.ApplicationName), zap.Error(err))
		}
	}
}

func (c *Coordinator) publishStatus(ctx context.Context, sessionID, graphID string, status, previous events.SessionStatus) {
	if c.Publisher == nil {
		return
	}
	if err := c.Publisher.PublishSessionStatusChanged(ctx, sessionID, graphID, status, previous); err != nil {
		logger.WarnCtx(ctx, "failed to publish session status change", zap.Error(err))
	}
	if status == events.SessionStatusComplete && c.Realiser.Resources != nil {
		_ = c.Publisher.PublishDomainDescriptionPublished(ctx, c.Realiser.Resources.Count(), "")
	}
}
