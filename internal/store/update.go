package store

import (
	"context"
	"database/sql"
	"fmt"

	"domain-orchestrator/internal/apperrors"
	"domain-orchestrator/internal/nffg"
)

// UpdateGraph applies a diffed NF-FG to sessionID: diff carries every
// endpoint, flow rule and VNF tagged with the status a PUT comparison
// produced (new/to_be_deleted/to_be_updated/already_deployed). Each entity
// applies under its own savepoint, which undoes that entity's partial
// writes; the error is then returned and the whole diff is rolled back.
func (s *Store) UpdateGraph(ctx context.Context, sessionID string, diff nffg.NFFG) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for i, ep := range diff.Endpoints {
			if err := applyUnderSavepoint(ctx, tx, fmt.Sprintf("ep_%d", i), func() error {
				return applyEndpointDiff(ctx, tx, sessionID, ep)
			}); err != nil {
				return err
			}
		}
		for i, v := range diff.Vnfs {
			if err := applyUnderSavepoint(ctx, tx, fmt.Sprintf("vnf_%d", i), func() error {
				return applyVnfDiff(ctx, tx, sessionID, v)
			}); err != nil {
				return err
			}
		}
		for i, f := range diff.FlowRules {
			if err := applyUnderSavepoint(ctx, tx, fmt.Sprintf("flow_%d", i), func() error {
				return applyFlowRuleDiff(ctx, tx, sessionID, f)
			}); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE sessions SET status = 'updating', last_update = datetime('now') WHERE session_id = ?`,
			sessionID)
		if err != nil {
			return apperrors.StorageError("mark session updating", err)
		}
		return nil
	})
}

func applyUnderSavepoint(ctx context.Context, tx *sql.Tx, name string, fn func() error) error {
	sp, err := CreateSavepoint(ctx, tx, name)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rerr := sp.Rollback(ctx); rerr != nil {
			return apperrors.StorageError("rollback savepoint "+name, rerr)
		}
		return err
	}
	return sp.Release(ctx)
}

func applyEndpointDiff(ctx context.Context, tx *sql.Tx, sessionID string, ep nffg.Endpoint) error {
	switch ep.Status {
	case nffg.StatusNew:
		return insertEndpoint(ctx, tx, sessionID, ep)
	case nffg.StatusToBeDeleted:
		return deleteEndpointRow(ctx, tx, sessionID, ep.GraphID)
	case nffg.StatusToBeUpdated:
		if err := deleteEndpointRow(ctx, tx, sessionID, ep.GraphID); err != nil {
			return err
		}
		return insertEndpoint(ctx, tx, sessionID, ep)
	default: // already_deployed
		return nil
	}
}

func deleteEndpointRow(ctx context.Context, tx *sql.Tx, sessionID, graphEndpointID string) error {
	var endpointRowID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM endpoints WHERE session_id = ? AND graph_endpoint_id = ?`, sessionID, graphEndpointID).
		Scan(&endpointRowID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return apperrors.StorageError("lookup endpoint for diff delete", err)
	}

	var portRowID sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT resource_id FROM endpoint_resources WHERE endpoint_id = ? AND kind = ?`,
		endpointRowID, string(nffg.ResourcePort)).Scan(&portRowID)
	if err != nil && err != sql.ErrNoRows {
		return apperrors.StorageError("lookup endpoint port for diff delete", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM endpoint_resources WHERE endpoint_id = ?`, endpointRowID); err != nil {
		return apperrors.StorageError("delete endpoint resources", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM endpoints WHERE id = ?`, endpointRowID); err != nil {
		return apperrors.StorageError("delete endpoint", err)
	}
	if portRowID.Valid {
		return deletePortTx(ctx, tx, portRowID.Int64)
	}
	return nil
}

func applyVnfDiff(ctx context.Context, tx *sql.Tx, sessionID string, v nffg.Vnf) error {
	switch v.Status {
	case nffg.StatusNew:
		return insertVnf(ctx, tx, sessionID, v)
	case nffg.StatusToBeDeleted:
		return deleteVnfRow(ctx, tx, sessionID, v.GraphVnfID)
	case nffg.StatusToBeUpdated:
		if err := deleteVnfRow(ctx, tx, sessionID, v.GraphVnfID); err != nil {
			return err
		}
		return insertVnf(ctx, tx, sessionID, v)
	default:
		return nil
	}
}

func deleteVnfRow(ctx context.Context, tx *sql.Tx, sessionID, graphVnfID string) error {
	var vnfRowID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM vnfs WHERE session_id = ? AND graph_vnf_id = ?`, sessionID, graphVnfID).Scan(&vnfRowID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return apperrors.StorageError("lookup vnf for diff delete", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vnf_ports WHERE vnf_id = ?`, vnfRowID); err != nil {
		return apperrors.StorageError("delete vnf ports", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vnfs WHERE id = ?`, vnfRowID); err != nil {
		return apperrors.StorageError("delete vnf", err)
	}
	return nil
}

func applyFlowRuleDiff(ctx context.Context, tx *sql.Tx, sessionID string, f nffg.FlowRule) error {
	switch f.Status {
	case nffg.StatusNew:
		_, err := insertFlowRule(ctx, tx, sessionID, f)
		return err
	case nffg.StatusToBeDeleted:
		return deleteFlowRuleRow(ctx, tx, sessionID, f.GraphFlowRuleID)
	case nffg.StatusToBeUpdated:
		if err := deleteFlowRuleRow(ctx, tx, sessionID, f.GraphFlowRuleID); err != nil {
			return err
		}
		_, err := insertFlowRule(ctx, tx, sessionID, f)
		return err
	default:
		return nil
	}
}

func deleteFlowRuleRow(ctx context.Context, tx *sql.Tx, sessionID, graphFlowRuleID string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM flow_rules WHERE session_id = ? AND graph_flow_rule_id = ?`, sessionID, graphFlowRuleID)
	if err != nil {
		return apperrors.StorageError("lookup flow rules for diff delete", err)
	}
	var rowIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return apperrors.StorageError("scan flow rule id", err)
		}
		rowIDs = append(rowIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return apperrors.StorageError("iterate flow rule ids", err)
	}
	rows.Close()

	for _, id := range rowIDs {
		if err := deleteFlowRuleTx(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}
