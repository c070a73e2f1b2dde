package store

import (
	"context"
	"database/sql"

	"domain-orchestrator/internal/apperrors"
	"domain-orchestrator/internal/nffg"
)

// AddFlowRule installs a new physical (type=external) flow rule under
// sessionID, recording the vlan-tracking row isDirectEndpoint relies on.
func (s *Store) AddFlowRule(ctx context.Context, sessionID string, f nffg.FlowRule) (int64, error) {
	return WithTxResult(ctx, s, func(tx *sql.Tx) (int64, error) {
		return insertFlowRule(ctx, tx, sessionID, f)
	})
}

// FlowWithInternalID reports whether a flow rule with the given internal
// (per-switch physical) name already exists on switchID, the lookup
// §4.5.6's flow-name uniqueness loop repeats with an incremented suffix.
func (s *Store) FlowWithInternalID(ctx context.Context, switchID, internalID string) (*nffg.FlowRule, error) {
	var rowID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM flow_rules WHERE switch_id = ? AND internal_id = ?`, switchID, internalID).Scan(&rowID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StorageError("lookup flow by internal id", err)
	}
	return s.flowRuleByRowID(ctx, rowID)
}

// FlowOnSwitch returns a flow rule matching every field of m (including
// vlan_id) on (switchID, m.PortIn), the collision-detection lookup §4.5.5
// performs before installing each hop.
func (s *Store) FlowOnSwitch(ctx context.Context, switchID string, m nffg.Match) (*nffg.FlowRule, error) {
	candidates, err := s.MatchesOnSwitch(ctx, switchID, m)
	if err != nil {
		return nil, err
	}
	for _, f := range candidates {
		if f.Match.Equal(m) {
			rule := f
			return &rule, nil
		}
	}
	return nil, nil
}

func (s *Store) flowRuleByRowID(ctx context.Context, rowID int64) (*nffg.FlowRule, error) {
	var (
		f                           nffg.FlowRule
		gid                         string
		internalID, switchID        sql.NullString
		ftype, status               string
		priority                    int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT graph_flow_rule_id, internal_id, switch_id, type, priority, status FROM flow_rules WHERE id = ?`,
		rowID).Scan(&gid, &internalID, &switchID, &ftype, &priority, &status)
	if err != nil {
		return nil, apperrors.StorageError("load flow rule", err)
	}
	f.ID = rowID
	f.GraphFlowRuleID = gid
	f.InternalID = internalID.String
	f.SwitchID = switchID.String
	f.Type = nffg.FlowRuleType(ftype)
	f.Priority = priority
	f.Status = nffg.Status(status)

	match, err := loadMatch(ctx, s.db, rowID)
	if err != nil {
		return nil, err
	}
	f.Match = match
	actions, err := loadActions(ctx, s.db, rowID)
	if err != nil {
		return nil, err
	}
	f.Actions = actions
	return &f, nil
}

// MatchesOnSwitch returns every installed flow rule on switchID whose match
// agrees with m on every field but VlanID -- the collision-detection query
// behind both duplicate-rule reuse and busyVlansOn.
func (s *Store) MatchesOnSwitch(ctx context.Context, switchID string, m nffg.Match) ([]nffg.FlowRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fr.id FROM flow_rules fr
		 JOIN matches mt ON mt.flow_rule_id = fr.id
		 WHERE fr.switch_id = ? AND fr.status != ? AND mt.port_in = ? AND mt.port_in_type = ?`,
		switchID, string(nffg.StatusToBeDeleted), m.PortIn, string(m.PortInType))
	if err != nil {
		return nil, apperrors.StorageError("query matches on switch", err)
	}
	var rowIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, apperrors.StorageError("scan match row", err)
		}
		rowIDs = append(rowIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, apperrors.StorageError("iterate match rows", err)
	}
	rows.Close()

	var out []nffg.FlowRule
	for _, id := range rowIDs {
		f, err := s.flowRuleByRowID(ctx, id)
		if err != nil {
			return nil, err
		}
		if f.Match.NonVlanEqual(m) {
			out = append(out, *f)
		}
	}
	return out, nil
}

// BusyVlansOn satisfies vlan.BusyLookup: the set of VLAN ids already in use
// by an installed flow rule sharing (switchID, portIn, non-vlan match
// fields), which the allocator must not reassign.
func (s *Store) BusyVlansOn(ctx context.Context, switchID, portIn string, match nffg.Match) (map[int]bool, error) {
	probe := match
	probe.PortIn = portIn
	rules, err := s.MatchesOnSwitch(ctx, switchID, probe)
	if err != nil {
		return nil, err
	}
	busy := make(map[int]bool)
	for _, f := range rules {
		if f.Match.VlanID != nil {
			busy[*f.Match.VlanID] = true
		}
	}
	return busy, nil
}

// IsDirectEndpoint reports whether (switchID, portIn) already carries an
// installed flow rule with a null ingress VLAN -- i.e. the port is attached
// directly to an endpoint rather than reached behind a VLAN-tagged hop.
// Resolved per the vlan-tracking table written whenever an external flow
// rule matching a port with no vlan_id is installed, the
// approach spec's open question names as the alternative to deriving it
// structurally from the match rows.
func (s *Store) IsDirectEndpoint(ctx context.Context, switchID, portIn string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM vlan_tracking vt
		 JOIN flow_rules fr ON fr.id = vt.flow_rule_id
		 WHERE vt.switch_id = ? AND vt.port_in = ? AND vt.vlan_in IS NULL AND fr.status != ?
		 LIMIT 1`,
		switchID, portIn, string(nffg.StatusToBeDeleted)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.StorageError("lookup direct endpoint", err)
	}
	return true, nil
}

// SessionStatus returns a session's current status and, if it ended in
// error, the recorded failure message.
func (s *Store) SessionStatus(ctx context.Context, sessionID string) (status, errMessage string, err error) {
	var errMsg sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT status, error FROM sessions WHERE session_id = ?`, sessionID)
	if scanErr := row.Scan(&status, &errMsg); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", "", apperrors.SessionNotFound(sessionID)
		}
		return "", "", apperrors.StorageError("lookup session status", scanErr)
	}
	return status, errMsg.String, nil
}

// FlowRuleProgress reports how many of a session's logical flow rules have
// at least one physical (type=external) realisation installed under them,
// for statusGraph reporting. A logical rule never transitions its own
// status once inserted -- realisation is reflected by the external rows
// pushed under the same graph_flow_rule_id, not by a status flip.
func (s *Store) FlowRuleProgress(ctx context.Context, sessionID string) (done, total int, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(CASE WHEN EXISTS (
			SELECT 1 FROM flow_rules x
			WHERE x.session_id = fr.session_id
			  AND x.graph_flow_rule_id = fr.graph_flow_rule_id
			  AND x.type = ?
		 ) THEN 1 ELSE 0 END)
		 FROM flow_rules fr WHERE fr.session_id = ? AND fr.type = ?`,
		string(nffg.FlowRuleExternal), sessionID, string(nffg.FlowRuleLogical))
	var totalN sql.NullInt64
	var doneN sql.NullInt64
	if scanErr := row.Scan(&totalN, &doneN); scanErr != nil {
		return 0, 0, apperrors.StorageError("flow rule progress", scanErr)
	}
	return int(doneN.Int64), int(totalN.Int64), nil
}

// UpdateStatus transitions a session to status, touching last_update.
func (s *Store) UpdateStatus(ctx context.Context, sessionID string, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, last_update = datetime('now') WHERE session_id = ?`,
		status, sessionID)
	if err != nil {
		return apperrors.StorageError("update session status", err)
	}
	return nil
}

// UpdateError records a terminal failure reason against a session and marks
// it errored.
func (s *Store) UpdateError(ctx context.Context, sessionID, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = 'error', error = ?, last_update = datetime('now') WHERE session_id = ?`,
		message, sessionID)
	if err != nil {
		return apperrors.StorageError("update session error", err)
	}
	return nil
}

// UpdateEnded marks a session's realisation as finished, stamping ended_at.
func (s *Store) UpdateEnded(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended = datetime('now'), last_update = datetime('now') WHERE session_id = ?`,
		sessionID)
	if err != nil {
		return apperrors.StorageError("update session ended", err)
	}
	return nil
}

// DeleteFlowRuleByID removes a flow rule and its match/actions/tracking rows.
func (s *Store) DeleteFlowRuleByID(ctx context.Context, flowRuleRowID int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return deleteFlowRuleTx(ctx, tx, flowRuleRowID)
	})
}

func deleteFlowRuleTx(ctx context.Context, tx *sql.Tx, flowRuleRowID int64) error {
	stmts := []string{
		`DELETE FROM vlan_tracking WHERE flow_rule_id = ?`,
		`DELETE FROM actions WHERE flow_rule_id = ?`,
		`DELETE FROM matches WHERE flow_rule_id = ?`,
		`DELETE FROM flow_rules WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, flowRuleRowID); err != nil {
			return apperrors.StorageError("delete flow rule cascade", err)
		}
	}
	return nil
}

// DeleteEndpointByID removes an endpoint, its bound port (if any) and the
// join row between them.
func (s *Store) DeleteEndpointByID(ctx context.Context, endpointRowID int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var portRowID sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT resource_id FROM endpoint_resources WHERE endpoint_id = ? AND kind = ?`,
			endpointRowID, string(nffg.ResourcePort)).Scan(&portRowID)
		if err != nil && err != sql.ErrNoRows {
			return apperrors.StorageError("lookup endpoint port for delete", err)
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
	})
}

// DeletePort removes a port row directly, used when a port is detached
// without going through its owning endpoint (e.g. a VNF port).
func (s *Store) DeletePort(ctx context.Context, portRowID int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return deletePortTx(ctx, tx, portRowID)
	})
}

func deletePortTx(ctx context.Context, tx *sql.Tx, portRowID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM ports WHERE id = ?`, portRowID); err != nil {
		return apperrors.StorageError("delete port", err)
	}
	return nil
}

// DeleteVnfByID removes a VNF and its ports.
func (s *Store) DeleteVnfByID(ctx context.Context, vnfRowID int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vnf_ports WHERE vnf_id = ?`, vnfRowID); err != nil {
			return apperrors.StorageError("delete vnf ports", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vnfs WHERE id = ?`, vnfRowID); err != nil {
			return apperrors.StorageError("delete vnf", err)
		}
		return nil
	})
}

// DeleteGraph removes every entity a session owns and marks the session
// deleted, inside one transaction.
func (s *Store) DeleteGraph(ctx context.Context, sessionID string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			`DELETE FROM vlan_tracking WHERE flow_rule_id IN (SELECT id FROM flow_rules WHERE session_id = ?)`,
			`DELETE FROM actions WHERE flow_rule_id IN (SELECT id FROM flow_rules WHERE session_id = ?)`,
			`DELETE FROM matches WHERE flow_rule_id IN (SELECT id FROM flow_rules WHERE session_id = ?)`,
			`DELETE FROM flow_rules WHERE session_id = ?`,
			`DELETE FROM vnf_ports WHERE vnf_id IN (SELECT id FROM vnfs WHERE session_id = ?)`,
			`DELETE FROM vnfs WHERE session_id = ?`,
			`DELETE FROM endpoint_resources WHERE endpoint_id IN (SELECT id FROM endpoints WHERE session_id = ?)`,
			`DELETE FROM ports WHERE session_id = ?`,
			`DELETE FROM endpoints WHERE session_id = ?`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, sessionID); err != nil {
				return apperrors.StorageError("delete graph cascade", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET status = 'deleted', last_update = datetime('now') WHERE session_id = ?`,
			sessionID); err != nil {
			return apperrors.StorageError("mark session deleted", err)
		}
		return nil
	})
}
