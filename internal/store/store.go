// Package store implements GraphStore: transactional sqlite persistence for
// sessions and the NF-FG entities a session owns.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"domain-orchestrator/internal/apperrors"
	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/pkg/ulid"
)

// Store is the sqlite-backed GraphStore. The zero value is not usable; build
// one with Open.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and applies
// the schema. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.StorageError("open database", err)
	}
	db.SetMaxOpenConns(1) // sqlite write-serialization; one conn avoids SQLITE_BUSY
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, apperrors.StorageError("apply schema", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NewSessionID mints a fresh session identifier and records a new session
// row in the initialization status, owned by userID against graphID.
func (s *Store) NewSessionID(ctx context.Context, userID, graphID, graphName string) (string, error) {
	id := ulid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, graph_id, graph_name, status, started_at, last_update)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, graphID, graphName, "initialization", now, now)
	if err != nil {
		return "", apperrors.StorageError("insert session", err)
	}
	return id, nil
}

// StoreGraph persists a brand-new NF-FG under a freshly minted session and
// returns the session id.
func (s *Store) StoreGraph(ctx context.Context, userID, graphID, graphName string, graph nffg.NFFG) (string, error) {
	sessionID, err := s.NewSessionID(ctx, userID, graphID, graphName)
	if err != nil {
		return "", err
	}
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		return insertGraphEntities(ctx, tx, sessionID, graph)
	})
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// LoadGraph reconstructs the logical NF-FG (type=external flow rules
// excluded) a session currently owns.
func (s *Store) LoadGraph(ctx context.Context, sessionID string) (nffg.NFFG, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE session_id = ?`, sessionID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return nffg.NFFG{}, apperrors.SessionNotFound(sessionID)
		}
		return nffg.NFFG{}, apperrors.StorageError("lookup session", err)
	}
	return loadGraph(ctx, s.db, sessionID, false)
}

// ListGraphs returns every (graphID, NFFG) pair currently owned by userID.
func (s *Store) ListGraphs(ctx context.Context, userID string) (map[string]nffg.NFFG, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, graph_id FROM sessions WHERE user_id = ? AND status != 'deleted'`, userID)
	if err != nil {
		return nil, apperrors.StorageError("list sessions", err)
	}
	defer rows.Close()

	type pair struct{ sessionID, graphID string }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.sessionID, &p.graphID); err != nil {
			return nil, apperrors.StorageError("scan session row", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError("iterate sessions", err)
	}

	out := make(map[string]nffg.NFFG, len(pairs))
	for _, p := range pairs {
		graph, err := loadGraph(ctx, s.db, p.sessionID, false)
		if err != nil {
			return nil, err
		}
		out[p.graphID] = graph
	}
	return out, nil
}

// SessionForGraph resolves the active session owning (userID, graphID),
// i.e. the lookup the REST façade performs for getGraph/putGraph/
// deleteGraph/statusGraph, all of which are addressed by graph id rather
// than the internal session id.
func (s *Store) SessionForGraph(ctx context.Context, userID, graphID string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id FROM sessions WHERE user_id = ? AND graph_id = ? AND status != 'deleted'
		 ORDER BY started_at DESC LIMIT 1`,
		userID, graphID).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return "", apperrors.NoGraphFound(graphID)
	}
	if err != nil {
		return "", apperrors.StorageError("lookup session for graph", err)
	}
	return sessionID, nil
}

// GraphIDExists reports whether any session, deleted or not, already used
// graphID -- the check postGraph performs before minting a fresh NF-FG id.
func (s *Store) GraphIDExists(ctx context.Context, graphID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE graph_id = ? LIMIT 1`, graphID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.StorageError("check graph id", err)
	}
	return true, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting read helpers run
// inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

