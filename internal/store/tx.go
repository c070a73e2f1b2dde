package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WithTx executes fn inside a transaction, rolling back on error or panic and
// committing on success. Mirrors the teacher's ent-based WithTx, ported to
// database/sql since GraphStore talks to sqlite directly.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w", errors.Join(err, rerr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// WithTxResult is WithTx for functions that also produce a value.
func WithTxResult[T any](ctx context.Context, s *Store, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var result T

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("starting transaction: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	result, err = fn(tx)
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return result, fmt.Errorf("%w", errors.Join(err, rerr))
		}
		return result, err
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("committing transaction: %w", err)
	}
	return result, nil
}

// Savepoint supports partial rollback within an in-flight transaction, used
// by updateGraph to undo the partial writes of an entity that fails to
// apply before the error aborts the enclosing transaction.
type Savepoint struct {
	tx   *sql.Tx
	name string
}

func CreateSavepoint(ctx context.Context, tx *sql.Tx, name string) (*Savepoint, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("creating savepoint %s: %w", name, err)
	}
	return &Savepoint{tx: tx, name: name}, nil
}

func (s *Savepoint) Rollback(ctx context.Context) error {
	if _, err := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+s.name); err != nil {
		return fmt.Errorf("rolling back to savepoint %s: %w", s.name, err)
	}
	return nil
}

func (s *Savepoint) Release(ctx context.Context) error {
	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+s.name); err != nil {
		return fmt.Errorf("releasing savepoint %s: %w", s.name, err)
	}
	return nil
}
