package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var savepointName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Pass is one write transaction covering a whole division pass. Work inside
// it is isolated per match with savepoints; Commit is called once at the end.
type Pass struct {
	tx     *sqlx.Tx
	logger zerolog.Logger
	done   bool
}

// The transaction outlives cancellation of ctx so a stopped pass can still
// commit the matches it finished.
func BeginPass(ctx context.Context, db *sqlx.DB, logger zerolog.Logger) (*Pass, error) {
	tx, err := db.BeginTxx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Pass{tx: tx, logger: logger}, nil
}

func (p *Pass) Tx() *sqlx.Tx { return p.tx }

func (p *Pass) Savepoint(ctx context.Context, name string) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := p.tx.ExecContext(context.WithoutCancel(ctx), "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	return nil
}

func (p *Pass) Release(ctx context.Context, name string) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := p.tx.ExecContext(context.WithoutCancel(ctx), "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}
	return nil
}

// RollbackTo undoes everything since the savepoint and removes it.
func (p *Pass) RollbackTo(ctx context.Context, name string) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := p.tx.ExecContext(context.WithoutCancel(ctx), "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return fmt.Errorf("rollback to %s: %w", name, err)
	}
	return p.Release(ctx, name)
}

func (p *Pass) Commit() error {
	if p.done {
		return nil
	}
	p.done = true
	if err := p.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback is a no-op after Commit, so it can be deferred.
func (p *Pass) Rollback() {
	if p.done {
		return
	}
	p.done = true
	if err := p.tx.Rollback(); err != nil {
		p.logger.Warn().Err(err).Msg("rollback failed")
	}
}
