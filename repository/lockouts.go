package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	auth "github.com/goliatone/go-role-auth"
	"github.com/uptrace/bun"
)

// LockoutRepository persists role lockouts. It implements auth.LockoutStore.
type LockoutRepository struct {
	db  bun.IDB
	now func() time.Time
}

// NewLockoutRepository creates a new repository.
func NewLockoutRepository(db bun.IDB) *LockoutRepository {
	return &LockoutRepository{db: db, now: time.Now}
}

// WithTx returns a copy of the repository bound to tx
func (r *LockoutRepository) WithTx(tx bun.Tx) *LockoutRepository {
	return &LockoutRepository{db: tx, now: r.now}
}

// FindLockout implements auth.LockoutStore.
func (r *LockoutRepository) FindLockout(ctx context.Context, role auth.Role) (*auth.LockoutRecord, error) {
	var model RoleLockout
	err := r.db.NewSelect().
		Model(&model).
		Where("?TableAlias.role = ?", string(role)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find lockout %s: %w", role, err)
	}

	return &auth.LockoutRecord{
		Role:          auth.Role(model.Role),
		TotalBlock:    model.TotalBlock,
		UnblockAtUnix: model.UnblockAt,
	}, nil
}

// SetLockout creates or replaces the lockout for the record's role
func (r *LockoutRepository) SetLockout(ctx context.Context, record auth.LockoutRecord) error {
	if !record.Role.IsValid() {
		return fmt.Errorf("set lockout: unknown role %q", record.Role)
	}

	model := &RoleLockout{
		Role:       string(record.Role),
		TotalBlock: record.TotalBlock,
		UnblockAt:  record.UnblockAtUnix,
		UpdatedAt:  r.now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (role) DO UPDATE").
		Set("total_block = EXCLUDED.total_block").
		Set("unblock_at = EXCLUDED.unblock_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set lockout %s: %w", record.Role, err)
	}
	return nil
}

// ClearLockout removes the lockout of role, if any
func (r *LockoutRepository) ClearLockout(ctx context.Context, role auth.Role) error {
	_, err := r.db.NewDelete().
		Model((*RoleLockout)(nil)).
		Where("role = ?", string(role)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear lockout %s: %w", role, err)
	}
	return nil
}
