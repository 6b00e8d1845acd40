package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	auth "github.com/goliatone/go-role-auth"
	"github.com/uptrace/bun"
)

// AccountRepository implements auth.AccountStore over one role table.
// M is the bun model of the table.
type AccountRepository[M any, PM interface {
	*M
	accountModel
}] struct {
	db   *bun.DB
	role auth.Role
	// keyColumn is the column matched against the token subject
	keyColumn string
	// classroomColumn is the aulas column pointing at the subject. Empty
	// for roles without classrooms.
	classroomColumn string
	parseKey        func(string) (any, bool)
}

// AccountOption configures an AccountRepository
type AccountOption func(*accountOptions)

type accountOptions struct {
	classroomColumn string
	numericKey      bool
}

// WithClassroomColumn attaches the classrooms whose column equals the
// subject id to every loaded record.
func WithClassroomColumn(column string) AccountOption {
	return func(o *accountOptions) {
		o.classroomColumn = column
	}
}

// WithNumericKey makes the repository match subjects against an integer
// key. Non numeric subjects are not found.
func WithNumericKey() AccountOption {
	return func(o *accountOptions) {
		o.numericKey = true
	}
}

// NewAccountRepository returns a store for role backed by the table of M
func NewAccountRepository[M any, PM interface {
	*M
	accountModel
}](db *bun.DB, role auth.Role, keyColumn string, opts ...AccountOption) *AccountRepository[M, PM] {
	o := &accountOptions{}
	for _, opt := range opts {
		opt(o)
	}

	parseKey := func(s string) (any, bool) { return s, s != "" }
	if o.numericKey {
		parseKey = func(s string) (any, bool) {
			id, err := strconv.ParseInt(s, 10, 64)
			return id, err == nil
		}
	}

	return &AccountRepository[M, PM]{
		db:              db,
		role:            role,
		keyColumn:       keyColumn,
		classroomColumn: o.classroomColumn,
		parseKey:        parseKey,
	}
}

// Role returns the role served by the repository
func (r *AccountRepository[M, PM]) Role() auth.Role {
	return r.role
}

// FindActive implements auth.PrincipalStore
func (r *AccountRepository[M, PM]) FindActive(ctx context.Context, subjectID string) (*auth.ActiveRecord, error) {
	account, err := r.FindByID(ctx, subjectID)
	if err != nil || account == nil {
		return nil, err
	}

	return &auth.ActiveRecord{
		ID:           account.SubjectID,
		DisplayName:  account.DisplayName(),
		Active:       account.Active,
		ClassroomIDs: account.ClassroomIDs,
	}, nil
}

// FindByID returns the account with the given subject id or nil
func (r *AccountRepository[M, PM]) FindByID(ctx context.Context, subjectID string) (*auth.Account, error) {
	key, ok := r.parseKey(subjectID)
	if !ok {
		return nil, nil
	}
	return r.findBy(ctx, r.keyColumn, key)
}

// FindByUsername returns the account with the given username or nil
func (r *AccountRepository[M, PM]) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	if username == "" {
		return nil, nil
	}
	return r.findBy(ctx, "username", username)
}

// Create inserts a record into the role table
func (r *AccountRepository[M, PM]) Create(ctx context.Context, record PM) error {
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return fmt.Errorf("insert %s: %w", r.role, err)
	}
	return nil
}

func (r *AccountRepository[M, PM]) findBy(ctx context.Context, column string, value any) (*auth.Account, error) {
	record := PM(new(M))

	err := r.db.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s by %s: %w", r.role, column, err)
	}

	classrooms, err := r.classrooms(ctx, record.subjectID())
	if err != nil {
		return nil, err
	}

	return toAccount(r.role, record, classrooms), nil
}

func (r *AccountRepository[M, PM]) classrooms(ctx context.Context, subjectID string) ([]string, error) {
	if r.classroomColumn == "" {
		return nil, nil
	}

	var ids []int64
	err := r.db.NewSelect().
		Model((*Aula)(nil)).
		Column("id").
		Where("? = ?", bun.Ident(r.classroomColumn), subjectID).
		Order("id ASC").
		Scan(ctx, &ids)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find classrooms of %s %s: %w", r.role, subjectID, err)
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out, nil
}

func toAccount(role auth.Role, m accountModel, classrooms []string) *auth.Account {
	p := m.person()
	return &auth.Account{
		Role:         role,
		SubjectID:    m.subjectID(),
		Username:     p.Username,
		PasswordHash: p.PasswordHash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Gender:       p.Gender,
		Email:        p.Email,
		Phone:        p.Phone,
		PhotoID:      p.PhotoID,
		Active:       m.isActive(),
		ClassroomIDs: classrooms,
	}
}
