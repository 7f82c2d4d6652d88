package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// BunUserStore implements UserStore on top of a bun database handle.
// Every lookup is a single statement; the pooled connection is returned
// to the pool when the statement completes, on success or failure.
type BunUserStore struct {
	db     bun.IDB
	logger Logger
}

// NewBunUserStore creates a store over db
func NewBunUserStore(db bun.IDB, logger Logger) *BunUserStore {
	if logger == nil {
		logger = NopLogger()
	}
	return &BunUserStore{db: db, logger: logger}
}

// GetByID satisfies UserStore
func (s *BunUserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.getBy(ctx, "id", id)
}

// GetByPublicID satisfies UserStore
func (s *BunUserStore) GetByPublicID(ctx context.Context, publicID string) (*User, error) {
	return s.getBy(ctx, "pid", publicID)
}

// GetByUsername satisfies UserStore
func (s *BunUserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.getBy(ctx, "username", username)
}

// GetByEmail satisfies UserStore
func (s *BunUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getBy(ctx, "email", email)
}

// GetByCredential satisfies UserStore. When the credential matches one
// user's email and another's username the lowest id wins.
func (s *BunUserStore) GetByCredential(ctx context.Context, credential string) (*User, error) {
	record := &User{}
	err := s.db.NewSelect().
		Model(record).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.email = ?", credential).
				WhereOr("?TableAlias.username = ?", credential)
		}).
		OrderExpr("?TableAlias.id ASC").
		Limit(1).
		Scan(ctx)

	return s.result(record, err, "get_by_credential", "credential", credential)
}

func (s *BunUserStore) getBy(ctx context.Context, column string, value any) (*User, error) {
	record := &User{}
	err := s.db.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	return s.result(record, err, "get_by_"+column, column, value)
}

func (s *BunUserStore) result(record *User, err error, op string, key string, value any) (*User, error) {
	if err == nil {
		return record, nil
	}

	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return nil, ErrUserNotFound
	}

	s.logger.Error("user store query failed", "op", op, key, value, "error", err)
	return nil, NewStoreError("bun."+op, err)
}

// Insert stores user, filling the public ID and timestamps when missing.
// Meant for fixtures and tooling; user management lives elsewhere.
func (s *BunUserStore) Insert(ctx context.Context, user *User) (*User, error) {
	record := user.Clone()
	prepareUserDefaults(record)

	if _, err := s.db.NewInsert().Model(record).Returning("*").Exec(ctx); err != nil {
		return nil, NewStoreError("bun.insert", err)
	}

	return record, nil
}

// CreateSchema creates the users table if it does not exist
func (s *BunUserStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return NewStoreError("bun.create_schema", err)
	}
	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.PublicID == "" {
		record.PublicID = NewPublicID()
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
}

var _ UserStore = (*BunUserStore)(nil)
