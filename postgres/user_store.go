// Package postgres implements auth.UserStore on a pgx connection pool.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	auth "github.com/goliatone/go-authflow"
)

// Reference is the database_adapter value selecting this store
const Reference = "postgres"

// Pool is the subset of *pgxpool.Pool the store needs. Each call
// borrows a connection for one statement and returns it to the pool.
type Pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectUser = `
		SELECT id, pid, hashed_password, username, email,
		       is_active, is_email_verified, is_deleted, deleted_at,
		       created_at, updated_at
		FROM users
`

// UserStore implements auth.UserStore using PostgreSQL.
type UserStore struct {
	pool   Pool
	logger auth.Logger
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool Pool, logger auth.Logger) *UserStore {
	if logger == nil {
		logger = auth.NopLogger()
	}
	return &UserStore{pool: pool, logger: logger}
}

// Register adds the store to reg under Reference
func Register(reg *auth.Registry, pool Pool) error {
	return reg.Register(Reference, auth.StoreConstructor(func(d auth.Dependencies) (auth.UserStore, error) {
		return NewUserStore(pool, d.NamedLogger("store")), nil
	}))
}

// GetByID retrieves a user by numeric ID.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, selectUser+`WHERE id = $1`, id)
	return s.result(row, "get_by_id", "id", id)
}

// GetByPublicID retrieves a user by public ID.
func (s *UserStore) GetByPublicID(ctx context.Context, publicID string) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, selectUser+`WHERE pid = $1`, publicID)
	return s.result(row, "get_by_public_id", "pid", publicID)
}

// GetByUsername retrieves a user by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, selectUser+`WHERE username = $1`, username)
	return s.result(row, "get_by_username", "username", username)
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, selectUser+`WHERE email = $1`, email)
	return s.result(row, "get_by_email", "email", email)
}

// GetByCredential matches email or username; the lowest id wins.
func (s *UserStore) GetByCredential(ctx context.Context, credential string) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, selectUser+`WHERE email = $1 OR username = $1
		ORDER BY id ASC
		LIMIT 1`, credential)
	return s.result(row, "get_by_credential", "credential", credential)
}

// Insert stores user and returns the stored row. Meant for fixtures and
// tooling; user management lives elsewhere.
func (s *UserStore) Insert(ctx context.Context, user *auth.User) (*auth.User, error) {
	record := user.Clone()
	if record.PublicID == "" {
		record.PublicID = auth.NewPublicID()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (
			pid, hashed_password, username, email,
			is_active, is_email_verified, is_deleted, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`,
		record.PublicID,
		record.PasswordHash,
		record.Username,
		record.Email,
		record.IsActive,
		record.IsEmailVerified,
		record.IsDeleted,
		record.DeletedAt,
	)

	if err := row.Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return nil, auth.NewStoreError("postgres.insert", oops.Code("USER_INSERT_FAILED").
			With("operation", "insert user").
			With("pid", record.PublicID).
			Wrap(err))
	}

	return record, nil
}

func (s *UserStore) result(row pgx.Row, op, key string, value any) (*auth.User, error) {
	user := &auth.User{}
	err := row.Scan(
		&user.ID,
		&user.PublicID,
		&user.PasswordHash,
		&user.Username,
		&user.Email,
		&user.IsActive,
		&user.IsEmailVerified,
		&user.IsDeleted,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With(key, value).
			Wrap(auth.ErrUserNotFound)
	}
	if err != nil {
		s.logger.Error("user store query failed", "op", op, key, value, "error", err)
		return nil, auth.NewStoreError("postgres."+op, oops.Code("USER_LOOKUP_FAILED").
			With("operation", op).
			With(key, value).
			Wrap(err))
	}
	return user, nil
}

var _ auth.UserStore = (*UserStore)(nil)
