package auth

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// PublicIDLength is the length of a ULID encoded public identifier
const PublicIDLength = ulid.EncodedSize

// User is the authenticated subject. Records are owned by the user
// management service; this package only reads them.
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	PublicID        string     `bun:"pid,notnull,unique" json:"pid"`
	PasswordHash    string     `bun:"hashed_password,notnull" json:"-"`
	Username        *string    `bun:"username,unique" json:"username,omitempty"`
	Email           *string    `bun:"email,unique" json:"email,omitempty"`
	IsActive        bool       `bun:"is_active,notnull" json:"is_active"`
	IsEmailVerified bool       `bun:"is_email_verified,notnull" json:"is_email_verified"`
	IsDeleted       bool       `bun:"is_deleted,notnull" json:"is_deleted"`
	DeletedAt       *time.Time `bun:"deleted_at,nullzero" json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// IsSoftDeleted reports whether the record carries either soft delete marker
func (u *User) IsSoftDeleted() bool {
	if u == nil {
		return false
	}
	return u.IsDeleted || u.DeletedAt != nil
}

// GetUsername returns the username or an empty string
func (u *User) GetUsername() string {
	if u == nil || u.Username == nil {
		return ""
	}
	return *u.Username
}

// GetEmail returns the email or an empty string
func (u *User) GetEmail() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return *u.Email
}

// Clone returns a copy so callers can't mutate store owned records
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Username != nil {
		v := *u.Username
		c.Username = &v
	}
	if u.Email != nil {
		v := *u.Email
		c.Email = &v
	}
	if u.DeletedAt != nil {
		v := *u.DeletedAt
		c.DeletedAt = &v
	}
	return &c
}

// NewPublicID returns a new ULID public identifier
func NewPublicID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// StringPtr is a helper for the optional credential fields
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
