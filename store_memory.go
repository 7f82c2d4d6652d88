package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryUserStore keeps users in memory. Useful for tests and local tooling.
type MemoryUserStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*User
}

// NewMemoryUserStore creates a store seeded with users
func NewMemoryUserStore(users ...*User) *MemoryUserStore {
	s := &MemoryUserStore{users: map[int64]*User{}}
	for _, u := range users {
		s.Insert(context.Background(), u)
	}
	return s
}

// Insert stores a copy of user, assigning an ID and public ID when missing.
// It returns the stored copy.
func (s *MemoryUserStore) Insert(_ context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := user.Clone()
	if record.ID == 0 {
		s.nextID++
		record.ID = s.nextID
	} else if record.ID > s.nextID {
		s.nextID = record.ID
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

	s.users[record.ID] = record
	return record.Clone(), nil
}

// GetByID satisfies UserStore
func (s *MemoryUserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.find(ctx, func(u *User) bool { return u.ID == id })
}

// GetByPublicID satisfies UserStore
func (s *MemoryUserStore) GetByPublicID(ctx context.Context, publicID string) (*User, error) {
	return s.find(ctx, func(u *User) bool { return u.PublicID == publicID })
}

// GetByUsername satisfies UserStore
func (s *MemoryUserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.find(ctx, func(u *User) bool { return u.Username != nil && *u.Username == username })
}

// GetByEmail satisfies UserStore
func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.find(ctx, func(u *User) bool { return u.Email != nil && *u.Email == email })
}

// GetByCredential satisfies UserStore
func (s *MemoryUserStore) GetByCredential(ctx context.Context, credential string) (*User, error) {
	return s.find(ctx, func(u *User) bool {
		return (u.Email != nil && *u.Email == credential) ||
			(u.Username != nil && *u.Username == credential)
	})
}

func (s *MemoryUserStore) find(ctx context.Context, match func(*User) bool) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewStoreError("memory.find", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if u := s.users[id]; match(u) {
			return u.Clone(), nil
		}
	}

	return nil, ErrUserNotFound
}

var _ UserStore = (*MemoryUserStore)(nil)
