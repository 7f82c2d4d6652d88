package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-authflow"
)

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) user(args mock.Arguments) (*auth.User, error) {
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserStore) GetByPublicID(ctx context.Context, publicID string) (*auth.User, error) {
	return m.user(m.Called(ctx, publicID))
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return m.user(m.Called(ctx, username))
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *MockUserStore) GetByCredential(ctx context.Context, credential string) (*auth.User, error) {
	return m.user(m.Called(ctx, credential))
}

// MockPasswordHasher implements auth.PasswordHasher
type MockPasswordHasher struct {
	mock.Mock
}

func (m *MockPasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	args := m.Called(ctx, plaintext)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(ctx context.Context, plaintext, hashed string) (bool, error) {
	args := m.Called(ctx, plaintext, hashed)
	return args.Bool(0), args.Error(1)
}

// MockTokenCodec implements auth.TokenCodec
type MockTokenCodec struct {
	mock.Mock
}

func (m *MockTokenCodec) Issue(kind auth.TokenKind, claims auth.Claims, ttl time.Duration) (string, error) {
	args := m.Called(kind, claims, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockTokenCodec) Verify(token string, expected auth.TokenKind) (*auth.Claims, error) {
	args := m.Called(token, expected)
	c, _ := args.Get(0).(*auth.Claims)
	return c, args.Error(1)
}

// MockValidationService implements auth.ValidationService
type MockValidationService struct {
	mock.Mock
}

func (m *MockValidationService) IsUserValid(ctx context.Context, user *auth.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

// countingValidator returns a fixed outcome and counts its calls
type countingValidator struct {
	mu    sync.Mutex
	calls int
	ok    bool
	err   error
}

func (v *countingValidator) ValidateUser(context.Context, *auth.User) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.ok, v.err
}

func (v *countingValidator) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Last() auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return auth.ActivityEvent{}
	}
	return s.events[len(s.events)-1]
}

func (s *recordingSink) Types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType
	}
	return out
}
