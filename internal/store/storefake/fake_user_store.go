// Package storefake provides an in-memory user store for tests.
package storefake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ailice/ailice/internal/store"
	"github.com/ailice/ailice/types"
)

// UserStore keeps users in memory and counts connection acquire/release so
// tests can assert every path releases what it acquired.
type UserStore struct {
	mu     sync.Mutex
	users  []types.User
	nextID int

	acquired int
	released int

	// AcquireErr, FindErr, ExistsErr and InsertErr force the matching
	// operation to fail.
	AcquireErr error
	FindErr    error
	ExistsErr  error
	InsertErr  error

	// BeforeInsert runs inside Insert before the uniqueness check, letting a
	// test slip in a concurrent registration.
	BeforeInsert func()
}

func New() *UserStore {
	return &UserStore{}
}

// Seed inserts users directly, bypassing any checks.
func (s *UserStore) Seed(users ...types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		if u.ID == "" {
			s.nextID++
			u.ID = fmt.Sprintf("user-%d", s.nextID)
		}
		s.users = append(s.users, u)
	}
}

// Users returns a copy of the stored records.
func (s *UserStore) Users() []types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.User, len(s.users))
	copy(out, s.users)
	return out
}

// Acquired returns how many connections were handed out.
func (s *UserStore) Acquired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

// Open returns how many handed-out connections have not been closed.
func (s *UserStore) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired - s.released
}

func (s *UserStore) Acquire(context.Context) (store.UserConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AcquireErr != nil {
		return nil, s.AcquireErr
	}
	s.acquired++
	return &conn{store: s}, nil
}

type conn struct {
	store  *UserStore
	closed bool
}

var errClosed = errors.New("storefake: connection closed")

func (c *conn) FindByEmail(_ context.Context, email string) (types.User, error) {
	if c.closed {
		return types.User{}, errClosed
	}
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return types.User{}, s.FindErr
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (c *conn) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	if c.closed {
		return false, errClosed
	}
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ExistsErr != nil {
		return false, s.ExistsErr
	}
	return s.existsLocked(email, username), nil
}

func (c *conn) Insert(_ context.Context, user types.User) (string, error) {
	if c.closed {
		return "", errClosed
	}
	s := c.store
	if s.BeforeInsert != nil {
		s.BeforeInsert()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return "", s.InsertErr
	}
	if s.existsLocked(user.Email, user.Username) {
		return "", store.ErrDuplicateKey
	}
	s.nextID++
	user.ID = fmt.Sprintf("user-%d", s.nextID)
	user.CreatedAt = time.Now().UTC()
	s.users = append(s.users, user)
	return user.ID, nil
}

func (c *conn) Close() error {
	if c.closed {
		return errClosed
	}
	c.closed = true
	s := c.store
	s.mu.Lock()
	s.released++
	s.mu.Unlock()
	return nil
}

func (s *UserStore) existsLocked(email, username string) bool {
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return true
		}
	}
	return false
}
