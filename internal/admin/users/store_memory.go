package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore implements the UserStore interface with in-memory storage.
// It backs tests and local development without a database.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users: make(map[string]*User),
	}
}

// CreateUser persists a new administrator, assigning its id and registration token
func (s *InMemoryStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	created := *user
	created.ID = uuid.New().String()
	created.RegistrationToken = uuid.New().String()
	created.CreatedAt = now
	created.UpdatedAt = now
	if created.Roles == nil {
		created.Roles = []int64{}
	}
	if created.Countries == nil {
		created.Countries = []string{}
	}

	s.users[created.ID] = &created

	copied := created
	return &copied, nil
}

// FindOneByID retrieves an administrator by id
func (s *InMemoryStore) FindOneByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

// FindOneByEmail retrieves an administrator by email
func (s *InMemoryStore) FindOneByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

// FindPage retrieves one page of administrators ordered by creation time
func (s *InMemoryStore) FindPage(ctx context.Context, q *ListQuery) (*UserPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pageLocked(q, func(*User) bool { return true }), nil
}

// SearchPage retrieves one page of administrators whose name or email matches
// the free-text query
func (s *InMemoryStore) SearchPage(ctx context.Context, q *ListQuery) (*UserPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term := strings.ToLower(q.Query)
	return s.pageLocked(q, func(u *User) bool {
		return strings.Contains(strings.ToLower(u.Firstname), term) ||
			strings.Contains(strings.ToLower(u.Lastname), term) ||
			strings.Contains(strings.ToLower(u.Email), term)
	}), nil
}

func (s *InMemoryStore) pageLocked(q *ListQuery, match func(*User) bool) *UserPage {
	matched := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		if match(user) {
			copied := *user
			matched = append(matched, &copied)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := (q.Page - 1) * q.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	return &UserPage{
		Results:    matched[start:end],
		Pagination: paginate(q, int64(len(matched))),
	}
}

// UpdateByID applies the non-nil fields of req to the administrator with the given id
func (s *InMemoryStore) UpdateByID(ctx context.Context, id string, req *UpdateUserRequest) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, nil
	}

	if req.Firstname != nil {
		user.Firstname = *req.Firstname
	}
	if req.Lastname != nil {
		user.Lastname = *req.Lastname
	}
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Roles != nil {
		user.Roles = *req.Roles
	}
	if req.Countries != nil {
		user.Countries = *req.Countries
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedAt = time.Now()

	copied := *user
	return &copied, nil
}

// DeleteByID removes the administrator with the given id and returns the
// record as it was before deletion
func (s *InMemoryStore) DeleteByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, nil
	}

	delete(s.users, id)
	copied := *user
	return &copied, nil
}

// DeleteByIDs removes all administrators matching the given ids, skipping
// unknown ids
func (s *InMemoryStore) DeleteByIDs(ctx context.Context, ids []string) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := make([]*User, 0, len(ids))
	for _, id := range ids {
		user, exists := s.users[id]
		if !exists {
			continue
		}
		delete(s.users, id)
		copied := *user
		deleted = append(deleted, &copied)
	}
	return deleted, nil
}

// EmailExists checks whether an administrator with the given email exists,
// leaving the excludeID record out of the check
func (s *InMemoryStore) EmailExists(ctx context.Context, email string, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, user := range s.users {
		if user.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}
