package user

import (
	"context"
	"sync"

	"photobook/internal/claim/models"
	id "photobook/pkg/domain"
	"photobook/pkg/platform/sentinel"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = sentinel.ErrNotFound

type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[id.UserID]models.User
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[id.UserID]models.User)}
}

func (s *InMemoryUserStore) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
