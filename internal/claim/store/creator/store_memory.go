package creator

import (
	"context"
	"sync"

	"photobook/internal/claim/models"
	id "photobook/pkg/domain"
	"photobook/pkg/platform/sentinel"
)

// ErrNotFound is returned when a creator does not exist.
var ErrNotFound = sentinel.ErrNotFound

type InMemoryStore struct {
	mu       sync.RWMutex
	creators map[id.CreatorID]models.Creator
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{creators: make(map[id.CreatorID]models.Creator)}
}

// Save inserts or replaces a creator.
func (s *InMemoryStore) Save(_ context.Context, c *models.Creator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creators[c.ID] = *c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, creatorID id.CreatorID) (*models.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creators[creatorID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Execute runs validate and mutate on a copy of the creator while holding the
// store lock. A validate error leaves the stored creator untouched.
func (s *InMemoryStore) Execute(_ context.Context, creatorID id.CreatorID, validate func(*models.Creator) error, mutate func(*models.Creator)) (*models.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creators[creatorID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	mutate(&c)
	s.creators[creatorID] = c
	return &c, nil
}
