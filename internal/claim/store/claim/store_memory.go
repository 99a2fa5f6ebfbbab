package claim

import (
	"context"
	"sort"
	"sync"

	"photobook/internal/claim/models"
	id "photobook/pkg/domain"
	"photobook/pkg/platform/sentinel"
)

// ErrNotFound is returned when a claim does not exist.
var ErrNotFound = sentinel.ErrNotFound

// InMemoryStore keeps claims in a map. It enforces the one-pending-claim rule
// the PostgreSQL schema enforces with a partial unique index.
type InMemoryStore struct {
	mu     sync.RWMutex
	claims map[id.ClaimID]models.Claim
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{claims: make(map[id.ClaimID]models.Claim)}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claims[c.ID]; exists {
		return sentinel.ErrConflict
	}
	if c.IsPending() {
		for _, existing := range s.claims {
			if existing.IsPending() && existing.UserID == c.UserID && existing.CreatorID == c.CreatorID {
				return sentinel.ErrConflict
			}
		}
	}
	s.claims[c.ID] = *c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) FindPendingByUserAndCreator(_ context.Context, userID id.UserID, creatorID id.CreatorID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.claims {
		if c.IsPending() && c.UserID == userID && c.CreatorID == creatorID {
			found := c
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateStatus persists c only if the stored claim is still in status from.
func (s *InMemoryStore) UpdateStatus(_ context.Context, c *models.Claim, from models.ClaimStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.claims[c.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != from {
		return sentinel.ErrInvalidState
	}
	s.claims[c.ID] = *c
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, claimID id.ClaimID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[claimID]; !ok {
		return ErrNotFound
	}
	delete(s.claims, claimID)
	return nil
}

// ListByStatus returns matching claims, oldest request first.
func (s *InMemoryStore) ListByStatus(_ context.Context, statuses ...models.ClaimStatus) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[models.ClaimStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []*models.Claim
	for _, c := range s.claims {
		if want[c.Status] {
			found := c
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}
