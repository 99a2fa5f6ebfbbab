package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"photobook/internal/claim/models"
	creatorstore "photobook/internal/claim/store/creator"
	userstore "photobook/internal/claim/store/user"
)

// Seed is the development fixture format read from SEED_FILE.
type Seed struct {
	Users    []models.User    `json:"users"`
	Creators []models.Creator `json:"creators"`
}

// LoadSeedFile reads a JSON seed from path into the in-memory stores. Creators
// without a status start as stubs. Returns the number of users and creators loaded.
func LoadSeedFile(ctx context.Context, path string, cs *creatorstore.InMemoryStore, us *userstore.InMemoryUserStore) (int, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return 0, 0, fmt.Errorf("decode seed file: %w", err)
	}

	now := time.Now()
	for i := range seed.Users {
		u := &seed.Users[i]
		if u.ID.IsNil() || u.Email == "" {
			return 0, 0, fmt.Errorf("seed user %d: id and email are required", i)
		}
		if err := us.Save(ctx, u); err != nil {
			return 0, 0, err
		}
	}
	for i := range seed.Creators {
		c := &seed.Creators[i]
		if c.ID.IsNil() {
			return 0, 0, fmt.Errorf("seed creator %d: id is required", i)
		}
		if c.Status == "" {
			c.Status = models.CreatorStatusStub
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
		if err := cs.Save(ctx, c); err != nil {
			return 0, 0, err
		}
	}
	return len(seed.Users), len(seed.Creators), nil
}
