package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Dias221467/Walk_Companion/internal/models"
)

// MemoryDirectory is a user directory held in memory, used with the memory
// and bolt backends and in tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryDirectory(users ...models.User) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[string]models.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// LoadMemoryDirectory reads a JSON array of users from path.
func LoadMemoryDirectory(path string) (*MemoryDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory seed: %w", err)
	}
	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse directory seed: %w", err)
	}
	return NewMemoryDirectory(users...), nil
}

// Put adds or replaces a user.
func (d *MemoryDirectory) Put(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *MemoryDirectory) Lookup(ctx context.Context, userID string) (models.PublicUser, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[userID]
	if !ok || u.IsDeleted {
		return models.PublicUser{}, false, nil
	}
	return u.Public(), true, nil
}
