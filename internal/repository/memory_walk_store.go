package repository

import (
	"context"
	"sync"

	"github.com/Dias221467/Walk_Companion/internal/models"
)

// MemoryWalkStore keeps walk requests in process memory. One mutex guards
// every read and write, which makes Transition linearizable.
type MemoryWalkStore struct {
	mu       sync.Mutex
	requests map[string]*models.WalkRequest
}

func NewMemoryWalkStore() *MemoryWalkStore {
	return &MemoryWalkStore{requests: make(map[string]*models.WalkRequest)}
}

func (s *MemoryWalkStore) Create(ctx context.Context, req *models.WalkRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return ErrDuplicateID
	}
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *MemoryWalkStore) Get(ctx context.Context, id string) (*models.WalkRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRequest(req), nil
}

func (s *MemoryWalkStore) Transition(ctx context.Context, id string, change models.StatusChange) (*models.WalkRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != change.From {
		return nil, &StatusMismatchError{ID: id, Expected: change.From, Actual: req.Status}
	}
	change.Apply(req)
	return cloneRequest(req), nil
}

func (s *MemoryWalkStore) Find(ctx context.Context, filter models.WalkFilter) ([]models.WalkRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.WalkRequest
	for _, req := range s.requests {
		if filter.Match(req) {
			out = append(out, *cloneRequest(req))
		}
	}
	return out, nil
}
