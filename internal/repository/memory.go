package repository

import (
	"context"
	"sync"

	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

// MemoryRepository is an in-process ProfileRepository with the same version
// semantics as the Postgres implementation. Used in tests.
type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[string]*model.UserProfile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]*model.UserProfile)}
}

func (r *MemoryRepository) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProfile(stored), nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, profile *model.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.profiles[profile.UserID]
	switch {
	case !exists:
		clone := cloneProfile(profile)
		clone.Version = 1
		r.profiles[profile.UserID] = clone
	case stored.Version != profile.Version:
		return ErrVersionConflict
	default:
		clone := cloneProfile(profile)
		clone.Version = stored.Version + 1
		r.profiles[profile.UserID] = clone
	}
	return nil
}

func cloneProfile(p *model.UserProfile) *model.UserProfile {
	clone := *p
	clone.SessionHistory = make([]model.Session, len(p.SessionHistory))
	copy(clone.SessionHistory, p.SessionHistory)
	return &clone
}
