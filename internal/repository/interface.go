package repository

import (
	"context"
	"errors"

	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

var (
	// ErrNotFound is returned by Get when the user has no profile yet.
	ErrNotFound = errors.New("user profile not found")

	// ErrVersionConflict is returned by Upsert when another writer updated
	// the profile since it was read. Callers re-read and retry.
	ErrVersionConflict = errors.New("user profile version conflict")
)

// ProfileRepository defines the interface for user profile data access.
// Only the analysis worker calls Upsert; the API only reads.
type ProfileRepository interface {
	// Get retrieves a user's profile, or ErrNotFound.
	Get(ctx context.Context, userID string) (*model.UserProfile, error)

	// Upsert writes the full profile in one atomic statement. The profile's
	// Version must equal the stored version (0 for a new profile); on
	// success the stored version is incremented.
	Upsert(ctx context.Context, profile *model.UserProfile) error
}
