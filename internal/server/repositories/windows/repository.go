// Package windows declares the repository contract for submission windows:
// the per-identity record of the last accepted confession time.
package windows

import (
	"context"

	"github.com/dmitrijs2005/confessions/internal/server/models"
)

type Repository interface {
	// Lock takes the per-identity admission lock. It is held until the
	// surrounding transaction ends; unrelated identities never contend.
	Lock(ctx context.Context, identityID string) error

	// Get returns the window for identityID or common.ErrorNotFound.
	Get(ctx context.Context, identityID string) (*models.SubmissionWindow, error)

	// Upsert records an accepted submission for the window's identity and
	// increments its AcceptedCount; the count in w is ignored.
	Upsert(ctx context.Context, w *models.SubmissionWindow) error
}
