package windows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/dbx"
	"github.com/dmitrijs2005/confessions/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX. Lock relies on
// a transaction-scoped advisory lock, so it must run inside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Lock(ctx context.Context, identityID string) error {
	if err := dbx.AdvisoryXactLock(ctx, r.db, identityID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, identityID string) (*models.SubmissionWindow, error) {
	query :=
		`SELECT identity_id, last_accepted_at, request_digest, accepted_count FROM submission_windows
		 WHERE identity_id = $1
		 `

	w := &models.SubmissionWindow{}
	err := r.db.QueryRowContext(ctx, query, identityID).Scan(&w.IdentityID, &w.LastAcceptedAt, &w.RequestDigest, &w.AcceptedCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return w, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, w *models.SubmissionWindow) error {
	query := `
		INSERT INTO submission_windows (identity_id, last_accepted_at, request_digest, accepted_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (identity_id)
		DO UPDATE SET
			last_accepted_at = EXCLUDED.last_accepted_at,
			request_digest = EXCLUDED.request_digest,
			accepted_count = submission_windows.accepted_count + 1;
	`
	res, err := r.db.ExecContext(ctx, query, w.IdentityID, w.LastAcceptedAt, w.RequestDigest)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: window upsert affected %d rows", common.ErrInvariantViolation, n)
	}
	return nil
}
