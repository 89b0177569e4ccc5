package confessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/dbx"
	"github.com/dmitrijs2005/confessions/internal/server/models"
)

const selectColumns = `confession_id, content, general_location, created_at, view_count`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Confession) error {
	query := `
		INSERT INTO confessions (confession_id, content, general_location, created_at, view_count)
		VALUES ($1, $2, $3, $4, 0)
	`
	location := sql.NullString{String: c.GeneralLocation, Valid: c.GeneralLocation != ""}

	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Content, location, c.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Confession, error) {
	query := `SELECT ` + selectColumns + ` FROM confessions WHERE confession_id = $1`

	c, err := scanConfession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	query :=
		`UPDATE confessions SET view_count = view_count + 1
		 WHERE confession_id = $1
		 RETURNING view_count
		 `

	var views int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&views); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return views, nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, after *models.FeedPosition, limit int) ([]*models.Confession, error) {
	if after == nil {
		query := `SELECT ` + selectColumns + ` FROM confessions
			ORDER BY created_at DESC, confession_id DESC
			LIMIT $1`
		return r.list(ctx, query, limit)
	}

	query := `SELECT ` + selectColumns + ` FROM confessions
		WHERE (created_at, confession_id) < ($1, $2)
		ORDER BY created_at DESC, confession_id DESC
		LIMIT $3`
	return r.list(ctx, query, after.CreatedAt, after.ID, limit)
}

func (r *PostgresRepository) ListSince(ctx context.Context, since, until time.Time, limit int) ([]*models.Confession, error) {
	query := `SELECT ` + selectColumns + ` FROM confessions
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC, confession_id DESC
		LIMIT $3`
	return r.list(ctx, query, since, until, limit)
}

func (r *PostgresRepository) ListMostViewed(ctx context.Context, until time.Time, limit int) ([]*models.Confession, error) {
	query := `SELECT ` + selectColumns + ` FROM confessions
		WHERE created_at <= $1
		ORDER BY view_count DESC, created_at DESC, confession_id DESC
		LIMIT $2`
	return r.list(ctx, query, until, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Confession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select confessions: %w", err)
	}
	defer rows.Close()

	var result []*models.Confession
	for rows.Next() {
		c, err := scanConfession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConfession(s scanner) (*models.Confession, error) {
	var (
		c        models.Confession
		location sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Content, &location, &c.CreatedAt, &c.ViewCount); err != nil {
		return nil, err
	}
	c.GeneralLocation = location.String
	return &c, nil
}
