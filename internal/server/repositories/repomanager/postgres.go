package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/confessions/internal/dbx"
	"github.com/dmitrijs2005/confessions/internal/server/migrations"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/confessions"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/windows"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// NewPostgresRepositoryManager opens a pgx connection pool for dsn.
func NewPostgresRepositoryManager(dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return newPostgresRepositoryManager(db), nil
}

func newPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

type postgresRepositories struct {
	tx dbx.DBTX
}

func (r postgresRepositories) Windows() windows.Repository {
	return windows.NewPostgresRepository(r.tx)
}

func (r postgresRepositories) Confessions() confessions.Repository {
	return confessions.NewPostgresRepository(r.tx)
}

func (m *PostgresRepositoryManager) Confessions() confessions.Repository {
	return confessions.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, postgresRepositories{tx: tx})
	})
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
