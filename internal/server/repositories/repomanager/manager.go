// Package repomanager ties the repositories to a storage backend and gives
// services a single way to run work inside a transaction.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/confessions/internal/server/repositories/confessions"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/windows"
)

// Repositories is the set of repositories bound to one transaction.
type Repositories interface {
	Windows() windows.Repository
	Confessions() confessions.Repository
}

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error

	// Confessions returns a repository for reads and view increments that
	// need no transaction.
	Confessions() confessions.Repository

	// WithinTx runs fn in a transaction. Everything fn writes is committed
	// when it returns nil and discarded otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	Close() error
}
