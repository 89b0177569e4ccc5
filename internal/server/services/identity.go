// Package services contains server-side business logic: identity tokens,
// submission admission and the confession feed.
package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/confessions/internal/server/auth"
	"github.com/dmitrijs2005/confessions/internal/server/clock"
	"github.com/dmitrijs2005/confessions/internal/server/config"
	"github.com/dmitrijs2005/confessions/internal/server/models"
)

// IdentityResolver maps a device secret to its pseudonymous identity.
type IdentityResolver interface {
	Resolve(deviceSecret []byte) (models.IdentityID, error)
}

// IdentityGrant is handed to a device after it proves its secret.
type IdentityGrant struct {
	Identity  models.PseudonymousIdentity
	Token     string
	ExpiresAt time.Time
}

// IdentityService resolves device secrets and issues identity tokens.
// It stores nothing: the same secret always yields the same identity.
type IdentityService struct {
	resolver      IdentityResolver
	jwtSecret     []byte
	tokenValidity time.Duration
	clock         clock.Clock
}

func NewIdentityService(r IdentityResolver, cfg *config.Config, clk clock.Clock) *IdentityService {
	return &IdentityService{
		resolver:      r,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.IdentityTokenValidityDuration,
		clock:         clk,
	}
}

// Identify resolves deviceSecret and returns a signed identity token.
func (s *IdentityService) Identify(_ context.Context, deviceSecret []byte) (*IdentityGrant, error) {
	id, err := s.resolver.Resolve(deviceSecret)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	token, err := auth.GenerateToken(id, s.jwtSecret, s.tokenValidity, now)
	if err != nil {
		return nil, err
	}

	return &IdentityGrant{
		Identity:  models.PseudonymousIdentity{ID: id, CreatedAt: now},
		Token:     token,
		ExpiresAt: now.Add(s.tokenValidity),
	}, nil
}

// Authenticate validates an identity token and returns its identity.
func (s *IdentityService) Authenticate(token string) (models.IdentityID, error) {
	return auth.GetIdentityFromToken(token, s.jwtSecret)
}
