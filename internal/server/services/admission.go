package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/logging"
	"github.com/dmitrijs2005/confessions/internal/server/clock"
	"github.com/dmitrijs2005/confessions/internal/server/config"
	"github.com/dmitrijs2005/confessions/internal/server/geo"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Submission is a confession as sent by a client. Location is nil when the
// user did not opt in; the coordinates are only used to pick a label.
type Submission struct {
	Content   string
	Location  *geo.Point
	RequestID string
}

// AdmissionStatus tells an identity whether it may post right now.
type AdmissionStatus struct {
	CanSubmit      bool
	RetryAfter     time.Duration
	NextEligibleAt time.Time
	// TotalPosts counts the confessions this identity has had accepted.
	TotalPosts int64
}

// AdmissionService accepts at most one confession per identity per window.
type AdmissionService struct {
	repomanager repomanager.RepositoryManager
	locator     geo.Locator
	clock       clock.Clock
	logger      logging.Logger
	window      time.Duration
	timeout     time.Duration
	newID       func() string
	// jitter delays the stored window start past the confession's
	// created_at so the two tables cannot be joined on time.
	jitter func() time.Duration
}

func NewAdmissionService(m repomanager.RepositoryManager, locator geo.Locator, clk clock.Clock, logger logging.Logger, cfg *config.Config) *AdmissionService {
	return &AdmissionService{
		repomanager: m,
		locator:     locator,
		clock:       clk,
		logger:      logger.With("module", "admission"),
		window:      cfg.SubmissionWindow,
		timeout:     cfg.StorageTimeout,
		newID:       uuid.NewString,
		jitter:      windowJitter(cfg.WindowJitter),
	}
}

// windowJitter returns a source of delays in [1µs, max] at microsecond
// precision, or of zero when max is below a microsecond.
func windowJitter(max time.Duration) func() time.Duration {
	steps := int64(max / time.Microsecond)
	if steps <= 0 {
		return func() time.Duration { return 0 }
	}
	return func() time.Duration {
		return time.Duration(rand.Int64N(steps)+1) * time.Microsecond
	}
}

// TryAdmit validates sub and, if identity's window is open, stores it as a
// new confession and closes the window, atomically.
//
// Validation failures are returned as common.ErrEmptyContent,
// common.ErrTooLong or a *common.RateLimitError. A retry of an already
// accepted request id yields common.ErrDuplicateSubmission. Any storage
// problem yields common.ErrStorageUnavailable with nothing committed.
func (s *AdmissionService) TryAdmit(ctx context.Context, identity models.IdentityID, sub Submission) (*models.Confession, error) {
	content := strings.TrimSpace(sub.Content)
	if content == "" {
		s.logger.Info(ctx, "submission rejected", "reason", "empty")
		return nil, common.ErrEmptyContent
	}
	if utf8.RuneCountInString(sub.Content) > common.MaxContentLength {
		s.logger.Info(ctx, "submission rejected", "reason", "too_long")
		return nil, common.ErrTooLong
	}

	label := s.generalize(ctx, sub.Location)
	digest := requestDigest(sub.RequestID)
	key := identity.String()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var accepted *models.Confession
	err := s.repomanager.WithinTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		accepted = nil

		if err := repos.Windows().Lock(ctx, key); err != nil {
			return err
		}

		now := s.clock.Now().Truncate(time.Microsecond)

		w, err := repos.Windows().Get(ctx, key)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		if remaining := w.Remaining(now, s.window); remaining > 0 {
			if digest != nil && subtle.ConstantTimeCompare(w.RequestDigest, digest) == 1 {
				return common.ErrDuplicateSubmission
			}
			return &common.RateLimitError{RetryAfter: remaining}
		}

		c := &models.Confession{
			ID:              s.newID(),
			Content:         content,
			GeneralLocation: label,
			CreatedAt:       now,
		}
		if err := repos.Confessions().Create(ctx, c); err != nil {
			return err
		}
		if err := repos.Windows().Upsert(ctx, &models.SubmissionWindow{
			IdentityID:     key,
			LastAcceptedAt: now.Add(s.jitter()),
			RequestDigest:  digest,
		}); err != nil {
			return err
		}

		accepted = c
		return nil
	})

	switch {
	case err == nil:
		s.logger.Info(ctx, "submission accepted")
		return accepted, nil
	case errors.Is(err, common.ErrRateLimited):
		s.logger.Info(ctx, "submission rejected", "reason", "rate_limited")
		return nil, err
	case errors.Is(err, common.ErrDuplicateSubmission):
		s.logger.Info(ctx, "submission already accepted")
		return nil, err
	default:
		return nil, s.storageError(ctx, "admission failed", err)
	}
}

// Status reports whether identity may submit now. It never changes the window.
func (s *AdmissionService) Status(ctx context.Context, identity models.IdentityID) (*AdmissionStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var w *models.SubmissionWindow
	err := s.repomanager.WithinTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		var err error
		w, err = repos.Windows().Get(ctx, identity.String())
		if errors.Is(err, common.ErrorNotFound) {
			w = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, s.storageError(ctx, "status lookup failed", err)
	}

	var total int64
	if w != nil {
		total = w.AcceptedCount
	}

	now := s.clock.Now()
	remaining := w.Remaining(now, s.window)
	if remaining == 0 {
		return &AdmissionStatus{CanSubmit: true, NextEligibleAt: now, TotalPosts: total}, nil
	}
	return &AdmissionStatus{
		RetryAfter:     remaining,
		NextEligibleAt: now.Add(remaining),
		TotalPosts:     total,
	}, nil
}

func (s *AdmissionService) generalize(ctx context.Context, p *geo.Point) string {
	if p == nil || s.locator == nil {
		return ""
	}
	if !p.Valid() {
		s.logger.Info(ctx, "location ignored", "reason", "invalid_coordinates")
		return ""
	}
	label, err := s.locator.Generalize(ctx, *p)
	if err != nil {
		s.logger.Warn(ctx, "location generalization failed", "error", err)
		return ""
	}
	return label
}

// storageError logs err and maps it to the error returned to callers.
// Invariant violations are passed through and flagged for alerting.
func (s *AdmissionService) storageError(ctx context.Context, msg string, err error) error {
	if errors.Is(err, common.ErrInvariantViolation) {
		s.logger.Error(ctx, msg, "error", err, "alert", true)
		return err
	}
	s.logger.Warn(ctx, msg, "error", err)
	return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
}

func requestDigest(requestID string) []byte {
	if requestID == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(requestID))
	return sum[:]
}
