package models

import "time"

// SubmissionWindow records when an identity last had a confession accepted.
// It is owned by the admission controller and never references a confession.
type SubmissionWindow struct {
	IdentityID string
	// LastAcceptedAt starts the window. It is the acceptance time plus a
	// random delay, never earlier than the confession's created_at.
	LastAcceptedAt time.Time
	// RequestDigest is the SHA-256 of the client request id of the accepted
	// submission, empty when the client sent none.
	RequestDigest []byte
	// AcceptedCount is the number of confessions ever accepted for the
	// identity. Upsert increments it.
	AcceptedCount int64
}

// Remaining returns how long the window stays closed at now, or zero when a
// new submission may be accepted.
func (w *SubmissionWindow) Remaining(now time.Time, window time.Duration) time.Duration {
	if w == nil {
		return 0
	}
	elapsed := now.Sub(w.LastAcceptedAt)
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}
