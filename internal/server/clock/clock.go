// Package clock supplies the server-side notion of "now" used by admission
// decisions. Client timestamps are never consulted.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Monotonic reports wall time anchored at construction and advanced by the
// process monotonic clock, so wall-clock steps after start-up cannot reopen
// or extend a submission window.
type Monotonic struct {
	base time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{base: time.Now()}
}

func (m *Monotonic) Now() time.Time {
	return m.base.Add(time.Since(m.base)).UTC()
}

// Manual is a settable clock for tests and tooling.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
