// Package session decides which user runs the startup check and when.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"modnotifier/internal/debug"
	"modnotifier/internal/domain"
)

// DefaultInitialDelay is how long after startup the first check runs.
const DefaultInitialDelay = 7500 * time.Millisecond

// ElectCoordinator returns the ID of the active GM with the smallest ID, or
// "" when no GM is active. Exactly one connected session therefore runs the
// startup check.
func ElectCoordinator(users []domain.User) string {
	var ids []string
	for _, u := range users {
		if u.Active && u.IsGM {
			ids = append(ids, u.ID)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)
	return ids[0]
}

// IsCoordinator reports whether self is the elected coordinator.
func IsCoordinator(users []domain.User, self string) bool {
	if self == "" {
		return false
	}
	return ElectCoordinator(users) == self
}

// Scheduler runs deferred one-shot work. The zero value uses the wall clock.
type Scheduler struct {
	after func(time.Duration) <-chan time.Time
	wg    sync.WaitGroup
}

// NewScheduler creates a scheduler backed by the wall clock.
func NewScheduler() *Scheduler {
	return &Scheduler{after: time.After}
}

// ScheduleOnce runs fn once after delay unless ctx is cancelled first. A
// non-positive delay uses DefaultInitialDelay. The returned channel is closed
// once fn has returned or the run was cancelled; it carries true when fn ran.
func (s *Scheduler) ScheduleOnce(ctx context.Context, delay time.Duration, fn func(context.Context)) <-chan bool {
	if delay <= 0 {
		delay = DefaultInitialDelay
	}
	after := s.after
	if after == nil {
		after = time.After
	}
	done := make(chan bool, 1)
	timer := after(delay)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		select {
		case <-ctx.Done():
			debug.Logf("scheduled check cancelled: %v", ctx.Err())
			done <- false
		case <-timer:
			fn(ctx)
			done <- true
		}
	}()
	return done
}

// Wait blocks until every scheduled run has finished or been cancelled.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
