package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"access-coordinator/src/models"
)

// Expirer is the lifecycle operation the scheduler invokes when a deadline
// elapses.
type Expirer interface {
	Expire(ctx context.Context, sessionID string) error
}

// expireTimeout bounds the end-and-advance work triggered by one deadline.
const expireTimeout = 10 * time.Second

// ExpiryScheduler retires bounded sessions when their deadline elapses. It
// keeps exactly one timer per session, always derived from the persisted
// EndTime: rearming replaces the previous timer, and Resync rebuilds the
// whole set from the session store after a restart, so countdowns never
// drift or duplicate.
type ExpiryScheduler struct {
	expirer Expirer

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewExpiryScheduler creates a scheduler; Resync or Schedule arm it.
func NewExpiryScheduler(expirer Expirer) *ExpiryScheduler {
	return &ExpiryScheduler{
		expirer: expirer,
		timers:  make(map[string]*time.Timer),
	}
}

// Schedule arms (or rearms) the deadline timer for a bounded session.
// Sessions without a deadline are ignored.
func (s *ExpiryScheduler) Schedule(session models.Session) {
	if session.EndTime == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	// Never accumulate two timers for one session.
	if existing, ok := s.timers[session.ID]; ok {
		existing.Stop()
	}

	remaining := time.Until(*session.EndTime)
	if remaining < 0 {
		remaining = 0
	}

	sessionID := session.ID
	s.timers[sessionID] = time.AfterFunc(remaining, func() {
		s.fire(sessionID)
	})

	slog.Info("Armed expiry timer",
		"session_id", sessionID,
		"end_time", *session.EndTime,
		"remaining", remaining)
}

// Cancel stops the timer for a session that ended early.
func (s *ExpiryScheduler) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[sessionID]; ok {
		timer.Stop()
		delete(s.timers, sessionID)
	}
}

// Resync rebuilds timers for every active bounded session from the store.
// Called at startup so deadlines survive a process restart; the remaining
// time is recomputed from the persisted EndTime, never reset.
func (s *ExpiryScheduler) Resync(ctx context.Context, sessions SessionStore) error {
	active, err := sessions.ListActiveBounded(ctx)
	if err != nil {
		return err
	}

	for _, session := range active {
		s.Schedule(session)
	}

	slog.Info("Resynced expiry timers", "count", len(active))
	return nil
}

// Stop cancels every timer. Used during shutdown.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *ExpiryScheduler) fire(sessionID string) {
	s.mu.Lock()
	delete(s.timers, sessionID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
	defer cancel()

	if err := s.expirer.Expire(ctx, sessionID); err != nil {
		slog.Error("Failed to expire session", "session_id", sessionID, "error", err)
	}
}
