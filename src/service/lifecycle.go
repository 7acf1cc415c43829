package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"access-coordinator/src/events"
	"access-coordinator/src/models"
)

// TimerControl is the slice of the expiry scheduler the lifecycle needs:
// arm (or rearm) a deadline timer and cancel one. The scheduler calls back
// into the lifecycle through the Expirer interface, so the two are wired
// with a setter after construction.
type TimerControl interface {
	Schedule(session models.Session)
	Cancel(sessionID string)
}

// noopTimers is used until SetTimers is called and in tests that do not
// care about timers.
type noopTimers struct{}

func (noopTimers) Schedule(models.Session) {}
func (noopTimers) Cancel(string)           {}

// LifecycleService owns session start and end. Every path out of the
// active state (release, termination, expiry) funnels through endSession,
// which advances the queue exactly once per ended session.
type LifecycleService struct {
	sessions  SessionStore
	queue     QueueStore
	logs      LogStore
	notifier  *Notifier
	bus       *events.Bus
	hierarchy *models.RoleHierarchy
	timers    TimerControl

	// Fixed duration of a bounded session.
	boundedDuration time.Duration
}

// NewLifecycleService creates a new lifecycle service.
func NewLifecycleService(sessions SessionStore, queue QueueStore, logs LogStore, notifier *Notifier, bus *events.Bus, hierarchy *models.RoleHierarchy, boundedDuration time.Duration) *LifecycleService {
	return &LifecycleService{
		sessions:        sessions,
		queue:           queue,
		logs:            logs,
		notifier:        notifier,
		bus:             bus,
		hierarchy:       hierarchy,
		timers:          noopTimers{},
		boundedDuration: boundedDuration,
	}
}

// SetTimers wires the expiry scheduler in after construction.
func (s *LifecycleService) SetTimers(timers TimerControl) {
	s.timers = timers
}

// newSession builds the session to create for a user taking control now:
// bounded with a deadline for roles configured as bounded, unbounded
// otherwise.
func (s *LifecycleService) newSession(resourceID, userID, userEmail string, role models.Role, now time.Time) models.Session {
	session := models.Session{
		ID:         uuid.New().String(),
		ResourceID: resourceID,
		UserID:     userID,
		UserEmail:  userEmail,
		Role:       role,
		Kind:       models.KindUnbounded,
		Status:     models.SessionActive,
		StartTime:  now,
	}
	if s.hierarchy.IsBounded(role) {
		session.Kind = models.KindBounded
		endTime := now.Add(s.boundedDuration)
		session.EndTime = &endTime
	}
	return session
}

// StartSession creates an active session for the user, arming the expiry
// timer for bounded roles. Fails with models.ErrStaleWrite when another
// session won the resource concurrently.
func (s *LifecycleService) StartSession(ctx context.Context, resourceID, userID, userEmail string, role models.Role) (*models.Session, error) {
	created, err := s.sessions.CreateActiveSession(ctx, s.newSession(resourceID, userID, userEmail, role, time.Now()))
	if err != nil {
		return nil, err
	}

	s.afterStart(ctx, created, userID)
	return created, nil
}

// afterStart runs the bookkeeping shared by direct admission and queue
// promotion: timer, audit log, diff event.
func (s *LifecycleService) afterStart(ctx context.Context, session *models.Session, actor string) {
	if session.Kind == models.KindBounded {
		s.timers.Schedule(*session)
	}
	s.appendLog(ctx, session, models.LogStarted, actor)
	s.bus.Publish(events.Change{
		Channel:    events.ChannelSessions,
		Op:         events.OpAdded,
		ResourceID: session.ResourceID,
		Record:     session,
	})
}

// Release ends a session at its holder's request (e.g. navigating away).
func (s *LifecycleService) Release(ctx context.Context, sessionID, byUserID string) error {
	session, err := s.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != byUserID {
		return models.ErrNotSessionHolder
	}

	return s.endSession(ctx, sessionID, models.ReasonReleased, byUserID)
}

// Terminate forcibly ends another user's session. The caller must hold a
// privileged role that ranks at least as high as the holder's; an admin
// cannot evict a superadmin. The evicted user is notified.
func (s *LifecycleService) Terminate(ctx context.Context, sessionID, byUserID string, byRole models.Role) error {
	if !s.hierarchy.IsPrivileged(byRole) {
		return models.ErrPermissionDenied
	}

	session, err := s.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !s.hierarchy.RanksAtLeast(byRole, session.Role) {
		return models.ErrPermissionDenied
	}

	if err := s.endSession(ctx, sessionID, models.ReasonTerminated, byUserID); err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx, session.UserID, session.ResourceID, models.NotifySessionTerminated, map[string]string{
		"session_id":    sessionID,
		"terminated_by": byUserID,
	}); err != nil {
		slog.Warn("Failed to notify evicted user", "session_id", sessionID, "error", err)
	}
	return nil
}

// Expire ends a bounded session whose deadline elapsed. Called by the
// expiry scheduler; losing the race against a manual termination is benign.
// The persisted EndTime is rechecked first: a timer that fired while an
// extension was being applied rearms from the new deadline instead of
// ending the session.
func (s *LifecycleService) Expire(ctx context.Context, sessionID string) error {
	session, err := s.sessions.GetSessionByID(ctx, sessionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !session.IsActive() || session.EndTime == nil {
		return nil
	}
	if time.Now().Before(*session.EndTime) {
		slog.Info("Deadline moved since timer fired, rearming",
			"session_id", sessionID,
			"end_time", *session.EndTime)
		s.timers.Schedule(*session)
		return nil
	}

	err = s.endSession(ctx, sessionID, models.ReasonExpired, "system")
	if errors.Is(err, models.ErrSessionNotActive) || errors.Is(err, models.ErrSessionNotFound) {
		return nil
	}
	return err
}

// endSession marks the session ended and advances the queue. The store's
// active-status guard guarantees only one caller gets past it per session,
// so the advancement runs exactly once no matter how expiry, release and
// termination race.
func (s *LifecycleService) endSession(ctx context.Context, sessionID string, reason models.EndReason, actor string) error {
	ended, err := s.sessions.EndSession(ctx, sessionID, reason, time.Now())
	if err != nil {
		return err
	}

	s.timers.Cancel(sessionID)

	action := models.LogReleased
	switch reason {
	case models.ReasonExpired:
		action = models.LogExpired
	case models.ReasonTerminated:
		action = models.LogTerminated
	}
	s.appendLog(ctx, ended, action, actor)

	s.bus.Publish(events.Change{
		Channel:    events.ChannelSessions,
		Op:         events.OpUpdated,
		ResourceID: ended.ResourceID,
		Record:     ended,
	})

	return s.advanceQueue(ctx, ended.ResourceID)
}

// advanceQueue promotes the highest-priority waiter into a new session.
// Invoked once per ended session. A stale write here means a concurrent
// admission took the freed resource first; the waiter simply stays queued.
func (s *LifecycleService) advanceQueue(ctx context.Context, resourceID string) error {
	var head models.QueueEntry
	promoted, err := s.queue.PopAndPromote(ctx, resourceID, func(entry models.QueueEntry) models.Session {
		head = entry
		return s.newSession(resourceID, entry.UserID, entry.UserEmail, entry.Role, time.Now())
	})
	if errors.Is(err, models.ErrStaleWrite) {
		slog.Warn("Queue advancement lost the resource to a concurrent admission",
			"resource_id", resourceID)
		return nil
	}
	if err != nil {
		return err
	}
	if promoted == nil {
		// Queue empty; the resource is free.
		return nil
	}

	s.bus.Publish(events.Change{
		Channel:    events.ChannelQueues,
		Op:         events.OpRemoved,
		ResourceID: resourceID,
		Record:     head,
	})
	s.afterStart(ctx, promoted, "system")

	if err := s.notifier.Notify(ctx, promoted.UserID, resourceID, models.NotifySessionStarted, map[string]string{
		"session_id": promoted.ID,
	}); err != nil {
		slog.Warn("Failed to notify promoted user", "session_id", promoted.ID, "error", err)
	}
	return nil
}

// ListSessions returns current and past sessions for a resource.
func (s *LifecycleService) ListSessions(ctx context.Context, resourceID string, status *models.SessionStatus) ([]models.Session, error) {
	return s.sessions.ListSessions(ctx, resourceID, status)
}

func (s *LifecycleService) appendLog(ctx context.Context, session *models.Session, action models.LogAction, actor string) {
	log := models.SessionLog{
		ID:         uuid.New().String(),
		SessionID:  session.ID,
		ResourceID: session.ResourceID,
		UserID:     session.UserID,
		Action:     action,
		Actor:      actor,
		Timestamp:  time.Now(),
	}
	if err := s.logs.Append(ctx, log); err != nil {
		slog.Error("Failed to append session log",
			"session_id", session.ID,
			"action", action,
			"error", err)
		return
	}
	s.bus.Publish(events.Change{
		Channel:    events.ChannelSessionLogs,
		Op:         events.OpAdded,
		ResourceID: session.ResourceID,
		Record:     log,
	})
}
