package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"access-coordinator/src/events"
	"access-coordinator/src/models"
	"access-coordinator/src/repository"
)

// ExtensionService lets a bounded-session holder ask for more time and a
// privileged role grant or refuse it. Approval and the deadline mutation
// are separate states so that a duplicated approval event cannot extend a
// session twice.
type ExtensionService struct {
	extensions ExtensionStore
	sessions   SessionStore
	notifier   *Notifier
	bus        *events.Bus
	hierarchy  *models.RoleHierarchy
	timers     TimerControl
}

// NewExtensionService creates a new extension service.
func NewExtensionService(extensions ExtensionStore, sessions SessionStore, notifier *Notifier, bus *events.Bus, hierarchy *models.RoleHierarchy) *ExtensionService {
	return &ExtensionService{
		extensions: extensions,
		sessions:   sessions,
		notifier:   notifier,
		bus:        bus,
		hierarchy:  hierarchy,
		timers:     noopTimers{},
	}
}

// SetTimers wires the expiry scheduler in after construction.
func (s *ExtensionService) SetTimers(timers TimerControl) {
	s.timers = timers
}

// RequestExtension creates a pending request for the caller's own bounded
// session. A second open request for the same session is rejected.
func (s *ExtensionService) RequestExtension(ctx context.Context, sessionID, userID string, minutes int) (*models.ExtensionRequest, error) {
	session, err := s.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, models.ErrSessionNotActive
	}
	if session.UserID != userID {
		return nil, models.ErrNotSessionHolder
	}
	if session.Kind != models.KindBounded {
		return nil, models.ErrSessionNotBounded
	}

	created, err := s.extensions.Create(ctx, models.ExtensionRequest{
		ID:               uuid.New().String(),
		SessionID:        sessionID,
		ResourceID:       session.ResourceID,
		UserID:           userID,
		UserEmail:        session.UserEmail,
		RequestedMinutes: minutes,
		Status:           models.ExtensionPending,
		RequestedAt:      time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.Change{
		Channel:    events.ChannelExtensions,
		Op:         events.OpAdded,
		ResourceID: session.ResourceID,
		Record:     created,
	})
	return created, nil
}

// DecideExtension approves or rejects a pending request. On approval the
// apply step runs immediately; observing the same approval again finds the
// request already applied and does nothing.
func (s *ExtensionService) DecideExtension(ctx context.Context, requestID string, approve bool, byUserID string, byRole models.Role) (*models.ExtensionRequest, error) {
	if !s.hierarchy.IsPrivileged(byRole) {
		return nil, models.ErrPermissionDenied
	}

	request, err := s.extensions.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !approve {
		decided, err := s.extensions.Decide(ctx, requestID, models.ExtensionRejected, byUserID, time.Now(), 0)
		if err != nil {
			return nil, err
		}
		s.publishUpdate(decided)
		return decided, nil
	}

	if request.Status == models.ExtensionPending {
		decided, err := s.extensions.Decide(ctx, requestID, models.ExtensionApproved, byUserID, time.Now(), request.RequestedMinutes)
		if errors.Is(err, models.ErrStaleWrite) {
			// A concurrent decision got there first; fall through to the
			// apply step, which is a no-op unless that decision approved.
			decided, err = s.extensions.GetByID(ctx, requestID)
		}
		if err != nil {
			return nil, err
		}
		request = decided
		s.publishUpdate(decided)
	}

	if request.Status != models.ExtensionApproved && request.Status != models.ExtensionApplied {
		return nil, models.ErrStaleWrite
	}

	return s.apply(ctx, request)
}

// apply performs the idempotent deadline mutation for an approved request.
func (s *ExtensionService) apply(ctx context.Context, request *models.ExtensionRequest) (*models.ExtensionRequest, error) {
	minutes := request.ApprovedMinutes
	if minutes == 0 {
		minutes = request.RequestedMinutes
	}

	newEndTime, applied, err := s.extensions.Apply(ctx, request.ID, minutes)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Already applied by an earlier delivery of the same approval.
		return s.extensions.GetByID(ctx, request.ID)
	}

	// Rearm the countdown from the persisted deadline.
	session, err := s.sessions.GetSessionByID(ctx, request.SessionID)
	if err == nil && session.IsActive() {
		s.timers.Schedule(*session)
		s.bus.Publish(events.Change{
			Channel:    events.ChannelSessions,
			Op:         events.OpUpdated,
			ResourceID: session.ResourceID,
			Record:     session,
		})
	}

	if err := s.notifier.Notify(ctx, request.UserID, request.ResourceID, models.NotifyExtensionApplied, map[string]string{
		"session_id": request.SessionID,
		"minutes":    strconv.Itoa(minutes),
	}); err != nil {
		slog.Warn("Failed to notify holder of applied extension",
			"request_id", request.ID,
			"error", err)
	}

	slog.Info("Extension applied",
		"request_id", request.ID,
		"session_id", request.SessionID,
		"new_end_time", newEndTime)

	final, err := s.extensions.GetByID(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	s.publishUpdate(final)
	return final, nil
}

// ListExtensions returns requests matching the filter.
func (s *ExtensionService) ListExtensions(ctx context.Context, filter repository.ExtensionFilter) ([]models.ExtensionRequest, error) {
	return s.extensions.List(ctx, filter)
}

func (s *ExtensionService) publishUpdate(request *models.ExtensionRequest) {
	s.bus.Publish(events.Change{
		Channel:    events.ChannelExtensions,
		Op:         events.OpUpdated,
		ResourceID: request.ResourceID,
		Record:     request,
	})
}
