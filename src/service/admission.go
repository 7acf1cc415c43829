package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"access-coordinator/src/events"
	"access-coordinator/src/models"
	"access-coordinator/src/schemas"
)

// admissionRetries bounds the transparent retry of a lost admission race.
// Each retry re-reads the resource state, so one pass per competitor is
// plenty in practice.
const admissionRetries = 3

// pinOffset is how far into the past an admin "move to front" rewrites an
// entry's arrival time: early enough to sort ahead of any real waiter of
// the same priority.
const pinOffset = 1000 * time.Second

// AdmissionService decides, for a (user, resource) request, whether to
// grant immediate control, return the caller's existing session, or
// enqueue. It never preempts the current holder: a higher-priority arrival
// queues like everyone else and the holder is notified so they can yield
// voluntarily.
type AdmissionService struct {
	resources ResourceStore
	sessions  SessionStore
	queue     QueueStore
	lifecycle *LifecycleService
	notifier  *Notifier
	bus       *events.Bus
	hierarchy *models.RoleHierarchy
}

// NewAdmissionService creates a new admission service.
func NewAdmissionService(resources ResourceStore, sessions SessionStore, queue QueueStore, lifecycle *LifecycleService, notifier *Notifier, bus *events.Bus, hierarchy *models.RoleHierarchy) *AdmissionService {
	return &AdmissionService{
		resources: resources,
		sessions:  sessions,
		queue:     queue,
		lifecycle: lifecycle,
		notifier:  notifier,
		bus:       bus,
		hierarchy: hierarchy,
	}
}

// RequestAccess resolves an access request per the admission rules:
//  1. the caller already holds the active session: return it unchanged
//  2. the caller is already queued: ErrAlreadyQueued
//  3. the resource is free: create a session (bounded for bounded roles)
//  4. someone else holds it: enqueue, notifying the holder when the caller
//     outranks them
//
// A lost race on step 3 retries the whole decision transparently.
func (s *AdmissionService) RequestAccess(ctx context.Context, userID, userEmail string, role models.Role, resourceID string) (*schemas.AccessResponse, error) {
	resource, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if !resource.VisibleTo(role) {
		return nil, models.ErrPermissionDenied
	}

	for attempt := 0; attempt < admissionRetries; attempt++ {
		response, err := s.tryAdmit(ctx, userID, userEmail, role, resourceID)
		if errors.Is(err, models.ErrStaleWrite) {
			slog.Info("Admission lost a race, retrying",
				"resource_id", resourceID,
				"user_id", userID,
				"attempt", attempt+1)
			continue
		}
		return response, err
	}
	return nil, models.ErrStaleWrite
}

func (s *AdmissionService) tryAdmit(ctx context.Context, userID, userEmail string, role models.Role, resourceID string) (*schemas.AccessResponse, error) {
	active, err := s.sessions.GetActiveSession(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	// Idempotent re-entry: a reload must get the same session back with no
	// new write.
	if active != nil && active.UserID == userID {
		return &schemas.AccessResponse{
			Outcome: schemas.OutcomeGranted,
			Session: active,
		}, nil
	}

	existing, err := s.queue.GetEntry(ctx, resourceID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrAlreadyQueued
	}

	if active == nil {
		session, err := s.lifecycle.StartSession(ctx, resourceID, userID, userEmail, role)
		if err != nil {
			return nil, err
		}
		return &schemas.AccessResponse{
			Outcome: schemas.OutcomeGranted,
			Session: session,
		}, nil
	}

	return s.enqueue(ctx, userID, userEmail, role, resourceID, active)
}

func (s *AdmissionService) enqueue(ctx context.Context, userID, userEmail string, role models.Role, resourceID string, holder *models.Session) (*schemas.AccessResponse, error) {
	entry, err := s.queue.Enqueue(ctx, models.QueueEntry{
		ID:         uuid.New().String(),
		ResourceID: resourceID,
		UserID:     userID,
		UserEmail:  userEmail,
		Role:       role,
		JoinedAt:   time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.Change{
		Channel:    events.ChannelQueues,
		Op:         events.OpAdded,
		ResourceID: resourceID,
		Record:     entry,
	})

	// No preemption: a higher-priority waiter only prompts the holder to
	// consider yielding.
	if s.hierarchy.Outranks(role, holder.Role) {
		if err := s.notifier.Notify(ctx, holder.UserID, resourceID, models.NotifyPriorityWaiting, map[string]string{
			"session_id":   holder.ID,
			"waiting_role": string(role),
		}); err != nil {
			slog.Warn("Failed to notify holder of waiting higher-priority user",
				"resource_id", resourceID,
				"error", err)
		}
	}

	// A holder releasing between the active check and the enqueue write
	// runs its advancement against a queue that does not yet contain this
	// entry. Recheck and advance so the waiter is promoted onto the freed
	// resource instead of sitting queued behind nobody.
	current, err := s.sessions.GetActiveSession(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		if err := s.lifecycle.advanceQueue(ctx, resourceID); err != nil {
			return nil, err
		}
		current, err = s.sessions.GetActiveSession(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.UserID == userID {
			return &schemas.AccessResponse{
				Outcome: schemas.OutcomeGranted,
				Session: current,
			}, nil
		}
	}

	entries, err := s.queue.List(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return &schemas.AccessResponse{
		Outcome:  schemas.OutcomeQueued,
		Entry:    entry,
		Position: models.Position(entries, s.hierarchy, entry.ID),
	}, nil
}

// Withdraw removes the caller's own queue entry.
func (s *AdmissionService) Withdraw(ctx context.Context, userID, resourceID string) error {
	entry, err := s.queue.GetEntry(ctx, resourceID, userID)
	if err != nil {
		return err
	}
	if entry == nil {
		return models.ErrQueueEntryNotFound
	}

	if err := s.queue.Remove(ctx, entry.ID); err != nil {
		return err
	}

	s.bus.Publish(events.Change{
		Channel:    events.ChannelQueues,
		Op:         events.OpRemoved,
		ResourceID: resourceID,
		Record:     entry,
	})
	return nil
}

// ListQueue returns a resource's waiting list in display order.
func (s *AdmissionService) ListQueue(ctx context.Context, resourceID string) ([]models.QueueEntry, error) {
	return s.queue.List(ctx, resourceID)
}

// PinToFront is the admin override that moves an entry ahead of its peers
// by rewriting its arrival time to the past.
func (s *AdmissionService) PinToFront(ctx context.Context, entryID string, byRole models.Role) error {
	if !s.hierarchy.IsPrivileged(byRole) {
		return models.ErrPermissionDenied
	}

	entry, err := s.queue.GetEntryByID(ctx, entryID)
	if err != nil {
		return err
	}

	pinnedAt := time.Now().Add(-pinOffset)
	if err := s.queue.PinToFront(ctx, entryID, pinnedAt); err != nil {
		return err
	}

	entry.JoinedAt = pinnedAt
	s.bus.Publish(events.Change{
		Channel:    events.ChannelQueues,
		Op:         events.OpUpdated,
		ResourceID: entry.ResourceID,
		Record:     entry,
	})
	return nil
}

// RemoveEntry is the admin removal of someone else's queue entry.
func (s *AdmissionService) RemoveEntry(ctx context.Context, entryID string, byRole models.Role) error {
	if !s.hierarchy.IsPrivileged(byRole) {
		return models.ErrPermissionDenied
	}

	entry, err := s.queue.GetEntryByID(ctx, entryID)
	if err != nil {
		return err
	}

	if err := s.queue.Remove(ctx, entryID); err != nil {
		return err
	}

	s.bus.Publish(events.Change{
		Channel:    events.ChannelQueues,
		Op:         events.OpRemoved,
		ResourceID: entry.ResourceID,
		Record:     entry,
	})
	return nil
}

// ListResources returns the resources visible to the caller's role.
func (s *AdmissionService) ListResources(ctx context.Context, role models.Role) ([]models.Resource, error) {
	return s.resources.ListForRole(ctx, role)
}
