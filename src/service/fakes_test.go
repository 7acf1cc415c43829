package service

import (
	"context"
	"sync"
	"time"

	"access-coordinator/src/events"
	"access-coordinator/src/models"
	"access-coordinator/src/repository"
)

// The fakes below mirror the Postgres repositories' semantics, including
// the compare-and-swap guards: at most one active session per resource,
// end-once transitions, and the open-request uniqueness for extensions.
// Services under test cannot tell them apart from the real stores.

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.Session)}
}

func (f *fakeSessionStore) GetActiveSession(_ context.Context, resourceID string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLocked(resourceID), nil
}

func (f *fakeSessionStore) activeLocked(resourceID string) *models.Session {
	for _, s := range f.sessions {
		if s.ResourceID == resourceID && s.Status == models.SessionActive {
			copy := s
			return &copy
		}
	}
	return nil
}

func (f *fakeSessionStore) GetSessionByID(_ context.Context, sessionID string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	copy := s
	return &copy, nil
}

func (f *fakeSessionStore) CreateActiveSession(_ context.Context, session models.Session) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createLocked(session)
}

func (f *fakeSessionStore) createLocked(session models.Session) (*models.Session, error) {
	if f.activeLocked(session.ResourceID) != nil {
		return nil, models.ErrStaleWrite
	}
	f.sessions[session.ID] = session
	copy := session
	return &copy, nil
}

func (f *fakeSessionStore) EndSession(_ context.Context, sessionID string, reason models.EndReason, endedAt time.Time) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if s.Status != models.SessionActive {
		return nil, models.ErrSessionNotActive
	}
	s.Status = models.SessionEnded
	s.EndReason = reason
	s.EndedAt = &endedAt
	f.sessions[sessionID] = s
	copy := s
	return &copy, nil
}

// setEndTime rewrites a stored deadline directly, standing in for a
// concurrent extension or clock drift the service did not observe.
func (f *fakeSessionStore) setEndTime(sessionID string, endTime *time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[sessionID]
	s.EndTime = endTime
	f.sessions[sessionID] = s
}

func (f *fakeSessionStore) ListSessions(_ context.Context, resourceID string, status *models.SessionStatus) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.ResourceID != resourceID {
			continue
		}
		if status != nil && s.Status != *status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSessionStore) ListActiveBounded(_ context.Context) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.Status == models.SessionActive && s.EndTime != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeQueueStore struct {
	mu        sync.Mutex
	entries   map[string]models.QueueEntry
	sessions  *fakeSessionStore
	hierarchy *models.RoleHierarchy
}

func newFakeQueueStore(sessions *fakeSessionStore, hierarchy *models.RoleHierarchy) *fakeQueueStore {
	return &fakeQueueStore{
		entries:   make(map[string]models.QueueEntry),
		sessions:  sessions,
		hierarchy: hierarchy,
	}
}

func (f *fakeQueueStore) Enqueue(_ context.Context, entry models.QueueEntry) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ResourceID == entry.ResourceID && e.UserID == entry.UserID {
			return nil, models.ErrAlreadyQueued
		}
	}
	f.entries[entry.ID] = entry
	copy := entry
	return &copy, nil
}

func (f *fakeQueueStore) GetEntry(_ context.Context, resourceID, userID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ResourceID == resourceID && e.UserID == userID {
			copy := e
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeQueueStore) GetEntryByID(_ context.Context, entryID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryID]
	if !ok {
		return nil, models.ErrQueueEntryNotFound
	}
	copy := e
	return &copy, nil
}

func (f *fakeQueueStore) List(_ context.Context, resourceID string) ([]models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked(resourceID), nil
}

func (f *fakeQueueStore) listLocked(resourceID string) []models.QueueEntry {
	var out []models.QueueEntry
	for _, e := range f.entries {
		if e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	models.SortEntries(out, f.hierarchy)
	return out
}

func (f *fakeQueueStore) Remove(_ context.Context, entryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[entryID]; !ok {
		return models.ErrQueueEntryNotFound
	}
	delete(f.entries, entryID)
	return nil
}

func (f *fakeQueueStore) PinToFront(_ context.Context, entryID string, pinnedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryID]
	if !ok {
		return models.ErrQueueEntryNotFound
	}
	e.JoinedAt = pinnedAt
	f.entries[entryID] = e
	return nil
}

func (f *fakeQueueStore) PopAndPromote(_ context.Context, resourceID string, build func(models.QueueEntry) models.Session) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.listLocked(resourceID)
	if len(entries) == 0 {
		return nil, nil
	}
	head := entries[0]

	f.sessions.mu.Lock()
	promoted, err := f.sessions.createLocked(build(head))
	f.sessions.mu.Unlock()
	if err != nil {
		return nil, err
	}
	delete(f.entries, head.ID)
	return promoted, nil
}

type fakeExtensionStore struct {
	mu       sync.Mutex
	requests map[string]models.ExtensionRequest
	sessions *fakeSessionStore
}

func newFakeExtensionStore(sessions *fakeSessionStore) *fakeExtensionStore {
	return &fakeExtensionStore{
		requests: make(map[string]models.ExtensionRequest),
		sessions: sessions,
	}
}

func (f *fakeExtensionStore) Create(_ context.Context, request models.ExtensionRequest) (*models.ExtensionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.SessionID == request.SessionID && r.Open() {
			return nil, models.ErrDuplicateRequest
		}
	}
	request.Status = models.ExtensionPending
	f.requests[request.ID] = request
	copy := request
	return &copy, nil
}

func (f *fakeExtensionStore) GetByID(_ context.Context, requestID string) (*models.ExtensionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok {
		return nil, models.ErrExtensionNotFound
	}
	copy := r
	return &copy, nil
}

func (f *fakeExtensionStore) Decide(_ context.Context, requestID string, status models.ExtensionStatus, processedBy string, processedAt time.Time, approvedMinutes int) (*models.ExtensionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok || r.Status != models.ExtensionPending {
		return nil, models.ErrStaleWrite
	}
	r.Status = status
	r.ProcessedBy = processedBy
	r.ProcessedAt = &processedAt
	r.ApprovedMinutes = approvedMinutes
	f.requests[requestID] = r
	copy := r
	return &copy, nil
}

func (f *fakeExtensionStore) Apply(_ context.Context, requestID string, minutes int) (*time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok || r.Status != models.ExtensionApproved {
		return nil, false, nil
	}

	f.sessions.mu.Lock()
	defer f.sessions.mu.Unlock()
	s, ok := f.sessions.sessions[r.SessionID]
	if !ok || s.Status != models.SessionActive || s.EndTime == nil {
		// Roll back: the request stays approved.
		return nil, false, models.ErrSessionNotActive
	}

	newEndTime := s.EndTime.Add(time.Duration(minutes) * time.Minute)
	s.EndTime = &newEndTime
	f.sessions.sessions[r.SessionID] = s

	r.Status = models.ExtensionApplied
	f.requests[requestID] = r
	return &newEndTime, true, nil
}

func (f *fakeExtensionStore) List(_ context.Context, filter repository.ExtensionFilter) ([]models.ExtensionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ExtensionRequest
	for _, r := range f.requests {
		if filter.SessionID != "" && r.SessionID != filter.SessionID {
			continue
		}
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications map[string]models.Notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{notifications: make(map[string]models.Notification)}
}

func (f *fakeNotificationStore) Create(_ context.Context, notification models.Notification) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications[notification.ID] = notification
	copy := notification
	return &copy, nil
}

func (f *fakeNotificationStore) ListForUser(_ context.Context, userID string) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.notifications {
		if n.TargetUserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) Ack(_ context.Context, notificationID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[notificationID]
	if !ok || n.TargetUserID != userID {
		return models.ErrNotificationNotFound
	}
	delete(f.notifications, notificationID)
	return nil
}

type fakeLogStore struct {
	mu   sync.Mutex
	logs []models.SessionLog
}

func (f *fakeLogStore) Append(_ context.Context, log models.SessionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeLogStore) List(_ context.Context, limit int) ([]models.SessionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SessionLog, 0, limit)
	for i := len(f.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.logs[i])
	}
	return out, nil
}

// actions returns the recorded actions in append order.
func (f *fakeLogStore) actions() []models.LogAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.LogAction, len(f.logs))
	for i, l := range f.logs {
		out[i] = l.Action
	}
	return out
}

type fakeResourceStore struct {
	resources map[string]models.Resource
}

func (f *fakeResourceStore) GetResource(_ context.Context, resourceID string) (*models.Resource, error) {
	r, ok := f.resources[resourceID]
	if !ok {
		return nil, models.ErrResourceNotFound
	}
	copy := r
	return &copy, nil
}

func (f *fakeResourceStore) ListForRole(_ context.Context, role models.Role) ([]models.Resource, error) {
	var out []models.Resource
	for _, r := range f.resources {
		if r.VisibleTo(role) {
			out = append(out, r)
		}
	}
	return out, nil
}

// testEnv wires the full service graph over the in-memory fakes with the
// default role hierarchy and a one-minute bounded duration.
type testEnv struct {
	hierarchy     *models.RoleHierarchy
	bus           *events.Bus
	sessions      *fakeSessionStore
	queue         *fakeQueueStore
	extensions    *fakeExtensionStore
	notifications *fakeNotificationStore
	logs          *fakeLogStore
	resources     *fakeResourceStore

	notifier  *Notifier
	lifecycle *LifecycleService
	admission *AdmissionService
	extension *ExtensionService
}

func newTestEnv() *testEnv {
	hierarchy := models.NewRoleHierarchy(
		[]models.Role{models.RoleSuperadmin, models.RoleAdmin, models.RoleUser, models.RoleGuest},
		[]models.Role{models.RoleSuperadmin, models.RoleAdmin},
		[]models.Role{models.RoleGuest},
	)

	sessions := newFakeSessionStore()
	queue := newFakeQueueStore(sessions, hierarchy)
	extensions := newFakeExtensionStore(sessions)
	notifications := newFakeNotificationStore()
	logs := &fakeLogStore{}
	resources := &fakeResourceStore{resources: map[string]models.Resource{
		"proj-1": {ID: "proj-1", Name: "Project One"},
		"proj-2": {ID: "proj-2", Name: "Project Two", AllowedRoles: []models.Role{models.RoleSuperadmin, models.RoleAdmin}},
	}}

	bus := events.NewBus()
	notifier := NewNotifier(notifications, nil, bus)
	lifecycle := NewLifecycleService(sessions, queue, logs, notifier, bus, hierarchy, time.Minute)
	extension := NewExtensionService(extensions, sessions, notifier, bus, hierarchy)
	admission := NewAdmissionService(resources, sessions, queue, lifecycle, notifier, bus, hierarchy)

	return &testEnv{
		hierarchy:     hierarchy,
		bus:           bus,
		sessions:      sessions,
		queue:         queue,
		extensions:    extensions,
		notifications: notifications,
		logs:          logs,
		resources:     resources,
		notifier:      notifier,
		lifecycle:     lifecycle,
		admission:     admission,
		extension:     extension,
	}
}
