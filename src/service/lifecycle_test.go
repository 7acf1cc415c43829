package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"access-coordinator/src/models"
)

// TestReleaseEndsSessionAndPromotesWaiter verifies the release path: the
// session ends with the released reason, the head of the queue gets a fresh
// session, and the promoted user is notified.
func TestReleaseEndsSessionAndPromotesWaiter(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.admission.RequestAccess(ctx, "alice", "alice@example.com", models.RoleUser, "proj-1")
	require.NoError(t, err)
	_, err = env.admission.RequestAccess(ctx, "greta", "greta@example.com", models.RoleGuest, "proj-1")
	require.NoError(t, err)

	require.NoError(t, env.lifecycle.Release(ctx, granted.Session.ID, "alice"))

	ended, err := env.sessions.GetSessionByID(ctx, granted.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, ended.Status)
	assert.Equal(t, models.ReasonReleased, ended.EndReason)

	// The waiter was promoted with a fresh deadline for their bounded role.
	active, err := env.sessions.GetActiveSession(ctx, "proj-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "greta", active.UserID)
	assert.Equal(t, models.KindBounded, active.Kind)
	require.NotNil(t, active.EndTime)
	assert.WithinDuration(t, time.Now().Add(time.Minute), *active.EndTime, 2*time.Second)

	// The queue is empty and the promoted user was told.
	entries, err := env.admission.ListQueue(ctx, "proj-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	notifications, err := env.notifier.ListForUser(ctx, "greta")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotifySessionStarted, notifications[0].Kind)
}

// TestReleaseByNonHolderRejected verifies that only the holder can release
// their session.
func TestReleaseByNonHolderRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.admission.RequestAccess(ctx, "alice", "alice@example.com", models.RoleUser, "proj-1")
	require.NoError(t, err)

	err = env.lifecycle.Release(ctx, granted.Session.ID, "bob")
	assert.ErrorIs(t, err, models.ErrNotSessionHolder)

	active, err := env.sessions.GetActiveSession(ctx, "proj-1")
	require.NoError(t, err)
	assert.NotNil(t, active)
}

// TestPromotionOrderFollowsPriorityThenArrival verifies that queue
// advancement picks the highest-priority waiter, breaking ties by arrival.
func TestPromotionOrderFollowsPriorityThenArrival(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.admission.RequestAccess(ctx, "holder", "holder@example.com", models.RoleUser, "proj-1")
	require.NoError(t, err)

	// A guest joins first, then an admin. The admin must be promoted first.
	_, err = env.admission.RequestAccess(ctx, "greta", "greta@example.com", models.RoleGuest, "proj-1")
	require.NoError(t, err)
	_, err = env.admission.RequestAccess(ctx, "ada", "ada@example.com", models.RoleAdmin, "proj-1")
	require.NoError(t, err)

	require.NoError(t, env.lifecycle.Release(ctx, granted.Session.ID, "holder"))

	active, err := env.sessions.GetActiveSession(ctx, "proj-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "ada", active.UserID)

	// The guest is still waiting.
	entries, err := env.admission.ListQueue(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "greta", entries[0].UserID)
}

// TestTerminateRequiresSufficientRank verifies the termination permission
// rule: the caller must be privileged and rank at least as high as the
// holder, so an admin cannot evict a superadmin but a superadmin can evict
// an admin.
func TestTerminateRequiresSufficientRank(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.admission.RequestAccess(ctx, "sofia", "sofia@example.com", models.RoleSuperadmin, "proj-1")
	require.NoError(t, err)

	err = env.lifecycle.Terminate(ctx, granted.Session.ID, "ada", models.RoleAdmin)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	err = env.lifecycle.Terminate(ctx, granted.Session.ID, "ursula", models.RoleUser)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	require.NoError(t, env.lifecycle.Terminate(ctx, granted.Session.ID, "sam", models.RoleSuperadmin))

	ended, err := env.sessions.GetSessionByID(ctx, granted.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonTerminated, ended.EndReason)
}

// TestTerminateNotifiesEvictedHolder verifies the evicted user receives a
// session_terminated notification naming who did it.
func TestTerminateNotifiesEvictedHolder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.admission.RequestAccess(ctx, "greta", "greta@example.com", models.RoleGuest, "proj-1")
	require.NoError(t, err)

	require.NoError(t, env.lifecycle.Terminate(ctx, granted.Session.ID, "ada", models.RoleAdmin))

	notifications, err := env.notifier.ListForUser(ctx, "greta")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotifySessionTerminated, notifications[0].Kind)
	assert.Equal(t, "ada", notifications[0].Payload["terminated_by"])
}

// TestExpiryAndTerminationRaceEndsOnce verifies that when expiry and a
// manual termination race, the session ends exactly once and the queue
// advances exactly once.
func TestExpiryAndTerminationRaceEndsOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.admission.RequestAccess(ctx, "greta", "greta@example.com", models.RoleGuest, "proj-1")
	require.NoError(t, err)
	_, err = env.admission.RequestAccess(ctx, "bob", "bob@example.com", models.RoleUser, "proj-1")
	require.NoError(t, err)

	// Backdate the stored deadline so expiry is genuinely due.
	past := time.Now().Add(-time.Second)
	env.sessions.setEndTime(granted.Session.ID, &past)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// Losing the race is benign for expiry.
		assert.NoError(t, env.lifecycle.Expire(ctx, granted.Session.ID))
	}()
	go func() {
		defer wg.Done()
		err := env.lifecycle.Terminate(ctx, granted.Session.ID, "ada", models.RoleAdmin)
		if err != nil {
			assert.ErrorIs(t, err, models.ErrSessionNotActive)
		}
	}()
	wg.Wait()

	// Exactly one waiter was promoted, so exactly one session is active.
	active, err := env.sessions.GetActiveSession(ctx, "proj-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "bob", active.UserID)

	// One started log for greta, one end log, one started log for bob.
	ends := 0
	for _, action := range env.logs.actions() {
		if action == models.LogExpired || action == models.LogTerminated {
			ends++
		}
	}
	assert.Equal(t, 1, ends, "the session ends exactly once")
}

// TestExpireMissingSessionIsBenign verifies that expiring a session that
// never existed or already ended reports no error.
func TestExpireMissingSessionIsBenign(t *testing.T) {
	env := newTestEnv()

	assert.NoError(t, env.lifecycle.Expire(context.Background(), "gone"))
}

// TestExpireHonorsExtendedDeadline verifies that a timer firing against a
// session whose stored deadline moved into the future leaves the session
// active and rearms the timer from the stored deadline. This is the window
// where an approved extension commits while the old timer is already firing.
func TestExpireHonorsExtendedDeadline(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	timers := &recordingTimers{}
	env.lifecycle.SetTimers(timers)

	granted, err := env.admission.RequestAccess(ctx, "greta", "greta@example.com", models.RoleGuest, "proj-1")
	require.NoError(t, err)

	extended := time.Now().Add(5 * time.Minute)
	env.sessions.setEndTime(granted.Session.ID, &extended)

	require.NoError(t, env.lifecycle.Expire(ctx, granted.Session.ID))

	session, err := env.sessions.GetSessionByID(ctx, granted.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, session.Status, "a session with a future deadline must survive a stale timer")

	require.NotEmpty(t, timers.scheduled)
	rearmed := timers.scheduled[len(timers.scheduled)-1]
	require.NotNil(t, rearmed.EndTime)
	assert.True(t, rearmed.EndTime.Equal(extended), "the timer rearms from the stored deadline")
}

// TestExpireEndsOverdueSession verifies the complement: once the stored
// deadline has passed, expiry ends the session with the expired reason.
func TestExpireEndsOverdueSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.admission.RequestAccess(ctx, "greta", "greta@example.com", models.RoleGuest, "proj-1")
	require.NoError(t, err)

	past := time.Now().Add(-time.Second)
	env.sessions.setEndTime(granted.Session.ID, &past)

	require.NoError(t, env.lifecycle.Expire(ctx, granted.Session.ID))

	session, err := env.sessions.GetSessionByID(ctx, granted.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, session.Status)
	assert.Equal(t, models.ReasonExpired, session.EndReason)
}

// TestEndSessionWithEmptyQueueFreesResource verifies that a release with no
// waiters leaves the resource free for the next direct admission.
func TestEndSessionWithEmptyQueueFreesResource(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.admission.RequestAccess(ctx, "alice", "alice@example.com", models.RoleUser, "proj-1")
	require.NoError(t, err)
	require.NoError(t, env.lifecycle.Release(ctx, granted.Session.ID, "alice"))

	active, err := env.sessions.GetActiveSession(ctx, "proj-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	next, err := env.admission.RequestAccess(ctx, "bob", "bob@example.com", models.RoleUser, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", next.Session.UserID)
}

// TestAuditTrailRecordsLifecycle verifies the audit log captures start and
// end events with the acting user.
func TestAuditTrailRecordsLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	granted, err := env.admission.RequestAccess(ctx, "alice", "alice@example.com", models.RoleUser, "proj-1")
	require.NoError(t, err)
	require.NoError(t, env.lifecycle.Release(ctx, granted.Session.ID, "alice"))

	actions := env.logs.actions()
	require.Len(t, actions, 2)
	assert.Equal(t, models.LogStarted, actions[0])
	assert.Equal(t, models.LogReleased, actions[1])

	logs, err := env.logs.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	// Newest first.
	assert.Equal(t, models.LogReleased, logs[0].Action)
	assert.Equal(t, "alice", logs[0].Actor)
}
