package auth

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/middleware"
	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/storage"
)

func newTestGuard(t *testing.T) (*Guard, *time.Time) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			StudentPin: "1234",
			AdminPin:   "9999",
		},
		Session: config.SessionConfig{
			Timeout:          30 * time.Minute,
			WarningTime:      5 * time.Minute,
			MaxAttempts:      3,
			LockoutTime:      15 * time.Minute,
			ActivityThrottle: 30 * time.Second,
		},
		Storage: config.StorageConfig{Type: "memory"},
	}

	store, err := storage.NewManager(cfg, logger)
	require.NoError(t, err)

	guard := NewGuard(cfg, store, middleware.NewMetrics(), logger)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }

	return guard, &now
}

func TestSubmitCredential_Roles(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	session, err := guard.SubmitCredential(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, session.Role)
	assert.Equal(t, models.SessionActive, session.State)
	assert.NotEmpty(t, session.ID)
	assert.NotEqual(t, "1234", session.PinHash)

	admin, err := guard.SubmitCredential(ctx, "9999")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

func TestSubmitCredential_LockoutAfterThreeFailures(t *testing.T) {
	guard, now := newTestGuard(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := guard.SubmitCredential(ctx, "wrong")
		require.ErrorIs(t, err, ErrInvalidCredential)
	}

	assert.True(t, guard.IsLockedOut(ctx))

	// A call during cooldown fails with LockedOut and consumes no attempt.
	_, err := guard.SubmitCredential(ctx, "wrong")
	require.ErrorIs(t, err, ErrLockedOut)
	assert.Equal(t, 3, guard.attempts)

	// Even the correct PIN is refused while locked out.
	_, err = guard.SubmitCredential(ctx, "1234")
	require.ErrorIs(t, err, ErrLockedOut)

	// Cooldown expiry clears the lockout and resets attempts.
	*now = now.Add(16 * time.Minute)
	assert.False(t, guard.IsLockedOut(ctx))
	assert.Zero(t, guard.attempts)

	session, err := guard.SubmitCredential(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, session.Role)
}

func TestSubmitCredential_SuccessResetsAttempts(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	_, err := guard.SubmitCredential(ctx, "wrong")
	require.ErrorIs(t, err, ErrInvalidCredential)
	_, err = guard.SubmitCredential(ctx, "wrong")
	require.ErrorIs(t, err, ErrInvalidCredential)

	_, err = guard.SubmitCredential(ctx, "1234")
	require.NoError(t, err)
	assert.Zero(t, guard.attempts)
}

func TestValidate_IdleExpiry(t *testing.T) {
	guard, now := newTestGuard(t)
	ctx := context.Background()

	session, err := guard.SubmitCredential(ctx, "1234")
	require.NoError(t, err)

	// Inside the warning lead time the session is flagged, not destroyed.
	*now = now.Add(26 * time.Minute)
	checked, err := guard.Validate(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionWarning, checked.State)

	// Past the timeout the session is written off.
	*now = now.Add(5 * time.Minute)
	_, err = guard.Validate(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionExpired)

	// The record stays behind marked Expired until cleanup prunes it,
	// and keeps reporting expiry rather than silently vanishing.
	stored, err := guard.storage.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.SessionExpired, stored.State)

	_, err = guard.Validate(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionExpired)

	// A touch cannot resurrect it.
	guard.Touch(ctx, session.ID)
	_, err = guard.Validate(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionExpired)

	// Cleanup removes the stale record for good.
	require.NoError(t, guard.storage.CleanupExpiredSessions(ctx, 30*time.Minute))
	_, err = guard.Validate(ctx, session.ID)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionTimerAccounting(t *testing.T) {
	guard, now := newTestGuard(t)
	ctx := context.Background()

	first, err := guard.SubmitCredential(ctx, "1234")
	require.NoError(t, err)
	second, err := guard.SubmitCredential(ctx, "9999")
	require.NoError(t, err)
	assert.Len(t, guard.timers, 2)

	require.NoError(t, guard.Logout(ctx, first.ID))
	assert.Len(t, guard.timers, 1)

	// Idle expiry releases the remaining slot.
	*now = now.Add(31 * time.Minute)
	_, err = guard.Validate(ctx, second.ID)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Len(t, guard.timers, 0)
}

func TestValidate_UnknownSession(t *testing.T) {
	guard, _ := newTestGuard(t)

	_, err := guard.Validate(context.Background(), "no-such-session")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestTouch_ThrottledAndResetsIdleClock(t *testing.T) {
	guard, now := newTestGuard(t)
	ctx := context.Background()

	session, err := guard.SubmitCredential(ctx, "1234")
	require.NoError(t, err)
	createdAt := *now

	// Within the throttle interval the second touch is dropped.
	*now = now.Add(10 * time.Second)
	guard.Touch(ctx, session.ID)
	*now = now.Add(10 * time.Second)
	guard.Touch(ctx, session.ID)

	checked, err := guard.Validate(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, createdAt.Add(10*time.Second), checked.LastActivity)

	// A touch after the throttle window lands and extends the session.
	*now = now.Add(time.Minute)
	guard.Touch(ctx, session.ID)

	*now = now.Add(29 * time.Minute)
	_, err = guard.Validate(ctx, session.ID)
	require.NoError(t, err)
}

func TestLogout(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	session, err := guard.SubmitCredential(ctx, "1234")
	require.NoError(t, err)

	require.NoError(t, guard.Logout(ctx, session.ID))

	_, err = guard.Validate(ctx, session.ID)
	require.ErrorIs(t, err, ErrNoSession)
}
