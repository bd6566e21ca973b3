package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/middleware"
	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/storage"
)

// sessionTimers holds the deferred warning/expiry callbacks for one session
type sessionTimers struct {
	warning *time.Timer
	expiry  *time.Timer
}

// Guard tracks authentication state, idle timeout and lockout after
// repeated failures. States: LoggedOut → LoggedIn → (Warning → Expired),
// with LockedOut reachable after MaxAttempts consecutive failures.
type Guard struct {
	authCfg    config.AuthConfig
	sessionCfg config.SessionConfig
	storage    *storage.Manager
	metrics    *middleware.Metrics
	logger     *logrus.Logger

	mu           sync.Mutex
	attempts     int
	lockoutUntil time.Time
	timers       map[string]*sessionTimers
	lastTouch    map[string]time.Time

	now func() time.Time
}

// NewGuard creates a session guard
func NewGuard(cfg *config.Config, store *storage.Manager, metrics *middleware.Metrics, logger *logrus.Logger) *Guard {
	return &Guard{
		authCfg:    cfg.Auth,
		sessionCfg: cfg.Session,
		storage:    store,
		metrics:    metrics,
		logger:     logger,
		timers:     make(map[string]*sessionTimers),
		lastTouch:  make(map[string]time.Time),
		now:        time.Now,
	}
}

// SubmitCredential validates a PIN against the configured role credentials.
// While locked out it fails without consuming an attempt.
func (g *Guard) SubmitCredential(ctx context.Context, pin string) (*models.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lockedOutLocked(ctx) {
		g.metrics.RecordLoginAttempt("locked_out")
		return nil, ErrLockedOut
	}

	var role models.Role
	switch pin {
	case g.authCfg.StudentPin:
		role = models.RoleStudent
	case g.authCfg.AdminPin:
		role = models.RoleAdmin
	default:
		g.attempts++
		g.metrics.RecordLoginAttempt("failed")
		g.logger.WithField("attempts", g.attempts).Warn("Invalid PIN submitted")

		if g.attempts >= g.sessionCfg.MaxAttempts {
			g.lockoutUntil = g.now().Add(g.sessionCfg.LockoutTime)
			if err := g.storage.SaveLockout(ctx, g.lockoutUntil); err != nil {
				g.logger.WithError(err).Error("Failed to persist lockout")
			}
			g.logger.WithField("until", g.lockoutUntil).Warn("Login locked out")
		}
		return nil, ErrInvalidCredential
	}

	g.attempts = 0
	g.lockoutUntil = time.Time{}
	if err := g.storage.ClearLockout(ctx); err != nil {
		g.logger.WithError(err).Error("Failed to clear lockout")
	}

	now := g.now()
	session := &models.Session{
		ID:           uuid.NewString(),
		Role:         role,
		PinHash:      hashPin(pin),
		State:        models.SessionActive,
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := g.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	g.startTimersLocked(session.ID)
	g.metrics.SetActiveSessions(float64(len(g.timers)))
	g.metrics.RecordLoginAttempt("success")
	g.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"role":       role,
	}).Info("Session created")

	return session, nil
}

// Validate returns the session for id if it is still live. A session past
// its idle timeout is destroyed and reported as expired; one inside the
// warning lead time is flagged as Warning.
func (g *Guard) Validate(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := g.storage.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}
	if session.State == models.SessionExpired {
		return nil, ErrSessionExpired
	}

	idle := g.now().Sub(session.LastActivity)
	if idle >= g.sessionCfg.Timeout {
		g.expire(ctx, sessionID)
		return nil, ErrSessionExpired
	}
	if idle >= g.sessionCfg.Timeout-g.sessionCfg.WarningTime {
		session.State = models.SessionWarning
	}

	return session, nil
}

// Touch records user activity for the session, throttled so storage is
// written at most once per ActivityThrottle. Resets the deferred
// warning/expiry callbacks relative to the new activity time.
func (g *Guard) Touch(ctx context.Context, sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.lastTouch[sessionID]; ok && now.Sub(last) < g.sessionCfg.ActivityThrottle {
		return
	}
	g.lastTouch[sessionID] = now

	session, err := g.storage.GetSession(ctx, sessionID)
	if err != nil || session == nil || session.State == models.SessionExpired {
		delete(g.lastTouch, sessionID)
		return
	}

	session.LastActivity = now
	session.State = models.SessionActive
	if err := g.storage.SaveSession(ctx, session); err != nil {
		g.logger.WithError(err).Error("Failed to persist session activity")
		return
	}

	g.startTimersLocked(sessionID)
}

// Logout destroys the session
func (g *Guard) Logout(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	g.stopTimersLocked(sessionID)
	delete(g.lastTouch, sessionID)
	g.metrics.SetActiveSessions(float64(len(g.timers)))
	g.mu.Unlock()

	g.logger.WithField("session_id", sessionID).Info("Session destroyed")
	return g.storage.DeleteSession(ctx, sessionID)
}

// IsLockedOut reports whether logins are currently locked out. An expired
// cooldown is cleared as a side effect.
func (g *Guard) IsLockedOut(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lockedOutLocked(ctx)
}

func (g *Guard) lockedOutLocked(ctx context.Context) bool {
	if g.lockoutUntil.IsZero() {
		stored, err := g.storage.GetLockout(ctx)
		if err == nil && !stored.IsZero() {
			g.lockoutUntil = stored
		}
	}

	if g.lockoutUntil.IsZero() {
		return false
	}

	if g.now().Before(g.lockoutUntil) {
		return true
	}

	// Cooldown elapsed: clear state and reset the attempt counter.
	g.lockoutUntil = time.Time{}
	g.attempts = 0
	if err := g.storage.ClearLockout(ctx); err != nil {
		g.logger.WithError(err).Error("Failed to clear expired lockout")
	}
	return false
}

// startTimersLocked (re)arms the warning and expiry callbacks. Callers
// must hold g.mu.
func (g *Guard) startTimersLocked(sessionID string) {
	g.stopTimersLocked(sessionID)

	warningDelay := g.sessionCfg.Timeout - g.sessionCfg.WarningTime
	g.timers[sessionID] = &sessionTimers{
		warning: time.AfterFunc(warningDelay, func() { g.warn(sessionID) }),
		expiry:  time.AfterFunc(g.sessionCfg.Timeout, func() { g.expireByTimer(sessionID) }),
	}
}

func (g *Guard) stopTimersLocked(sessionID string) {
	if t, ok := g.timers[sessionID]; ok {
		t.warning.Stop()
		t.expiry.Stop()
		delete(g.timers, sessionID)
	}
}

func (g *Guard) warn(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := g.storage.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return
	}
	session.State = models.SessionWarning
	if err := g.storage.SaveSession(ctx, session); err != nil {
		g.logger.WithError(err).Error("Failed to mark session warning")
		return
	}
	g.logger.WithField("session_id", sessionID).Info("Session nearing expiry")
}

func (g *Guard) expireByTimer(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.expire(ctx, sessionID)
}

// expire marks the session Expired and persists it; the stale record is
// pruned later by the storage cleanup loop.
func (g *Guard) expire(ctx context.Context, sessionID string) {
	g.mu.Lock()
	g.stopTimersLocked(sessionID)
	delete(g.lastTouch, sessionID)
	g.metrics.SetActiveSessions(float64(len(g.timers)))
	g.mu.Unlock()

	session, err := g.storage.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return
	}
	if session.State == models.SessionExpired {
		return
	}
	session.State = models.SessionExpired
	if err := g.storage.SaveSession(ctx, session); err != nil {
		g.logger.WithError(err).Error("Failed to mark session expired")
		return
	}
	g.metrics.RecordSessionExpired()
	g.logger.WithField("session_id", sessionID).Info("Session expired")
}

// hashPin derives the stored digest; the raw PIN never reaches storage.
func hashPin(pin string) string {
	sum := sha256.Sum256([]byte(pin + "smartpath"))
	return hex.EncodeToString(sum[:])
}
