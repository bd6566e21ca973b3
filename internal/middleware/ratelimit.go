package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/storage"
)

// WindowKind selects the counting period for a rate-limited action
type WindowKind string

const (
	WindowHourly WindowKind = "hourly"
	WindowDaily  WindowKind = "daily"
)

// Action keys for the gated operations
const (
	ActionQuestions = "questions_hour"
	ActionPhotos    = "photos_hour"
	ActionTests     = "tests_day"
)

const (
	hourlyWindow = time.Hour
	dailyWindow  = 24 * time.Hour
)

// RateLimiter gates actions by counting calls in fixed time windows.
// This is advisory throttling only: the counters live in user-reachable
// storage and carry no tamper resistance.
type RateLimiter interface {
	TryConsume(ctx context.Context, userKey, actionKey string) (bool, error)
	Reset(ctx context.Context, userKey, actionKey string) error
}

// WindowLimiter implements per-action windowed counters persisted in storage
type WindowLimiter struct {
	enabled        bool
	storage        *storage.Manager
	ceilings       map[string]int
	windows        map[string]WindowKind
	defaultCeiling int
	logger         *logrus.Logger
	mu             sync.Mutex
	now            func() time.Time
}

// NewRateLimiter creates a new windowed rate limiter
func NewRateLimiter(cfg *config.Config, store *storage.Manager, logger *logrus.Logger) RateLimiter {
	if !cfg.RateLimit.Enabled {
		return &WindowLimiter{enabled: false}
	}

	return &WindowLimiter{
		enabled: true,
		storage: store,
		ceilings: map[string]int{
			ActionQuestions: cfg.RateLimit.QuestionsPerHour,
			ActionPhotos:    cfg.RateLimit.PhotosPerHour,
			ActionTests:     cfg.RateLimit.TestsPerDay,
		},
		windows: map[string]WindowKind{
			ActionQuestions: WindowHourly,
			ActionPhotos:    WindowHourly,
			ActionTests:     WindowDaily,
		},
		defaultCeiling: cfg.RateLimit.DefaultCeiling,
		logger:         logger,
		now:            time.Now,
	}
}

// TryConsume checks the window for userKey/actionKey and, if under the
// ceiling, increments the counter and returns true. At the ceiling it
// returns false without mutating state.
func (r *WindowLimiter) TryConsume(ctx context.Context, userKey, actionKey string) (bool, error) {
	if !r.enabled {
		return true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s:%s", actionKey, userKey)
	now := r.now()

	window, err := r.storage.GetRateWindow(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load rate window: %w", err)
	}
	if window == nil {
		window = &models.RateWindow{ActionKey: actionKey, StartedAt: now}
	}

	// Reset the counter once the window has elapsed.
	if now.Sub(window.StartedAt) > r.windowLength(actionKey) {
		window.Count = 0
		window.StartedAt = now
	}

	ceiling := r.ceiling(actionKey)
	if window.Count >= ceiling {
		r.logger.WithFields(logrus.Fields{
			"action":  actionKey,
			"user":    userKey,
			"ceiling": ceiling,
		}).Warn("Rate limit exceeded")
		return false, nil
	}

	window.Count++
	if err := r.storage.SaveRateWindow(ctx, key, window); err != nil {
		return false, fmt.Errorf("save rate window: %w", err)
	}

	return true, nil
}

// Reset clears the window for userKey/actionKey
func (r *WindowLimiter) Reset(ctx context.Context, userKey, actionKey string) error {
	if !r.enabled {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s:%s", actionKey, userKey)
	return r.storage.SaveRateWindow(ctx, key, &models.RateWindow{
		ActionKey: actionKey,
		StartedAt: r.now(),
	})
}

func (r *WindowLimiter) ceiling(actionKey string) int {
	if c, ok := r.ceilings[actionKey]; ok && c > 0 {
		return c
	}
	return r.defaultCeiling
}

func (r *WindowLimiter) windowLength(actionKey string) time.Duration {
	if r.windows[actionKey] == WindowDaily {
		return dailyWindow
	}
	return hourlyWindow
}
