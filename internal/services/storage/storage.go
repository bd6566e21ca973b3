package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/models"
)

// Storage interface defines the key-value persistence operations.
// Keys are namespaced by feature: session, user_progress, settings,
// notes, test_history, achievements, rate_limit_*.
type Storage interface {
	// Session operations
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Rate window operations
	GetRateWindow(ctx context.Context, key string) (*models.RateWindow, error)
	SaveRateWindow(ctx context.Context, key string, window *models.RateWindow) error

	// Lockout operations
	GetLockout(ctx context.Context) (time.Time, error)
	SaveLockout(ctx context.Context, until time.Time) error
	ClearLockout(ctx context.Context) error

	// Progress operations
	GetProgress(ctx context.Context, userKey string) (*models.UserProgress, error)
	SaveProgress(ctx context.Context, userKey string, progress *models.UserProgress) error

	// Achievements operations
	GetAchievements(ctx context.Context, userKey string) ([]models.Achievement, error)
	SaveAchievements(ctx context.Context, userKey string, achievements []models.Achievement) error

	// Settings operations
	GetSettings(ctx context.Context, userKey string) (*models.UserSettings, error)
	SaveSettings(ctx context.Context, userKey string, settings *models.UserSettings) error

	// Notes operations
	ListNotes(ctx context.Context, userKey string) ([]models.NotesDocument, error)
	SaveNotes(ctx context.Context, userKey string, notes []models.NotesDocument) error

	// Test history operations
	GetTestHistory(ctx context.Context, userKey string) ([]models.TestResult, error)
	SaveTestHistory(ctx context.Context, userKey string, history []models.TestResult) error

	// Cleanup operations
	CleanupExpiredSessions(ctx context.Context, timeout time.Duration) error
}

// Manager manages different storage backends
type Manager struct {
	storage     Storage
	logger      *logrus.Logger
	redisClient *redis.Client
}

// NewManager creates a new storage manager
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	manager := &Manager{logger: logger}

	switch cfg.Storage.Type {
	case "redis":
		redisStorage, err := NewRedisStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		manager.storage = redisStorage
		manager.redisClient = redisStorage.client
	case "memory":
		manager.storage = NewMemoryStorage(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	// Start cleanup goroutine
	go manager.startCleanup(cfg.Storage.Memory.CleanupInterval, cfg.Session.Timeout)

	return manager, nil
}

func (m *Manager) startCleanup(interval, timeout time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := m.storage.CleanupExpiredSessions(ctx, timeout); err != nil {
			m.logger.WithError(err).Error("Failed to cleanup expired sessions")
		}
		cancel()
	}
}

// Delegate methods to underlying storage
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return m.storage.GetSession(ctx, sessionID)
}

func (m *Manager) SaveSession(ctx context.Context, session *models.Session) error {
	return m.storage.SaveSession(ctx, session)
}

func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	return m.storage.DeleteSession(ctx, sessionID)
}

func (m *Manager) GetRateWindow(ctx context.Context, key string) (*models.RateWindow, error) {
	return m.storage.GetRateWindow(ctx, key)
}

func (m *Manager) SaveRateWindow(ctx context.Context, key string, window *models.RateWindow) error {
	return m.storage.SaveRateWindow(ctx, key, window)
}

func (m *Manager) GetLockout(ctx context.Context) (time.Time, error) {
	return m.storage.GetLockout(ctx)
}

func (m *Manager) SaveLockout(ctx context.Context, until time.Time) error {
	return m.storage.SaveLockout(ctx, until)
}

func (m *Manager) ClearLockout(ctx context.Context) error {
	return m.storage.ClearLockout(ctx)
}

func (m *Manager) GetProgress(ctx context.Context, userKey string) (*models.UserProgress, error) {
	return m.storage.GetProgress(ctx, userKey)
}

func (m *Manager) SaveProgress(ctx context.Context, userKey string, progress *models.UserProgress) error {
	return m.storage.SaveProgress(ctx, userKey, progress)
}

func (m *Manager) GetAchievements(ctx context.Context, userKey string) ([]models.Achievement, error) {
	return m.storage.GetAchievements(ctx, userKey)
}

func (m *Manager) SaveAchievements(ctx context.Context, userKey string, achievements []models.Achievement) error {
	return m.storage.SaveAchievements(ctx, userKey, achievements)
}

func (m *Manager) GetSettings(ctx context.Context, userKey string) (*models.UserSettings, error) {
	return m.storage.GetSettings(ctx, userKey)
}

func (m *Manager) SaveSettings(ctx context.Context, userKey string, settings *models.UserSettings) error {
	return m.storage.SaveSettings(ctx, userKey, settings)
}

func (m *Manager) ListNotes(ctx context.Context, userKey string) ([]models.NotesDocument, error) {
	return m.storage.ListNotes(ctx, userKey)
}

func (m *Manager) SaveNotes(ctx context.Context, userKey string, notes []models.NotesDocument) error {
	return m.storage.SaveNotes(ctx, userKey, notes)
}

func (m *Manager) GetTestHistory(ctx context.Context, userKey string) ([]models.TestResult, error) {
	return m.storage.GetTestHistory(ctx, userKey)
}

func (m *Manager) SaveTestHistory(ctx context.Context, userKey string, history []models.TestResult) error {
	return m.storage.SaveTestHistory(ctx, userKey, history)
}

func (m *Manager) CleanupExpiredSessions(ctx context.Context, timeout time.Duration) error {
	return m.storage.CleanupExpiredSessions(ctx, timeout)
}

// GetRedisClient returns the Redis client if available
func (m *Manager) GetRedisClient() *redis.Client {
	return m.redisClient
}

// RedisStorage implements storage using Redis
type RedisStorage struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStorage(cfg *config.Config, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{
		client: client,
		logger: logger,
	}, nil
}

func (r *RedisStorage) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStorage) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *RedisStorage) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	found, err := r.getJSON(ctx, fmt.Sprintf("session:%s", sessionID), &session)
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

func (r *RedisStorage) SaveSession(ctx context.Context, session *models.Session) error {
	// Redis evicts abandoned sessions on its own after a day.
	return r.setJSON(ctx, fmt.Sprintf("session:%s", session.ID), session, 24*time.Hour)
}

func (r *RedisStorage) DeleteSession(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, fmt.Sprintf("session:%s", sessionID)).Err()
}

func (r *RedisStorage) GetRateWindow(ctx context.Context, key string) (*models.RateWindow, error) {
	var window models.RateWindow
	found, err := r.getJSON(ctx, fmt.Sprintf("rate_limit_%s", key), &window)
	if err != nil || !found {
		return nil, err
	}
	return &window, nil
}

func (r *RedisStorage) SaveRateWindow(ctx context.Context, key string, window *models.RateWindow) error {
	return r.setJSON(ctx, fmt.Sprintf("rate_limit_%s", key), window, 48*time.Hour)
}

func (r *RedisStorage) GetLockout(ctx context.Context) (time.Time, error) {
	var until time.Time
	found, err := r.getJSON(ctx, "lockout_time", &until)
	if err != nil || !found {
		return time.Time{}, err
	}
	return until, nil
}

func (r *RedisStorage) SaveLockout(ctx context.Context, until time.Time) error {
	return r.setJSON(ctx, "lockout_time", until, 0)
}

func (r *RedisStorage) ClearLockout(ctx context.Context) error {
	return r.client.Del(ctx, "lockout_time").Err()
}

func (r *RedisStorage) GetProgress(ctx context.Context, userKey string) (*models.UserProgress, error) {
	var progress models.UserProgress
	found, err := r.getJSON(ctx, fmt.Sprintf("user_progress:%s", userKey), &progress)
	if err != nil || !found {
		return nil, err
	}
	return &progress, nil
}

func (r *RedisStorage) SaveProgress(ctx context.Context, userKey string, progress *models.UserProgress) error {
	return r.setJSON(ctx, fmt.Sprintf("user_progress:%s", userKey), progress, 0)
}

func (r *RedisStorage) GetAchievements(ctx context.Context, userKey string) ([]models.Achievement, error) {
	var achievements []models.Achievement
	found, err := r.getJSON(ctx, fmt.Sprintf("achievements:%s", userKey), &achievements)
	if err != nil || !found {
		return nil, err
	}
	return achievements, nil
}

func (r *RedisStorage) SaveAchievements(ctx context.Context, userKey string, achievements []models.Achievement) error {
	return r.setJSON(ctx, fmt.Sprintf("achievements:%s", userKey), achievements, 0)
}

func (r *RedisStorage) GetSettings(ctx context.Context, userKey string) (*models.UserSettings, error) {
	var settings models.UserSettings
	found, err := r.getJSON(ctx, fmt.Sprintf("settings:%s", userKey), &settings)
	if err != nil || !found {
		return nil, err
	}
	return &settings, nil
}

func (r *RedisStorage) SaveSettings(ctx context.Context, userKey string, settings *models.UserSettings) error {
	return r.setJSON(ctx, fmt.Sprintf("settings:%s", userKey), settings, 0)
}

func (r *RedisStorage) ListNotes(ctx context.Context, userKey string) ([]models.NotesDocument, error) {
	var notes []models.NotesDocument
	found, err := r.getJSON(ctx, fmt.Sprintf("notes:%s", userKey), &notes)
	if err != nil || !found {
		return nil, err
	}
	return notes, nil
}

func (r *RedisStorage) SaveNotes(ctx context.Context, userKey string, notes []models.NotesDocument) error {
	return r.setJSON(ctx, fmt.Sprintf("notes:%s", userKey), notes, 0)
}

func (r *RedisStorage) GetTestHistory(ctx context.Context, userKey string) ([]models.TestResult, error) {
	var history []models.TestResult
	found, err := r.getJSON(ctx, fmt.Sprintf("test_history:%s", userKey), &history)
	if err != nil || !found {
		return nil, err
	}
	return history, nil
}

func (r *RedisStorage) SaveTestHistory(ctx context.Context, userKey string, history []models.TestResult) error {
	return r.setJSON(ctx, fmt.Sprintf("test_history:%s", userKey), history, 0)
}

// CleanupExpiredSessions scans session records and drops those marked
// Expired or idle past timeout. Live keys carry their own TTL as a
// backstop.
func (r *RedisStorage) CleanupExpiredSessions(ctx context.Context, timeout time.Duration) error {
	cutoff := time.Now().Add(-timeout)
	iter := r.client.Scan(ctx, 0, "session:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		var session models.Session
		found, err := r.getJSON(ctx, key, &session)
		if err != nil || !found {
			continue
		}
		if session.State == models.SessionExpired || session.LastActivity.Before(cutoff) {
			if err := r.client.Del(ctx, key).Err(); err != nil {
				r.logger.WithError(err).Warn("Failed to drop stale session")
			}
		}
	}
	return iter.Err()
}

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	sessions     *cache.Cache
	rateWindows  *cache.Cache
	progress     *cache.Cache
	achievements *cache.Cache
	settings     *cache.Cache
	notes        *cache.Cache
	testHistory  *cache.Cache
	lockout      *cache.Cache
	logger       *logrus.Logger
}

func NewMemoryStorage(cfg *config.Config, logger *logrus.Logger) *MemoryStorage {
	return &MemoryStorage{
		sessions:     cache.New(cfg.Storage.Memory.DefaultExpiration, cfg.Storage.Memory.CleanupInterval),
		rateWindows:  cache.New(48*time.Hour, time.Hour),
		progress:     cache.New(cache.NoExpiration, cache.NoExpiration),
		achievements: cache.New(cache.NoExpiration, cache.NoExpiration),
		settings:     cache.New(cache.NoExpiration, cache.NoExpiration),
		notes:        cache.New(cache.NoExpiration, cache.NoExpiration),
		testHistory:  cache.New(cache.NoExpiration, cache.NoExpiration),
		lockout:      cache.New(cache.NoExpiration, cache.NoExpiration),
		logger:       logger,
	}
}

func (m *MemoryStorage) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if val, found := m.sessions.Get(fmt.Sprintf("session:%s", sessionID)); found {
		return val.(*models.Session), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveSession(ctx context.Context, session *models.Session) error {
	m.sessions.SetDefault(fmt.Sprintf("session:%s", session.ID), session)
	return nil
}

func (m *MemoryStorage) DeleteSession(ctx context.Context, sessionID string) error {
	m.sessions.Delete(fmt.Sprintf("session:%s", sessionID))
	return nil
}

func (m *MemoryStorage) GetRateWindow(ctx context.Context, key string) (*models.RateWindow, error) {
	if val, found := m.rateWindows.Get(fmt.Sprintf("rate_limit_%s", key)); found {
		return val.(*models.RateWindow), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveRateWindow(ctx context.Context, key string, window *models.RateWindow) error {
	m.rateWindows.SetDefault(fmt.Sprintf("rate_limit_%s", key), window)
	return nil
}

func (m *MemoryStorage) GetLockout(ctx context.Context) (time.Time, error) {
	if val, found := m.lockout.Get("lockout_time"); found {
		return val.(time.Time), nil
	}
	return time.Time{}, nil
}

func (m *MemoryStorage) SaveLockout(ctx context.Context, until time.Time) error {
	m.lockout.Set("lockout_time", until, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) ClearLockout(ctx context.Context) error {
	m.lockout.Delete("lockout_time")
	return nil
}

func (m *MemoryStorage) GetProgress(ctx context.Context, userKey string) (*models.UserProgress, error) {
	if val, found := m.progress.Get(fmt.Sprintf("user_progress:%s", userKey)); found {
		return val.(*models.UserProgress), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveProgress(ctx context.Context, userKey string, progress *models.UserProgress) error {
	m.progress.Set(fmt.Sprintf("user_progress:%s", userKey), progress, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) GetAchievements(ctx context.Context, userKey string) ([]models.Achievement, error) {
	if val, found := m.achievements.Get(fmt.Sprintf("achievements:%s", userKey)); found {
		return val.([]models.Achievement), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveAchievements(ctx context.Context, userKey string, achievements []models.Achievement) error {
	m.achievements.Set(fmt.Sprintf("achievements:%s", userKey), achievements, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) GetSettings(ctx context.Context, userKey string) (*models.UserSettings, error) {
	if val, found := m.settings.Get(fmt.Sprintf("settings:%s", userKey)); found {
		return val.(*models.UserSettings), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveSettings(ctx context.Context, userKey string, settings *models.UserSettings) error {
	m.settings.Set(fmt.Sprintf("settings:%s", userKey), settings, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) ListNotes(ctx context.Context, userKey string) ([]models.NotesDocument, error) {
	if val, found := m.notes.Get(fmt.Sprintf("notes:%s", userKey)); found {
		return val.([]models.NotesDocument), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveNotes(ctx context.Context, userKey string, notes []models.NotesDocument) error {
	m.notes.Set(fmt.Sprintf("notes:%s", userKey), notes, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) GetTestHistory(ctx context.Context, userKey string) ([]models.TestResult, error) {
	if val, found := m.testHistory.Get(fmt.Sprintf("test_history:%s", userKey)); found {
		return val.([]models.TestResult), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveTestHistory(ctx context.Context, userKey string, history []models.TestResult) error {
	m.testHistory.Set(fmt.Sprintf("test_history:%s", userKey), history, cache.NoExpiration)
	return nil
}

// CleanupExpiredSessions prunes sessions marked Expired or idle past
// timeout. go-cache evicts on its own TTL as well; this catches records
// the auth layer has already written off.
func (m *MemoryStorage) CleanupExpiredSessions(ctx context.Context, timeout time.Duration) error {
	cutoff := time.Now().Add(-timeout)
	for key, item := range m.sessions.Items() {
		session, ok := item.Object.(*models.Session)
		if !ok {
			continue
		}
		if session.State == models.SessionExpired || session.LastActivity.Before(cutoff) {
			m.sessions.Delete(key)
		}
	}
	return nil
}
