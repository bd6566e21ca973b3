package tests

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/smartpath-ai-go/internal/middleware"
	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/ai"
	"github.com/smartpath-ai-go/internal/services/progress"
	"github.com/smartpath-ai-go/internal/services/storage"
)

var (
	ErrTestNotFound = errors.New("test not found or already submitted")
	ErrEmptyQuiz    = errors.New("quiz generation produced no questions")
	ErrDailyTestCap = errors.New("daily test limit reached")
)

const (
	historyLimit  = 50
	activeTestTTL = 2 * time.Hour
)

// ActiveTest is a generated quiz a user is currently taking
type ActiveTest struct {
	ID         string      `json:"id"`
	Category   string      `json:"category"`
	Subject    string      `json:"subject"`
	Topic      string      `json:"topic"`
	Difficulty string      `json:"difficulty"`
	Quiz       models.Quiz `json:"quiz"`
	StartedAt  time.Time   `json:"started_at"`
}

// Service runs the timed-test flow: quiz generation against the daily
// test quota, answer evaluation, history, and progress updates.
type Service struct {
	orchestrator *ai.Orchestrator
	limiter      middleware.RateLimiter
	storage      storage.Storage
	progress     *progress.Service
	metrics      *middleware.Metrics
	logger       *logrus.Logger

	active *gocache.Cache
	now    func() time.Time
}

func NewService(
	orchestrator *ai.Orchestrator,
	limiter middleware.RateLimiter,
	store storage.Storage,
	progressService *progress.Service,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Service {
	return &Service{
		orchestrator: orchestrator,
		limiter:      limiter,
		storage:      store,
		progress:     progressService,
		metrics:      metrics,
		logger:       logger,
		active:       gocache.New(activeTestTTL, 10*time.Minute),
		now:          time.Now,
	}
}

// StartTest consumes one slot of the daily test quota, generates a
// quiz for the requested subject and topic, and holds it as an active
// test until submission or expiry.
func (s *Service) StartTest(ctx context.Context, userKey, category, subject, topic, difficulty string, questionCount int) (*ActiveTest, error) {
	allowed, err := s.limiter.TryConsume(ctx, userKey, middleware.ActionTests)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.metrics.RecordRateLimitExceeded(middleware.ActionTests)
		return nil, ErrDailyTestCap
	}

	if difficulty == "" {
		difficulty = "medium"
	}

	quiz, err := s.orchestrator.CreateQuiz(ctx, userKey, subject, topic, models.GenerationOptions{
		Difficulty:    difficulty,
		QuestionCount: questionCount,
	})
	if err != nil {
		return nil, err
	}
	if quiz.TotalQuestions == 0 {
		return nil, ErrEmptyQuiz
	}

	test := &ActiveTest{
		ID:         uuid.NewString(),
		Category:   category,
		Subject:    subject,
		Topic:      topic,
		Difficulty: difficulty,
		Quiz:       *quiz,
		StartedAt:  s.now(),
	}
	s.active.Set(activeKey(userKey, test.ID), test, activeTestTTL)

	s.logger.WithFields(logrus.Fields{
		"test_id":   test.ID,
		"subject":   subject,
		"questions": quiz.TotalQuestions,
	}).Info("Test started")

	return test, nil
}

// Get returns an active test by ID
func (s *Service) Get(userKey, testID string) (*ActiveTest, error) {
	val, found := s.active.Get(activeKey(userKey, testID))
	if !found {
		return nil, ErrTestNotFound
	}
	return val.(*ActiveTest), nil
}

// Submit evaluates a user's answers against the active test, records
// the result in history, and updates progress and achievements. The
// test is removed from the active set regardless of score.
func (s *Service) Submit(ctx context.Context, userKey, testID string, answers map[string]string) (*models.TestResult, error) {
	test, err := s.Get(userKey, testID)
	if err != nil {
		return nil, err
	}
	s.active.Delete(activeKey(userKey, testID))

	now := s.now()
	result := &models.TestResult{
		TestID:            test.ID,
		Category:          test.Category,
		Subject:           test.Subject,
		Difficulty:        test.Difficulty,
		TotalQuestions:    len(test.Quiz.Questions),
		AnsweredQuestions: 0,
		TimeSpent:         int(now.Sub(test.StartedAt).Seconds()),
		CompletedAt:       now,
		QuestionResults:   make([]models.QuestionResult, 0, len(test.Quiz.Questions)),
	}

	for _, q := range test.Quiz.Questions {
		userAnswer := answers[q.ID]
		qr := models.QuestionResult{
			QuestionID:    q.ID,
			Question:      q.Question,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Subject:       q.Subject,
			Topic:         q.Topic,
		}
		if qr.Subject == "" {
			qr.Subject = test.Subject
		}
		if qr.Topic == "" {
			qr.Topic = test.Topic
		}

		if userAnswer != "" {
			result.AnsweredQuestions++
			qr.IsCorrect = CheckAnswer(userAnswer, q.CorrectAnswer, string(q.Type))
			if qr.IsCorrect {
				result.CorrectAnswers++
			}
		}

		result.QuestionResults = append(result.QuestionResults, qr)
	}

	if result.TotalQuestions > 0 {
		result.Score = int(math.Round(float64(result.CorrectAnswers) / float64(result.TotalQuestions) * 100))
	}

	if err := s.appendHistory(ctx, userKey, result); err != nil {
		return nil, err
	}

	if _, err := s.progress.TrackTestCompleted(ctx, userKey, result); err != nil {
		s.logger.WithError(err).Warn("Failed to update progress after test")
	}

	s.metrics.RecordTestCompleted(test.Subject)

	s.logger.WithFields(logrus.Fields{
		"test_id": test.ID,
		"score":   result.Score,
		"correct": result.CorrectAnswers,
		"total":   result.TotalQuestions,
	}).Info("Test submitted")

	return result, nil
}

// History returns the user's test history, most recent first
func (s *Service) History(ctx context.Context, userKey string) ([]models.TestResult, error) {
	history, err := s.storage.GetTestHistory(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("load test history: %w", err)
	}
	if history == nil {
		history = []models.TestResult{}
	}
	return history, nil
}

// appendHistory prepends the result and keeps only the most recent 50
func (s *Service) appendHistory(ctx context.Context, userKey string, result *models.TestResult) error {
	history, err := s.History(ctx, userKey)
	if err != nil {
		return err
	}

	history = append([]models.TestResult{*result}, history...)
	if len(history) > historyLimit {
		history = history[:historyLimit]
	}

	return s.storage.SaveTestHistory(ctx, userKey, history)
}

// CheckAnswer compares a user answer to the expected one. Numerical
// answers pass within a 1% relative tolerance; all other types pass on
// an exact match or when either normalized answer contains the other.
func CheckAnswer(userAnswer, correctAnswer, questionType string) bool {
	user := strings.ToLower(strings.TrimSpace(userAnswer))
	correct := strings.ToLower(strings.TrimSpace(correctAnswer))
	if user == "" || correct == "" {
		return false
	}

	if questionType == "numerical" {
		userNum, err1 := parseLeadingFloat(user)
		correctNum, err2 := parseLeadingFloat(correct)
		if err1 != nil || err2 != nil {
			return false
		}
		tolerance := math.Abs(correctNum) * 0.01
		return math.Abs(userNum-correctNum) <= tolerance
	}

	return user == correct ||
		strings.Contains(user, correct) ||
		strings.Contains(correct, user)
}

// parseLeadingFloat reads a float from the start of a string, ignoring
// trailing units like "25 m/s".
func parseLeadingFloat(s string) (float64, error) {
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'e' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(s[:end], 64)
}

func activeKey(userKey, testID string) string {
	return userKey + ":" + testID
}
