package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/middleware"
	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/ai"
	"github.com/smartpath-ai-go/internal/services/progress"
	"github.com/smartpath-ai-go/internal/services/storage"
)

type stubClient struct {
	text  string
	calls int
}

func (c *stubClient) GenerateContent(ctx context.Context, prompt string, opts models.GenerationOptions) (*ai.GenerateResult, error) {
	c.calls++
	return &ai.GenerateResult{Text: c.text}, nil
}

type stubLimiter struct {
	allow   bool
	actions []string
}

func (l *stubLimiter) TryConsume(ctx context.Context, userKey, actionKey string) (bool, error) {
	l.actions = append(l.actions, actionKey)
	return l.allow, nil
}

func (l *stubLimiter) Reset(ctx context.Context, userKey, actionKey string) error {
	return nil
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, prompt, kind string) (string, bool) { return "", false }
func (noopCache) Set(ctx context.Context, prompt, kind, answer string) error { return nil }
func (noopCache) Clear(ctx context.Context) error                            { return nil }

const quizText = `Question 1
What is 2+2?
a) 3
b) 4
Answer: b
Explanation: Basic addition

Question 2
What is the speed?
Answer: 20 m/s
Explanation: Distance over time`

func newTestService(t *testing.T, allow bool) (*Service, *stubLimiter) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store, err := storage.NewManager(&config.Config{
		Storage: config.StorageConfig{Type: "memory"},
	}, logger)
	require.NoError(t, err)

	limiter := &stubLimiter{allow: allow}
	metrics := middleware.NewMetrics()
	orchestrator := ai.NewOrchestrator(
		&stubClient{text: quizText},
		ai.NewPromptBuilder(nil),
		limiter,
		noopCache{},
		metrics,
		logger,
	)
	t.Cleanup(orchestrator.Close)

	progressService := progress.NewService(store, []string{"mathematics"}, logger)
	svc := NewService(orchestrator, limiter, store, progressService, metrics, logger)
	return svc, limiter
}

func TestStartAndSubmit(t *testing.T) {
	svc, limiter := newTestService(t, true)
	ctx := context.Background()

	test, err := svc.StartTest(ctx, "student", "subject", "mathematics", "Triangles", "", 2)
	require.NoError(t, err)
	require.NotEmpty(t, test.ID)
	assert.Equal(t, "medium", test.Difficulty)
	require.Len(t, test.Quiz.Questions, 2)

	// Test quota is consumed before the question quota.
	require.NotEmpty(t, limiter.actions)
	assert.Equal(t, middleware.ActionTests, limiter.actions[0])

	result, err := svc.Submit(ctx, "student", test.ID, map[string]string{
		"q_1": "b",
		"q_2": "",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalQuestions)
	assert.Equal(t, 1, result.AnsweredQuestions)
	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, "mathematics", result.QuestionResults[0].Subject)
	assert.Equal(t, "Triangles", result.QuestionResults[0].Topic)

	// A second submit of the same test is rejected.
	_, err = svc.Submit(ctx, "student", test.ID, nil)
	assert.ErrorIs(t, err, ErrTestNotFound)

	history, err := svc.History(ctx, "student")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, test.ID, history[0].TestID)

	// Test completion feeds progress, including real per-answer verdicts.
	p, err := svc.progress.Get(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Overall.TestsCompleted)
	assert.Equal(t, 2, p.Overall.TotalQuestions)
	assert.Equal(t, 1, p.Overall.CorrectAnswers)
	assert.Equal(t, 50, p.Overall.AverageScore)
}

func TestStartTest_DailyCap(t *testing.T) {
	svc, _ := newTestService(t, false)

	_, err := svc.StartTest(context.Background(), "student", "subject", "science", "Light", "easy", 5)
	assert.ErrorIs(t, err, ErrDailyTestCap)
}

func TestHistoryCappedAtFifty(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	for i := 0; i < historyLimit+3; i++ {
		result := &models.TestResult{
			TestID:      fmt.Sprintf("t%d", i),
			Subject:     "mathematics",
			CompletedAt: time.Now(),
		}
		require.NoError(t, svc.appendHistory(ctx, "student", result))
	}

	history, err := svc.History(ctx, "student")
	require.NoError(t, err)
	require.Len(t, history, historyLimit)
	// Most recent first.
	assert.Equal(t, fmt.Sprintf("t%d", historyLimit+2), history[0].TestID)
}

func TestCheckAnswer(t *testing.T) {
	cases := []struct {
		name     string
		user     string
		correct  string
		qType    string
		expected bool
	}{
		{"exact match", "Photosynthesis", "photosynthesis", "short_answer", true},
		{"answer embedded in sentence", "the answer is Paris", "paris", "short_answer", true},
		{"partial user answer", "newton", "Newton's first law", "short_answer", true},
		{"wrong answer", "osmosis", "photosynthesis", "short_answer", false},
		{"empty user answer", "", "42", "short_answer", false},
		{"numerical within tolerance", "100.5", "100", "numerical", true},
		{"numerical outside tolerance", "102", "100", "numerical", false},
		{"numerical with units", "25 m/s", "25", "numerical", true},
		{"numerical garbage", "dunno", "100", "numerical", false},
		{"negative numerical", "-9.8", "-9.81", "numerical", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CheckAnswer(tc.user, tc.correct, tc.qType))
		})
	}
}

func TestParseLeadingFloat(t *testing.T) {
	v, err := parseLeadingFloat("25 m/s")
	require.NoError(t, err)
	assert.Equal(t, 25.0, v)

	v, err = parseLeadingFloat("3.14cm")
	require.NoError(t, err)
	assert.Equal(t, 3.14, v)

	_, err = parseLeadingFloat("about ten")
	assert.Error(t, err)
}
