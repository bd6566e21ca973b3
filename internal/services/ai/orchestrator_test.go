package ai

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartpath-ai-go/internal/middleware"
	"github.com/smartpath-ai-go/internal/models"
)

// mockClient returns a canned response and records calls
type mockClient struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
	inFlight int32
	overlap  int32
}

func (m *mockClient) GenerateContent(ctx context.Context, prompt string, opts models.GenerationOptions) (*GenerateResult, error) {
	if atomic.AddInt32(&m.inFlight, 1) > 1 {
		atomic.StoreInt32(&m.overlap, 1)
	}
	defer atomic.AddInt32(&m.inFlight, -1)

	time.Sleep(10 * time.Millisecond)

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	return &GenerateResult{Text: m.response}, nil
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockLimiter allows or denies every consumption
type mockLimiter struct {
	allow   bool
	actions []string
	mu      sync.Mutex
}

func (m *mockLimiter) TryConsume(ctx context.Context, userKey, actionKey string) (bool, error) {
	m.mu.Lock()
	m.actions = append(m.actions, actionKey)
	m.mu.Unlock()
	return m.allow, nil
}

func (m *mockLimiter) Reset(ctx context.Context, userKey, actionKey string) error {
	return nil
}

// noopCache never hits
type noopCache struct{}

func (noopCache) Get(ctx context.Context, prompt, kind string) (string, bool) { return "", false }
func (noopCache) Set(ctx context.Context, prompt, kind, answer string) error { return nil }
func (noopCache) Clear(ctx context.Context) error                            { return nil }

func newTestOrchestrator(client Client, limiter middleware.RateLimiter) *Orchestrator {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	prompts := NewPromptBuilder(testSubjects())
	return NewOrchestrator(client, prompts, limiter, noopCache{}, middleware.NewMetrics(), logger)
}

func TestOrchestrator_AskQuestion(t *testing.T) {
	client := &mockClient{response: "Step 1: compute\nAnswer: 4"}
	o := newTestOrchestrator(client, &mockLimiter{allow: true})
	defer o.Close()

	result, err := o.AskQuestion(context.Background(), "student", "what is 2+2?", models.GenerationOptions{})

	require.NoError(t, err)
	assert.Equal(t, "4", result.Solution.Answer)
	assert.Len(t, result.Solution.Steps, 1)
	assert.Greater(t, result.Confidence, 0.5)
}

func TestOrchestrator_EmptyQuestionRejected(t *testing.T) {
	client := &mockClient{response: "irrelevant"}
	o := newTestOrchestrator(client, &mockLimiter{allow: true})
	defer o.Close()

	_, err := o.AskQuestion(context.Background(), "student", "   ", models.GenerationOptions{})

	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, client.callCount())
}

func TestOrchestrator_RateLimitDenialSkipsNetwork(t *testing.T) {
	client := &mockClient{response: "irrelevant"}
	o := newTestOrchestrator(client, &mockLimiter{allow: false})
	defer o.Close()

	_, err := o.AskQuestion(context.Background(), "student", "question", models.GenerationOptions{})

	require.ErrorIs(t, err, ErrRateLimited)
	assert.Zero(t, client.callCount())
}

func TestOrchestrator_SingleInFlight(t *testing.T) {
	client := &mockClient{response: "Answer: done"}
	o := newTestOrchestrator(client, &mockLimiter{allow: true})
	defer o.Close()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.AskQuestion(context.Background(), "student", "question", models.GenerationOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, client.callCount())
	assert.Zero(t, atomic.LoadInt32(&client.overlap), "generation calls must never overlap")
}

func TestOrchestrator_ImageQuestionConsumesPhotoQuota(t *testing.T) {
	client := &mockClient{response: "Answer: 9"}
	limiter := &mockLimiter{allow: true}
	o := newTestOrchestrator(client, limiter)
	defer o.Close()

	result, err := o.ProcessImageQuestion(context.Background(), "student", "extracted text", models.GenerationOptions{})

	require.NoError(t, err)
	assert.Equal(t, "9", result.Solution.Answer)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	require.Len(t, limiter.actions, 2)
	assert.Equal(t, middleware.ActionPhotos, limiter.actions[0])
	assert.Equal(t, middleware.ActionQuestions, limiter.actions[1])
}

func TestOrchestrator_UpstreamErrorPropagates(t *testing.T) {
	client := &mockClient{err: ErrUpstream}
	o := newTestOrchestrator(client, &mockLimiter{allow: true})
	defer o.Close()

	_, err := o.SolveHomework(context.Background(), "student", "problem", models.GenerationOptions{})

	require.ErrorIs(t, err, ErrUpstream)
}

func TestOrchestrator_CreateNotesSetsCentralTopic(t *testing.T) {
	client := &mockClient{response: "Gravity Notes\n\nDefinition: pulls things down\n\nKey points:\n- applies everywhere"}
	o := newTestOrchestrator(client, &mockLimiter{allow: true})
	defer o.Close()

	result, err := o.CreateNotes(context.Background(), "student", "Gravitation", models.GenerationOptions{})

	require.NoError(t, err)
	assert.Equal(t, "Gravitation", result.MindMap.Central)
	assert.Equal(t, "Gravity Notes", result.Notes.Title)
	assert.NotEmpty(t, result.Raw)
}
