package notes

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/middleware"
	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/ai"
	"github.com/smartpath-ai-go/internal/services/storage"
)

type stubClient struct{ text string }

func (c *stubClient) GenerateContent(ctx context.Context, prompt string, opts models.GenerationOptions) (*ai.GenerateResult, error) {
	return &ai.GenerateResult{Text: c.text}, nil
}

type allowAllLimiter struct{}

func (allowAllLimiter) TryConsume(ctx context.Context, userKey, actionKey string) (bool, error) {
	return true, nil
}
func (allowAllLimiter) Reset(ctx context.Context, userKey, actionKey string) error { return nil }

type noopCache struct{}

func (noopCache) Get(ctx context.Context, prompt, kind string) (string, bool) { return "", false }
func (noopCache) Set(ctx context.Context, prompt, kind, answer string) error { return nil }
func (noopCache) Clear(ctx context.Context) error                            { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store, err := storage.NewManager(&config.Config{
		Storage: config.StorageConfig{Type: "memory"},
	}, logger)
	require.NoError(t, err)

	client := &stubClient{text: "# Laws of Motion\n\nConcept: An object stays at rest unless acted on."}
	orchestrator := ai.NewOrchestrator(
		client,
		ai.NewPromptBuilder(nil),
		allowAllLimiter{},
		noopCache{},
		middleware.NewMetrics(),
		logger,
	)
	t.Cleanup(orchestrator.Close)

	return NewService(orchestrator, store, logger)
}

func TestGenerateListGetDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "student", "science", "Laws of Motion", models.GenerationOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, generated.Notes.ID)
	assert.Equal(t, "science", generated.Notes.Subject)
	assert.Equal(t, "Laws of Motion", generated.Notes.Topic)
	assert.Contains(t, generated.Notes.HTML, "<h1>Laws of Motion</h1>")
	assert.Equal(t, "Laws of Motion", generated.MindMap.Central)

	list, err := svc.List(ctx, "student")
	require.NoError(t, err)
	require.Len(t, list, 1)

	doc, err := svc.Get(ctx, "student", generated.Notes.ID)
	require.NoError(t, err)
	assert.Equal(t, generated.Notes.ID, doc.ID)

	require.NoError(t, svc.Delete(ctx, "student", generated.Notes.ID))

	list, err = svc.List(ctx, "student")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Get(ctx, "student", generated.Notes.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestGenerate_NewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Generate(ctx, "student", "science", "Light", models.GenerationOptions{})
	require.NoError(t, err)
	second, err := svc.Generate(ctx, "student", "science", "Sound", models.GenerationOptions{})
	require.NoError(t, err)

	list, err := svc.List(ctx, "student")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Notes.ID, list[0].ID)
	assert.Equal(t, first.Notes.ID, list[1].ID)
}

func TestDelete_Unknown(t *testing.T) {
	svc := newTestService(t)
	err := svc.Delete(context.Background(), "student", "missing")
	assert.ErrorIs(t, err, ErrNoteNotFound)
}
