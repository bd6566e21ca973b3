package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/smartpath-ai-go/internal/middleware"
	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/cache"
)

// SolutionResult pairs a parsed solution with its confidence score
type SolutionResult struct {
	Solution   models.Solution `json:"solution"`
	Confidence float64         `json:"confidence"`
}

// NotesResult pairs a parsed notes document with its mind map. Raw
// keeps the unparsed response for downstream rendering.
type NotesResult struct {
	Notes   models.NotesDocument `json:"notes"`
	MindMap models.MindMap       `json:"mind_map"`
	Raw     string               `json:"-"`
}

// TextResult is a plain-text generation outcome
type TextResult struct {
	Text string `json:"text"`
}

// Orchestrator sequences rate-limit check → prompt build → network call
// → parse for every generation operation. Requests drain through a FIFO
// queue with a single in-flight worker, so no two generation calls run
// concurrently and completions are spaced at least one second apart.
type Orchestrator struct {
	client  Client
	prompts *PromptBuilder
	limiter middleware.RateLimiter
	cache   cache.Service
	metrics *middleware.Metrics
	logger  *logrus.Logger

	jobs  chan func()
	pacer *rate.Limiter
}

// NewOrchestrator creates the orchestrator and starts its queue worker
func NewOrchestrator(
	client Client,
	prompts *PromptBuilder,
	limiter middleware.RateLimiter,
	cacheService cache.Service,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		prompts: prompts,
		limiter: limiter,
		cache:   cacheService,
		metrics: metrics,
		logger:  logger,
		jobs:    make(chan func(), 64),
		pacer:   rate.NewLimiter(rate.Every(time.Second), 1),
	}

	go o.drain()

	return o
}

// drain runs queued requests strictly sequentially. The pacer keeps
// completions at least one second apart to stay under upstream limits.
func (o *Orchestrator) drain() {
	for job := range o.jobs {
		if err := o.pacer.Wait(context.Background()); err != nil {
			return
		}
		job()
	}
}

// Close stops the queue worker once queued jobs have drained
func (o *Orchestrator) Close() {
	close(o.jobs)
}

// enqueueGenerate pushes a network call onto the FIFO queue and waits
// for its outcome.
func (o *Orchestrator) enqueueGenerate(ctx context.Context, prompt string, opts models.GenerationOptions) (*GenerateResult, error) {
	type outcome struct {
		result *GenerateResult
		err    error
	}
	done := make(chan outcome, 1)

	o.jobs <- func() {
		start := time.Now()
		result, err := o.client.GenerateContent(ctx, prompt, opts)

		status := "success"
		if err != nil {
			status = "error"
		}
		o.metrics.RecordGeneration(string(opts.Kind), status, time.Since(start))

		done <- outcome{result, err}
	}

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// generate runs the full pipeline for one request: answer cache lookup,
// rate-limit consumption, prompt build, queued network call.
func (o *Orchestrator) generate(ctx context.Context, userKey, userText, actionKey string, opts models.GenerationOptions) (string, error) {
	cacheKey := userText
	if cached, found := o.cache.Get(ctx, cacheKey, string(opts.Kind)); found {
		o.metrics.RecordCacheHit()
		return cached, nil
	}
	o.metrics.RecordCacheMiss()

	allowed, err := o.limiter.TryConsume(ctx, userKey, actionKey)
	if err != nil {
		return "", err
	}
	if !allowed {
		o.metrics.RecordRateLimitExceeded(actionKey)
		return "", ErrRateLimited
	}

	prompt := o.prompts.Build(userText, opts)

	result, err := o.enqueueGenerate(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	o.logger.WithFields(logrus.Fields{
		"kind":          opts.Kind,
		"input_tokens":  result.Usage.PromptTokenCount,
		"output_tokens": result.Usage.CandidatesTokenCount,
	}).Debug("Generation completed")

	if err := o.cache.Set(ctx, cacheKey, string(opts.Kind), result.Text); err != nil {
		o.logger.WithError(err).Warn("Failed to cache response")
	}

	return result.Text, nil
}

// AskQuestion solves a student doubt with a step-by-step explanation
func (o *Orchestrator) AskQuestion(ctx context.Context, userKey, question string, opts models.GenerationOptions) (*SolutionResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question text is required", ErrValidation)
	}

	opts.Kind = models.KindDoubtSolve
	if opts.Difficulty == "" {
		opts.Difficulty = "medium"
	}

	raw, err := o.generate(ctx, userKey, question, middleware.ActionQuestions, opts)
	if err != nil {
		return nil, err
	}

	return &SolutionResult{
		Solution:   ParseSolution(raw),
		Confidence: ScoreConfidence(raw),
	}, nil
}

// SolveHomework analyzes a homework problem
func (o *Orchestrator) SolveHomework(ctx context.Context, userKey, problem string, opts models.GenerationOptions) (*SolutionResult, error) {
	if strings.TrimSpace(problem) == "" {
		return nil, fmt.Errorf("%w: problem text is required", ErrValidation)
	}

	opts.Kind = models.KindHomework

	raw, err := o.generate(ctx, userKey, problem, middleware.ActionQuestions, opts)
	if err != nil {
		return nil, err
	}

	return &SolutionResult{
		Solution:   ParseSolution(raw),
		Confidence: ScoreConfidence(raw),
	}, nil
}

// CreateNotes generates structured study notes plus a mind map for a topic
func (o *Orchestrator) CreateNotes(ctx context.Context, userKey, topic string, opts models.GenerationOptions) (*NotesResult, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrValidation)
	}

	opts.Kind = models.KindNotes
	prompt := fmt.Sprintf("Generate comprehensive study notes for the topic: %s", topic)

	raw, err := o.generate(ctx, userKey, prompt, middleware.ActionQuestions, opts)
	if err != nil {
		return nil, err
	}

	mindMap := ParseMindMap(raw)
	mindMap.Central = topic

	return &NotesResult{
		Notes:   ParseNotes(raw),
		MindMap: mindMap,
		Raw:     raw,
	}, nil
}

// CreateQuiz generates a quiz on a topic
func (o *Orchestrator) CreateQuiz(ctx context.Context, userKey, subject, topic string, opts models.GenerationOptions) (*models.Quiz, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrValidation)
	}

	opts.Kind = models.KindQuiz
	opts.Subject = subject
	count := opts.QuestionCount
	if count <= 0 {
		count = 10
	}

	prompt := fmt.Sprintf(`Generate a %d question quiz on %s for %s.
Include multiple choice, short answer, and numerical questions as appropriate.
Provide correct answers and explanations.`, count, topic, subject)

	raw, err := o.generate(ctx, userKey, prompt, middleware.ActionQuestions, opts)
	if err != nil {
		return nil, err
	}

	quiz := ParseQuiz(raw)
	return &quiz, nil
}

// ProcessImageQuestion solves a doubt extracted from an uploaded photo.
// The caller supplies already-extracted text; this consumes the photo
// quota on top of the question quota.
func (o *Orchestrator) ProcessImageQuestion(ctx context.Context, userKey, extractedText string, opts models.GenerationOptions) (*SolutionResult, error) {
	if strings.TrimSpace(extractedText) == "" {
		return nil, fmt.Errorf("%w: no text could be extracted from the image", ErrValidation)
	}

	allowed, err := o.limiter.TryConsume(ctx, userKey, middleware.ActionPhotos)
	if err != nil {
		return nil, err
	}
	if !allowed {
		o.metrics.RecordRateLimitExceeded(middleware.ActionPhotos)
		return nil, ErrRateLimited
	}

	return o.AskQuestion(ctx, userKey, extractedText, opts)
}

// Translate renders educational content in the target language while
// keeping formulas intact.
func (o *Orchestrator) Translate(ctx context.Context, userKey, content, targetLanguage string) (*TextResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	languageName := "English"
	if targetLanguage == "HI" {
		languageName = "Hindi"
	}

	prompt := fmt.Sprintf(`Translate this educational content to %s while maintaining technical accuracy:

%s

Keep mathematical expressions and formulas in their original form.`, languageName, content)

	raw, err := o.generate(ctx, userKey, prompt, middleware.ActionQuestions, models.GenerationOptions{
		Kind:        models.KindTranslate,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	return &TextResult{Text: raw}, nil
}

// Simplify re-explains content in simple terms
func (o *Orchestrator) Simplify(ctx context.Context, userKey, content string) (*TextResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	prompt := fmt.Sprintf(`Explain this in very simple terms that a 12-year-old can understand. Use analogies and simple examples:

%s

Make it fun and easy to understand while keeping it accurate.`, content)

	raw, err := o.generate(ctx, userKey, prompt, middleware.ActionQuestions, models.GenerationOptions{
		Kind:        models.KindSimplify,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, err
	}

	return &TextResult{Text: raw}, nil
}

// ExpandSteps breaks a solution down into clear numbered steps
func (o *Orchestrator) ExpandSteps(ctx context.Context, userKey, content string) (*TextResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	prompt := fmt.Sprintf(`Break down this solution into clear, numbered steps:

%s

Each step should be:
1. Clear and specific
2. Easy to follow
3. Include the reasoning
4. Show calculations if applicable`, content)

	raw, err := o.generate(ctx, userKey, prompt, middleware.ActionQuestions, models.GenerationOptions{
		Kind:        models.KindStepExpand,
		Temperature: 0.6,
	})
	if err != nil {
		return nil, err
	}

	return &TextResult{Text: raw}, nil
}
