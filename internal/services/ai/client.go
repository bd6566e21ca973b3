package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/models"
)

// Client is the upstream generative text endpoint
type Client interface {
	GenerateContent(ctx context.Context, prompt string, opts models.GenerationOptions) (*GenerateResult, error)
}

// UsageMetadata reports token consumption for one request
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateResult is the raw text output of one generation call
type GenerateResult struct {
	Text  string
	Usage UsageMetadata
}

// geminiRequest is the wire format of the generateContent call
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
	SafetySettings   []geminiSafety  `json:"safetySettings"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiSafety struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	Error         struct {
		Message string `json:"message"`
	} `json:"error"`
}

var defaultSafetySettings = []geminiSafety{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// GeminiClient talks to the Gemini generateContent endpoint over HTTP
type GeminiClient struct {
	endpoint   string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(cfg *config.GeminiConfig, logger *logrus.Logger) *GeminiClient {
	return &GeminiClient{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// GenerateContent performs a single generateContent call. There is no
// automatic retry here; retrying is the caller's decision.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, opts models.GenerationOptions) (*GenerateResult, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     defaultFloat(opts.Temperature, 0.7),
			TopK:            defaultInt(opts.TopK, 40),
			TopP:            defaultFloat(opts.TopP, 0.95),
			MaxOutputTokens: defaultInt(opts.MaxTokens, c.maxTokens),
		},
		SafetySettings: defaultSafetySettings,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", c.endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithFields(logrus.Fields{
		"kind":       opts.Kind,
		"prompt_len": len(prompt),
	}).Debug("Sending generation request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("Generation request failed")
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrUpstream, err)
	}

	if result.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty candidates", ErrUpstream)
	}

	return &GenerateResult{
		Text:  result.Candidates[0].Content.Parts[0].Text,
		Usage: result.UsageMetadata,
	}, nil
}

func defaultFloat(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func defaultInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
