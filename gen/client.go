// Package gen produces test code from source code using an LLM backend.
// It speaks the OpenAI-compatible chat completions protocol, which Ollama,
// LocalAI, and most self-hosted inference servers expose.
package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/testforge/testforge/am"
	"github.com/testforge/testforge/errors"
)

// Request describes one generation call.
type Request struct {
	Code     string
	TestType string
	Language string
	Model    string // optional override of the configured model
}

// Client generates a test file for the given request.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// OllamaClient talks to an Ollama or other OpenAI-compatible endpoint.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *Limiter
}

// NewOllamaClient creates a client from generation config.
func NewOllamaClient(cfg *am.GenerateConfig) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter: NewLimiter(cfg.MaxCallsPerMinute),
	}
}

// chatCompletionRequest matches the OpenAI API format (Ollama is compatible)
type chatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *completionOpts `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionOpts struct {
	Temperature   float64  `json:"temperature,omitempty"`
	TopP          float64  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	MaxTokens     int      `json:"num_predict,omitempty"` // Ollama uses num_predict
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Generate builds a prompt for the request and returns the sanitized
// model output. Empty completions are an error so callers never persist
// a blank test file.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Allow(); err != nil {
		return "", errors.Wrap(errors.ErrServiceUnavailable, err.Error())
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}

	prompt := BuildPrompt(req.Code, req.TestType, req.Language)
	raw, err := c.complete(ctx, model, prompt)
	if err != nil {
		return "", err
	}

	cleaned := StripFences(raw)
	if cleaned == "" {
		return "", errors.New("model returned an empty completion")
	}
	return cleaned, nil
}

func (c *OllamaClient) complete(ctx context.Context, model, prompt string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: false,
		Options: &completionOpts{
			Temperature:   0.1,
			TopP:          0.9,
			TopK:          40,
			MaxTokens:     2048,
			RepeatPenalty: 1.05,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal completion request")
	}

	endpoint := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", errors.Wrap(err, "failed to create completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "completion request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if strings.Contains(strings.ToLower(string(body)), "model not found") {
			return "", errors.Newf("model %s not found, pull it first: ollama pull %s", model, model)
		}
		return "", errors.Newf("inference server returned status %d: %s", resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", errors.Wrap(err, "failed to decode completion response")
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}
