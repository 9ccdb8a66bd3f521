// Package llmclient is a chat-completions-style HTTP client for the
// primary reasoning model and the lighter sub-model used by the
// sandbox's llmQuery primitive.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"rlm/internal/logging"
)

// structLog is the structured request/response logger for chat-completions
// calls. Defaults to a no-op so tests and callers that never configure it
// don't pay for logging; SetLogger swaps it, mirroring the teacher's
// package-level *zap.Logger in cmd/nerd.
var structLog = zap.NewNop()

// SetLogger installs the structured logger used for request/response
// lifecycle events (attempt count, model, status, latency).
func SetLogger(l *zap.Logger) {
	if l != nil {
		structLog = l
	}
}

// Client talks to a single OpenAI-compatible chat-completions endpoint,
// addressing two logical model roles (main and sub) by model name.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	subModel   string
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// Config configures a Client.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	SubModel string // falls back to Model when empty
	Timeout  time.Duration
}

// New creates a Client from Config.
func New(cfg Config) *Client {
	subModel := cfg.SubModel
	if subModel == "" {
		subModel = cfg.Model
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		subModel: subModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Message is one chat-completions message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatMain sends messages using the primary reasoning model.
func (c *Client) ChatMain(ctx context.Context, messages []Message) (string, error) {
	return c.chat(ctx, messages, c.model)
}

// ChatSub sends messages using the lighter auxiliary model; used only by
// the llm_query primitive.
func (c *Client) ChatSub(ctx context.Context, messages []Message) (string, error) {
	return c.chat(ctx, messages, c.subModel)
}

const maxRetries = 3

func (c *Client) chat(ctx context.Context, messages []Message, model string) (string, error) {
	if c.apiKey == "" {
		logging.LLMWarn("calling %s without an API key configured", c.baseURL)
	}

	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 200*time.Millisecond {
		time.Sleep(200*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   2048,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("build chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			logging.LLMWarn("chat request attempt %d failed: %v", attempt, err)
			structLog.Warn("chat request failed",
				zap.String("model", model), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		structLog.Debug("chat request completed",
			zap.String("model", model), zap.Int("attempt", attempt),
			zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)))

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("chat request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("parse chat response: %w", err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("model error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		logging.LLMDebug("model=%s attempt=%d reply_len=%d", model, attempt, len(parsed.Choices[0].Message.Content))
		return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("chat request exhausted retries: %w", lastErr)
}
