package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultMistralEndpoint is the Mistral chat completions URL.
const DefaultMistralEndpoint = "https://api.mistral.ai/v1/chat/completions"

// ErrCircuitOpen is returned while the breaker rejects calls after repeated failures.
var ErrCircuitOpen = errors.New("generation service unavailable: too many recent failures")

// MistralConfig configures the Mistral chat client.
type MistralConfig struct {
	APIKey      string
	Model       string
	Endpoint    string
	Temperature float64
	Timeout     time.Duration
	// Breaker settings: the breaker opens once MinRequests calls in a window
	// fail at FailureRatio or more, and probes again after OpenTimeout.
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// MistralGenerator sends rendered prompts to the Mistral chat completions API
// through a circuit breaker.
type MistralGenerator struct {
	cfg     MistralConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger // optional; when set, logs breaker state changes
}

// MistralOption configures a MistralGenerator.
type MistralOption func(*MistralGenerator)

// WithLogger sets a logger for breaker state changes and failed calls.
func WithLogger(l *zap.Logger) MistralOption {
	return func(g *MistralGenerator) { g.logger = l }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) MistralOption {
	return func(g *MistralGenerator) { g.client = c }
}

// NewMistralGenerator creates a client. The API key is required.
func NewMistralGenerator(cfg MistralConfig, opts ...MistralOption) (*MistralGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mistral api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "mistral-small-latest"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultMistralEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 5
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = 0.8
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 60 * time.Second
	}

	g := &MistralGenerator{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
	for _, opt := range opts {
		opt(g)
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mistral",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if g.logger != nil {
				g.logger.Warn("circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			}
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations do not count as failures.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return g, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate renders template with vars and returns the model's answer.
func (g *MistralGenerator) Generate(ctx context.Context, template string, vars map[string]string) (string, error) {
	prompt := Render(template, vars)
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.complete(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		if g.logger != nil {
			g.logger.Debug("mistral call failed", zap.Error(err))
		}
		return "", err
	}
	return out.(string), nil
}

func (g *MistralGenerator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mistral request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return "", fmt.Errorf("mistral returned status %d: %s", resp.StatusCode, msg)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("mistral returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
