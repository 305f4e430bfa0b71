// Package inference wraps the remote AI gateway behind a small client. The
// pipeline treats the gateway as an opaque function that must return a JSON
// object within a timeout; anything else is an error for the caller to
// surface as a stage failure.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Completer is the capability stage executors depend on: one chat completion
// returning the raw JSON object extracted from the model output.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error)
}

// Client talks to an OpenAI-compatible chat completions gateway.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates an inference client configured from the environment.
func NewClient() *Client {
	baseURL := os.Getenv("INFERENCE_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "http://inference-gateway-service:8080"
		log.Printf("WARN: INFERENCE_GATEWAY_URL not set, defaulting to %s", baseURL)
	}

	model := os.Getenv("INFERENCE_MODEL")
	if model == "" {
		model = "google/gemini-2.5-flash"
	}

	settings := gobreaker.Settings{
		Name:        "inference-gateway",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  os.Getenv("INFERENCE_API_KEY"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		tracer:  otel.Tracer("inference-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL sets the base URL for testing purposes.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Complete sends one system+user prompt pair and returns the JSON object
// extracted from the model's reply.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "inference.complete")
	defer span.End()

	span.SetAttributes(attribute.String("model", c.model))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completeInternal(ctx, systemPrompt, userPrompt)
	})

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("inference request failed: %w", err)
	}

	return result.(json.RawMessage), nil
}

// completeInternal performs the actual HTTP request.
func (c *Client) completeInternal(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("inference gateway returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("inference gateway returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("inference gateway returned no choices")
	}

	return ExtractJSON(chatResp.Choices[0].Message.Content)
}

var fencedJSONPattern = regexp.MustCompile("```json\\n?([\\s\\S]*?)\\n?```")

// ExtractJSON pulls a JSON object out of a model reply. Models often wrap
// their output in markdown fences; a reply with no valid JSON object at all
// is an error, never a value to interpret.
func ExtractJSON(content string) (json.RawMessage, error) {
	candidate := content
	if match := fencedJSONPattern.FindStringSubmatch(content); match != nil {
		candidate = match[1]
	} else {
		start := bytes.IndexByte([]byte(content), '{')
		end := bytes.LastIndexByte([]byte(content), '}')
		if start == -1 || end == -1 || end < start {
			return nil, fmt.Errorf("no JSON object found in model output")
		}
		candidate = content[start : end+1]
	}

	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("model output is not valid JSON")
	}
	return json.RawMessage(candidate), nil
}

// IsHealthy checks if the inference gateway is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "inference.health_check")
	defer span.End()

	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	url := fmt.Sprintf("%s/health", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		span.RecordError(err)
		return false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	span.SetAttributes(attribute.Bool("healthy", healthy))

	return healthy
}
