// Package llm talks to an Anthropic-compatible Messages API, including the
// full Server-Sent Events vocabulary the agent turn loop's first call
// needs (SPEC_FULL.md §6.5).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultEndpoint  = "https://api.anthropic.com/v1/messages"
	DefaultMaxTokens = 4096
	anthropicVersion = "2023-06-01"
)

// Config configures a Client.
type Config struct {
	APIKey    string
	Model     string
	Endpoint  string
	Timeout   time.Duration
	MaxTokens int
}

// Client is a minimal Anthropic Messages API client supporting both a
// single non-streaming call (used for every turn-loop iteration after the
// first) and a streaming call whose events are delivered incrementally.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a Client, filling in defaults for unset Config fields.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Message is one entry of the conversation sent to the API.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Tool describes a callable tool in the shape the Messages API expects.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

// Request is the full Messages API request body.
type Request struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream,omitempty"`
}

// ContentBlock is one block of a non-streaming Response.
type ContentBlock struct {
	Type  string          `json:"type"` // "text" | "tool_use"
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Usage reports token accounting for one API call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the full non-streaming Messages API response body.
type Response struct {
	ID         string         `json:"id"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling messages request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("messages request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("messages API error (status %d): %s", resp.StatusCode, respBody)
	}
	return resp, nil
}

// Chat sends one non-streaming request, used by every turn-loop iteration
// after the first (SPEC_FULL.md §6.5: "first call streaming, subsequent
// calls non-streaming").
func (c *Client) Chat(ctx context.Context, system string, messages []Message, tools []Tool) (*Response, error) {
	req := Request{
		Model:     c.cfg.Model,
		System:    system,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: c.cfg.MaxTokens,
	}
	resp, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding messages response: %w", err)
	}
	return &out, nil
}
