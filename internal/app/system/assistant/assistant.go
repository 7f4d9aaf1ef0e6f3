// Package assistant forwards support-widget conversations to an
// OpenAI-compatible chat-completions endpoint.
package assistant

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
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("support assistant is not configured")

// Roles accepted from clients. The system prompt is always ours.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultSystemPrompt frames the assistant for the platform.
const DefaultSystemPrompt = "You are the support assistant for VolunteerHub, a platform where " +
	"organizers post volunteer events, volunteers register for them, and admins approve " +
	"accounts and events. Answer briefly and only about using the platform."

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config configures the upstream endpoint.
type Config struct {
	BaseURL      string // e.g. https://api.openai.com/v1
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
	MaxTurns     int
}

// Client talks to the completions endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a client. A client without an API key reports Enabled()==false.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 20
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.APIKey != "" }

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Reply sends history (oldest first) and returns the assistant's answer.
// Client-supplied system turns are dropped and only the most recent
// MaxTurns messages are forwarded.
func (c *Client) Reply(ctx context.Context, history []Message) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: c.cfg.SystemPrompt})
	turns := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) > c.cfg.MaxTurns {
		turns = turns[len(turns)-c.cfg.MaxTurns:]
	}
	if len(turns) == 0 {
		return "", errors.New("no messages to send")
	}
	msgs = append(msgs, turns...)

	body, err := json.Marshal(completionRequest{Model: c.cfg.Model, Messages: msgs})
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read completion: %w", err)
	}
	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode completion (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("completion failed (status %d): %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("completion failed (status %d)", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
