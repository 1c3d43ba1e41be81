// Package completion issues single synchronous requests to an
// OpenAI-compatible chat-completion endpoint. The client performs no
// retries; retry policy, if any, belongs to the caller.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Roles used in outbound message lists.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of the outbound message list.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config carries the credential and endpoint settings the client needs.
type Config struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

// Client posts chat-completion requests with a fixed per-call deadline.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a client from configuration. A zero timeout defaults
// to 30 seconds.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends one system message, the supplied context messages, and
// the new user message, in that order, and returns the first choice's
// text trimmed of surrounding whitespace. Failures are classified into
// *Error kinds by HTTP status or transport condition.
func (c *Client) Complete(ctx context.Context, systemPrompt string, contextMessages []Message, userMessage string, temperature float64, maxTokens int) (string, error) {
	messages := make([]Message, 0, len(contextMessages)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	messages = append(messages, contextMessages...)
	messages = append(messages, Message{Role: RoleUser, Content: userMessage})

	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", &Error{Kind: KindTransport, Detail: fmt.Sprintf("encode request: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindTransport, Detail: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", &Error{Kind: KindTimeout}
		}
		return "", &Error{Kind: KindTransport, Detail: err.Error()}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return decodeReply(resp.Body)
	case http.StatusUnauthorized:
		return "", &Error{Kind: KindAuth, Status: resp.StatusCode}
	case http.StatusTooManyRequests:
		return "", &Error{Kind: KindRateLimited, Status: resp.StatusCode}
	default:
		return "", &Error{Kind: KindAPI, Status: resp.StatusCode}
	}
}

func decodeReply(body io.Reader) (string, error) {
	var parsed completionResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return "", &Error{Kind: KindTransport, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Kind: KindTransport, Detail: "response contained no choices"}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
