// Package score asks a text-completion provider to rate a job against the
// owner's resume. The at-most-one-in-flight guarantee lives here; the actual
// provider call is behind the Completer interface.
package score

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Completer produces a text completion for a system instruction plus prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Disabled is the Completer used when scoring is turned off in config. Every
// call fails, which releases the in-flight token and leaves jobs unscored.
type Disabled struct{}

func (Disabled) Complete(context.Context, string, string) (string, error) {
	return "", errors.New("scoring is disabled")
}

// ChatClient talks to an OpenAI-compatible chat-completions endpoint.
type ChatClient struct {
	hc      *http.Client
	baseURL string
	model   string
	apiKey  string
}

func NewChatClient(baseURL, model, apiKey string) *ChatClient {
	return &ChatClient{
		hc:      &http.Client{Timeout: 60 * time.Second},
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ChatClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.hc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "completion request")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "read completion response")
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrapf(err, "decode completion response (status %d)", res.StatusCode)
	}
	if out.Error != nil {
		return "", errors.Newf("provider error: %s", out.Error.Message)
	}
	if res.StatusCode != http.StatusOK {
		return "", errors.Newf("provider status %d", res.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
