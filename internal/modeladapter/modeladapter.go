// Package modeladapter implements adapters.ModelCaller against an
// OpenAI-compatible chat completions endpoint. No example repo in the
// retrieval pack ships a working LLM client with real source to imitate
// (only bare go.mod manifests list one) — DESIGN.md records this as the
// one stdlib-only adapter in the module, built directly against the
// wire format rather than an unvetted SDK.
package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Frankh1982/projectos/internal/adapters"
)

// Client calls a single OpenAI-compatible chat completions endpoint.
// Mirrors the reference app's githubapp.App shape: config fields plus a
// held *http.Client, constructed once and reused across calls.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func New(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
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

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// Chat implements adapters.ModelCaller. Safe to call from a worker
// goroutine: it holds no mutable shared state beyond the http.Client,
// which is itself safe for concurrent use.
func (c *Client) Chat(ctx context.Context, messages []adapters.Message) (string, error) {
	req := chatRequest{Model: c.model}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("model request: encode: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("model request: build: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model request: status %d: %s", resp.StatusCode, string(b))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("model request: decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("model request: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}
