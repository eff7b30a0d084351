// Package llm calls a chat model over HTTP. It speaks both the native
// Ollama chat API and OpenAI-compatible chat completions, and normalizes
// the two response shapes into a single answer string.
package llm

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

	"github.com/rs/zerolog/log"

	"clinical-rag/internal/config"
	"clinical-rag/internal/models"
)

// ErrUnrecognizedResponseShape is returned when the response carries the
// answer under neither known shape.
var ErrUnrecognizedResponseShape = errors.New("chat response has no recognizable answer field")

const defaultTimeout = 120 * time.Second

type Client struct {
	provider   string
	baseURL    string
	key        string
	httpClient *http.Client
}

func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{
		provider:   cfg.Provider,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		key:        cfg.Key,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Response holds a chat completion. Depending on the backend the answer
// arrives either as message.content (Ollama) or as
// choices[0].message.content (OpenAI-compatible).
type Response struct {
	Message *Message `json:"message,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Choice struct {
	Message Message `json:"message"`
}

// Text returns the answer regardless of which shape the backend used,
// trying the Ollama shape first and falling back to the OpenAI one.
func (r *Response) Text() (string, error) {
	if r.Message != nil && r.Message.Content != "" {
		return r.Message.Content, nil
	}
	if len(r.Choices) > 0 && r.Choices[0].Message.Content != "" {
		return r.Choices[0].Message.Content, nil
	}
	return "", ErrUnrecognizedResponseShape
}

// Chat sends the messages to the configured chat endpoint and returns the
// decoded response. Failures are returned unchanged; there is no retry.
func (c *Client) Chat(ctx context.Context, model string, messages []models.ChatTurn) (*Response, error) {
	payload := struct {
		Model    string            `json:"model"`
		Messages []models.ChatTurn `json:"messages"`
		Stream   bool              `json:"stream"`
	}{
		Model:    model,
		Messages: messages,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(c.key, "Bearer "))
	}

	log.Debug().Str("model", model).Int("messages", len(messages)).Msg("Calling chat model")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat request failed: %d, %s", resp.StatusCode, string(body))
	}

	var chatResp Response
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	return &chatResp, nil
}

func (c *Client) endpoint() string {
	if c.provider == "openai" {
		return c.baseURL + "/v1/chat/completions"
	}
	return c.baseURL + "/api/chat"
}
