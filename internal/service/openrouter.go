package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/set-night/mindchat/internal/domain"
)

const systemPrompt = "You are a helpful assistant in a chat application. Answer concisely and use Markdown when it helps."

// OpenRouter generates bot replies for the direct database backend.
type OpenRouter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOpenRouter(apiKey, baseURL, model string, httpClient *http.Client) *OpenRouter {
	return &OpenRouter{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Reply asks the model to continue history, oldest message first. It returns
// "" when the model produced no content.
func (s *OpenRouter) Reply(ctx context.Context, history []domain.Message) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		role := "user"
		if m.Sender == domain.SenderBot {
			role = "assistant"
		}
		messages = append(messages, ChatMessage{Role: role, Content: m.Content})
	}

	resp, err := s.Chat(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *OpenRouter) Chat(ctx context.Context, messages []ChatMessage, temperature *float64) (*ChatResponse, error) {
	// Skip temperature for Gemini models
	if strings.Contains(strings.ToLower(s.model), "gemini") {
		temperature = nil
	}

	payload, err := json.Marshal(ChatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited by OpenRouter (429)")
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("OpenRouter service unavailable (503)")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("openrouter: %s: %w", chatResp.Error.Message, domain.ErrUnexpectedStatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter returned %d: %w", resp.StatusCode, domain.ErrUnexpectedStatusCode)
	}

	return &chatResp, nil
}
