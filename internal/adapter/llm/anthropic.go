package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// ProviderAnthropic is the id of the primary provider.
	ProviderAnthropic = "anthropic"

	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 8192
)

// AnthropicClient calls the Anthropic messages endpoint.
type AnthropicClient struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(baseURL, apiKey, model string, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: anthropicMaxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// MessagesRequest is the body of POST /v1/messages.
type MessagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []AnthropicMessage `json:"messages"`
}

// AnthropicMessage is a single conversation turn.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesResponse is the envelope returned by /v1/messages.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason,omitempty"`
}

// ContentBlock is one block of a messages response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// AnthropicErrorResponse is the error envelope.
type AnthropicErrorResponse struct {
	Type  string `json:"type"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ID returns the provider id.
func (c *AnthropicClient) ID() string { return ProviderAnthropic }

// Complete sends the prompt as a single user turn and joins the text blocks.
func (c *AnthropicClient) Complete(ctx context.Context, promptText string) (*Completion, error) {
	body, err := json.Marshal(&MessagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []AnthropicMessage{{Role: "user", Content: promptText}},
	})
	if err != nil {
		return nil, &BackendError{Provider: ProviderAnthropic, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &BackendError{Provider: ProviderAnthropic, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ProviderAnthropic, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, transportError(ProviderAnthropic, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp AnthropicErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, &BackendError{
				Provider:   ProviderAnthropic,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type),
			}
		}
		return nil, &BackendError{Provider: ProviderAnthropic, StatusCode: resp.StatusCode, Message: truncate(string(respBody), 300)}
	}

	var result MessagesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &BackendError{Provider: ProviderAnthropic, StatusCode: resp.StatusCode, Message: "failed to unmarshal response", Cause: err}
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &BackendError{Provider: ProviderAnthropic, StatusCode: resp.StatusCode, Message: "response had no text content"}
	}

	model := result.Model
	if model == "" {
		model = c.model
	}
	return &Completion{
		Text:     text.String(),
		Model:    model,
		Provider: ProviderAnthropic,
	}, nil
}
