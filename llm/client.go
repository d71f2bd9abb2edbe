package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lenshq/pagelens/models"
)

// Client is a lightweight OpenAI-compatible chat client used for every
// inference call (captioning, summarization, structured extraction).
// It uses net/http directly — no third-party SDK needed — so any
// OpenAI-compatible provider works via BaseURL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a new inference client. Pass nil to use a default
// http.Client.
func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Message is a single chat message. Content is either a plain string or a
// slice of content parts (vision payloads).
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multi-part message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// SystemMessage builds a plain system message.
func SystemMessage(text string) Message {
	return Message{Role: "system", Content: text}
}

// UserMessage builds a plain user message.
func UserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}

// VisionMessage builds a user message pairing an instruction with a PNG image
// embedded as a base64 data URL.
func VisionMessage(prompt string, png []byte) Message {
	return Message{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{
				URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
			}},
		},
	}
}

// CompletionRequest is a single model invocation.
type CompletionRequest struct {
	Model    string
	Messages []Message

	// JSONMode asks the provider to constrain output to a JSON object.
	// Best-effort: replies are still run through RecoverJSON.
	JSONMode bool
}

// Reply is the model's answer.
type Reply struct {
	Content string
	Usage   *models.LLMUsage
}

// chatRequest is the wire-level chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// chatErrorResponse captures an API error from the model provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete sends one blocking chat completion request and returns the reply.
// There is no internal retry; a non-success status is surfaced as a typed
// inference error carrying the upstream status and message.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*Reply, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: 0,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, models.NewAnalyzeError(models.ErrCodeLLMFailure, "model request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewAnalyzeError(models.ErrCodeLLMFailure, "failed to read model response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewAnalyzeError(models.ErrCodeLLMFailure, "failed to parse model response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewAnalyzeError(models.ErrCodeLLMFailure, "model returned no choices", nil)
	}

	return &Reply{
		Content: chatResp.Choices[0].Message.Content,
		Usage: &models.LLMUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

// classifyError maps upstream HTTP status codes to typed inference errors.
func classifyError(statusCode int, body []byte) *models.AnalyzeError {
	var errResp chatErrorResponse
	msg := "model API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewAnalyzeError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewAnalyzeError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewAnalyzeError(models.ErrCodeLLMFailure, fmt.Sprintf("model API returned %d: %s", statusCode, msg), nil)
	}
}
