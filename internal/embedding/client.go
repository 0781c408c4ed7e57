// Package embedding wraps the external embedding provider behind a small client.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sangguni-ai/sangguni/config"
)

// Mode selects the provider-side embedding space. Query and passage vectors may
// legitimately differ for the same text and must not be mixed across store and
// search calls.
type Mode string

const (
	ModeQuery   Mode = "query"
	ModePassage Mode = "passage"
)

// ServiceError reports a failed or malformed provider response. It keeps the
// provider's status and message for diagnostics.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service: status %d: %s", e.StatusCode, e.Message)
}

// Embedder maps text plus a usage mode to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string, mode Mode) ([]float32, error)
}

// Client calls the embedding provider over HTTP. It performs no retries;
// retry policy belongs to callers.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
}

var _ Embedder = (*Client)(nil)

// NewClient creates an embedding client from configuration.
func NewClient(cfg config.EmbeddingConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type embeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	InputType      string   `json:"input_type"`
	EncodingFormat string   `json:"encoding_format"`
	Truncate       string   `json:"truncate"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed generates an embedding for the given text in the given mode. One
// outbound call per invocation; callers embedding many chunks should rate-limit.
func (c *Client) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	requestBody := embeddingRequest{
		Model:          c.model,
		Input:          []string{text},
		InputType:      string(mode),
		EncodingFormat: "float",
		Truncate:       "END",
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed embeddingResponse
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: "response contained no embedding"}
	}
	// A wrong-size vector would poison the store, whose vector column is fixed
	// to the configured dimensionality.
	if c.dimensions > 0 && len(parsed.Data[0].Embedding) != c.dimensions {
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("expected %d dimensions, got %d", c.dimensions, len(parsed.Data[0].Embedding)),
		}
	}
	return parsed.Data[0].Embedding, nil
}
