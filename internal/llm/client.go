// Package llm talks to the generative-language REST API and turns its
// free-form replies into structured values.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTextModel  = "gemini-2.0-flash"
	DefaultImageModel = "gemini-2.0-flash-preview-image-generation"

	maxResponseBytes = 16 << 20
	maxErrorBody     = 4096
)

var (
	// ErrEmptyResponse means the upstream answered 2xx without any content.
	ErrEmptyResponse = errors.New("llm returned no content")
	// ErrMalformedResponse means the upstream body could not be decoded.
	ErrMalformedResponse = errors.New("llm returned a malformed response")
)

// APIError is a non-2xx answer from the upstream API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports rate limiting and temporary unavailability.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// Generator is what the prompt generators need from a model backend.
type Generator interface {
	Generate(ctx context.Context, apiKey, prompt string) (string, error)
	GenerateImage(ctx context.Context, apiKey, prompt string) (Image, error)
}

// Image is the result of an image request. Data is empty when the model
// answered with text only.
type Image struct {
	MIMEType string
	Data     []byte
	Text     string
}

// DataURL renders the image as a data: URL, or "" when there is no image.
func (i Image) DataURL() string {
	if len(i.Data) == 0 {
		return ""
	}
	mime := i.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

type HTTPClient struct {
	baseURL    string
	textModel  string
	imageModel string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, textModel, imageModel string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if textModel == "" {
		textModel = DefaultTextModel
	}
	if imageModel == "" {
		imageModel = DefaultImageModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		textModel:  textModel,
		imageModel: imageModel,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends a single-turn text prompt and returns the concatenated
// text parts of the first candidate.
func (c *HTTPClient) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	resp, err := c.generate(ctx, c.textModel, apiKey, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// GenerateImage asks the image model for a picture. The first inline image
// part wins; any text parts are returned alongside.
func (c *HTTPClient) GenerateImage(ctx context.Context, apiKey, prompt string) (Image, error) {
	resp, err := c.generate(ctx, c.imageModel, apiKey, generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return Image{}, err
	}

	var img Image
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && len(img.Data) == 0 {
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return Image{}, fmt.Errorf("%w: image data: %v", ErrMalformedResponse, err)
			}
			img.MIMEType = p.InlineData.MIMEType
			img.Data = data
			continue
		}
		text.WriteString(p.Text)
	}
	img.Text = text.String()
	if len(img.Data) == 0 && img.Text == "" {
		return Image{}, ErrEmptyResponse
	}
	return img, nil
}

func (c *HTTPClient) generate(ctx context.Context, model, apiKey string, payload generateRequest) (*generateResponse, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug("llm request",
			"model", model,
			"status", resp.StatusCode,
			"prompt_bytes", len(body),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	return &out, nil
}
