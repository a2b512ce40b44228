// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/rigchat/internal/model"
)

// Configuration constants for the chat-completions endpoint.
const (
	// DefaultBaseURL is the DashScope OpenAI-compatible endpoint.
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

	// CompletionsPath is appended to the base URL for chat requests.
	CompletionsPath = "/chat/completions"

	// DefaultTimeout bounds non-streaming requests. Streams are bounded by
	// their context only.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps non-streaming bodies and error bodies.
	MaxResponseSize = 10 * 1024 * 1024

	// MaxFrameSize caps a single SSE line.
	MaxFrameSize = 1024 * 1024

	// validationPrompt is the minimal message sent by ValidateKey.
	validationPrompt = "你好"
)

var (
	// PERFORMANCE: shared transport keeps connections to the endpoint warm.
	sharedTransport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}

	// sharedStreamingClient has no timeout; streams end via context.
	sharedStreamingClient = &http.Client{Transport: sharedTransport}
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Request is one generation request. It is built fresh per send.
type Request struct {
	Model       string
	Messages    []model.Message
	Temperature float64
	MaxTokens   int

	// Search is the user's web-search toggle. The flag is only sent when
	// the model is search capable according to Models.
	Search bool
	Models []model.ModelDescriptor
}

// SearchEnabled reports whether the request body carries enable_search.
func (r Request) SearchEnabled() bool {
	return r.Search && model.SupportsSearch(r.Model, r.Models)
}

// chatMessage is a message in wire format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body of a chat-completions request.
type chatRequest struct {
	Model        string        `json:"model"`
	Messages     []chatMessage `json:"messages"`
	Stream       bool          `json:"stream"`
	Temperature  float64       `json:"temperature"`
	MaxTokens    int           `json:"max_tokens"`
	EnableSearch bool          `json:"enable_search,omitempty"`
}

// chatResponse is the non-streaming response body.
type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the first choice's message content.
func (r *chatResponse) content() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

func (r Request) body(stream bool) chatRequest {
	msgs := make([]chatMessage, 0, len(r.Messages))
	for _, m := range r.Messages {
		msgs = append(msgs, chatMessage{Role: m.Role.String(), Content: m.Content})
	}
	return chatRequest{
		Model:        r.Model,
		Messages:     msgs,
		Stream:       stream,
		Temperature:  r.Temperature,
		MaxTokens:    r.MaxTokens,
		EnableSearch: r.SearchEnabled(),
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Config configures a Client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token. Empty means not configured.
	APIKey string

	// Timeout bounds non-streaming requests. Defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the streaming HTTP client (tests).
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a client for one chat-completions endpoint. It is safe for
// concurrent use.
type Client struct {
	apiKey        string
	baseURL       string
	timeout       time.Duration
	streamClient  *http.Client
	requestClient *http.Client
	logger        *slog.Logger
}

// New creates a client. An empty API key is allowed; requests then fail
// with a ConfigError without touching the network.
func New(cfg Config) *Client {
	c := &Client{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout:      cfg.Timeout,
		streamClient: cfg.HTTPClient,
		logger:       cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.streamClient == nil {
		c.streamClient = sharedStreamingClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.requestClient = &http.Client{
		Transport: c.streamClient.Transport,
		Timeout:   c.timeout,
	}
	return c
}

// BaseURL returns the endpoint base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsConfigured returns true if the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint identifies the API key in logs without exposing it.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// setHeaders sets the headers every request carries.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "rigchat/"+Version)
}

// Version is reported in the User-Agent header. Set by the build.
var Version = "dev"

// post sends body to the completions endpoint.
func (c *Client) post(ctx context.Context, httpClient *http.Client, body chatRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+CompletionsPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}

	c.logger.Debug("chat request",
		"model", body.Model,
		"messages", len(body.Messages),
		"stream", body.Stream,
		"search", body.EnableSearch,
		"key", c.KeyFingerprint())

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("chat response", "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}

// readResponse reads at most MaxResponseSize bytes of the body.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// =============================================================================
// NON-STREAMING
// =============================================================================

// Complete performs a non-streaming chat completion and returns the first
// choice's content. A cancelled context yields an error matching ErrAborted.
func (c *Client) Complete(ctx context.Context, r Request) (string, error) {
	if !c.IsConfigured() {
		return "", MissingKeyError()
	}

	resp, err := c.post(ctx, c.requestClient, r.body(false))
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
		}
		return "", transportError(err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
		}
		return "", transportError(err)
	}
	if !isSuccess(resp.StatusCode) {
		return "", errorFromResponse(resp.StatusCode, body)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &ParseError{Frame: string(body), Err: err}
	}
	return out.content(), nil
}

// ValidateKey checks the credential by sending a one-message completion
// for modelID.
func (c *Client) ValidateKey(ctx context.Context, modelID string) error {
	if modelID == "" {
		modelID = model.DefaultModelID
	}
	_, err := c.Complete(ctx, Request{
		Model:       modelID,
		Messages:    []model.Message{{Role: model.RoleUser, Content: validationPrompt}},
		Temperature: 0.7,
		MaxTokens:   16,
	})
	if err != nil {
		c.logger.Info("api key validation failed", "key", c.KeyFingerprint(), "error", err)
	}
	return err
}

// ListRemoteModels returns the model ids the endpoint advertises, sorted.
func (c *Client) ListRemoteModels(ctx context.Context) ([]string, error) {
	if !c.IsConfigured() {
		return nil, MissingKeyError()
	}

	cfg := openai.DefaultConfig(c.apiKey)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.requestClient
	list, err := openai.NewClientWithConfig(cfg).ListModels(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, &APIError{Status: reqErr.HTTPStatusCode, Message: fmt.Sprintf("API request failed: %d", reqErr.HTTPStatusCode), Err: err}
		}
		return nil, transportError(err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
