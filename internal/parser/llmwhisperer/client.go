package llmwhisperer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/phuslu/log"

	"docparser/internal/config"
	"docparser/internal/domain"
	"docparser/internal/parser"
	"docparser/internal/port"
)

const (
	defaultBaseURL = "https://llmwhisperer-api.us-central.unstract.com/api/v2"
	apiKeyHeader   = "unstract-key"

	statusProcessed = "processed"
	statusError     = "error"
	statusFailed    = "failed"
)

// Options controls a whisper request and the completion wait.
type Options struct {
	Mode           string
	OutputMode     string
	PageSeparator  string
	WaitTimeout    time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

// DefaultOptions mirrors the stock client: form mode, layout preserving
// output, "<<<" page separator and a 200 second wait ceiling.
func DefaultOptions() Options {
	return Options{
		Mode:           "form",
		OutputMode:     "layout_preserving",
		PageSeparator:  parser.PageSeparator,
		WaitTimeout:    200 * time.Second,
		PollInterval:   5 * time.Second,
		RequestTimeout: 120 * time.Second,
	}
}

// Client talks to the LLMWhisperer v2 API. It implements port.TextExtractor.
type Client struct {
	baseURL string
	apiKey  string
	opts    Options
	client  *http.Client
}

var _ port.TextExtractor = (*Client)(nil)

// NewClient creates a client from the llmwhisperer config section.
func NewClient(cfg *config.LLMWhispererConfig) *Client {
	opts := Options{
		Mode:           cfg.Mode,
		OutputMode:     cfg.OutputMode,
		PageSeparator:  cfg.PageSeparator,
		WaitTimeout:    time.Duration(cfg.WaitTimeoutSecs) * time.Second,
		PollInterval:   time.Duration(cfg.PollIntervalSecs) * time.Second,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	}
	return NewClientWithOptions(cfg.BaseURL, cfg.APIKey, opts)
}

// NewClientWithOptions creates a client for baseURL. Zero-valued options fall
// back to DefaultOptions.
func NewClientWithOptions(baseURL, apiKey string, opts Options) *Client {
	def := DefaultOptions()
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if opts.Mode == "" {
		opts.Mode = def.Mode
	}
	if opts.OutputMode == "" {
		opts.OutputMode = def.OutputMode
	}
	if opts.PageSeparator == "" {
		opts.PageSeparator = def.PageSeparator
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = def.WaitTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		opts:    opts,
		client:  &http.Client{Timeout: opts.RequestTimeout},
	}
}

// Result is the envelope returned by Whisper.
type Result struct {
	Status      string          `json:"status"`
	WhisperHash string          `json:"whisper_hash"`
	Extraction  json.RawMessage `json:"extraction,omitempty"`
}

// ResultText returns extraction.result_text and whether it was present.
func (r *Result) ResultText() (string, bool) {
	if len(r.Extraction) == 0 {
		return "", false
	}
	var ext struct {
		ResultText *string `json:"result_text"`
	}
	if err := json.Unmarshal(r.Extraction, &ext); err != nil || ext.ResultText == nil {
		return "", false
	}
	return *ext.ResultText, true
}

// Extract runs Whisper and returns the raw result text. Client failures are
// logged with message and status code before being returned.
func (c *Client) Extract(ctx context.Context, path string) (string, error) {
	log.Info().Str("path", path).Msg("llmwhisperer.Client.Extract: processing document")
	start := time.Now()

	res, err := c.Whisper(ctx, path)
	if err != nil {
		var ce *ClientError
		if errors.As(err, &ce) {
			log.Error().Int("status_code", ce.StatusCode).Str("path", path).
				Msgf("llmwhisperer.Client.Extract: LLMWhisperer error: %s", ce.Message)
		}
		return "", err
	}

	log.Info().Str("status", res.Status).Dur("elapsed", time.Since(start)).
		Msg("llmwhisperer.Client.Extract: processing complete")

	text, ok := res.ResultText()
	if !ok {
		return "", domain.ErrNoContent
	}
	return text, nil
}

// Whisper submits the file, waits for completion and retrieves the extraction.
func (c *Client) Whisper(ctx context.Context, path string) (*Result, error) {
	hash, err := c.submit(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := c.waitForCompletion(ctx, hash); err != nil {
		return nil, err
	}
	extraction, err := c.retrieve(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &Result{Status: statusProcessed, WhisperHash: hash, Extraction: extraction}, nil
}

func (c *Client) submit(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	q := url.Values{}
	q.Set("mode", c.opts.Mode)
	q.Set("output_mode", c.opts.OutputMode)
	// The API spells this parameter "seperator".
	q.Set("page_seperator", c.opts.PageSeparator)
	q.Set("file_name", filepath.Base(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/whisper?"+q.Encode(), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusAccepted {
		return "", apiError(status, body)
	}

	var resp struct {
		WhisperHash string `json:"whisper_hash"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.WhisperHash == "" {
		return "", &ClientError{Message: "whisper response missing whisper_hash", StatusCode: status, Err: err}
	}
	log.Debug().Str("whisper_hash", resp.WhisperHash).Msg("llmwhisperer.Client: document submitted")
	return resp.WhisperHash, nil
}

func (c *Client) waitForCompletion(ctx context.Context, hash string) error {
	deadline := time.Now().Add(c.opts.WaitTimeout)
	for {
		status, err := c.status(ctx, hash)
		if err != nil {
			return err
		}
		switch status.Status {
		case statusProcessed:
			return nil
		case statusError, statusFailed:
			msg := status.Message
			if msg == "" {
				msg = "whisper processing failed"
			}
			return &ClientError{Message: msg, StatusCode: http.StatusInternalServerError}
		}
		log.Debug().Str("whisper_hash", hash).Str("status", status.Status).Msg("llmwhisperer.Client: waiting for completion")

		if time.Now().Add(c.opts.PollInterval).After(deadline) {
			return &ClientError{
				Message:    fmt.Sprintf("whisper not completed within %s", c.opts.WaitTimeout),
				StatusCode: http.StatusRequestTimeout,
				Err:        ErrWaitTimeout,
			}
		}

		timer := time.NewTimer(c.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) status(ctx context.Context, hash string) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/whisper-status?"+url.Values{"whisper_hash": {hash}}.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	body, code, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, apiError(code, body)
	}
	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ClientError{Message: "decoding status response", StatusCode: code, Err: err}
	}
	return &resp, nil
}

func (c *Client) retrieve(ctx context.Context, hash string) (json.RawMessage, error) {
	q := url.Values{"whisper_hash": {hash}, "text_only": {"false"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/whisper-retrieve?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	body, code, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, apiError(code, body)
	}
	if !json.Valid(body) {
		return nil, &ClientError{Message: "retrieve response is not valid JSON", StatusCode: code}
	}
	return json.RawMessage(body), nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	req.Header.Set(apiKeyHeader, c.apiKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling llmwhisperer API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resp.StatusCode, parser.RateLimited(domain.BackendLLMWhisperer, resp.Header, apiError(resp.StatusCode, body))
	}
	return body, resp.StatusCode, nil
}

// apiError builds a ClientError from an error response, preferring its
// "message" field over the raw body.
func apiError(status int, body []byte) *ClientError {
	var payload struct {
		Message string `json:"message"`
	}
	msg := parser.BodySnippet(body)
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}
	return &ClientError{Message: msg, StatusCode: status}
}
