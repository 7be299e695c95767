package llmwhisperer_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docparser/internal/config"
	"docparser/internal/domain"
	"docparser/internal/parser"
	"docparser/internal/parser/llmwhisperer"
)

const pageText = "Invoice 42\n<<<\f\nTotals page\n"

func testOptions() llmwhisperer.Options {
	return llmwhisperer.Options{
		WaitTimeout:  2 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 scanned"), 0o600))
	return path
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.DefaultLogger
	log.DefaultLogger = log.Logger{Level: log.DebugLevel, Writer: &log.IOWriter{Writer: &buf}}
	t.Cleanup(func() { log.DefaultLogger = prev })
	return &buf
}

// fakeAPI serves the whisper, whisper-status and whisper-retrieve endpoints.
type fakeAPI struct {
	t              *testing.T
	pendingPolls   int32
	submitStatus   int
	submitBody     string
	statusBody     string
	retrieveBody   string
	statusRequests int32
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/whisper", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.Equal(f.t, "test-key", r.Header.Get("unstract-key"))
		assert.Equal(f.t, "application/octet-stream", r.Header.Get("Content-Type"))
		assert.Equal(f.t, "form", r.URL.Query().Get("mode"))
		assert.Equal(f.t, "layout_preserving", r.URL.Query().Get("output_mode"))
		assert.Equal(f.t, "<<<", r.URL.Query().Get("page_seperator"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(f.t, "%PDF-1.4 scanned", string(body))

		status := f.submitStatus
		if status == 0 {
			status = http.StatusAccepted
		}
		w.WriteHeader(status)
		if f.submitBody != "" {
			_, _ = w.Write([]byte(f.submitBody))
			return
		}
		_, _ = w.Write([]byte(`{"status":"processing","whisper_hash":"abc123"}`))
	})
	mux.HandleFunc("/whisper-status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "abc123", r.URL.Query().Get("whisper_hash"))
		atomic.AddInt32(&f.statusRequests, 1)
		if f.statusBody != "" {
			_, _ = w.Write([]byte(f.statusBody))
			return
		}
		if atomic.AddInt32(&f.pendingPolls, -1) >= 0 {
			_, _ = w.Write([]byte(`{"status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"processed"}`))
	})
	mux.HandleFunc("/whisper-retrieve", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "abc123", r.URL.Query().Get("whisper_hash"))
		if f.retrieveBody != "" {
			_, _ = w.Write([]byte(f.retrieveBody))
			return
		}
		_, _ = w.Write([]byte(`{"result_text":"Invoice 42\n<<<\f\nTotals page\n","confidence_metadata":[]}`))
	})
	return mux
}

func newServer(t *testing.T, f *fakeAPI) (*httptest.Server, *llmwhisperer.Client) {
	t.Helper()
	f.t = t
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)
	return server, llmwhisperer.NewClientWithOptions(server.URL, "test-key", testOptions())
}

func TestClient_Extract_Success(t *testing.T) {
	f := &fakeAPI{pendingPolls: 2}
	_, c := newServer(t, f)

	text, err := c.Extract(context.Background(), writeDoc(t))

	require.NoError(t, err)
	assert.Equal(t, pageText, text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.statusRequests))
	assert.Equal(t, []string{"Invoice 42", "Totals page"}, parser.SplitPages(text))
}

func TestClient_Whisper_Envelope(t *testing.T) {
	_, c := newServer(t, &fakeAPI{})

	res, err := c.Whisper(context.Background(), writeDoc(t))

	require.NoError(t, err)
	assert.Equal(t, "processed", res.Status)
	assert.Equal(t, "abc123", res.WhisperHash)
	text, ok := res.ResultText()
	assert.True(t, ok)
	assert.Equal(t, pageText, text)
}

func TestClient_Extract_MissingResultText(t *testing.T) {
	_, c := newServer(t, &fakeAPI{retrieveBody: `{"confidence_metadata":[]}`})

	text, err := c.Extract(context.Background(), writeDoc(t))

	assert.Empty(t, text)
	assert.ErrorIs(t, err, domain.ErrNoContent)
}

func TestResult_ResultText_Absent(t *testing.T) {
	cases := map[string]*llmwhisperer.Result{
		"no extraction": {Status: "processed"},
		"null text":     {Extraction: []byte(`{"result_text":null}`)},
		"not an object": {Extraction: []byte(`"text"`)},
	}
	for name, res := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := res.ResultText()
			assert.False(t, ok)
		})
	}
}

func TestClient_Extract_SubmitErrorLogsStatusCode(t *testing.T) {
	logs := captureLogs(t)
	_, c := newServer(t, &fakeAPI{
		submitStatus: http.StatusUnauthorized,
		submitBody:   `{"message":"invalid API key"}`,
	})

	text, err := c.Extract(context.Background(), writeDoc(t))

	assert.Empty(t, text)
	var ce *llmwhisperer.ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusUnauthorized, ce.StatusCode)
	assert.Equal(t, "invalid API key", ce.Message)
	assert.Contains(t, logs.String(), `"status_code":401`)
	assert.Contains(t, logs.String(), "invalid API key")
}

func TestClient_Extract_ProcessingError(t *testing.T) {
	_, c := newServer(t, &fakeAPI{statusBody: `{"status":"error","message":"corrupt file"}`})

	_, err := c.Extract(context.Background(), writeDoc(t))

	var ce *llmwhisperer.ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "corrupt file", ce.Message)
}

func TestClient_Extract_WaitTimeout(t *testing.T) {
	f := &fakeAPI{statusBody: `{"status":"processing"}`}
	server := httptest.NewServer(func() http.Handler { f.t = t; return f.handler() }())
	defer server.Close()

	opts := testOptions()
	opts.WaitTimeout = 50 * time.Millisecond
	c := llmwhisperer.NewClientWithOptions(server.URL, "test-key", opts)

	_, err := c.Extract(context.Background(), writeDoc(t))

	assert.ErrorIs(t, err, llmwhisperer.ErrWaitTimeout)
}

func TestClient_Extract_ContextCanceled(t *testing.T) {
	f := &fakeAPI{statusBody: `{"status":"processing"}`}
	server := httptest.NewServer(func() http.Handler { f.t = t; return f.handler() }())
	defer server.Close()

	opts := testOptions()
	opts.PollInterval = time.Second
	c := llmwhisperer.NewClientWithOptions(server.URL, "test-key", opts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Extract(ctx, writeDoc(t))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Extract_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"quota exceeded"}`))
	}))
	defer server.Close()

	c := llmwhisperer.NewClientWithOptions(server.URL, "test-key", testOptions())

	_, err := c.Extract(context.Background(), writeDoc(t))

	var rl *parser.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
	var ce *llmwhisperer.ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusTooManyRequests, ce.StatusCode)
}

func TestClient_Extract_MissingFile(t *testing.T) {
	c := llmwhisperer.NewClientWithOptions("http://127.0.0.1:1", "k", testOptions())

	_, err := c.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading document")
}

func TestNewClient_FromConfig(t *testing.T) {
	f := &fakeAPI{}
	server := httptest.NewServer(func() http.Handler { f.t = t; return f.handler() }())
	defer server.Close()

	c := llmwhisperer.NewClient(&config.LLMWhispererConfig{
		BaseURL:          server.URL,
		APIKey:           "test-key",
		Mode:             "form",
		OutputMode:       "layout_preserving",
		PageSeparator:    "<<<",
		WaitTimeoutSecs:  5,
		PollIntervalSecs: 1,
		RequestTimeout:   5,
	})

	text, err := c.Extract(context.Background(), writeDoc(t))
	require.NoError(t, err)
	assert.Equal(t, pageText, text)
}
