package parser

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"docparser/internal/domain"
)

const (
	// defaultBackoff applies when a 429 carries no usable Retry-After.
	defaultBackoff = time.Minute
	// maxErrorBody bounds how much of an error response ends up in messages.
	maxErrorBody = 500
)

// RateLimitError reports a backend answering 429 Too Many Requests.
type RateLimitError struct {
	Backend    domain.Backend
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry in %s: %v", e.Backend, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// RateLimited builds a RateLimitError from the headers of a 429 response.
// Retry-After may be given in seconds or as an HTTP date.
func RateLimited(backend domain.Backend, header http.Header, err error) *RateLimitError {
	return &RateLimitError{
		Backend:    backend,
		RetryAfter: retryAfter(header.Get("Retry-After"), time.Now()),
		Err:        err,
	}
}

func retryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now).Round(time.Second)
	}
	return defaultBackoff
}

// BodySnippet returns the leading part of an error response body, cut on a
// rune boundary.
func BodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
