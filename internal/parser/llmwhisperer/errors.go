package llmwhisperer

import (
	"errors"
	"fmt"
)

// ErrWaitTimeout is returned when extraction does not finish within the wait ceiling.
var ErrWaitTimeout = errors.New("whisper wait timeout exceeded")

// ClientError is a failure signaled by the LLMWhisperer API or this client.
type ClientError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("llmwhisperer error (status %d): %s", e.StatusCode, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}
