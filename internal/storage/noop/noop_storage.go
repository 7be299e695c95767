package noop

import (
	"context"
	"io"

	"github.com/phuslu/log"

	"docparser/internal/port"
)

type noopStorage struct{}

// NewNoopStorage creates an ObjectStorage that discards uploads. Results are
// only available through the download response.
func NewNoopStorage() port.ObjectStorage {
	return noopStorage{}
}

func (noopStorage) Upload(_ context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	n, _ := io.Copy(io.Discard, input.Body)
	log.Debug().Str("key", input.Key).Int64("bytes", n).Msg("[NOOP STORAGE] discarded result")
	return &port.UploadOutput{}, nil
}

func (noopStorage) GetPresignedURL(context.Context, string, int64) (string, error) {
	return "", nil
}
