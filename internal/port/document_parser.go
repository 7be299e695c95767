package port

import (
	"context"
	"time"

	"docparser/internal/domain"
)

// ParseRequest identifies a document on disk and the backend that should parse it.
type ParseRequest struct {
	Path    string
	Backend domain.Backend
}

// ParseOutput is the normalized result of a successful parse.
type ParseOutput struct {
	Backend  domain.Backend
	Content  string
	Document StructuredDocument // set for the docling backend only
	Duration time.Duration
}

// StructuredDocument is the document graph produced by a structured conversion engine.
type StructuredDocument interface {
	Markdown() string
}

// StructuredConverter converts a document into a StructuredDocument.
type StructuredConverter interface {
	Convert(ctx context.Context, path string) (StructuredDocument, error)
}

// TextExtractor extracts page-delimited plain text from a document.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Dispatcher routes a ParseRequest to exactly one backend.
type Dispatcher interface {
	Parse(ctx context.Context, req ParseRequest) (*ParseOutput, error)
}
