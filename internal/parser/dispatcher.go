package parser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"docparser/internal/domain"
	"docparser/internal/port"
)

// Dispatcher sends each request to exactly one backend and normalizes the
// outcome: content on success, otherwise an error matching one of
// domain.ErrUnsupportedBackend, domain.ErrNoContent or domain.ErrParseFailed.
// It implements port.Dispatcher.
type Dispatcher struct {
	structured port.StructuredConverter
	text       port.TextExtractor
}

var _ port.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher. Either backend may be nil, in which case
// requests for it fail with domain.ErrParseFailed.
func NewDispatcher(structured port.StructuredConverter, text port.TextExtractor) *Dispatcher {
	return &Dispatcher{structured: structured, text: text}
}

func (d *Dispatcher) Parse(ctx context.Context, req port.ParseRequest) (out *port.ParseOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("backend", req.Backend.String()).Str("path", req.Path).
				Msgf("parser.Dispatcher: backend panicked: %v", r)
			out, err = nil, fmt.Errorf("%w: %s backend panicked: %v", domain.ErrParseFailed, req.Backend, r)
		}
	}()

	start := time.Now()
	switch req.Backend {
	case domain.BackendDocling:
		out, err = d.parseStructured(ctx, req.Path)
	case domain.BackendLLMWhisperer:
		out, err = d.parseText(ctx, req.Path)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, req.Backend)
	}
	elapsed := time.Since(start)

	if err != nil {
		log.Warn().Str("backend", req.Backend.String()).Str("path", req.Path).Dur("elapsed", elapsed).Err(err).
			Msg("parser.Dispatcher: parse failed")
		if !errors.Is(err, domain.ErrNoContent) {
			err = fmt.Errorf("%w: %s: %w", domain.ErrParseFailed, req.Backend, err)
		}
		return nil, err
	}

	out.Backend = req.Backend
	out.Duration = elapsed
	log.Info().Str("backend", req.Backend.String()).Str("path", req.Path).Dur("elapsed", elapsed).
		Int("chars", len(out.Content)).Msg("parser.Dispatcher: parse complete")
	return out, nil
}

func (d *Dispatcher) parseStructured(ctx context.Context, path string) (*port.ParseOutput, error) {
	if d.structured == nil {
		return nil, errors.New("docling backend is not configured")
	}
	doc, err := d.structured.Convert(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNoContent
	}
	md := doc.Markdown()
	if md == "" {
		return nil, domain.ErrNoContent
	}
	return &port.ParseOutput{Content: md, Document: doc}, nil
}

func (d *Dispatcher) parseText(ctx context.Context, path string) (*port.ParseOutput, error) {
	if d.text == nil {
		return nil, errors.New("llmwhisperer backend is not configured")
	}
	text, err := d.text.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, domain.ErrNoContent
	}
	return &port.ParseOutput{Content: text}, nil
}
