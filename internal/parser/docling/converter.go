package docling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/phuslu/log"

	"docparser/internal/config"
	"docparser/internal/domain"
	"docparser/internal/parser"
	"docparser/internal/port"
)

const convertPath = "/v1/convert/file"

// Converter implements port.StructuredConverter against a docling-serve instance.
type Converter struct {
	baseURL string
	apiKey  string
	opts    Options
	client  *http.Client
}

var _ port.StructuredConverter = (*Converter)(nil)

// NewConverter creates a docling-serve converter from the docling config section.
func NewConverter(cfg *config.DoclingConfig) *Converter {
	return NewConverterWithOptions(cfg.BaseURL, cfg.APIKey, OptionsFromConfig(cfg))
}

// NewConverterWithOptions creates a converter for baseURL with explicit options.
func NewConverterWithOptions(baseURL, apiKey string, opts Options) *Converter {
	opts = opts.clone()
	return &Converter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
	}
}

func (c *Converter) Convert(ctx context.Context, path string) (port.StructuredDocument, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, ext)
	}

	log.Info().Str("path", path).Msg("docling.Converter.Convert: converting document")

	body, contentType, err := c.buildForm(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+convertPath, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling docling-serve: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("docling-serve error (status %d): %s", resp.StatusCode, parser.BodySnippet(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, parser.RateLimited(domain.BackendDocling, resp.Header, baseErr)
		}
		return nil, baseErr
	}

	doc, err := parseResponse(respBody)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Converter) buildForm(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening document: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copying document: %w", err)
	}

	for _, field := range c.formFields() {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("writing form field %s: %w", field[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// formFields lists the conversion options as ordered key/value pairs; list
// options repeat their key.
func (c *Converter) formFields() [][2]string {
	o := c.opts
	fields := [][2]string{
		{"to_formats", "md"},
	}
	if o.wantImages() {
		fields = append(fields, [2]string{"to_formats", "json"})
	}
	fields = append(fields,
		[2]string{"do_ocr", strconv.FormatBool(o.DoOCR)},
		[2]string{"do_table_structure", strconv.FormatBool(o.DoTableStructure)},
		[2]string{"table_cell_matching", strconv.FormatBool(o.DoCellMatching)},
		[2]string{"include_images", strconv.FormatBool(o.wantImages())},
		[2]string{"images_scale", strconv.FormatFloat(o.ImagesScale, 'f', -1, 64)},
		[2]string{"abort_on_error", "false"},
	)
	if o.OCREngine != "" {
		fields = append(fields, [2]string{"ocr_engine", o.OCREngine})
	}
	for _, lang := range o.OCRLang {
		fields = append(fields, [2]string{"ocr_lang", lang})
	}
	if o.TableMode != "" {
		fields = append(fields, [2]string{"table_mode", o.TableMode})
	}
	if o.wantImages() {
		fields = append(fields, [2]string{"image_export_mode", "embedded"})
	} else {
		fields = append(fields, [2]string{"image_export_mode", "placeholder"})
	}
	return fields
}

// convertResponse models the docling-serve ConvertDocumentResponse.
type convertResponse struct {
	Document struct {
		Filename    string          `json:"filename"`
		MDContent   *string         `json:"md_content"`
		JSONContent json.RawMessage `json:"json_content"`
	} `json:"document"`
	Status string `json:"status"`
	Errors []struct {
		ComponentType string `json:"component_type"`
		ModuleName    string `json:"module_name"`
		ErrorMessage  string `json:"error_message"`
	} `json:"errors"`
	ProcessingTime float64 `json:"processing_time"`
}

func parseResponse(body []byte) (*Document, error) {
	var resp convertResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	for _, e := range resp.Errors {
		log.Warn().Str("component", e.ComponentType).Str("module", e.ModuleName).
			Msgf("docling.Converter: conversion reported error: %s", e.ErrorMessage)
	}

	switch resp.Status {
	case "success", "partial_success":
	default:
		msg := "no error details"
		if len(resp.Errors) > 0 {
			msg = resp.Errors[0].ErrorMessage
		}
		return nil, fmt.Errorf("conversion status %q: %s", resp.Status, msg)
	}

	if resp.Document.MDContent == nil {
		return nil, domain.ErrNoContent
	}

	var raw json.RawMessage
	if len(resp.Document.JSONContent) > 0 && string(resp.Document.JSONContent) != "null" {
		raw = resp.Document.JSONContent
	}

	log.Info().Str("filename", resp.Document.Filename).Str("status", resp.Status).
		Float64("processing_time", resp.ProcessingTime).Msg("docling.Converter: conversion complete")

	return &Document{
		Filename:       resp.Document.Filename,
		Status:         resp.Status,
		ProcessingTime: resp.ProcessingTime,
		markdown:       *resp.Document.MDContent,
		raw:            raw,
	}, nil
}
