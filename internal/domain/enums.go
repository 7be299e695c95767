package domain

import (
	"fmt"
	"strings"
)

// Backend identifies one of the document-extraction engines.
type Backend string

const (
	// BackendDocling converts documents into a structured document with a markdown export.
	BackendDocling Backend = "docling"
	// BackendLLMWhisperer extracts page-delimited text through the LLMWhisperer API.
	BackendLLMWhisperer Backend = "llmwhisperer"
)

// AllBackends lists every supported backend in UI order.
var AllBackends = []Backend{BackendDocling, BackendLLMWhisperer}

// ParseBackend converts a user-supplied backend name into a Backend.
func ParseBackend(name string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(name)))
	if !b.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
	}
	return b, nil
}

// Valid reports whether b is one of the supported backends.
func (b Backend) Valid() bool {
	switch b {
	case BackendDocling, BackendLLMWhisperer:
		return true
	}
	return false
}

// Extension returns the download file extension for results of b.
func (b Backend) Extension() string {
	if b == BackendDocling {
		return "md"
	}
	return "txt"
}

// Description is the short help text shown next to the backend selector.
func (b Backend) Description() string {
	switch b {
	case BackendDocling:
		return "Better for structured documents with tables/images."
	case BackendLLMWhisperer:
		return "Better for text extraction."
	}
	return ""
}

func (b Backend) String() string {
	return string(b)
}

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypePPTX FileType = "pptx"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF:  "application/pdf",
	FileTypeDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FileTypePPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"docx": FileTypeDOCX,
	"pptx": FileTypePPTX,
}
