package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// UploadInfo describes an uploaded document as shown to the user.
type UploadInfo struct {
	FileName  string   `json:"file_name"`
	FileSize  int64    `json:"file_size"`
	FileType  FileType `json:"file_type"`
	PageCount int      `json:"page_count,omitempty"`
}

// ParsedDocument is the presentation-ready result of a parse request.
type ParsedDocument struct {
	Upload       UploadInfo `json:"upload"`
	Backend      Backend    `json:"backend"`
	Content      string     `json:"content"`
	HTML         string     `json:"html,omitempty"`
	Pages        []string   `json:"pages,omitempty"`
	DownloadName string     `json:"download_name"`
	ArchiveURL   string     `json:"archive_url,omitempty"`
	DurationMS   int64      `json:"duration_ms"`
}

// DownloadName builds the result file name: everything before the first dot
// of the original name, an underscore, the backend and its extension.
func DownloadName(originalName string, backend Backend) string {
	stem := filepath.Base(originalName)
	if i := strings.Index(stem, "."); i >= 0 {
		stem = stem[:i]
	}
	return fmt.Sprintf("%s_%s.%s", stem, backend, backend.Extension())
}
