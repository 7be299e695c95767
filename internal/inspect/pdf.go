package inspect

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"docparser/internal/domain"
)

// PageCount returns the number of pages of the PDF at path. Non-PDF files
// report 0 without error; page counts for office formats are left to the backends.
func PageCount(path string) (int, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if domain.AllowedExtensions[ext] != domain.FileTypePDF {
		return 0, nil
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading pdf page count: %w", err)
	}
	return n, nil
}
