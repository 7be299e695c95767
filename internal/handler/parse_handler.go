package handler

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docparser/internal/domain"
	"docparser/internal/service"
)

// multipartOverhead leaves room for form fields and boundaries on top of the file limit.
const multipartOverhead = 1 << 20

// multipartMemory is how much of a multipart body is kept in memory before spilling to disk.
const multipartMemory = 32 << 20

// ParseHandler exposes the parse flow as a JSON API.
type ParseHandler struct {
	parseService service.ParseService
	maxBytes     int64
}

// NewParseHandler creates a new ParseHandler.
func NewParseHandler(parseService service.ParseService, maxFileSizeMB int64) *ParseHandler {
	return &ParseHandler{parseService: parseService, maxBytes: maxFileSizeMB * 1024 * 1024}
}

// parseResponse is the JSON shape of a parse result.
type parseResponse struct {
	FileName     string         `json:"file_name"`
	FileSize     int64          `json:"file_size"`
	PageCount    int            `json:"page_count,omitempty"`
	Backend      domain.Backend `json:"backend"`
	Content      string         `json:"content"`
	Pages        []string       `json:"pages,omitempty"`
	HTML         string         `json:"html,omitempty"`
	DownloadName string         `json:"download_name"`
	ArchiveURL   string         `json:"archive_url,omitempty"`
	DurationMS   int64          `json:"duration_ms"`
}

func toParseResponse(doc *domain.ParsedDocument) parseResponse {
	return parseResponse{
		FileName:     doc.Upload.FileName,
		FileSize:     doc.Upload.FileSize,
		PageCount:    doc.Upload.PageCount,
		Backend:      doc.Backend,
		Content:      doc.Content,
		Pages:        doc.Pages,
		HTML:         doc.HTML,
		DownloadName: doc.DownloadName,
		ArchiveURL:   doc.ArchiveURL,
		DurationMS:   doc.DurationMS,
	}
}

type backendInfo struct {
	Name        domain.Backend `json:"name"`
	Description string         `json:"description"`
	Extension   string         `json:"extension"`
}

// Parse handles POST /api/v1/parse
// Multipart fields: file (pdf, docx, pptx) and backend (docling or llmwhisperer, default docling).
// With ?download=true the result is returned as an attachment instead of JSON.
func (h *ParseHandler) Parse(c *gin.Context) {
	input, file, err := readUpload(c, h.maxBytes)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer func() { _ = file.Close() }()

	doc, err := h.parseService.Parse(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	if download, _ := strconv.ParseBool(c.Query("download")); download {
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.DownloadName}))
		c.Data(http.StatusOK, contentType(doc.Backend), []byte(doc.Content))
		return
	}

	RespondOK(c, toParseResponse(doc))
}

// Backends handles GET /api/v1/backends
func (h *ParseHandler) Backends(c *gin.Context) {
	out := make([]backendInfo, 0, len(domain.AllBackends))
	for _, b := range domain.AllBackends {
		out = append(out, backendInfo{Name: b, Description: b.Description(), Extension: b.Extension()})
	}
	RespondOK(c, out)
}

// readUpload extracts the file and backend fields from a multipart request.
// The caller must close the returned file.
func readUpload(c *gin.Context, maxBytes int64) (service.ParseInput, multipart.File, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return service.ParseInput{}, nil, domain.ErrFileTooLarge
		}
		return service.ParseInput{}, nil, domain.ErrMissingFile
	}

	backend := domain.BackendDocling
	if name := c.PostForm("backend"); name != "" {
		b, err := domain.ParseBackend(name)
		if err != nil {
			return service.ParseInput{}, nil, err
		}
		backend = b
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return service.ParseInput{}, nil, domain.ErrMissingFile
	}

	return service.ParseInput{
		File:     file,
		FileName: header.Filename,
		Size:     header.Size,
		Backend:  backend,
	}, file, nil
}

func contentType(b domain.Backend) string {
	if b == domain.BackendDocling {
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
