package handler

import (
	"encoding/base64"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/phuslu/log"

	"docparser/internal/domain"
	"docparser/internal/service"
	"docparser/internal/web"
)

// parseFailedMessage is the only failure text the page ever shows.
const parseFailedMessage = "Failed to parse document."

// PageHandler serves the single-page upload UI.
type PageHandler struct {
	parseService  service.ParseService
	maxFileSizeMB int64
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(parseService service.ParseService, maxFileSizeMB int64) *PageHandler {
	return &PageHandler{parseService: parseService, maxFileSizeMB: maxFileSizeMB}
}

type backendOption struct {
	Name        domain.Backend
	Description string
	Selected    bool
}

type pageView struct {
	MaxFileSizeMB int64
	Backends      []backendOption
	Result        *domain.ParsedDocument
	ContentHTML   template.HTML
	DownloadHref  template.URL
	BackendLabel  string
	Error         string
}

func (h *PageHandler) view(selected domain.Backend) pageView {
	opts := make([]backendOption, 0, len(domain.AllBackends))
	for _, b := range domain.AllBackends {
		opts = append(opts, backendOption{Name: b, Description: b.Description(), Selected: b == selected})
	}
	return pageView{MaxFileSizeMB: h.maxFileSizeMB, Backends: opts}
}

// Index handles GET /
func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, web.IndexTemplate, h.view(domain.BackendDocling))
}

// Parse handles POST /parse
// Every failure renders the generic banner; details go to the log only.
func (h *PageHandler) Parse(c *gin.Context) {
	input, file, err := readUpload(c, h.maxFileSizeMB*1024*1024)
	if err != nil {
		h.fail(c, domain.BackendDocling, err)
		return
	}
	defer func() { _ = file.Close() }()

	doc, err := h.parseService.Parse(c.Request.Context(), input)
	if err != nil {
		h.fail(c, input.Backend, err)
		return
	}

	v := h.view(doc.Backend)
	v.Result = doc
	v.ContentHTML = template.HTML(doc.HTML) //nolint:gosec // produced by the markdown renderer, which escapes raw HTML
	v.DownloadHref = dataURI(contentType(doc.Backend), doc.Content)
	v.BackendLabel = strings.ToUpper(doc.Backend.String())
	c.HTML(http.StatusOK, web.IndexTemplate, v)
}

func (h *PageHandler) fail(c *gin.Context, selected domain.Backend, err error) {
	status, code, _ := MapDomainError(err)
	log.Warn().Err(err).Str("request_id", c.GetString("request_id")).Str("code", code).
		Msg("PageHandler.Parse: parse failed")

	v := h.view(selected)
	v.Error = parseFailedMessage
	c.HTML(status, web.IndexTemplate, v)
}

// dataURI embeds content as a base64 data URI so the download needs no server-side state.
func dataURI(mediaType, content string) template.URL {
	return template.URL("data:" + strings.ReplaceAll(mediaType, " ", "") + ";base64," + base64.StdEncoding.EncodeToString([]byte(content))) //nolint:gosec // base64 payload
}
