package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"docparser/internal/config"
	"docparser/internal/domain"
	"docparser/internal/inspect"
	"docparser/internal/parser"
	"docparser/internal/port"
	"docparser/internal/render"
)

// ParseInput is the DTO for a parse request coming from an upload.
type ParseInput struct {
	File     io.Reader
	FileName string
	Size     int64
	Backend  domain.Backend
}

// ParseService defines the upload-to-result contract used by the HTTP layer and CLI.
type ParseService interface {
	Parse(ctx context.Context, input ParseInput) (*domain.ParsedDocument, error)
}

type parseService struct {
	dispatcher port.Dispatcher
	storage    port.ObjectStorage
	markdown   *render.Markdown
	uploadCfg  *config.UploadConfig
	storageCfg *config.StorageConfig
	now        func() time.Time
}

// NewParseService creates a new ParseService implementation.
func NewParseService(
	dispatcher port.Dispatcher,
	storage port.ObjectStorage,
	uploadCfg *config.UploadConfig,
	storageCfg *config.StorageConfig,
) ParseService {
	return &parseService{
		dispatcher: dispatcher,
		storage:    storage,
		markdown:   render.NewMarkdown(),
		uploadCfg:  uploadCfg,
		storageCfg: storageCfg,
		now:        time.Now,
	}
}

func (s *parseService) Parse(ctx context.Context, input ParseInput) (*domain.ParsedDocument, error) {
	if !input.Backend.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, input.Backend)
	}
	if input.File == nil || input.FileName == "" {
		return nil, domain.ErrMissingFile
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.FileName), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	maxBytes := s.uploadCfg.MaxFileSizeMB * 1024 * 1024
	if input.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	tmp, err := NewTempFile(s.uploadCfg.OutputDir, input.FileName, io.LimitReader(input.File, maxBytes+1))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tmp.Remove(); err != nil {
			log.Error().Err(err).Str("path", tmp.Path).Msg("parseService.Parse: cleanup failed")
		}
	}()
	if tmp.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	upload := domain.UploadInfo{
		FileName: filepath.Base(input.FileName),
		FileSize: tmp.Size,
		FileType: fileType,
	}
	if n, err := inspect.PageCount(tmp.Path); err != nil {
		log.Warn().Err(err).Str("file", upload.FileName).Msg("parseService.Parse: could not read page count")
	} else {
		upload.PageCount = n
	}

	log.Info().Str("file", upload.FileName).Int64("bytes", upload.FileSize).Str("backend", input.Backend.String()).
		Msg("parseService.Parse: processing upload")

	out, err := s.dispatcher.Parse(ctx, port.ParseRequest{Path: tmp.Path, Backend: input.Backend})
	if err != nil {
		return nil, err
	}

	doc := &domain.ParsedDocument{
		Upload:       upload,
		Backend:      input.Backend,
		Content:      out.Content,
		DownloadName: domain.DownloadName(input.FileName, input.Backend),
		DurationMS:   out.Duration.Milliseconds(),
	}

	switch input.Backend {
	case domain.BackendDocling:
		html, err := s.markdown.HTML(out.Content)
		if err != nil {
			log.Warn().Err(err).Str("file", upload.FileName).Msg("parseService.Parse: markdown render failed")
		}
		doc.HTML = string(html)
	case domain.BackendLLMWhisperer:
		doc.Pages = parser.SplitPages(out.Content)
	}

	doc.ArchiveURL = s.archive(ctx, doc)
	return doc, nil
}

// archive stores the result and returns a presigned URL for it. Failures are
// logged and leave the URL empty.
func (s *parseService) archive(ctx context.Context, doc *domain.ParsedDocument) string {
	key := path.Join(s.storageCfg.Prefix, s.now().UTC().Format("2006/01/02"), uuid.New().String(), doc.DownloadName)

	contentType := "text/plain; charset=utf-8"
	if doc.Backend == domain.BackendDocling {
		contentType = "text/markdown; charset=utf-8"
	}

	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Key:         key,
		Body:        strings.NewReader(doc.Content),
		ContentType: contentType,
		Size:        int64(len(doc.Content)),
	}); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("parseService.archive: upload failed")
		return ""
	}

	url, err := s.storage.GetPresignedURL(ctx, key, s.storageCfg.PresignExpiry)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("parseService.archive: presign failed")
		return ""
	}
	return url
}
