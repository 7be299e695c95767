package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"docparser/internal/app"
	"docparser/internal/config"
	"docparser/internal/domain"
	"docparser/internal/logging"
	"docparser/internal/parser"
	"docparser/internal/parser/docling"
	"docparser/internal/port"
)

func parseCmd(envFile *string) *cobra.Command {
	var out string
	var backendName string
	var images bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a local document and write the result files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]

			backend, err := domain.ParseBackend(backendName)
			if err != nil {
				return err
			}
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(src), "."))
			if _, ok := domain.AllowedExtensions[ext]; !ok {
				return fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, src)
			}
			if _, err := os.Stat(src); err != nil {
				return err
			}

			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log)
			if images {
				cfg.Docling.GeneratePictureImages = true
				cfg.Docling.GenerateTableImages = true
			}

			start := time.Now()
			result, err := app.NewDispatcher(cfg).Parse(cmd.Context(), port.ParseRequest{Path: src, Backend: backend})
			if err != nil {
				return err
			}
			log.Info().Str("backend", backend.String()).Dur("elapsed", time.Since(start)).Msg("docparse.parse: time taken")

			written, err := writeResult(out, src, result, images)
			if err != nil {
				return err
			}
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "output", "directory for the result files")
	cmd.Flags().StringVarP(&backendName, "backend", "b", string(domain.BackendDocling), "backend: docling|llmwhisperer")
	cmd.Flags().BoolVar(&images, "images", false, "also save page, picture and table images (docling only)")
	return cmd
}

// writeResult writes the parse output under dir and returns the written paths.
// docling produces {stem}.md plus optional images; llmwhisperer produces one
// llm_whisperer_page_{n}.txt per page.
func writeResult(dir, src string, result *port.ParseOutput, images bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var written []string
	write := func(name string, data []byte) error {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		log.Info().Str("path", p).Msg("saved")
		written = append(written, p)
		return nil
	}

	switch result.Backend {
	case domain.BackendDocling:
		if images {
			if doc, ok := result.Document.(*docling.Document); ok {
				imgs, err := doc.Images()
				if err != nil {
					return written, err
				}
				for _, img := range imgs {
					if err := write(imageName(stem, img), img.Data); err != nil {
						return written, err
					}
				}
			}
		}
		if err := write(stem+".md", []byte(result.Content)); err != nil {
			return written, err
		}
	case domain.BackendLLMWhisperer:
		for i, page := range parser.SplitRawPages(result.Content) {
			if err := write(fmt.Sprintf("llm_whisperer_page_%d.txt", i+1), []byte(page)); err != nil {
				return written, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, result.Backend)
	}
	return written, nil
}

func imageName(stem string, img docling.Image) string {
	ext := ".png"
	if exts, _ := mime.ExtensionsByType(img.MimeType); len(exts) > 0 && img.MimeType != "image/png" {
		ext = exts[0]
	}
	if img.Kind == docling.ElementPage {
		return fmt.Sprintf("%s-%d%s", stem, img.Index, ext)
	}
	return fmt.Sprintf("%s-%s-%d%s", stem, img.Kind, img.Index, ext)
}
