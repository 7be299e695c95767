package docling

import (
	"time"

	"docparser/internal/config"
)

// Options controls how docling-serve converts a document. A Converter copies
// its Options at construction time; later changes to the caller's value have
// no effect.
type Options struct {
	DoOCR                 bool
	OCREngine             string
	OCRLang               []string
	DoTableStructure      bool
	TableMode             string
	DoCellMatching        bool
	ImagesScale           float64
	GeneratePictureImages bool
	GenerateTableImages   bool
	Timeout               time.Duration
}

// DefaultOptions returns OCR and table structure enabled. Images are left as
// placeholders in the markdown; callers that export images turn them on.
func DefaultOptions() Options {
	return Options{
		DoOCR:                 true,
		OCREngine:             "tesseract",
		OCRLang:               []string{"auto"},
		DoTableStructure:      true,
		TableMode:             "accurate",
		DoCellMatching:        true,
		ImagesScale:           2.0,
		GeneratePictureImages: false,
		GenerateTableImages:   false,
		Timeout:               10 * time.Minute,
	}
}

// OptionsFromConfig maps the docling config section onto Options.
func OptionsFromConfig(cfg *config.DoclingConfig) Options {
	opts := Options{
		DoOCR:                 cfg.DoOCR,
		OCREngine:             cfg.OCREngine,
		OCRLang:               cfg.OCRLang,
		DoTableStructure:      cfg.DoTableStructure,
		TableMode:             cfg.TableMode,
		DoCellMatching:        cfg.DoCellMatching,
		ImagesScale:           cfg.ImagesScale,
		GeneratePictureImages: cfg.GeneratePictureImages,
		GenerateTableImages:   cfg.GenerateTableImages,
		Timeout:               time.Duration(cfg.TimeoutSecs) * time.Second,
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return opts
}

func (o Options) clone() Options {
	o.OCRLang = append([]string(nil), o.OCRLang...)
	return o
}

func (o Options) wantImages() bool {
	return o.GeneratePictureImages || o.GenerateTableImages
}
