package docling

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ElementKind classifies an exported image.
type ElementKind string

const (
	ElementPage    ElementKind = "page"
	ElementPicture ElementKind = "picture"
	ElementTable   ElementKind = "table"
)

// Image is a rendered page, picture or table taken from the document JSON.
type Image struct {
	Kind     ElementKind
	Index    int // page number for pages, 1-based counter otherwise
	MimeType string
	Data     []byte
}

// Document is the converted document returned by docling-serve. It implements
// port.StructuredDocument.
type Document struct {
	Filename       string
	Status         string
	ProcessingTime float64
	markdown       string
	raw            json.RawMessage
}

// Markdown returns the markdown export.
func (d *Document) Markdown() string {
	return d.markdown
}

// JSON returns the DoclingDocument JSON export, or nil when it was not requested.
func (d *Document) JSON() json.RawMessage {
	return d.raw
}

type imageRef struct {
	Mimetype string `json:"mimetype"`
	URI      string `json:"uri"`
}

type element struct {
	Image *imageRef `json:"image"`
}

type pageEntry struct {
	PageNo int       `json:"page_no"`
	Image  *imageRef `json:"image"`
}

type jsonDocument struct {
	Pages    map[string]pageEntry `json:"pages"`
	Pictures []element            `json:"pictures"`
	Tables   []element            `json:"tables"`
}

// Images decodes the embedded page, picture and table images. Elements without
// an embedded data URI are skipped.
func (d *Document) Images() ([]Image, error) {
	if len(d.raw) == 0 {
		return nil, nil
	}
	var doc jsonDocument
	if err := json.Unmarshal(d.raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding document json: %w", err)
	}

	var images []Image

	keys := make([]string, 0, len(doc.Pages))
	for k := range doc.Pages {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})
	for _, k := range keys {
		p := doc.Pages[k]
		if p.Image == nil {
			continue
		}
		img, err := decodeImage(ElementPage, p.PageNo, p.Image)
		if err != nil {
			return nil, err
		}
		if img != nil {
			images = append(images, *img)
		}
	}

	collect := func(kind ElementKind, elems []element) error {
		n := 0
		for _, e := range elems {
			if e.Image == nil {
				continue
			}
			img, err := decodeImage(kind, n+1, e.Image)
			if err != nil {
				return err
			}
			if img != nil {
				n++
				images = append(images, *img)
			}
		}
		return nil
	}
	if err := collect(ElementPicture, doc.Pictures); err != nil {
		return nil, err
	}
	if err := collect(ElementTable, doc.Tables); err != nil {
		return nil, err
	}
	return images, nil
}

// decodeImage returns nil for references that are not base64 data URIs.
func decodeImage(kind ElementKind, index int, ref *imageRef) (*Image, error) {
	const prefix = "data:"
	if !strings.HasPrefix(ref.URI, prefix) {
		return nil, nil
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref.URI, prefix), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding %s %d image: %w", kind, index, err)
	}
	mime := ref.Mimetype
	if mime == "" {
		mime = strings.TrimSuffix(meta, ";base64")
	}
	return &Image{Kind: kind, Index: index, MimeType: mime, Data: data}, nil
}
