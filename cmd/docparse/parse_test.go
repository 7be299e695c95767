package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docparser/internal/domain"
	"docparser/internal/parser/docling"
	"docparser/internal/port"
	"docparser/mocks"
)

func TestWriteResult_Docling(t *testing.T) {
	dir := t.TempDir()
	out := &port.ParseOutput{
		Backend:  domain.BackendDocling,
		Content:  "# Paper",
		Document: mocks.StaticDocument("# Paper"),
	}

	written, err := writeResult(dir, "input/2408.09869v5.pdf", out, false)
	require.NoError(t, err)

	require.Len(t, written, 1)
	assert.Equal(t, filepath.Join(dir, "2408.09869v5.md"), written[0])
	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, "# Paper", string(data))
}

// convertWithImages runs a real docling converter against a fake docling-serve
// that embeds one page, one picture and one table image.
func convertWithImages(t *testing.T, png []byte) *port.ParseOutput {
	t.Helper()
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	image := map[string]interface{}{"mimetype": "image/png", "uri": uri}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "embedded", r.FormValue("image_export_mode"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"document": map[string]interface{}{
				"filename":   "paper.pdf",
				"md_content": "# Paper",
				"json_content": map[string]interface{}{
					"pages":    map[string]interface{}{"1": map[string]interface{}{"page_no": 1, "image": image}},
					"pictures": []interface{}{map[string]interface{}{"image": image}},
					"tables":   []interface{}{map[string]interface{}{"image": image}},
				},
			},
			"status": "success",
		})
	}))
	t.Cleanup(server.Close)

	src := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.4"), 0o600))

	opts := docling.DefaultOptions()
	opts.GeneratePictureImages = true
	opts.GenerateTableImages = true
	doc, err := docling.NewConverterWithOptions(server.URL, "", opts).Convert(context.Background(), src)
	require.NoError(t, err)

	return &port.ParseOutput{Backend: domain.BackendDocling, Content: doc.Markdown(), Document: doc}
}

func TestWriteResult_DoclingImages(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n'}
	out := convertWithImages(t, png)
	dir := t.TempDir()

	written, err := writeResult(dir, "input/paper.pdf", out, true)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "paper-1.png"),
		filepath.Join(dir, "paper-picture-1.png"),
		filepath.Join(dir, "paper-table-1.png"),
		filepath.Join(dir, "paper.md"),
	}, written)
	for _, name := range []string{"paper-1.png", "paper-picture-1.png", "paper-table-1.png"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, png, data, name)
	}
}

func TestWriteResult_DoclingImagesSkippedWithoutFlag(t *testing.T) {
	out := convertWithImages(t, []byte{0x89, 'P', 'N', 'G'})
	dir := t.TempDir()

	written, err := writeResult(dir, "paper.pdf", out, false)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "paper.md")}, written)
}

func TestWriteResult_LLMWhispererPages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	out := &port.ParseOutput{
		Backend: domain.BackendLLMWhisperer,
		Content: "  first page \n<<<\f\nsecond page\n<<<\f",
	}

	written, err := writeResult(dir, "report.pdf", out, false)
	require.NoError(t, err)

	require.Len(t, written, 3)
	first, _ := os.ReadFile(filepath.Join(dir, "llm_whisperer_page_1.txt"))
	second, _ := os.ReadFile(filepath.Join(dir, "llm_whisperer_page_2.txt"))
	third, _ := os.ReadFile(filepath.Join(dir, "llm_whisperer_page_3.txt"))
	assert.Equal(t, "first page", string(first))
	assert.Equal(t, "second page", string(second))
	assert.Empty(t, third)
}

func TestWriteResult_UnknownBackend(t *testing.T) {
	_, err := writeResult(t.TempDir(), "a.pdf", &port.ParseOutput{Backend: "other"}, false)
	assert.ErrorIs(t, err, domain.ErrUnsupportedBackend)
}

func TestImageName(t *testing.T) {
	assert.Equal(t, "paper-3.png", imageName("paper", docling.Image{Kind: docling.ElementPage, Index: 3, MimeType: "image/png"}))
	assert.Equal(t, "paper-table-1.png", imageName("paper", docling.Image{Kind: docling.ElementTable, Index: 1, MimeType: "image/png"}))
	assert.Equal(t, "paper-picture-2.png", imageName("paper", docling.Image{Kind: docling.ElementPicture, Index: 2}))
}

func TestParseCmd_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown backend", []string{"parse", "report.pdf", "--backend", "ocr"}, domain.ErrUnsupportedBackend},
		{"unsupported extension", []string{"parse", "sheet.xlsx"}, domain.ErrUnsupportedFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := rootCmd()
			root.SetOut(&bytes.Buffer{})
			root.SetArgs(tt.args)
			err := root.Execute()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseCmd_MissingFile(t *testing.T) {
	root := rootCmd()
	root.SetArgs([]string{"parse", filepath.Join(t.TempDir(), "missing.pdf")})
	err := root.Execute()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
