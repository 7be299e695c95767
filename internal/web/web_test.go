package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_ParsesIndex(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)
	assert.NotNil(t, tmpl.Lookup(IndexTemplate))
}

func TestTemplates_EmptyPage(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, IndexTemplate, map[string]interface{}{
		"MaxFileSizeMB": 200,
		"Backends": []map[string]interface{}{
			{"Name": "docling", "Description": "structured", "Selected": true},
		},
	}))

	out := buf.String()
	assert.Contains(t, out, `accept=".pdf,.docx,.pptx"`)
	assert.Contains(t, out, `<option value="docling" selected>docling</option>`)
	assert.Contains(t, out, "Upload a document to get started.")
}

func TestFuncs_Bytes(t *testing.T) {
	format := funcs["bytes"].(func(int64) string)
	assert.Equal(t, "512 bytes", format(512))
	assert.Equal(t, "2.0 KB", format(2048))
	assert.Equal(t, "1.5 MB", format(3<<19))
}

func TestFuncs_Inc(t *testing.T) {
	inc := funcs["inc"].(func(int) int)
	assert.Equal(t, 1, inc(0))
}
