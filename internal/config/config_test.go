package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docparser/internal/config"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "output", cfg.Upload.OutputDir)
	assert.Equal(t, "noop", cfg.Storage.Provider)

	assert.True(t, cfg.Docling.DoOCR)
	assert.True(t, cfg.Docling.DoTableStructure)
	assert.True(t, cfg.Docling.DoCellMatching)
	assert.Equal(t, "tesseract", cfg.Docling.OCREngine)
	assert.Equal(t, []string{"auto"}, cfg.Docling.OCRLang)
	assert.Equal(t, 2.0, cfg.Docling.ImagesScale)
	assert.False(t, cfg.Docling.GeneratePictureImages)
	assert.False(t, cfg.Docling.GenerateTableImages)

	assert.Equal(t, 200, cfg.LLMWhisperer.WaitTimeoutSecs)
	assert.Equal(t, "<<<", cfg.LLMWhisperer.PageSeparator)
	assert.Equal(t, "form", cfg.LLMWhisperer.Mode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOCPARSER_LOG_LEVEL", "DEBUG")
	t.Setenv("DOCPARSER_DOCLING_BASE_URL", "http://docling:5001/")
	t.Setenv("DOCPARSER_LLMWHISPERER_WAIT_TIMEOUT_SECS", "30")
	t.Setenv("DOCPARSER_CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://docling:5001", cfg.Docling.BaseURL)
	assert.Equal(t, 30, cfg.LLMWhisperer.WaitTimeoutSecs)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_LLMWhispererClientVariables(t *testing.T) {
	t.Setenv("LLMWHISPERER_API_KEY", "sdk-key")
	t.Setenv("LLMWHISPERER_BASE_URL_V2", "https://whisper.example.com/api/v2")

	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "sdk-key", cfg.LLMWhisperer.APIKey)
	assert.Equal(t, "https://whisper.example.com/api/v2", cfg.LLMWhisperer.BaseURL)
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("PORT", "9000")

	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Port)
}

func TestLoad_EnvFile(t *testing.T) {
	const key = "DOCPARSER_UPLOAD_OUTPUT_DIR"
	_, set := os.LookupEnv(key)
	require.False(t, set, "test requires %s to be unset", key)
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(key+"=/tmp/docparser-out\n"), 0o600))

	cfg, err := config.Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/docparser-out", cfg.Upload.OutputDir)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("DOCPARSER_LOG_FORMAT", "xml")

	cfg, err := config.Load(noEnvFile(t))
	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_S3RequiresBucket(t *testing.T) {
	t.Setenv("DOCPARSER_STORAGE_PROVIDER", "s3")

	_, err := config.Load(noEnvFile(t))
	assert.Error(t, err)

	t.Setenv("DOCPARSER_STORAGE_BUCKET", "docparser-results")
	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "docparser-results", cfg.Storage.Bucket)
}
