package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Log          LogConfig
	Upload       UploadConfig
	Docling      DoclingConfig
	LLMWhisperer LLMWhispererConfig
	Storage      StorageConfig
	CORS         CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// UploadConfig holds settings for the per-request temp files.
type UploadConfig struct {
	OutputDir     string `mapstructure:"output_dir" validate:"required"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb" validate:"gt=0"`
}

// DoclingConfig holds settings for the docling-serve conversion backend.
type DoclingConfig struct {
	BaseURL               string   `mapstructure:"base_url" validate:"required,url"`
	APIKey                string   `mapstructure:"api_key"`
	TimeoutSecs           int      `mapstructure:"timeout_secs" validate:"gt=0"`
	DoOCR                 bool     `mapstructure:"do_ocr"`
	OCREngine             string   `mapstructure:"ocr_engine"`
	OCRLang               []string `mapstructure:"ocr_lang"`
	DoTableStructure      bool     `mapstructure:"do_table_structure"`
	TableMode             string   `mapstructure:"table_mode" validate:"oneof=fast accurate"`
	DoCellMatching        bool     `mapstructure:"do_cell_matching"`
	ImagesScale           float64  `mapstructure:"images_scale" validate:"gt=0"`
	GeneratePictureImages bool     `mapstructure:"generate_picture_images"`
	GenerateTableImages   bool     `mapstructure:"generate_table_images"`
}

// LLMWhispererConfig holds settings for the LLMWhisperer v2 text extraction backend.
type LLMWhispererConfig struct {
	BaseURL          string `mapstructure:"base_url" validate:"required,url"`
	APIKey           string `mapstructure:"api_key"`
	Mode             string `mapstructure:"mode" validate:"oneof=native_text low_cost high_quality form table"`
	OutputMode       string `mapstructure:"output_mode" validate:"oneof=layout_preserving text"`
	PageSeparator    string `mapstructure:"page_separator" validate:"required"`
	WaitTimeoutSecs  int    `mapstructure:"wait_timeout_secs" validate:"gt=0"`
	PollIntervalSecs int    `mapstructure:"poll_interval_secs" validate:"gt=0"`
	RequestTimeout   int    `mapstructure:"request_timeout_secs" validate:"gt=0"`
}

// StorageConfig holds settings for the optional result archive.
type StorageConfig struct {
	Provider      string `mapstructure:"provider" validate:"oneof=noop s3"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket" validate:"required_if=Provider s3"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Prefix        string `mapstructure:"prefix"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Validate checks struct-level constraints on the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load reads a .env file (if present) and then configuration from environment
// variables with the DOCPARSER_ prefix. envFiles defaults to ".env".
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("DOCPARSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8501")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Upload defaults
	v.SetDefault("upload.output_dir", "output")
	v.SetDefault("upload.max_file_size_mb", 200)

	// Docling defaults
	v.SetDefault("docling.base_url", "http://localhost:5001")
	v.SetDefault("docling.api_key", "")
	v.SetDefault("docling.timeout_secs", 600)
	v.SetDefault("docling.do_ocr", true)
	v.SetDefault("docling.ocr_engine", "tesseract")
	v.SetDefault("docling.ocr_lang", "auto")
	v.SetDefault("docling.do_table_structure", true)
	v.SetDefault("docling.table_mode", "accurate")
	v.SetDefault("docling.do_cell_matching", true)
	v.SetDefault("docling.images_scale", 2.0)
	v.SetDefault("docling.generate_picture_images", false)
	v.SetDefault("docling.generate_table_images", false)

	// LLMWhisperer defaults
	v.SetDefault("llmwhisperer.base_url", "https://llmwhisperer-api.us-central.unstract.com/api/v2")
	v.SetDefault("llmwhisperer.api_key", "")
	v.SetDefault("llmwhisperer.mode", "form")
	v.SetDefault("llmwhisperer.output_mode", "layout_preserving")
	v.SetDefault("llmwhisperer.page_separator", "<<<")
	v.SetDefault("llmwhisperer.wait_timeout_secs", 200)
	v.SetDefault("llmwhisperer.poll_interval_secs", 5)
	v.SetDefault("llmwhisperer.request_timeout_secs", 120)

	// Storage defaults
	v.SetDefault("storage.provider", "noop")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.prefix", "results")
	v.SetDefault("storage.presign_expiry", 3600)

	v.SetDefault("cors.allowed_origins", "http://localhost:8501,http://127.0.0.1:8501")

	// Bind environment variables explicitly for nested keys. The LLMWhisperer
	// client variables are accepted as a fallback so existing .env files keep working.
	envBindings := map[string][]string{
		"server.port":                       {"DOCPARSER_SERVER_PORT"},
		"server.read_timeout":               {"DOCPARSER_SERVER_READ_TIMEOUT"},
		"server.write_timeout":              {"DOCPARSER_SERVER_WRITE_TIMEOUT"},
		"server.environment":                {"DOCPARSER_SERVER_ENVIRONMENT"},
		"log.level":                         {"DOCPARSER_LOG_LEVEL"},
		"log.format":                        {"DOCPARSER_LOG_FORMAT"},
		"upload.output_dir":                 {"DOCPARSER_UPLOAD_OUTPUT_DIR"},
		"upload.max_file_size_mb":           {"DOCPARSER_UPLOAD_MAX_FILE_SIZE_MB"},
		"docling.base_url":                  {"DOCPARSER_DOCLING_BASE_URL"},
		"docling.api_key":                   {"DOCPARSER_DOCLING_API_KEY"},
		"docling.timeout_secs":              {"DOCPARSER_DOCLING_TIMEOUT_SECS"},
		"docling.do_ocr":                    {"DOCPARSER_DOCLING_DO_OCR"},
		"docling.ocr_engine":                {"DOCPARSER_DOCLING_OCR_ENGINE"},
		"docling.ocr_lang":                  {"DOCPARSER_DOCLING_OCR_LANG"},
		"docling.do_table_structure":        {"DOCPARSER_DOCLING_DO_TABLE_STRUCTURE"},
		"docling.table_mode":                {"DOCPARSER_DOCLING_TABLE_MODE"},
		"docling.do_cell_matching":          {"DOCPARSER_DOCLING_DO_CELL_MATCHING"},
		"docling.images_scale":              {"DOCPARSER_DOCLING_IMAGES_SCALE"},
		"docling.generate_picture_images":   {"DOCPARSER_DOCLING_GENERATE_PICTURE_IMAGES"},
		"docling.generate_table_images":     {"DOCPARSER_DOCLING_GENERATE_TABLE_IMAGES"},
		"llmwhisperer.base_url":             {"DOCPARSER_LLMWHISPERER_BASE_URL", "LLMWHISPERER_BASE_URL_V2"},
		"llmwhisperer.api_key":              {"DOCPARSER_LLMWHISPERER_API_KEY", "LLMWHISPERER_API_KEY"},
		"llmwhisperer.mode":                 {"DOCPARSER_LLMWHISPERER_MODE"},
		"llmwhisperer.output_mode":          {"DOCPARSER_LLMWHISPERER_OUTPUT_MODE"},
		"llmwhisperer.page_separator":       {"DOCPARSER_LLMWHISPERER_PAGE_SEPARATOR"},
		"llmwhisperer.wait_timeout_secs":    {"DOCPARSER_LLMWHISPERER_WAIT_TIMEOUT_SECS"},
		"llmwhisperer.poll_interval_secs":   {"DOCPARSER_LLMWHISPERER_POLL_INTERVAL_SECS"},
		"llmwhisperer.request_timeout_secs": {"DOCPARSER_LLMWHISPERER_REQUEST_TIMEOUT_SECS"},
		"storage.provider":                  {"DOCPARSER_STORAGE_PROVIDER"},
		"storage.region":                    {"DOCPARSER_STORAGE_REGION"},
		"storage.bucket":                    {"DOCPARSER_STORAGE_BUCKET"},
		"storage.endpoint":                  {"DOCPARSER_STORAGE_ENDPOINT"},
		"storage.access_key":                {"DOCPARSER_STORAGE_ACCESS_KEY"},
		"storage.secret_key":                {"DOCPARSER_STORAGE_SECRET_KEY"},
		"storage.prefix":                    {"DOCPARSER_STORAGE_PREFIX"},
		"storage.presign_expiry":            {"DOCPARSER_STORAGE_PRESIGN_EXPIRY"},
		"cors.allowed_origins":              {"DOCPARSER_CORS_ALLOWED_ORIGINS"},
	}
	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	cfg := &Config{}

	// Hosting platforms set PORT. Use it if DOCPARSER_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCPARSER_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  strings.ToLower(v.GetString("log.level")),
		Format: strings.ToLower(v.GetString("log.format")),
	}
	cfg.Upload = UploadConfig{
		OutputDir:     v.GetString("upload.output_dir"),
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
	}
	cfg.Docling = DoclingConfig{
		BaseURL:               strings.TrimRight(v.GetString("docling.base_url"), "/"),
		APIKey:                v.GetString("docling.api_key"),
		TimeoutSecs:           v.GetInt("docling.timeout_secs"),
		DoOCR:                 v.GetBool("docling.do_ocr"),
		OCREngine:             v.GetString("docling.ocr_engine"),
		OCRLang:               splitList(v.GetString("docling.ocr_lang")),
		DoTableStructure:      v.GetBool("docling.do_table_structure"),
		TableMode:             v.GetString("docling.table_mode"),
		DoCellMatching:        v.GetBool("docling.do_cell_matching"),
		ImagesScale:           v.GetFloat64("docling.images_scale"),
		GeneratePictureImages: v.GetBool("docling.generate_picture_images"),
		GenerateTableImages:   v.GetBool("docling.generate_table_images"),
	}
	cfg.LLMWhisperer = LLMWhispererConfig{
		BaseURL:          strings.TrimRight(v.GetString("llmwhisperer.base_url"), "/"),
		APIKey:           v.GetString("llmwhisperer.api_key"),
		Mode:             v.GetString("llmwhisperer.mode"),
		OutputMode:       v.GetString("llmwhisperer.output_mode"),
		PageSeparator:    v.GetString("llmwhisperer.page_separator"),
		WaitTimeoutSecs:  v.GetInt("llmwhisperer.wait_timeout_secs"),
		PollIntervalSecs: v.GetInt("llmwhisperer.poll_interval_secs"),
		RequestTimeout:   v.GetInt("llmwhisperer.request_timeout_secs"),
	}
	cfg.Storage = StorageConfig{
		Provider:      v.GetString("storage.provider"),
		Region:        v.GetString("storage.region"),
		Bucket:        v.GetString("storage.bucket"),
		Endpoint:      v.GetString("storage.endpoint"),
		AccessKey:     v.GetString("storage.access_key"),
		SecretKey:     v.GetString("storage.secret_key"),
		Prefix:        v.GetString("storage.prefix"),
		PresignExpiry: v.GetInt64("storage.presign_expiry"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList parses a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
