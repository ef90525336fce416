package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Table    TableConfig    `yaml:"table"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

// OCRConfig holds rasterizer/OCR-related configuration
type OCRConfig struct {
	Pdftoppm    string `yaml:"pdftoppm"`
	Tesseract   string `yaml:"tesseract"`
	Lang        string `yaml:"lang"`
	DPI         int    `yaml:"dpi"`
	OEM         int    `yaml:"oem"`
	PSM         int    `yaml:"psm"`
	MaxPages    int    `yaml:"max_pages"`
	TessdataDir string `yaml:"tessdata_dir"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // "openai" | "gemini"
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	Charset     string        `yaml:"charset"` // "utf-8" | "latin1" | "ascii"
}

// TableConfig holds spreadsheet-related configuration
type TableConfig struct {
	Sheet string `yaml:"sheet"`
}

// PipelineConfig holds batch driver configuration
type PipelineConfig struct {
	Workers int `yaml:"workers"` // parallel text acquisition, 1 = sequential
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" | "text"
}

// LedgerConfig holds the run ledger location; empty disables it.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		OCR: OCRConfig{
			Pdftoppm:    getEnv("OCR_PDFTOPPM", "pdftoppm"),
			Tesseract:   getEnv("OCR_TESSERACT", "tesseract"),
			Lang:        getEnv("OCR_LANG", "eng"),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			OEM:         getEnvAsInt("OCR_OEM", 1),
			PSM:         getEnvAsInt("OCR_PSM", 6),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 0),
			TessdataDir: getEnv("OCR_TESSDATA_DIR", ""),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			Model:       getEnv("LLM_MODEL", ""),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			Charset:     getEnv("LLM_CHARSET", "utf-8"),
		},
		Table: TableConfig{
			Sheet: getEnv("TABLE_SHEET", "Invoices"),
		},
		Pipeline: PipelineConfig{
			Workers: getEnvAsInt("PIPELINE_WORKERS", 1),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Ledger: LedgerConfig{
			Path: getEnv("LEDGER_PATH", ""),
		},
	}
}

// MergeYAMLFile overlays the keys present in the YAML file at path. Keys absent from
// the file keep their environment value; an explicit zero or empty value is applied.
func (c *Config) MergeYAMLFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	merged := *c
	if err := yaml.Unmarshal(b, &merged); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	*c = merged
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "an LLM credential is required", ErrInvalidInput)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "gemini":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLM.Provider), ErrInvalidInput)
	}
	switch strings.ToLower(c.LLM.Charset) {
	case "", "utf-8", "utf8", "latin1", "iso-8859-1", "ascii":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LLM_CHARSET %q", c.LLM.Charset), ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI must be positive", ErrInvalidInput)
	}
	if c.Pipeline.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_WORKERS must be at least 1", ErrInvalidInput)
	}
	return nil
}
