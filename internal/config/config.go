// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DataConfig configures local artifact storage.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// OCRConfig configures the OCR extraction strategy.
type OCRConfig struct {
	MistralKey   string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// ExtractionConfig configures the PDF extraction fallback chain.
type ExtractionConfig struct {
	PdfToTextPath      string  `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MinChars           int     `yaml:"min_chars" mapstructure:"min_chars"`
	MinCharsPerPage    int     `yaml:"min_chars_per_page" mapstructure:"min_chars_per_page"`
	MinCharsOCR        int     `yaml:"min_chars_ocr" mapstructure:"min_chars_ocr"`
	MinCharsPerPageOCR int     `yaml:"min_chars_per_page_ocr" mapstructure:"min_chars_per_page_ocr"`
	GarbleRatio        float64 `yaml:"garble_ratio" mapstructure:"garble_ratio"`
	GarbleRatioOCR     float64 `yaml:"garble_ratio_ocr" mapstructure:"garble_ratio_ocr"`
	MinWordRatio       float64 `yaml:"min_word_ratio" mapstructure:"min_word_ratio"`
	MaxPages           int     `yaml:"max_pages" mapstructure:"max_pages"`
	MaxPagesOCR        int     `yaml:"max_pages_ocr" mapstructure:"max_pages_ocr"`
	// OCRFallbackMode decides what happens when OCR output itself fails
	// validation: "fail" rejects the document, "best-effort" accepts the
	// OCR text anyway.
	OCRFallbackMode string `yaml:"ocr_fallback_mode" mapstructure:"ocr_fallback_mode"`
	Workers         int    `yaml:"workers" mapstructure:"workers"`
}

// AnalysisConfig configures the chunk-and-synthesize analysis workflow.
type AnalysisConfig struct {
	MinTextLength int `yaml:"min_text_length" mapstructure:"min_text_length"`
	MaxCallChars  int `yaml:"max_call_chars" mapstructure:"max_call_chars"`
	ChunkOverlap  int `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	MaxChunks     int `yaml:"max_chunks" mapstructure:"max_chunks"`
	TimeoutSecs   int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PipelineConfig configures orchestration behavior.
type PipelineConfig struct {
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FILING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/state.db")
	v.SetDefault("data.dir", "data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.requests_per_minute", 10)
	v.SetDefault("ocr.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("extraction.pdftotext_path", "pdftotext")
	v.SetDefault("extraction.min_chars", 100)
	v.SetDefault("extraction.min_chars_per_page", 50)
	v.SetDefault("extraction.min_chars_ocr", 50)
	v.SetDefault("extraction.min_chars_per_page_ocr", 25)
	v.SetDefault("extraction.garble_ratio", 0.05)
	v.SetDefault("extraction.garble_ratio_ocr", 0.10)
	v.SetDefault("extraction.min_word_ratio", 0.50)
	v.SetDefault("extraction.max_pages", 500)
	v.SetDefault("extraction.max_pages_ocr", 50)
	v.SetDefault("extraction.ocr_fallback_mode", "fail")
	v.SetDefault("extraction.workers", 4)
	v.SetDefault("analysis.min_text_length", 100)
	v.SetDefault("analysis.max_call_chars", 150000)
	v.SetDefault("analysis.chunk_overlap", 2000)
	v.SetDefault("analysis.max_chunks", 8)
	v.SetDefault("analysis.timeout_secs", 300)
	v.SetDefault("pipeline.max_retries", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
