package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Chunk      ChunkConfig      `yaml:"chunk" mapstructure:"chunk"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Query      QueryConfig      `yaml:"query" mapstructure:"query"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// ChunkConfig sizes chunks in embedding tokens.
type ChunkConfig struct {
	TokenBudget   int `yaml:"token_budget" mapstructure:"token_budget"`
	OverlapTokens int `yaml:"overlap_tokens" mapstructure:"overlap_tokens"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RulesPath   string `yaml:"rules_path" mapstructure:"rules_path"`
}

// QueryConfig configures answering.
type QueryConfig struct {
	MaxCandidates int    `yaml:"max_candidates" mapstructure:"max_candidates"`
	WebResults    int    `yaml:"web_results" mapstructure:"web_results"`
	Fallback      string `yaml:"fallback" mapstructure:"fallback"` // "none", "perplexity" or "anthropic"
}

// GoogleConfig holds Google Custom Search settings.
type GoogleConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	CX         string  `yaml:"cx" mapstructure:"cx"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_key" mapstructure:"mistral_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// RetryConfig configures retries of outbound calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the fallback circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// Run modes checked by Validate.
const (
	ModeIngest = "ingest"
	ModeQuery  = "query"
	ModeServe  = "serve"
	ModeExport = "export"
)

// Fallback answerers.
const (
	FallbackNone       = "none"
	FallbackPerplexity = "perplexity"
	FallbackAnthropic  = "anthropic"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key gets one so AutomaticEnv can override it.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "nemo.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("chunk.token_budget", 1000)
	v.SetDefault("chunk.overlap_tokens", 200)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.user_agent", "nemo-ingest/1.0")
	v.SetDefault("ingest.timeout_secs", 60)
	v.SetDefault("ingest.rules_path", "")
	v.SetDefault("query.max_candidates", 5)
	v.SetDefault("query.web_results", 0)
	v.SetDefault("query.fallback", FallbackNone)
	v.SetDefault("google.key", "")
	v.SetDefault("google.cx", "")
	v.SetDefault("google.base_url", "https://www.googleapis.com")
	v.SetDefault("google.rate_per_sec", 1.0)
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_key", "")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)

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

// Validate checks the settings the given run mode depends on. All problems
// are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeIngest, ModeQuery, ModeServe, ModeExport:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case ModeIngest, ModeServe:
		if c.Ingest.Concurrency < 1 || c.Ingest.Concurrency > 64 {
			errs = append(errs, "ingest.concurrency must be between 1 and 64")
		}
		if c.OCR.Provider == "mistral" && c.OCR.MistralKey == "" {
			errs = append(errs, "ocr.mistral_key is required for the mistral provider")
		}
	}

	if mode == ModeQuery || mode == ModeServe {
		if c.Query.MaxCandidates < 1 {
			errs = append(errs, "query.max_candidates must be > 0")
		}
		if c.Query.WebResults > 0 && (c.Google.Key == "" || c.Google.CX == "") {
			errs = append(errs, "google.key and google.cx are required when query.web_results > 0")
		}
		switch c.Query.Fallback {
		case "", FallbackNone:
		case FallbackPerplexity:
			if c.Perplexity.Key == "" {
				errs = append(errs, "perplexity.key is required for the perplexity fallback")
			}
		case FallbackAnthropic:
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required for the anthropic fallback")
			}
		default:
			errs = append(errs, fmt.Sprintf("query.fallback %q is not none, perplexity or anthropic", c.Query.Fallback))
		}
	}

	if mode == ModeServe && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be > 0 and <= 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
