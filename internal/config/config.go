package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Cache     Cache     `mapstructure:"cache"`
	Social    Social    `mapstructure:"social"`
	Sentiment Sentiment `mapstructure:"sentiment"`
	Document  Document  `mapstructure:"document"`
	Scoring   Scoring   `mapstructure:"scoring"`
	Scores    Scores    `mapstructure:"scores"`
	Server    Server    `mapstructure:"server"`
	Logging   Logging   `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// Cache holds evidence cache configuration
type Cache struct {
	Directory string `mapstructure:"directory"`
	Backend   string `mapstructure:"backend"` // file, sqlite or memory
	Version   string `mapstructure:"version"` // Bump to invalidate every cached entry
}

// Social holds social evidence fetcher configuration
type Social struct {
	Provider  string        `mapstructure:"provider"` // reddit or mock
	Limit     int           `mapstructure:"limit"`
	Timeout   string        `mapstructure:"timeout"`
	RateLimit string        `mapstructure:"rate_limit"`
	Reddit    RedditConfig  `mapstructure:"reddit"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// RedditConfig holds Reddit API credentials and endpoints
type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	UserAgent    string `mapstructure:"user_agent"`
	Subreddit    string `mapstructure:"subreddit"`
	BaseURL      string `mapstructure:"base_url"`
	TokenURL     string `mapstructure:"token_url"`
}

// BreakerConfig holds circuit breaker settings for the social API
type BreakerConfig struct {
	MaxFailures uint32 `mapstructure:"max_failures"`
	Cooldown    string `mapstructure:"cooldown"`
}

// Sentiment holds sentiment scoring configuration
type Sentiment struct {
	Provider     string            `mapstructure:"provider"` // gemini, huggingface or lexicon
	BatchSize    int               `mapstructure:"batch_size"`
	MaxChars     int               `mapstructure:"max_chars"`
	Timeout      string            `mapstructure:"timeout"`
	SocialCaps   CapConfig         `mapstructure:"social_caps"`
	DocumentCaps CapConfig         `mapstructure:"document_caps"`
	Gemini       GeminiConfig      `mapstructure:"gemini"`
	HuggingFace  HuggingFaceConfig `mapstructure:"huggingface"`
}

// CapConfig holds the asymmetric contribution caps for one evidence source
type CapConfig struct {
	PositiveMultiplier float64 `mapstructure:"positive_multiplier"`
	PositiveCap        float64 `mapstructure:"positive_cap"`
	NegativeMultiplier float64 `mapstructure:"negative_multiplier"`
	NegativeCap        float64 `mapstructure:"negative_cap"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// HuggingFaceConfig holds Hugging Face inference API configuration
type HuggingFaceConfig struct {
	APIToken string `mapstructure:"api_token"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

// Document holds report extraction configuration
type Document struct {
	Keywords      []string `mapstructure:"keywords"`
	ReportsDir    string   `mapstructure:"reports_dir"`
	ReportPattern string   `mapstructure:"report_pattern"` // %s is replaced by the manufacturer
}

// Scoring holds score fusion configuration
type Scoring struct {
	PDFWeight    float64 `mapstructure:"pdf_weight"`
	SocialWeight float64 `mapstructure:"social_weight"`
}

// Scores holds the base-score table location
type Scores struct {
	Path        string `mapstructure:"path"`
	DefaultYear int    `mapstructure:"default_year"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORS         CORSConfig    `mapstructure:"cors"`
	AdminAPIKey  string        `mapstructure:"admin_api_key"` // Guards cache invalidation when set
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DefaultKeywords is the keyword list used to keep report paragraphs.
var DefaultKeywords = []string{
	"sustainability", "carbon", "emissions", "initiatives", "resource",
	"responsible", "electric", "recycle", "renewable", "impact",
	"decarbonisation", "ev",
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".carbonlens")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".carbonlens")

	viper.SetDefault("cache.directory", ".carbonlens/cache")
	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("cache.version", "v3")

	viper.SetDefault("social.provider", "reddit")
	viper.SetDefault("social.limit", 50)
	viper.SetDefault("social.timeout", "15s")
	viper.SetDefault("social.rate_limit", "1s")
	viper.SetDefault("social.reddit.user_agent", "CarbonLens/1.0")
	viper.SetDefault("social.reddit.subreddit", "all")
	viper.SetDefault("social.reddit.base_url", "https://oauth.reddit.com")
	viper.SetDefault("social.reddit.token_url", "https://www.reddit.com/api/v1/access_token")
	viper.SetDefault("social.breaker.max_failures", 3)
	viper.SetDefault("social.breaker.cooldown", "30s")

	viper.SetDefault("sentiment.provider", "huggingface")
	viper.SetDefault("sentiment.batch_size", 16)
	viper.SetDefault("sentiment.max_chars", 512)
	viper.SetDefault("sentiment.timeout", "60s")
	viper.SetDefault("sentiment.social_caps.positive_multiplier", 1.5)
	viper.SetDefault("sentiment.social_caps.positive_cap", 1.5)
	viper.SetDefault("sentiment.social_caps.negative_multiplier", 1.2)
	viper.SetDefault("sentiment.social_caps.negative_cap", 1.2)
	viper.SetDefault("sentiment.document_caps.positive_multiplier", 3.0)
	viper.SetDefault("sentiment.document_caps.positive_cap", 3.0)
	viper.SetDefault("sentiment.document_caps.negative_multiplier", 2.4)
	viper.SetDefault("sentiment.document_caps.negative_cap", 2.4)
	viper.SetDefault("sentiment.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("sentiment.huggingface.model", "distilbert-base-uncased-finetuned-sst-2-english")
	viper.SetDefault("sentiment.huggingface.base_url", "https://api-inference.huggingface.co/models")

	viper.SetDefault("document.keywords", DefaultKeywords)
	viper.SetDefault("document.reports_dir", "sustainability_reports")
	viper.SetDefault("document.report_pattern", "%s Sustainability Report.pdf")

	viper.SetDefault("scoring.pdf_weight", 0.6)
	viper.SetDefault("scoring.social_weight", 0.4)

	viper.SetDefault("scores.path", "data/aggregated_scores.csv")
	viper.SetDefault("scores.default_year", 2024)

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "5m")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"http://localhost:8501"})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stderr")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("social.reddit.client_id", []string{
		"REDDIT_CLIENT_ID",
	})

	bindEnvKeys("social.reddit.client_secret", []string{
		"REDDIT_CLIENT_SECRET",
	})

	bindEnvKeys("social.reddit.user_agent", []string{
		"REDDIT_USER_AGENT",
	})

	bindEnvKeys("sentiment.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("sentiment.huggingface.api_token", []string{
		"HUGGINGFACE_API_TOKEN",
		"HF_TOKEN",
	})

	bindEnvKeys("sentiment.provider", []string{
		"SENTIMENT_PROVIDER",
	})

	bindEnvKeys("cache.version", []string{
		"CARBONLENS_CACHE_VERSION",
	})

	bindEnvKeys("server.admin_api_key", []string{
		"CARBONLENS_ADMIN_API_KEY",
		"ADMIN_API_KEY",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"CARBONLENS_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.Cache.Directory != "" {
		config.Cache.Directory = expandPath(config.Cache.Directory)
	}
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Scores.Path != "" {
		config.Scores.Path = expandPath(config.Scores.Path)
	}
	if config.Document.ReportsDir != "" {
		config.Document.ReportsDir = expandPath(config.Document.ReportsDir)
	}

	keywords := make([]string, 0, len(config.Document.Keywords))
	for _, kw := range config.Document.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	config.Document.Keywords = keywords

	durations := map[string]string{
		"social.timeout":          config.Social.Timeout,
		"social.rate_limit":       config.Social.RateLimit,
		"social.breaker.cooldown": config.Social.Breaker.Cooldown,
		"sentiment.timeout":       config.Sentiment.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures the configuration is internally consistent
func validateConfig(config *Config) error {
	var errors []string

	if config.Cache.Version == "" {
		errors = append(errors, "cache.version must not be empty")
	}
	switch config.Cache.Backend {
	case "file", "sqlite", "memory":
	default:
		errors = append(errors, fmt.Sprintf("Unknown cache backend: %s. Supported: file, sqlite, memory", config.Cache.Backend))
	}

	switch config.Social.Provider {
	case "reddit", "mock":
	default:
		errors = append(errors, fmt.Sprintf("Unknown social provider: %s. Supported: reddit, mock", config.Social.Provider))
	}

	switch config.Sentiment.Provider {
	case "gemini", "huggingface", "lexicon":
	default:
		errors = append(errors, fmt.Sprintf("Unknown sentiment provider: %s. Supported: gemini, huggingface, lexicon", config.Sentiment.Provider))
	}

	if config.Sentiment.BatchSize <= 0 {
		errors = append(errors, "sentiment.batch_size must be positive")
	}
	if config.Sentiment.MaxChars <= 0 {
		errors = append(errors, "sentiment.max_chars must be positive")
	}

	for name, caps := range map[string]CapConfig{
		"social_caps":   config.Sentiment.SocialCaps,
		"document_caps": config.Sentiment.DocumentCaps,
	} {
		if caps.PositiveMultiplier <= 0 || caps.PositiveCap <= 0 || caps.NegativeMultiplier <= 0 || caps.NegativeCap <= 0 {
			errors = append(errors, fmt.Sprintf("sentiment.%s values must all be positive", name))
		}
	}

	if config.Scoring.PDFWeight < 0 || config.Scoring.SocialWeight < 0 {
		errors = append(errors, "scoring weights must not be negative")
	}
	if math.Abs(config.Scoring.PDFWeight+config.Scoring.SocialWeight-1) > 1e-9 {
		errors = append(errors, fmt.Sprintf("scoring.pdf_weight + scoring.social_weight must equal 1, got %.3f", config.Scoring.PDFWeight+config.Scoring.SocialWeight))
	}

	if len(config.Document.Keywords) == 0 {
		errors = append(errors, "document.keywords must contain at least one keyword")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ParseDuration parses a duration string, returning fallback when empty or invalid.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// HasCredentials reports whether the client id and secret are set to
// something other than empty or placeholder values
func (r RedditConfig) HasCredentials() bool {
	return isValidAPIKey(r.ClientID) && isValidAPIKey(r.ClientSecret)
}

// LogLevel returns the configured log level, forced to debug when app.debug is set
func (c *Config) LogLevel() string {
	if c.App.Debug {
		return "debug"
	}
	return c.Logging.Level
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-client-id", "your-client-secret",
		"YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// ReportPath returns the default sustainability report location for a
// manufacturer, or "" when no reports directory is configured.
func (d Document) ReportPath(manufacturer string) string {
	if d.ReportsDir == "" || d.ReportPattern == "" {
		return ""
	}
	return filepath.Join(d.ReportsDir, fmt.Sprintf(d.ReportPattern, manufacturer))
}
