package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultOpenAIModel = "gpt-4o-mini"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the formfill server
type Config struct {
	// Server configuration
	Host string
	Port int

	// PDF configuration
	TemplateDir string

	// Storage configuration; empty DatabaseURL selects the in-memory store
	// and empty RedisURL selects the in-process locker
	DatabaseURL string
	RedisURL    string

	// Auth configuration
	JWTSecret string

	// Intake configuration; empty OpenAIAPIKey disables intake
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		TemplateDir: filepath.Join(currentDir, "templates"),
		OpenAIModel: DefaultOpenAIModel,
		Version:     "1.0.0",
		ServerName:  "formfill-server",
		LogLevel:    DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.TemplateDir != "" {
		if expandedPath, err := filepath.Abs(cfg.TemplateDir); err == nil {
			cfg.TemplateDir = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("FORMFILL")
	viper.AutomaticEnv()

	// Define flags with Viper
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("templates", cfg.TemplateDir)
	viper.SetDefault("database_url", cfg.DatabaseURL)
	viper.SetDefault("redis_url", cfg.RedisURL)
	viper.SetDefault("jwt_secret", cfg.JWTSecret)
	viper.SetDefault("openai_api_key", cfg.OpenAIAPIKey)
	viper.SetDefault("openai_base_url", cfg.OpenAIBaseURL)
	viper.SetDefault("openai_model", cfg.OpenAIModel)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("host", cfg.Host, "Server host address")
	pflag.Int("port", cfg.Port, "Server port")
	pflag.String("templates", cfg.TemplateDir, "Directory containing blank form template PDFs")
	pflag.String("database-url", cfg.DatabaseURL, "Postgres connection URL (empty uses the in-memory store)")
	pflag.String("redis-url", cfg.RedisURL, "Redis URL for draft locking (empty uses in-process locks)")
	pflag.String("jwt-secret", cfg.JWTSecret, "Secret for signing session tokens")
	pflag.String("openai-model", cfg.OpenAIModel, "Model for narrative intake")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("templates", pflag.Lookup("templates"))
	_ = viper.BindPFlag("database_url", pflag.Lookup("database-url"))
	_ = viper.BindPFlag("redis_url", pflag.Lookup("redis-url"))
	_ = viper.BindPFlag("jwt_secret", pflag.Lookup("jwt-secret"))
	_ = viper.BindPFlag("openai_model", pflag.Lookup("openai-model"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nFormfill - immigration form drafting and PDF generation service\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --templates=/srv/forms                    # in-memory store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --database-url=postgres://... --redis-url=redis://...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_HOST             Server host\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_PORT             Server port\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_TEMPLATES        Template PDF directory\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_DATABASE_URL     Postgres connection URL\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_REDIS_URL        Redis URL for draft locking\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_JWT_SECRET       Session token signing secret\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_OPENAI_API_KEY   OpenAI API key for narrative intake\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_OPENAI_BASE_URL  OpenAI-compatible endpoint override\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_OPENAI_MODEL     Model for narrative intake\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_LOGLEVEL         Log level\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplateDir = viper.GetString("templates")
	cfg.DatabaseURL = viper.GetString("database_url")
	cfg.RedisURL = viper.GetString("redis_url")
	cfg.JWTSecret = viper.GetString("jwt_secret")
	cfg.OpenAIAPIKey = viper.GetString("openai_api_key")
	cfg.OpenAIBaseURL = viper.GetString("openai_base_url")
	cfg.OpenAIModel = viper.GetString("openai_model")
	cfg.LogLevel = viper.GetString("loglevel")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate port range
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate template directory
	if c.TemplateDir == "" {
		return errors.New("template directory cannot be empty")
	}

	// Check if template directory exists, create if it doesn't
	if _, err := os.Stat(c.TemplateDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.TemplateDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create template directory %s: %w", c.TemplateDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access template directory %s: %w", c.TemplateDir, err)
	}

	// Sessions are unverifiable without a signing secret
	if c.JWTSecret == "" {
		return errors.New("JWT secret cannot be empty")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// UsePostgres reports whether a Postgres store was configured
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// UseRedisLocks reports whether Redis-backed draft locking was configured
func (c *Config) UseRedisLocks() bool {
	return c.RedisURL != ""
}

// String returns a string representation of the configuration without secrets
func (c *Config) String() string {
	return fmt.Sprintf("Config{Host: %s, Port: %d, TemplateDir: %s, Postgres: %t, RedisLocks: %t, Intake: %t, LogLevel: %s}",
		c.Host, c.Port, c.TemplateDir, c.UsePostgres(), c.UseRedisLocks(), c.OpenAIAPIKey != "", c.LogLevel)
}
