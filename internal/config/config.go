// Package config provides configuration for the chat service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/taleemedge/chatbot/internal/adapter/llm"
)

// Config holds the chat service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Oracle settings
	OracleProvider string
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	OracleTimeout  time.Duration
	Ark            llm.ArkConfig

	// AuthAPIKey, when set, must accompany every chat request as a bearer token.
	AuthAPIKey string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadDotEnv reads variables from the given files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// fileConfig is the optional TOML file named by CONFIG_FILE. Its values
// replace the built-in defaults; environment variables still win.
type fileConfig struct {
	HTTPPort    int    `toml:"http_port"`
	DatabaseURL string `toml:"database_url"`
	Oracle      struct {
		Provider  string `toml:"provider"`
		BaseURL   string `toml:"base_url"`
		Model     string `toml:"model"`
		TimeoutMS *int   `toml:"timeout_ms"`
	} `toml:"oracle"`
	Ark struct {
		BaseURL string `toml:"base_url"`
		Region  string `toml:"region"`
		Model   string `toml:"model"`
	} `toml:"ark"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func defaultFileConfig() fileConfig {
	var f fileConfig
	f.HTTPPort = 8080
	f.DatabaseURL = "file:chatbot.db?cache=shared&mode=rwc&_busy_timeout=5000"
	f.Oracle.Provider = llm.ProviderOpenAI
	f.Oracle.BaseURL = "http://localhost:4000"
	f.Oracle.Model = "gemini-1.5-flash"
	timeout := 60000
	f.Oracle.TimeoutMS = &timeout
	f.Ark.BaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	f.Ark.Region = "cn-beijing"
	f.Log.Level = "info"
	f.Log.Format = "text"
	return f
}

// Load loads configuration from environment variables.
func Load() *Config {
	return fromEnv(defaultFileConfig())
}

// LoadFile reads defaults from a TOML file and then applies environment
// variables on top. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	f := defaultFileConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return fromEnv(f), nil
}

func fromEnv(f fileConfig) *Config {
	timeoutMS := 0
	if f.Oracle.TimeoutMS != nil {
		timeoutMS = *f.Oracle.TimeoutMS
	}
	cfg := &Config{
		HTTPPort:       getEnvInt("HTTP_PORT", f.HTTPPort),
		DatabaseURL:    getEnv("DATABASE_URL", f.DatabaseURL),
		OracleProvider: strings.ToLower(getEnv("ORACLE_PROVIDER", f.Oracle.Provider)),
		LLMBaseURL:     getEnv("LLM_BASE_URL", f.Oracle.BaseURL),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", f.Oracle.Model),
		OracleTimeout:  time.Duration(getEnvInt("ORACLE_TIMEOUT_MS", timeoutMS)) * time.Millisecond,
		Ark: llm.ArkConfig{
			BaseURL:     getEnv("ARK_BASE_URL", f.Ark.BaseURL),
			Region:      getEnv("ARK_REGION", f.Ark.Region),
			APIKey:      getEnv("ARK_API_KEY", ""),
			AccessKey:   getEnv("ARK_ACCESS_KEY", ""),
			SecretKey:   getEnv("ARK_SECRET_KEY", ""),
			Model:       getEnv("ARK_MODEL", f.Ark.Model),
			Temperature: getEnvFloat32Ptr("ARK_TEMPERATURE"),
			TopP:        getEnvFloat32Ptr("ARK_TOP_P"),
			MaxTokens:   getEnvIntPtr("ARK_MAX_TOKENS"),
		},
		AuthAPIKey: getEnv("AUTH_API_KEY", ""),
		LogLevel:   getEnv("LOG_LEVEL", f.Log.Level),
		LogFormat:  getEnv("LOG_FORMAT", f.Log.Format),
	}
	if cfg.OracleTimeout < 0 {
		cfg.OracleTimeout = 0
	}
	return cfg
}

// LLMOptions returns the backend selection for llm.NewLLMClient.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Provider: c.OracleProvider,
		BaseURL:  c.LLMBaseURL,
		APIKey:   c.LLMAPIKey,
		Timeout:  c.OracleTimeout,
		Ark:      c.Ark,
	}
}

// ModelName is the model reported to the oracle for the selected provider.
func (c *Config) ModelName() string {
	if c.OracleProvider == llm.ProviderArk {
		return c.Ark.Model
	}
	return c.LLMModel
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvIntPtr(key string) *int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return &intVal
		}
	}
	return nil
}

func getEnvFloat32Ptr(key string) *float32 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if f, err := strconv.ParseFloat(val, 32); err == nil {
			f32 := float32(f)
			return &f32
		}
	}
	return nil
}
