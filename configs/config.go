package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose  bool   `mapstructure:"verbose"`
	LogLevel string `mapstructure:"log_level"`

	// HTTP API configuration
	Server ServerConfig `mapstructure:"server"`

	// Vector index configuration
	Qdrant QdrantConfig `mapstructure:"qdrant"`

	// Trained artifact locations
	Artifacts ArtifactConfig `mapstructure:"artifacts"`

	// Upload pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// QdrantConfig contains vector index connection settings
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
}

// ArtifactConfig locates the pre-fitted scaler and trained classifier.
// Both are produced externally and loaded read-only at startup.
type ArtifactConfig struct {
	ScalerPath string `mapstructure:"scaler_path"`
	ModelPath  string `mapstructure:"model_path"`
}

// PipelineConfig contains upload pipeline settings
type PipelineConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
	TopGenres      int `mapstructure:"top_genres"`
	TopSimilar     int `mapstructure:"top_similar"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port must be in (0, 65535]")
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if config.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant collection name is required")
	}

	if config.Artifacts.ScalerPath == "" || config.Artifacts.ModelPath == "" {
		return fmt.Errorf("scaler and model artifact paths are required")
	}

	if config.Pipeline.MaxConcurrency <= 0 {
		return fmt.Errorf("pipeline concurrency must be positive")
	}

	if config.Pipeline.TopGenres <= 0 || config.Pipeline.TopSimilar <= 0 {
		return fmt.Errorf("top-N settings must be positive")
	}

	return nil
}
