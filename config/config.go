package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the retrieval engine.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// StorageConfig groups the backing stores.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig describes the pgvector-backed chunk store connection.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DSN assembles a postgres connection string, preferring the explicit URL.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig describes the optional embedding cache.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if r.Enabled && (r.Host == "" || r.Port == "") {
		return fmt.Errorf("redis cache enabled but storage.redis.host/port not configured")
	}
	return nil
}

// EmbeddingConfig describes the external embedding provider.
type EmbeddingConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (e EmbeddingConfig) Validate() error {
	if e.Model == "" {
		return fmt.Errorf("embedding.model must be configured")
	}
	if e.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be > 0")
	}
	return nil
}

// RetrievalConfig tunes the search strategies and their merge.
type RetrievalConfig struct {
	// SemanticThreshold is the minimum cosine similarity for semantic hits.
	SemanticThreshold float64 `mapstructure:"semantic_threshold"`
	// KeywordSimilarity is the fixed score assigned to lexical hits, which have
	// no native similarity metric. Heuristic, subject to calibration.
	KeywordSimilarity float64 `mapstructure:"keyword_similarity"`
	// MaxVariations bounds how many query rephrasings get embedded per search.
	MaxVariations int `mapstructure:"max_variations"`
	// VariationTopK caps hits fetched per variation.
	VariationTopK int `mapstructure:"variation_top_k"`
	// DefaultLimit is the result cap used when callers pass none.
	DefaultLimit int `mapstructure:"default_limit"`
}

func (r RetrievalConfig) Validate() error {
	if r.SemanticThreshold < 0 || r.SemanticThreshold > 1 {
		return fmt.Errorf("retrieval.semantic_threshold must be within [0,1]")
	}
	if r.KeywordSimilarity < 0 || r.KeywordSimilarity > 1 {
		return fmt.Errorf("retrieval.keyword_similarity must be within [0,1]")
	}
	if r.MaxVariations < 0 {
		return fmt.Errorf("retrieval.max_variations must be >= 0")
	}
	if r.DefaultLimit <= 0 {
		return fmt.Errorf("retrieval.default_limit must be > 0")
	}
	return nil
}

// ChunkingConfig controls document segmentation at ingestion time.
type ChunkingConfig struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

func (c ChunkingConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("chunking.size must be > 0")
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("chunking.overlap must be within [0, size)")
	}
	return nil
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from the given path, or searches the usual
// locations when path is empty. Environment variables with the SANGGUNI prefix
// override file values. A missing config file is fine; defaults and env apply.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("server.address", ":10030")
	viper.SetDefault("storage.redis.ttl", "24h")
	viper.SetDefault("storage.redis.timeout", "5s")
	viper.SetDefault("embedding.base_url", "https://integrate.api.nvidia.com/v1")
	viper.SetDefault("embedding.model", "nvidia/nv-embedqa-e5-v5")
	viper.SetDefault("embedding.dimensions", 1024)
	viper.SetDefault("embedding.timeout", "30s")
	viper.SetDefault("retrieval.semantic_threshold", 0.3)
	viper.SetDefault("retrieval.keyword_similarity", 0.5)
	viper.SetDefault("retrieval.max_variations", 2)
	viper.SetDefault("retrieval.variation_top_k", 3)
	viper.SetDefault("retrieval.default_limit", 5)
	viper.SetDefault("chunking.size", 1000)
	viper.SetDefault("chunking.overlap", 200)
	viper.SetDefault("telemetry.enabled", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("SANGGUNI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Embedding.Validate(); err != nil {
		panic(err)
	}
	if err := config.Retrieval.Validate(); err != nil {
		panic(err)
	}
	if err := config.Chunking.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	return &config
}
