package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultIndicator is the path segment that marks where virtual paths begin.
const DefaultIndicator = "notesy"

// Backend names accepted by VectorConfig.Backend.
const (
	BackendSQLiteVec = "sqlitevec"
	BackendMemory    = "memory"
	BackendQdrant    = "qdrant"
	BackendPgVector  = "pgvector"
)

// Config holds all configuration for the application.
// It is built once per run by Load (or directly in tests) and passed to constructors.
type Config struct {
	General   GeneralConfig          `yaml:"general"`
	Vaults    map[string]VaultConfig `yaml:"vaults"`
	DBPath    string                 `yaml:"db_path"`
	APIPort   string                 `yaml:"api_port"`
	Scan      ScanConfig             `yaml:"scan"`
	Embedding EmbeddingConfig        `yaml:"embedding"`
	Vector    VectorConfig           `yaml:"vector"`
	Search    SearchConfig           `yaml:"search"`

	LogLevel  slog.Level `yaml:"-"`
	LogFormat string     `yaml:"-"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	Indicator string `yaml:"indicator"`
}

// VaultConfig describes a single vault. A vault may span several roots.
type VaultConfig struct {
	Paths   []string `yaml:"paths"`
	Default bool     `yaml:"default"`
}

// ScanConfig controls the vault scanner.
type ScanConfig struct {
	Workers int `yaml:"workers"`
}

// EmbeddingConfig configures the embeddings server and the embedding table.
type EmbeddingConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	Dimension     int    `yaml:"dimension"`
	TablePrefix   string `yaml:"table_prefix"`
	Table         string `yaml:"table"`
	MaxInputRunes int    `yaml:"max_input_runes"`
	Workers       int    `yaml:"workers"`
}

// TableName returns the prefixed embedding table name.
func (c EmbeddingConfig) TableName() string {
	return c.TablePrefix + c.Table
}

// VectorConfig selects and tunes the vector backend.
type VectorConfig struct {
	Backend       string  `yaml:"backend"`
	Path          string  `yaml:"path"`
	QdrantURL     string  `yaml:"qdrant_url"`
	PostgresDSN   string  `yaml:"postgres_dsn"`
	Metric        string  `yaml:"metric"`
	ProbeRatio    float64 `yaml:"probe_ratio"`
	MinPartitions int     `yaml:"min_partitions"`
	MaxPartitions int     `yaml:"max_partitions"`
	MinProbes     int     `yaml:"min_probes"`
	MaxProbes     int     `yaml:"max_probes"`
	EfConstruct   int     `yaml:"ef_construction"`
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	Threshold     float64 `yaml:"threshold"`
	MaxResults    int     `yaml:"max_results"`
	Overfetch     float64 `yaml:"overfetch"`
	SnippetLength int     `yaml:"snippet_length"`
}

// Load reads configuration from the YAML config file and environment variables and returns a Config struct.
// If a .env file exists in the current directory or a parent directory, it will be loaded automatically.
// Environment variables already set take precedence over .env file values, and over the YAML file.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{}
	path := getEnv("VAULTINDEX_CONFIG", "vaultindex.yaml")
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create the data directory if it doesn't exist
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// LoadFile parses a YAML config file and applies defaults, without consulting the environment.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		// Environment-only configuration
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.APIPort = getEnv("API_PORT", c.APIPort)
	c.General.Indicator = getEnv("INDICATOR", c.General.Indicator)
	c.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Model = getEnv("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", c.Embedding.APIKey)
	c.Vector.Backend = getEnv("VECTOR_BACKEND", c.Vector.Backend)
	c.Vector.QdrantURL = getEnv("QDRANT_URL", c.Vector.QdrantURL)
	c.Vector.PostgresDSN = getEnv("POSTGRES_DSN", c.Vector.PostgresDSN)
	c.LogFormat = getEnv("LOG_FORMAT", "text")

	if dimStr := os.Getenv("EMBEDDING_DIMENSION"); dimStr != "" {
		dim, err := strconv.Atoi(dimStr)
		if err != nil {
			return fmt.Errorf("EMBEDDING_DIMENSION must be a valid integer: %w", err)
		}
		c.Embedding.Dimension = dim
	}

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if err := c.LogLevel.UnmarshalText([]byte(strings.ToUpper(levelStr))); err != nil {
			return fmt.Errorf("LOG_LEVEL is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.General.Indicator == "" {
		c.General.Indicator = DefaultIndicator
	}
	if c.DBPath == "" {
		c.DBPath = "./data/vaultindex.db"
	}
	if c.APIPort == "" {
		c.APIPort = "9000"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = runtime.NumCPU()
	}

	e := &c.Embedding
	if e.BaseURL == "" {
		e.BaseURL = "http://localhost:8081"
	}
	if e.Model == "" {
		e.Model = "all-MiniLM-L6-v2"
	}
	if e.Dimension == 0 {
		e.Dimension = 384
	}
	if e.TablePrefix == "" {
		e.TablePrefix = "vaultindex_"
	}
	if e.Table == "" {
		e.Table = "documents"
	}
	if e.MaxInputRunes <= 0 {
		e.MaxInputRunes = 8000
	}
	if e.Workers <= 0 {
		e.Workers = 4
	}

	v := &c.Vector
	if v.Backend == "" {
		v.Backend = BackendSQLiteVec
	}
	if v.Path == "" {
		v.Path = filepath.Join(filepath.Dir(c.DBPath), "embeddings.db")
	}
	if v.QdrantURL == "" {
		v.QdrantURL = "http://localhost:6333"
	}
	if v.Metric == "" {
		v.Metric = "cosine"
	}
	if v.ProbeRatio == 0 {
		v.ProbeRatio = 0.10
	}
	if v.MinPartitions == 0 {
		v.MinPartitions = 10
	}
	if v.MaxPartitions == 0 {
		v.MaxPartitions = 1000
	}
	if v.MinProbes == 0 {
		v.MinProbes = 10
	}
	if v.MaxProbes == 0 {
		v.MaxProbes = 100
	}
	if v.EfConstruct == 0 {
		v.EfConstruct = 800
	}

	s := &c.Search
	if s.Threshold == 0 {
		s.Threshold = 0.1
	}
	if s.MaxResults == 0 {
		s.MaxResults = 20
	}
	if s.Overfetch == 0 {
		s.Overfetch = 1.5
	}
	if s.SnippetLength == 0 {
		s.SnippetLength = 200
	}
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if len(c.Vaults) == 0 {
		return fmt.Errorf("at least one vault must be configured")
	}
	for name, v := range c.Vaults {
		if len(v.Paths) == 0 {
			return fmt.Errorf("vault %s has no paths", name)
		}
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be greater than 0")
	}
	switch c.Vector.Backend {
	case BackendSQLiteVec, BackendMemory, BackendQdrant, BackendPgVector:
	default:
		return fmt.Errorf("unknown vector backend %q", c.Vector.Backend)
	}
	if c.Vector.Backend == BackendPgVector && c.Vector.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for the pgvector backend")
	}
	if c.Vector.ProbeRatio <= 0 || c.Vector.ProbeRatio > 1 {
		return fmt.Errorf("vector probe_ratio must be in (0, 1], got %v", c.Vector.ProbeRatio)
	}
	if c.Vector.MinPartitions > c.Vector.MaxPartitions {
		return fmt.Errorf("vector min_partitions (%d) exceeds max_partitions (%d)", c.Vector.MinPartitions, c.Vector.MaxPartitions)
	}
	if c.Search.Overfetch < 1 {
		return fmt.Errorf("search overfetch must be at least 1, got %v", c.Search.Overfetch)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
