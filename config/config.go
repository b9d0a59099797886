package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath    = "./config.yaml"
	defaultHost          = "0.0.0.0"
	defaultPort          = 5000
	defaultGinMode       = "release"
	defaultModelDir      = "./model"
	defaultModelFile     = "fake_news_cnn.bin"
	defaultTokenizerFile = "tokenizer.json"
	defaultMaxWords      = 10000
	defaultMaxLen        = 500
	defaultEmbeddingDim  = 128
	defaultFilters       = 128
	defaultKernelSize    = 5
	defaultDenseUnits    = 64
	defaultDropoutRate   = 0.5
	defaultFakeDataPath  = "./content/fake.csv"
	defaultTrueDataPath  = "./content/true.csv"
	defaultEpochs        = 10
	defaultBatchSize     = 64
	defaultValSplit      = 0.2
	defaultPatience      = 3
	defaultSeed          = 42
	defaultLearningRate  = 0.001
	defaultHistoryLimit  = 100
	defaultDBPath        = "./fake-news.db"
	defaultLogLevel      = "info"
	defaultTimeoutSecs   = 10
	defaultDigestTime    = "09:00"
	defaultTimezone      = "UTC"
)

var timeHHMM = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)

// Config defines all runtime configuration for the server and the trainer.
type Config struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`

	ModelDir      string `yaml:"model_dir"`
	ModelFile     string `yaml:"model_file"`
	TokenizerFile string `yaml:"tokenizer_file"`

	MaxWords     int     `yaml:"max_words"`
	MaxLen       int     `yaml:"max_len"`
	EmbeddingDim int     `yaml:"embedding_dim"`
	Filters      int     `yaml:"filters"`
	KernelSize   int     `yaml:"kernel_size"`
	DenseUnits   int     `yaml:"dense_units"`
	DropoutRate  float64 `yaml:"dropout_rate"`

	FakeDataPath    string  `yaml:"fake_data_path"`
	TrueDataPath    string  `yaml:"true_data_path"`
	Epochs          int     `yaml:"epochs"`
	BatchSize       int     `yaml:"batch_size"`
	ValidationSplit float64 `yaml:"validation_split"`
	Patience        int     `yaml:"patience"`
	Seed            uint64  `yaml:"seed"`
	LearningRate    float64 `yaml:"learning_rate"`
	Workers         int     `yaml:"workers"`

	HistoryLimit    int    `yaml:"history_limit"`
	DBPath          string `yaml:"db_path"`
	LogLevel        string `yaml:"log_level"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_secs"`

	TelegramToken string `yaml:"telegram_token"`
	ChatID        int64  `yaml:"chat_id"`
	DigestTime    string `yaml:"digest_time"`
	Timezone      string `yaml:"timezone"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Host:            defaultHost,
		Port:            defaultPort,
		GinMode:         defaultGinMode,
		ModelDir:        defaultModelDir,
		ModelFile:       defaultModelFile,
		TokenizerFile:   defaultTokenizerFile,
		MaxWords:        defaultMaxWords,
		MaxLen:          defaultMaxLen,
		EmbeddingDim:    defaultEmbeddingDim,
		Filters:         defaultFilters,
		KernelSize:      defaultKernelSize,
		DenseUnits:      defaultDenseUnits,
		DropoutRate:     defaultDropoutRate,
		FakeDataPath:    defaultFakeDataPath,
		TrueDataPath:    defaultTrueDataPath,
		Epochs:          defaultEpochs,
		BatchSize:       defaultBatchSize,
		ValidationSplit: defaultValSplit,
		Patience:        defaultPatience,
		Seed:            defaultSeed,
		LearningRate:    defaultLearningRate,
		HistoryLimit:    defaultHistoryLimit,
		DBPath:          defaultDBPath,
		LogLevel:        defaultLogLevel,
		FetchTimeoutSec: defaultTimeoutSecs,
		DigestTime:      defaultDigestTime,
		Timezone:        defaultTimezone,
	}
}

// Load reads .env if present, then the YAML file named by FAKENEWS_CONFIG or
// the default path. A missing default file means defaults only.
func Load() (Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("FAKENEWS_CONFIG")
	if path != "" {
		return LoadFrom(path)
	}
	cfg, err := LoadFrom(defaultConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		if err := cfg.applyEnv(); err != nil {
			return Config{}, err
		}
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	return cfg, err
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if override := os.Getenv("FAKENEWS_DB"); override != "" {
		c.DBPath = override
	}
	if override := os.Getenv("FAKENEWS_MODEL_DIR"); override != "" {
		c.ModelDir = override
	}
	if override := os.Getenv("TELEGRAM_BOT_TOKEN"); override != "" {
		c.TelegramToken = override
	}
	if override := os.Getenv("PORT"); override != "" {
		port, err := strconv.Atoi(override)
		if err != nil {
			return fmt.Errorf("PORT must be a number: %w", err)
		}
		c.Port = port
	}
	return nil
}

// Validate ensures configuration is complete and valid.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in [1,65535]: %d", c.Port)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("gin_mode must be debug, release or test: %s", c.GinMode)
	}
	if c.ModelDir == "" || c.ModelFile == "" || c.TokenizerFile == "" {
		return errors.New("model_dir, model_file and tokenizer_file must not be empty")
	}
	if c.MaxWords < 2 || c.MaxLen <= 0 || c.EmbeddingDim <= 0 || c.Filters <= 0 || c.DenseUnits <= 0 {
		return errors.New("network sizes must be positive")
	}
	if c.KernelSize <= 0 || c.KernelSize > c.MaxLen {
		return errors.New("kernel_size must be in [1,max_len]")
	}
	if c.DropoutRate < 0 || c.DropoutRate >= 1 {
		return errors.New("dropout_rate must be in [0,1)")
	}
	if c.Epochs <= 0 || c.BatchSize <= 0 {
		return errors.New("epochs and batch_size must be positive")
	}
	if c.ValidationSplit <= 0 || c.ValidationSplit >= 1 {
		return errors.New("validation_split must be in (0,1)")
	}
	if c.Patience < 0 || c.Workers < 0 {
		return errors.New("patience and workers must be non-negative")
	}
	if c.LearningRate <= 0 {
		return errors.New("learning_rate must be positive")
	}
	if c.HistoryLimit <= 0 {
		return errors.New("history_limit must be positive")
	}
	if c.FetchTimeoutSec <= 0 {
		return errors.New("fetch_timeout_secs must be positive")
	}
	if !timeHHMM.MatchString(c.DigestTime) {
		return fmt.Errorf("digest_time must be HH:MM in 24-hour format: %s", c.DigestTime)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone must be a valid IANA identifier: %w", err)
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ModelPath is the location of the network weights.
func (c Config) ModelPath() string {
	return filepath.Join(c.ModelDir, c.ModelFile)
}

// TokenizerPath is the location of the tokenizer artifact.
func (c Config) TokenizerPath() string {
	return filepath.Join(c.ModelDir, c.TokenizerFile)
}

// FetchTimeout is the article fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}
