package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/rulecard-match/internal/eval"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// Environment overrides.
const (
	EnvConfig = "RULEMATCH_CONFIG"
	EnvDB     = "RULEMATCH_DB"
	EnvAddr   = "RULEMATCH_ADDR"
)

// DefaultPath is read when neither a flag nor RULEMATCH_CONFIG names a file.
const DefaultPath = "rulematch.yaml"

// #region types
// Config holds rulematch configuration.
type Config struct {
	Corpus  CorpusConfig    `yaml:"corpus"`
	Match   match.Config    `yaml:"match"`
	Eval    eval.EvalConfig `yaml:"eval"`
	Store   StoreConfig     `yaml:"store"`
	Server  ServerConfig    `yaml:"server"`
	Logging LoggingConfig   `yaml:"logging"`
}

type CorpusConfig struct {
	Path          string                        `yaml:"path"`    // .jsonl or .yaml corpus
	Lenient       bool                          `yaml:"lenient"` // skip malformed records instead of failing
	TopicSections map[rulecard.Section][]string `yaml:"topic_sections"`
}

type StoreConfig struct {
	Path string `yaml:"path"` // SQLite file, ":memory:" for none on disk
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`        // gRPC listen address
	BatchLimit int    `yaml:"batch_limit"` // concurrent requests per batch
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// #endregion types

// #region load
// Load reads configuration from a YAML file on top of the defaults.
// If the file doesn't exist, it returns the default config and no error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Resolve picks the config path from flag, then RULEMATCH_CONFIG, then
// DefaultPath, loads it and applies the environment overrides.
func Resolve(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = envOr(EnvConfig, DefaultPath)
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// ApplyEnv overrides the store path and server address from the environment.
func ApplyEnv(cfg *Config) {
	cfg.Store.Path = envOr(EnvDB, cfg.Store.Path)
	cfg.Server.Addr = envOr(EnvAddr, cfg.Server.Addr)
}

func defaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Path:          "corpus/rulecards.jsonl",
			TopicSections: rulecard.DefaultTopicSections(),
		},
		Match: match.DefaultConfig(),
		Eval:  eval.DefaultEvalConfig(),
		Store: StoreConfig{
			Path: "rulematch.db",
		},
		Server: ServerConfig{
			Addr:       "localhost:50061",
			BatchLimit: 8,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if strings.TrimSpace(cfg.Corpus.Path) == "" {
		cfg.Corpus.Path = def.Corpus.Path
	}
	if len(cfg.Corpus.TopicSections) == 0 {
		cfg.Corpus.TopicSections = def.Corpus.TopicSections
	}
	if cfg.Match.TopN == nil {
		cfg.Match.TopN = def.Match.TopN
	}
	if cfg.Eval.MinCards == nil {
		cfg.Eval.MinCards = def.Eval.MinCards
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = def.Store.Path
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.BatchLimit == 0 {
		cfg.Server.BatchLimit = def.Server.BatchLimit
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// #endregion load

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
