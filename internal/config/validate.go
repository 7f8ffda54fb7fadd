package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Validate checks the loaded config for required fields and safe values.
// A failure here is fatal at startup: the process must not serve requests.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Corpus.Path) == "" {
		return errors.New("corpus.path must be set")
	}
	for sec := range cfg.Corpus.TopicSections {
		if !sec.Valid() {
			return fmt.Errorf("corpus.topic_sections: unknown section %q", sec)
		}
	}

	if err := cfg.Match.Validate(); err != nil {
		return fmt.Errorf("match: %w", err)
	}

	for sec, n := range cfg.Eval.MinCards {
		if !sec.Valid() {
			return fmt.Errorf("eval.min_cards: unknown section %q", sec)
		}
		if n < 0 {
			return fmt.Errorf("eval.min_cards.%s must not be negative", sec)
		}
		if top := cfg.Match.TopN[sec]; n > top {
			return fmt.Errorf("eval.min_cards.%s (%d) exceeds match.top_n.%s (%d)", sec, n, sec, top)
		}
	}
	if cfg.Eval.MinAvgScore < 0 {
		return errors.New("eval.min_avg_score must not be negative")
	}

	if strings.TrimSpace(cfg.Store.Path) == "" {
		return errors.New("store.path must be set")
	}

	if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		return fmt.Errorf("server.addr %q invalid: %w", cfg.Server.Addr, err)
	}
	if cfg.Server.BatchLimit < 1 {
		return fmt.Errorf("server.batch_limit must be positive, got %d", cfg.Server.BatchLimit)
	}

	if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
