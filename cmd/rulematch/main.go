package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/rulecard-match/internal/config"
	"github.com/danielpatrickdp/rulecard-match/internal/index"
	"github.com/danielpatrickdp/rulecard-match/internal/logging"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rulematch",
	Short: "Rule-card retrieval and ranking engine",
	Long: `rulematch ranks a curated corpus of rule cards against a subject's
derived feature set and returns, per report section, the top cards with
their score breakdown and the triggers that fired.

Configuration is read from --config, $RULEMATCH_CONFIG or ./rulematch.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Resolve(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		logger, err = logging.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to rulematch.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, matchCmd, inspectCmd, replayCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// #region bootstrap
// loadCorpus reads the configured corpus and builds its index.
func loadCorpus() ([]rulecard.RuleCard, *index.CorpusIndex, error) {
	loader, err := rulecard.NewLoader(cfg.Corpus.TopicSections, cfg.Corpus.Lenient, logger)
	if err != nil {
		return nil, nil, err
	}
	cards, _, err := loader.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, nil, err
	}
	idx, err := index.Build(cards)
	if err != nil {
		return nil, nil, fmt.Errorf("build index: %w", err)
	}
	logger.Info("index built",
		zap.Int("cards", idx.Len()),
		zap.Int("vocabulary", idx.Vocabulary()),
		zap.Any("by_section", idx.SectionSizes()),
	)
	return cards, idx, nil
}

func cardIDs(cards []rulecard.RuleCard) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

// #endregion bootstrap
