package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/rulecard-match/internal/eval"
	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rpc"
	"github.com/danielpatrickdp/rulecard-match/internal/sanitize"
	"github.com/danielpatrickdp/rulecard-match/internal/service"
	"github.com/danielpatrickdp/rulecard-match/internal/store"
)

var (
	matchSanitize bool
	matchRecord   bool
	matchRemote   string
	matchTimeout  time.Duration
)

// matchCmd ranks feature files locally or against a running server
var matchCmd = &cobra.Command{
	Use:   "match [features.json ...]",
	Short: "Rank the corpus against one or more feature sets",
	Long: `Reads one feature set per file ("-" for stdin) and prints one report
per input as JSON.

Without --remote the corpus is loaded in-process and the inputs run as one
concurrent batch. With --remote each input is sent to a running
"rulematch serve".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().BoolVar(&matchSanitize, "sanitize", false, "scrub card ids from report text")
	matchCmd.Flags().BoolVar(&matchRecord, "record", false, "persist requests to the configured store")
	matchCmd.Flags().StringVar(&matchRemote, "remote", "", "server address; empty runs in-process")
	matchCmd.Flags().DurationVar(&matchTimeout, "timeout", 30*time.Second, "per-run timeout")
}

func runMatch(cmd *cobra.Command, args []string) error {
	fs := make([]features.FeatureSet, 0, len(args))
	for _, path := range args {
		f, err := readFeatures(path)
		if err != nil {
			return err
		}
		fs = append(fs, f)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), matchTimeout)
	defer cancel()

	var reports []match.Report
	var err error
	if matchRemote != "" {
		reports, err = matchRemoteAll(ctx, fs)
	} else {
		reports, err = matchLocal(ctx, fs)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func matchLocal(ctx context.Context, fs []features.FeatureSet) ([]match.Report, error) {
	cards, idx, err := loadCorpus()
	if err != nil {
		return nil, err
	}
	engine, err := match.NewEngine(idx, cfg.Match, logger.Named("match"))
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithBatchLimit(cfg.Server.BatchLimit),
		service.WithLogger(logger.Named("service")),
	}
	if matchRecord {
		st, err := store.NewStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()
		opts = append(opts, service.WithRecorder(st))
	}
	svc := service.New(engine, eval.NewEvalHarness(cfg.Eval), opts...)

	outcomes, err := svc.MatchBatch(ctx, fs)
	if err != nil {
		return nil, err
	}

	var scrubber *sanitize.Scrubber
	if matchSanitize {
		scrubber = sanitize.NewScrubber(cardIDs(cards))
	}
	reports := make([]match.Report, len(outcomes))
	for i, out := range outcomes {
		reports[i] = out.Report
		if scrubber != nil {
			reports[i] = sanitize.Report(out.Report, scrubber)
		}
	}
	return reports, nil
}

func matchRemoteAll(ctx context.Context, fs []features.FeatureSet) ([]match.Report, error) {
	client, err := rpc.NewClient(matchRemote)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", matchRemote, err)
	}
	defer client.Close()

	reports := make([]match.Report, 0, len(fs))
	for i, f := range fs {
		r, err := client.Match(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func readFeatures(path string) (features.FeatureSet, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return features.FeatureSet{}, fmt.Errorf("open features: %w", err)
		}
		defer f.Close()
		r = f
	}
	fs, err := features.Decode(r)
	if err != nil {
		return features.FeatureSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return fs, nil
}
