package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/rulecard-match/internal/replay"
	"github.com/danielpatrickdp/rulecard-match/internal/store"
)

var (
	exportLast        int
	exportOut         string
	exportDescription string
)

// exportCmd turns recorded requests into a replay fixture
var exportCmd = &cobra.Command{
	Use:   "fixture-export",
	Short: "Export recorded requests as a replay fixture",
	Long: `Reads the N most recent requests from the store and writes a fixture
pinning the current corpus, policy and ranked results, suitable for
"rulematch replay".`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().IntVar(&exportLast, "last", 20, "export N most recent requests")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportDescription, "description", "exported session", "fixture description")
}

func runExport(cmd *cobra.Command, args []string) error {
	cards, _, err := loadCorpus()
	if err != nil {
		return err
	}
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	records, err := st.ListRequests(exportLast)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no requests found in %s", cfg.Store.Path)
	}

	f, err := replay.ExportFixture(exportDescription, cards,
		replay.ReplayConfig{MatchConfig: cfg.Match, EvalConfig: cfg.Eval}, records)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if exportOut != "" {
		file, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer file.Close()
		w = file
	}
	if err := printJSON(w, f); err != nil {
		return err
	}
	if exportOut != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d requests to %s\n", len(f.Requests), exportOut)
	}
	return nil
}
