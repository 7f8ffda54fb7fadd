package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/rulecard-match/internal/replay"
)

// replayCmd re-runs a fixture and reports ranking drift
var replayCmd = &cobra.Command{
	Use:   "replay [fixture.json]",
	Short: "Replay a fixture against its pinned corpus",
	Long: `Runs every request of a fixture twice against the fixture's own corpus
and policy, then compares actions and ranked card ids with the recorded
expectations. Exits non-zero on any difference.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := replay.LoadFixture(args[0])
	if err != nil {
		return err
	}
	idx, err := f.Index()
	if err != nil {
		return err
	}
	results, err := replay.Replay(idx, f.Interactions(), f.Config.ToReplayConfig())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Fixture: %s\n", f.Description)
	fmt.Fprintf(w, "%-4s  %-16s  %-16s  %s\n", "#", "Request", "Action", "Reason")
	for i, r := range results {
		fmt.Fprintf(w, "%-4d  %-16s  %-16s  %s\n", i+1, shortID(r.RequestID), r.Action, r.Reason)
	}

	s := replay.Summarize(results)
	fmt.Fprintf(w, "\nSummary: %d requests, %d matched, %d zero_match, %d rejected, %d nondeterministic, %d cards\n",
		s.TotalRequests, s.Matched, s.ZeroMatch, s.Rejected, s.Nondeterministic, s.CardsSelected)

	diffs := replay.Compare(results, f.ExpectedResults)
	if len(diffs) == 0 && s.Nondeterministic == 0 {
		fmt.Fprintln(w, "PASS")
		return nil
	}
	fmt.Fprintln(w, "\nFAIL")
	for _, d := range diffs {
		fmt.Fprintf(w, "  - %s\n", d)
	}
	return fmt.Errorf("replay: %d differences, %d nondeterministic", len(diffs), s.Nondeterministic)
}
