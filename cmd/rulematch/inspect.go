package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/rulecard-match/internal/logging"
	"github.com/danielpatrickdp/rulecard-match/internal/store"
)

var (
	inspectLast    int
	inspectRequest string
	inspectJSON    bool
)

// inspectCmd prints stored requests and their provenance
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect recorded match requests",
	Long: `Lists the most recent recorded requests, or with --request shows the
per-section provenance of one request.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent requests")
	inspectCmd.Flags().StringVar(&inspectRequest, "request", "", "show a single request in detail")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of table")
}

func runInspect(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if inspectRequest != "" {
		return runDetailMode(out, st, inspectRequest)
	}
	return runListMode(out, st, inspectLast)
}

// #region list-mode

type listRow struct {
	RequestID    string   `json:"request_id"`
	ContextHash  string   `json:"context_hash"`
	Matched      int      `json:"matched"`
	ZeroSections []string `json:"zero_sections,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

func runListMode(w io.Writer, st *store.Store, last int) error {
	records, err := st.ListRequests(last)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "no requests found")
		return nil
	}

	rows := make([]listRow, len(records))
	for i, rec := range records {
		rows[i] = listRow{
			RequestID:    rec.RequestID,
			ContextHash:  rec.ContextHash,
			Matched:      rec.Matched,
			ZeroSections: rec.ZeroSections,
			CreatedAt:    rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if inspectJSON {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "%-12s  %-12s  %7s  %-20s  %s\n", "Request", "Context", "Matched", "Zero", "Time")
	fmt.Fprintf(w, "%-12s+-%-12s+-%7s+-%-20s+-%s\n",
		"------------", "------------", "-------", "--------------------", "--------------------")
	for _, r := range rows {
		zero := "-"
		if len(r.ZeroSections) > 0 {
			zero = fmt.Sprint(r.ZeroSections)
		}
		fmt.Fprintf(w, "%-12s  %-12s  %7d  %-20s  %s\n",
			shortID(r.RequestID), shortID(r.ContextHash), r.Matched, zero, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RequestID   string          `json:"request_id"`
	ContextHash string          `json:"context_hash"`
	Features    json.RawMessage `json:"features"`
	Sections    []sectionRow    `json:"sections"`
	CreatedAt   string          `json:"created_at"`
}

type sectionRow struct {
	Section  string                `json:"section"`
	Decision string                `json:"decision"`
	Reason   string                `json:"reason"`
	Cards    string                `json:"cards,omitempty"`
	Record   logging.SectionRecord `json:"record"`
}

func runDetailMode(w io.Writer, st *store.Store, requestID string) error {
	rec, err := st.GetRequest(requestID)
	if err != nil {
		return err
	}
	prov, err := st.ListProvenance(requestID)
	if err != nil {
		return err
	}

	out := detailOutput{
		RequestID:   rec.RequestID,
		ContextHash: rec.ContextHash,
		Features:    json.RawMessage(rec.FeaturesJSON),
		CreatedAt:   rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	for _, p := range prov {
		row := sectionRow{Section: p.Section, Decision: p.Decision, Reason: p.Reason, Cards: p.EvidenceRefs}
		if p.SignalsJSON != "" {
			if err := json.Unmarshal([]byte(p.SignalsJSON), &row.Record); err != nil {
				return fmt.Errorf("parse signals for %s: %w", p.Section, err)
			}
		}
		out.Sections = append(out.Sections, row)
	}
	if inspectJSON {
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "Request:  %s\n", out.RequestID)
	fmt.Fprintf(w, "Context:  %s\n", out.ContextHash)
	fmt.Fprintf(w, "Created:  %s\n\n", out.CreatedAt)
	fmt.Fprintf(w, "%-5s  %-10s  %10s  %5s  %5s  %9s  %s\n", "Sec", "Decision", "Candidates", "Fired", "TopN", "Avg Score", "Cards")
	for _, s := range out.Sections {
		cards := s.Cards
		if cards == "" {
			cards = "-"
		}
		fmt.Fprintf(w, "%-5s  %-10s  %10d  %5d  %5d  %9.4f  %s\n",
			s.Section, s.Decision, s.Record.Candidates, s.Record.Fired, s.Record.TopN, s.Record.AvgScore, cards)
	}
	return nil
}

// #endregion detail-mode

// #region helpers

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion helpers
