package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/danielpatrickdp/rulecard-match/internal/eval"
	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/index"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// Replay actions.
const (
	ActionMatched          = "matched"          // every section selected at least one card
	ActionZeroMatch        = "zero_match"       // at least one section selected nothing
	ActionRejected         = "rejected"         // invalid feature set or engine error
	ActionNondeterministic = "nondeterministic" // two runs disagreed
)

// #region types
// Interaction is a single recorded request for replay.
type Interaction struct {
	RequestID string
	Features  features.FeatureSet
	DecodeErr error
}

// ReplayConfig bundles match and eval policy for a replay run.
type ReplayConfig struct {
	MatchConfig match.Config
	EvalConfig  eval.EvalConfig
}

// DefaultReplayConfig returns the default policies.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		MatchConfig: match.DefaultConfig(),
		EvalConfig:  eval.DefaultEvalConfig(),
	}
}

// ReplayResult captures the outcome of replaying one request.
type ReplayResult struct {
	RequestID string
	Action    string
	Reason    string

	// Ranked ids per section; nil when rejected.
	Sections map[rulecard.Section][]string

	// Coverage verdict; nil when rejected.
	EvalResult *eval.EvalResult
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalRequests    int
	Matched          int
	ZeroMatch        int
	Rejected         int
	Nondeterministic int
	CardsSelected    int
}

// #endregion types

// #region replay
// Replay runs every interaction twice against one engine built from idx
// and config, checking that both runs produce byte-identical reports.
func Replay(idx *index.CorpusIndex, interactions []Interaction, config ReplayConfig) ([]ReplayResult, error) {
	engine, err := match.NewEngine(idx, config.MatchConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	harness := eval.NewEvalHarness(config.EvalConfig)

	results := make([]ReplayResult, 0, len(interactions))
	for _, inter := range interactions {
		results = append(results, replayOne(engine, harness, inter))
	}
	return results, nil
}

func replayOne(engine *match.Engine, harness *eval.EvalHarness, inter Interaction) ReplayResult {
	r := ReplayResult{RequestID: inter.RequestID}
	if inter.DecodeErr != nil {
		r.Action, r.Reason = ActionRejected, inter.DecodeErr.Error()
		return r
	}

	first, firstRes, err := runOnce(engine, inter.Features)
	if err != nil {
		r.Action, r.Reason = ActionRejected, err.Error()
		return r
	}
	second, _, err := runOnce(engine, inter.Features)
	if err != nil {
		r.Action, r.Reason = ActionRejected, err.Error()
		return r
	}

	r.Sections = make(map[rulecard.Section][]string, len(firstRes))
	for sec, res := range firstRes {
		r.Sections[sec] = res.IDs()
	}
	ev := harness.Run(firstRes)
	r.EvalResult = &ev

	switch {
	case !bytes.Equal(first, second):
		r.Action, r.Reason = ActionNondeterministic, "repeated run produced a different report"
	case len(ev.ZeroSections) > 0:
		r.Action, r.Reason = ActionZeroMatch, fmt.Sprintf("no match in %v", ev.ZeroSections)
	default:
		r.Action, r.Reason = ActionMatched, ev.Reason
	}
	return r
}

func runOnce(engine *match.Engine, f features.FeatureSet) ([]byte, match.Results, error) {
	res, trace, err := engine.MatchAll(f)
	if err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(match.BuildReport(engine.Index(), f, res, trace))
	if err != nil {
		return nil, nil, fmt.Errorf("encode report: %w", err)
	}
	return data, res, nil
}

// Compare checks results against expectations by position and returns one
// line per difference.
func Compare(results []ReplayResult, expected []FixtureExpectedResult) []string {
	var diffs []string
	if len(results) != len(expected) {
		diffs = append(diffs, fmt.Sprintf("expected %d results, got %d", len(expected), len(results)))
	}
	for i := 0; i < min(len(results), len(expected)); i++ {
		got, want := results[i], expected[i]
		if got.RequestID != want.RequestID {
			diffs = append(diffs, fmt.Sprintf("request %d: expected request_id=%s, got %s", i, want.RequestID, got.RequestID))
		}
		if got.Action != want.Action {
			diffs = append(diffs, fmt.Sprintf("request %d (%s): expected action=%s, got %s (reason: %s)", i, want.RequestID, want.Action, got.Action, got.Reason))
		}
		for _, sec := range rulecard.Sections() {
			wantIDs, ok := want.Sections[sec]
			if !ok {
				continue
			}
			if gotIDs := got.Sections[sec]; !slices.Equal(gotIDs, wantIDs) {
				diffs = append(diffs, fmt.Sprintf("request %d (%s): %s expected %v, got %v", i, want.RequestID, sec, wantIDs, gotIDs))
			}
		}
	}
	return diffs
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalRequests: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionMatched:
			s.Matched++
		case ActionZeroMatch:
			s.ZeroMatch++
		case ActionRejected:
			s.Rejected++
		case ActionNondeterministic:
			s.Nondeterministic++
		}
		for _, ids := range r.Sections {
			s.CardsSelected += len(ids)
		}
	}
	return s
}

// #endregion replay
