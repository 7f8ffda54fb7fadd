package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/rulecard-match/internal/eval"
	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/index"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
	"github.com/danielpatrickdp/rulecard-match/internal/store"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Cards           []rulecard.RuleCard     `json:"cards"`
	Requests        []FixtureRequest        `json:"requests"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig overrides the default match and eval policy. Absent
// sections keep the defaults.
type FixtureConfig struct {
	Match *match.Config    `json:"match,omitempty"`
	Eval  *eval.EvalConfig `json:"eval,omitempty"`
}

// FixtureRequest is one recorded feature set. Features stay raw so that
// replay applies the same strict decoding as live intake.
type FixtureRequest struct {
	RequestID string          `json:"request_id"`
	Features  json.RawMessage `json:"features"`
}

// FixtureExpectedResult captures the expected outcome per request: the
// action and, for matched requests, the ranked ids per section.
type FixtureExpectedResult struct {
	RequestID string                        `json:"request_id"`
	Action    string                        `json:"action"`
	Sections  map[rulecard.Section][]string `json:"sections,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToReplayConfig resolves the fixture config against the defaults.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if fc.Match != nil {
		cfg.MatchConfig = *fc.Match
	}
	if fc.Eval != nil {
		cfg.EvalConfig = *fc.Eval
	}
	return cfg
}

// ToInteraction decodes a FixtureRequest. A decode failure is carried on
// the interaction so replay can report it as a rejection.
func (fr *FixtureRequest) ToInteraction() Interaction {
	fs, err := features.Decode(bytes.NewReader(fr.Features))
	return Interaction{RequestID: fr.RequestID, Features: fs, DecodeErr: err}
}

// Interactions converts every request.
func (f *Fixture) Interactions() []Interaction {
	out := make([]Interaction, len(f.Requests))
	for i := range f.Requests {
		out[i] = f.Requests[i].ToInteraction()
	}
	return out
}

// Index builds the fixture's corpus.
func (f *Fixture) Index() (*index.CorpusIndex, error) {
	idx, err := index.Build(f.Cards)
	if err != nil {
		return nil, fmt.Errorf("fixture corpus: %w", err)
	}
	return idx, nil
}

// #endregion fixture-loader

// #region fixture-export

// ExportFixture turns stored requests into a fixture pinned to the current
// outcome: each request's stored report becomes its expected result.
// Records are taken oldest first.
func ExportFixture(description string, cards []rulecard.RuleCard, cfg ReplayConfig, records []store.RequestRecord) (*Fixture, error) {
	mc, ec := cfg.MatchConfig, cfg.EvalConfig
	f := &Fixture{
		Description: description,
		Config:      FixtureConfig{Match: &mc, Eval: &ec},
		Cards:       cards,
	}
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		var report match.Report
		if err := json.Unmarshal([]byte(rec.ReportJSON), &report); err != nil {
			return nil, fmt.Errorf("request %s: parse report: %w", rec.RequestID, err)
		}

		exp := FixtureExpectedResult{
			RequestID: rec.RequestID,
			Action:    ActionMatched,
			Sections:  make(map[rulecard.Section][]string, len(report.SectionMatches)),
		}
		for sec, sr := range report.SectionMatches {
			ids := make([]string, len(sr.Cards))
			for j, c := range sr.Cards {
				ids[j] = c.CardID
			}
			exp.Sections[sec] = ids
		}
		if len(rec.ZeroSections) > 0 {
			exp.Action = ActionZeroMatch
		}

		f.Requests = append(f.Requests, FixtureRequest{RequestID: rec.RequestID, Features: json.RawMessage(rec.FeaturesJSON)})
		f.ExpectedResults = append(f.ExpectedResults, exp)
	}
	return f, nil
}

// #endregion fixture-export
