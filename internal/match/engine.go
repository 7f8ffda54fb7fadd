package match

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/index"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

var (
	// ErrIndexNotBuilt is returned when the engine has no corpus to rank.
	ErrIndexNotBuilt = errors.New("corpus index not built")
	// ErrDataIntegrity marks a corpus that violates section exclusivity.
	ErrDataIntegrity = errors.New("corpus data integrity violation")
)

// #region engine
// Engine runs every section in pipeline order against one immutable
// CorpusIndex. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	idx      *index.CorpusIndex
	cfg      Config
	selector *SectionSelector
	logger   *zap.Logger
}

// NewEngine validates cfg and binds it to idx. A nil idx is accepted here
// and reported by MatchAll so callers see the precondition at request time.
func NewEngine(idx *index.CorpusIndex, cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		idx:      idx,
		cfg:      cfg,
		selector: NewSectionSelector(idx, cfg),
		logger:   logger,
	}, nil
}

// Index returns the corpus the engine ranks against.
func (e *Engine) Index() *index.CorpusIndex {
	return e.idx
}

// TopN returns the configured bound for sec.
func (e *Engine) TopN(sec rulecard.Section) int {
	return e.cfg.TopN[sec]
}

// MatchAll validates f, ranks every section and merges the selections into
// one TraceRecord. A section with no firing card is a valid, empty result.
func (e *Engine) MatchAll(f features.FeatureSet) (Results, TraceRecord, error) {
	if e.idx.Len() == 0 {
		return nil, TraceRecord{}, ErrIndexNotBuilt
	}
	if err := f.Validate(); err != nil {
		return nil, TraceRecord{}, fmt.Errorf("match all: %w", err)
	}

	tokens := features.Tokens(f)
	results := make(Results, len(rulecard.Sections()))
	ordered := make([]MatchResult, 0, len(rulecard.Sections()))
	for _, sec := range rulecard.Sections() {
		res := e.selector.Select(f, tokens, sec)
		results[sec] = res
		ordered = append(ordered, res)

		if res.Empty() {
			e.logger.Warn("zero match",
				zap.String("section", string(sec)),
				zap.Int("candidates", res.Candidates),
				zap.Int("tokens", tokens.Len()),
			)
			continue
		}
		e.logger.Debug("section matched",
			zap.String("section", string(sec)),
			zap.Int("cards", len(res.Matches)),
			zap.Int("fired", res.FiredCount),
			zap.Float64("avg_score", res.AvgScore),
		)
	}

	trace, err := newTrace(ordered)
	if err != nil {
		e.logger.Error("match failed", zap.Error(err))
		return nil, TraceRecord{}, fmt.Errorf("match all: %w", err)
	}
	return results, trace, nil
}

// #endregion engine
