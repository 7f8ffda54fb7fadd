package eval

import (
	"fmt"

	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// #region eval-harness
// EvalHarness checks section coverage of a match outcome. It is
// informational: a failed evaluation is never an error.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run emits <SEC>_cards and <SEC>_avg_score per section in pipeline order
// and flags zero-match and underfilled sections.
func (h *EvalHarness) Run(results match.Results) EvalResult {
	var (
		metrics     []EvalMetric
		failReasons []string
		out         EvalResult
	)

	for _, sec := range rulecard.Sections() {
		res := results[sec]
		n := len(res.Matches)
		floor := h.config.MinCards[sec]

		cardsPass := n > 0 && n >= floor
		metrics = append(metrics, EvalMetric{
			Name:  fmt.Sprintf("%s_cards", sec),
			Value: float64(n),
			Pass:  cardsPass,
		})
		switch {
		case n == 0:
			out.ZeroSections = append(out.ZeroSections, sec)
			failReasons = append(failReasons, fmt.Sprintf("%s has no matching card", sec))
		case n < floor:
			out.Underfilled = append(out.Underfilled, sec)
			failReasons = append(failReasons, fmt.Sprintf("%s has %d cards, want at least %d", sec, n, floor))
		}

		scorePass := n == 0 || res.AvgScore >= h.config.MinAvgScore
		metrics = append(metrics, EvalMetric{
			Name:  fmt.Sprintf("%s_avg_score", sec),
			Value: res.AvgScore,
			Pass:  scorePass,
		})
		if !scorePass {
			failReasons = append(failReasons, fmt.Sprintf("%s avg score %.4f below %.4f", sec, res.AvgScore, h.config.MinAvgScore))
		}
	}

	out.Metrics = metrics
	out.Passed = len(failReasons) == 0
	out.Reason = "all checks passed"
	if !out.Passed {
		out.Reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			out.Reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}
	return out
}

// #endregion eval-harness
