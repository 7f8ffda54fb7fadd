package match

import (
	"cmp"
	"slices"

	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/index"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// #region selector
// SectionSelector turns one section's candidate pool into a bounded,
// ranked MatchResult.
type SectionSelector struct {
	idx    *index.CorpusIndex
	scorer *Scorer
	topN   map[rulecard.Section]int
}

// NewSectionSelector creates a selector over idx with the given policy.
func NewSectionSelector(idx *index.CorpusIndex, cfg Config) *SectionSelector {
	return &SectionSelector{
		idx:    idx,
		scorer: NewScorer(idx, cfg.Weights, cfg.Boosts),
		topN:   cfg.TopN,
	}
}

type ranked struct {
	m   Match
	pos int
}

// Select ranks the firing cards of sec by final score descending, breaking
// ties by ascending load order, and truncates to the section's top_n.
func (s *SectionSelector) Select(f features.FeatureSet, tokens features.TokenSet, sec rulecard.Section) MatchResult {
	candidates := s.idx.CardsBySection(sec)
	res := MatchResult{Section: sec, Matches: []Match{}, Candidates: len(candidates)}

	var pool []ranked
	for _, card := range candidates {
		ok, fired := Fires(card, tokens)
		if !ok {
			continue
		}
		b := s.scorer.Score(f, card, fired)
		pool = append(pool, ranked{
			m:   Match{CardID: card.ID, Score: b.Final, Fired: fired, Breakdown: b},
			pos: s.idx.Position(card.ID),
		})
	}
	res.FiredCount = len(pool)

	slices.SortFunc(pool, func(a, b ranked) int {
		if c := cmp.Compare(b.m.Score, a.m.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})

	if n := s.topN[sec]; len(pool) > n {
		pool = pool[:n]
	}

	var total float64
	for _, r := range pool {
		res.Matches = append(res.Matches, r.m)
		total += r.m.Score
	}
	if len(pool) > 0 {
		res.AvgScore = total / float64(len(pool))
	}
	return res
}

// #endregion selector
