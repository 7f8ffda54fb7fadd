package match

import (
	"strconv"

	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/index"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// #region scorer
// Scorer computes the relevance score of a firing card.
type Scorer struct {
	idx     *index.CorpusIndex
	weights Weights
	boosts  BoostPolicy
	timing  features.TokenSet
}

// NewScorer creates a Scorer backed by idx for IDF lookups.
func NewScorer(idx *index.CorpusIndex, weights Weights, boosts BoostPolicy) *Scorer {
	return &Scorer{
		idx:     idx,
		weights: weights,
		boosts:  boosts,
		timing:  features.NewTokenSet(boosts.TimingTags...),
	}
}

// Score returns the breakdown for card given the tokens that fired.
// Tag match sums IDF over fired tokens, so firing on more distinct tokens
// ranks higher while generic tokens still contribute little.
func (s *Scorer) Score(f features.FeatureSet, card rulecard.RuleCard, fired []string) ScoreBreakdown {
	var b ScoreBreakdown
	b.Priority = card.Priority
	for _, tok := range fired {
		b.TagMatch += s.idx.InverseDocumentFrequency(tok)
	}
	if s.yearRelevant(f, card) {
		b.YearBoost = s.boosts.YearBonus
	}
	if s.goalRelevant(f, card) {
		b.GoalBoost = s.boosts.GoalBonus
	}
	b.Final = s.weights.Base*b.Priority +
		s.weights.Tag*b.TagMatch +
		s.weights.Year*b.YearBoost +
		s.weights.Goal*b.GoalBoost
	return b
}

// #endregion scorer

// #region boosts
// yearRelevant holds when the card names the target year, or when the year
// is favourable and the card is tagged as timing-relevant.
func (s *Scorer) yearRelevant(f features.FeatureSet, card rulecard.RuleCard) bool {
	yearToks := append([]string{strconv.Itoa(f.TargetYear)}, s.boosts.YearTokens[f.TargetYear]...)
	for _, y := range yearToks {
		y = rulecard.CanonTag(y)
		if card.HasTag(y) || card.HasTrigger(y) {
			return true
		}
	}
	if !f.FavorableYear {
		return false
	}
	for _, t := range card.Tags {
		if s.timing.Contains(t) {
			return true
		}
	}
	return false
}

func (s *Scorer) goalRelevant(f features.FeatureSet, card rulecard.RuleCard) bool {
	goals := features.GoalTokens(f)
	if goals.Len() == 0 {
		return false
	}
	for _, t := range card.Tags {
		if goals.Contains(t) {
			return true
		}
	}
	return false
}

// #endregion boosts
