package index

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// #region errors
var (
	// ErrEmptyCorpus is returned when Build is given no cards.
	ErrEmptyCorpus = errors.New("corpus is empty")
	// ErrDuplicateID is returned when two cards share an id.
	ErrDuplicateID = errors.New("duplicate rule card id")
)

// #endregion errors

// #region corpus-index
// CorpusIndex holds the loaded rule cards and the per-token document
// frequencies used for rarity weighting. It is immutable after Build and
// safe for concurrent reads.
type CorpusIndex struct {
	cards     []rulecard.RuleCard
	position  map[string]int
	bySection map[rulecard.Section][]int
	df        map[string]int
}

// Build validates every card and precomputes document frequencies over the
// exploded tag tokens of each card. Card order is kept as load order.
func Build(cards []rulecard.RuleCard) (*CorpusIndex, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyCorpus
	}

	idx := &CorpusIndex{
		cards:     make([]rulecard.RuleCard, len(cards)),
		position:  make(map[string]int, len(cards)),
		bySection: make(map[rulecard.Section][]int),
		df:        make(map[string]int),
	}
	copy(idx.cards, cards)

	for i, c := range idx.cards {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("build index: %w", err)
		}
		if first, dup := idx.position[c.ID]; dup {
			return nil, fmt.Errorf("build index: %w: %s at positions %d and %d", ErrDuplicateID, c.ID, first, i)
		}
		idx.position[c.ID] = i
		idx.bySection[c.Section] = append(idx.bySection[c.Section], i)

		for tok := range tagTokens(c) {
			idx.df[tok]++
		}
	}
	return idx, nil
}

// tagTokens returns the distinct exploded tag tokens of a card.
func tagTokens(c rulecard.RuleCard) map[string]struct{} {
	set := make(map[string]struct{}, len(c.Tags))
	for _, t := range c.Tags {
		for _, x := range rulecard.ExplodeTagTokens(t) {
			set[x] = struct{}{}
		}
	}
	return set
}

// #endregion corpus-index

// #region queries
// Len returns the number of cards in the corpus.
func (idx *CorpusIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.cards)
}

// Vocabulary returns the number of distinct tag tokens.
func (idx *CorpusIndex) Vocabulary() int {
	return len(idx.df)
}

// DocumentFrequency returns how many cards carry token; 0 when unknown.
func (idx *CorpusIndex) DocumentFrequency(token string) int {
	return idx.df[token]
}

// InverseDocumentFrequency returns log((N+1)/(df+1)) + 1. The smoothing
// keeps the value finite and positive for tokens on every card or none.
func (idx *CorpusIndex) InverseDocumentFrequency(token string) float64 {
	n := float64(len(idx.cards))
	df := float64(idx.df[token])
	return math.Log((n+1)/(df+1)) + 1
}

// CardsBySection returns the cards eligible for sec in load order. The
// returned slice is a copy.
func (idx *CorpusIndex) CardsBySection(sec rulecard.Section) []rulecard.RuleCard {
	positions := idx.bySection[sec]
	out := make([]rulecard.RuleCard, len(positions))
	for i, p := range positions {
		out[i] = idx.cards[p]
	}
	return out
}

// SectionSize returns the number of cards eligible for sec.
func (idx *CorpusIndex) SectionSize(sec rulecard.Section) int {
	return len(idx.bySection[sec])
}

// SectionSizes returns the eligible card count of every section.
func (idx *CorpusIndex) SectionSizes() map[rulecard.Section]int {
	out := make(map[rulecard.Section]int, len(rulecard.Sections()))
	for _, sec := range rulecard.Sections() {
		out[sec] = idx.SectionSize(sec)
	}
	return out
}

// Card looks up a card by id.
func (idx *CorpusIndex) Card(id string) (rulecard.RuleCard, bool) {
	p, ok := idx.position[id]
	if !ok {
		return rulecard.RuleCard{}, false
	}
	return idx.cards[p], true
}

// Position returns the load-order position of id, or -1 when unknown.
func (idx *CorpusIndex) Position(id string) int {
	p, ok := idx.position[id]
	if !ok {
		return -1
	}
	return p
}

// #endregion queries
