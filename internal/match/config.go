package match

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// ErrInvalidPolicy marks a malformed weight, boost or top-K configuration.
var ErrInvalidPolicy = errors.New("invalid match policy")

// #region weights
// Weights are the coefficients of the final score:
// Base*priority + Tag*tag_match + Year*year_boost + Goal*goal_boost.
type Weights struct {
	Base float64 `yaml:"base" json:"base"`
	Tag  float64 `yaml:"tag" json:"tag"`
	Year float64 `yaml:"year" json:"year"`
	Goal float64 `yaml:"goal" json:"goal"`
}

// DefaultWeights returns the production weight set.
func DefaultWeights() Weights {
	return Weights{Base: 1.0, Tag: 2.0, Year: 0.5, Goal: 0.3}
}

// #endregion weights

// #region boosts
// BoostPolicy decides when the year and goal bonuses apply.
type BoostPolicy struct {
	YearBonus float64 `yaml:"year_bonus" json:"year_bonus"`
	GoalBonus float64 `yaml:"goal_bonus" json:"goal_bonus"`

	// YearTokens lists extra tokens naming a target year, e.g. its
	// sexagenary name. The decimal year itself always counts.
	YearTokens map[int][]string `yaml:"year_tokens" json:"year_tokens"`

	// TimingTags mark a card as timing-relevant for favourable years.
	TimingTags []string `yaml:"timing_tags" json:"timing_tags"`
}

// DefaultBoostPolicy returns the production boost policy.
func DefaultBoostPolicy() BoostPolicy {
	return BoostPolicy{
		YearBonus:  1.0,
		GoalBonus:  0.5,
		YearTokens: map[int][]string{2026: {"병오", "병오년"}},
		TimingTags: []string{"타이밍", "timing", "연운", "세운"},
	}
}

// #endregion boosts

// #region config
// Config bundles scoring weights, boost policy and per-section top-K.
type Config struct {
	Weights Weights                  `yaml:"weights" json:"weights"`
	Boosts  BoostPolicy              `yaml:"boosts" json:"boosts"`
	TopN    map[rulecard.Section]int `yaml:"top_n" json:"top_n"`
}

// DefaultTopN returns the per-section result bounds.
func DefaultTopN() map[rulecard.Section]int {
	return map[rulecard.Section]int{
		rulecard.SectionElement:     8,
		rulecard.SectionRelational:  8,
		rulecard.SectionStructural:  8,
		rulecard.SectionSurvival:    5,
		rulecard.SectionApplication: 5,
	}
}

// DefaultConfig returns the production matching configuration.
func DefaultConfig() Config {
	return Config{
		Weights: DefaultWeights(),
		Boosts:  DefaultBoostPolicy(),
		TopN:    DefaultTopN(),
	}
}

// Validate rejects negative or non-finite coefficients and top-K tables
// that do not cover exactly the fixed sections with positive bounds.
func (c Config) Validate() error {
	coeffs := []struct {
		name string
		v    float64
	}{
		{"weights.base", c.Weights.Base},
		{"weights.tag", c.Weights.Tag},
		{"weights.year", c.Weights.Year},
		{"weights.goal", c.Weights.Goal},
		{"boosts.year_bonus", c.Boosts.YearBonus},
		{"boosts.goal_bonus", c.Boosts.GoalBonus},
	}
	for _, co := range coeffs {
		if co.v < 0 || math.IsNaN(co.v) || math.IsInf(co.v, 0) {
			return fmt.Errorf("%w: %s must be a finite non-negative number, got %v", ErrInvalidPolicy, co.name, co.v)
		}
	}

	for sec := range c.TopN {
		if !sec.Valid() {
			return fmt.Errorf("%w: top_n has unknown section %q", ErrInvalidPolicy, sec)
		}
	}
	for _, sec := range rulecard.Sections() {
		n, ok := c.TopN[sec]
		if !ok {
			return fmt.Errorf("%w: top_n missing section %s", ErrInvalidPolicy, sec)
		}
		if n <= 0 {
			return fmt.Errorf("%w: top_n.%s must be positive, got %d", ErrInvalidPolicy, sec, n)
		}
	}

	for year, toks := range c.Boosts.YearTokens {
		for _, t := range toks {
			if strings.TrimSpace(t) == "" {
				return fmt.Errorf("%w: boosts.year_tokens.%d contains a blank token", ErrInvalidPolicy, year)
			}
		}
	}
	return nil
}

// #endregion config
