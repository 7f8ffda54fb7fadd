package features

import "github.com/danielpatrickdp/rulecard-match/internal/rulecard"

// #region token-set
// TokenSet is an insertion-ordered set of canonical tokens.
type TokenSet struct {
	order []string
	set   map[string]struct{}
}

// NewTokenSet builds a set from toks, canonicalising each and dropping
// blanks and repeats.
func NewTokenSet(toks ...string) TokenSet {
	ts := TokenSet{set: make(map[string]struct{}, len(toks))}
	for _, t := range toks {
		ts.add(t)
	}
	return ts
}

func (ts *TokenSet) add(t string) {
	c := rulecard.CanonTag(t)
	if c == "" {
		return
	}
	if _, ok := ts.set[c]; ok {
		return
	}
	ts.set[c] = struct{}{}
	ts.order = append(ts.order, c)
}

// Contains reports whether tok is in the set.
func (ts TokenSet) Contains(tok string) bool {
	_, ok := ts.set[tok]
	return ok
}

// Len returns the number of distinct tokens.
func (ts TokenSet) Len() int {
	return len(ts.order)
}

// Slice returns a copy of the tokens in insertion order.
func (ts TokenSet) Slice() []string {
	out := make([]string, len(ts.order))
	copy(out, ts.order)
	return out
}

// #endregion token-set

// #region mapping
// Tokens flattens a feature set into the single token set matched against
// card triggers: day master and its element, the strength token, strong and
// weak elements, the dominant relational category, the structure and the
// goal tokens. The mapping is pure; the same input always yields the same
// set in the same order.
func Tokens(f FeatureSet) TokenSet {
	ts := NewTokenSet(f.DayMaster, f.DayMasterElement)
	if f.StrongSelf {
		ts.add(TokenStrong)
	} else {
		ts.add(TokenWeak)
	}
	for _, e := range f.StrongElements {
		ts.add(e)
	}
	for _, e := range f.WeakElements {
		ts.add(e)
	}
	ts.add(f.DominantTenGod)
	ts.add(f.Structure)
	for _, g := range f.Goals {
		ts.add(g)
	}
	return ts
}

// GoalTokens returns the canonical goal/interest tokens alone.
func GoalTokens(f FeatureSet) TokenSet {
	return NewTokenSet(f.Goals...)
}

// #endregion mapping
