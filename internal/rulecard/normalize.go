package rulecard

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// #region canon
// tagNormalize maps recurring authoring typos to their canonical tag.
var tagNormalize = map[string]string{
	"정제":   "정재",
	"편제":   "편재",
	"겁제":   "겁재",
	"식신생제": "식신생재",
	"상관생제": "상관생재",
	"식상생제": "식상생재",
	"간목":   "인목",
	"신지금":  "신금",
}

// CanonTag collapses internal whitespace, folds case and applies the typo
// table.
func CanonTag(t string) string {
	s := strings.ToLower(strings.Join(strings.Fields(t), " "))
	if c, ok := tagNormalize[s]; ok {
		return c
	}
	return s
}

// CanonTags canonicalises a list, dropping empty entries and duplicates
// while keeping first-seen order.
func CanonTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		c := CanonTag(t)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ExplodeTagTokens returns the canonical phrase followed by each of its
// words of at least two runes, e.g. "현금 흐름" -> ["현금 흐름", "현금", "흐름"].
func ExplodeTagTokens(t string) []string {
	c := CanonTag(t)
	if c == "" {
		return nil
	}
	out := []string{c}
	seen := map[string]bool{c: true}
	for _, p := range strings.Split(c, " ") {
		p = CanonTag(p)
		if utf8.RuneCountInString(p) < 2 || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// #endregion canon

// #region priority
// SafePriority coerces an authored priority into [0, MaxPriority]. Authors
// used both 0-10 and 0-100 scales; values above 10 are read as percent.
func SafePriority(v any) float64 {
	var f float64
	switch p := v.(type) {
	case nil:
		return 0
	case float64:
		f = p
	case float32:
		f = float64(p)
	case int:
		f = float64(p)
	case int64:
		f = float64(p)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f <= MaxPriority:
		return f
	case f <= 100:
		return f / 10
	default:
		return MaxPriority
	}
}

// #endregion priority

// #region keywords
// particles are trailing Korean postpositions stripped from interpretation words.
var particles = []string{"에서", "으로", "에게", "을", "를", "이", "가", "은", "는", "의", "에", "로", "와", "과", "도"}

// stopwords are high-frequency words that never make useful tags.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true, "that": true,
	"있다": true, "없다": true, "한다": true, "하는": true, "된다": true, "그리고": true, "하지만": true,
}

// maxKeywords bounds the tags backfilled from interpretation text.
const maxKeywords = 5

// Keywords extracts up to maxKeywords distinct words from free text for
// the tag fallback chain.
func Keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var out []string
	for _, w := range words {
		w = trimParticle(w)
		if utf8.RuneCountInString(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, CanonTag(w))
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func trimParticle(w string) string {
	for _, p := range particles {
		if strings.HasSuffix(w, p) && utf8.RuneCountInString(w)-utf8.RuneCountInString(p) >= 2 {
			return strings.TrimSuffix(w, p)
		}
	}
	return w
}

// #endregion keywords
