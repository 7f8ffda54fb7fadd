package sanitize

import (
	"regexp"
	"slices"
	"strings"

	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

var (
	cardRefRe  = regexp.MustCompile(`RC-[0-9a-fA-F]{4,}`)
	internalRe = regexp.MustCompile(`\[INTERNAL:.*?\]`)
	debugRe    = regexp.MustCompile(`\[DEBUG:.*?\]`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Content removes internal card references and debug markers from
// customer-facing text and collapses whitespace.
func Content(s string) string {
	if s == "" {
		return s
	}
	out := cardRefRe.ReplaceAllString(s, "")
	out = internalRe.ReplaceAllString(out, "")
	out = debugRe.ReplaceAllString(out, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(out, " "))
}

// Scrubber additionally removes literal occurrences of known card ids,
// which need not follow the RC-<hex> form.
type Scrubber struct {
	ids *strings.Replacer
}

// NewScrubber builds a Scrubber for ids. Longer ids are replaced first so
// that an id which prefixes another never leaves a fragment behind.
func NewScrubber(ids []string) *Scrubber {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b string) int { return len(b) - len(a) })

	pairs := make([]string, 0, 2*len(sorted))
	for _, id := range sorted {
		if id == "" {
			continue
		}
		pairs = append(pairs, id, "")
	}
	return &Scrubber{ids: strings.NewReplacer(pairs...)}
}

// Scrub applies id removal and then Content.
func (s *Scrubber) Scrub(text string) string {
	if s == nil || s.ids == nil {
		return Content(text)
	}
	return Content(s.ids.Replace(text))
}

// Report returns a copy of rep whose pass-through texts are scrubbed. Ids
// and scores stay untouched for internal consumers.
func Report(rep match.Report, s *Scrubber) match.Report {
	out := rep
	out.SectionMatches = make(map[rulecard.Section]match.SectionReport, len(rep.SectionMatches))
	for sec, sr := range rep.SectionMatches {
		cards := make([]match.ReportCard, len(sr.Cards))
		for i, c := range sr.Cards {
			c.Interpretation = s.Scrub(c.Interpretation)
			c.Mechanism = s.Scrub(c.Mechanism)
			c.Action = s.Scrub(c.Action)
			if c.Cautions != nil {
				cautions := make([]string, 0, len(c.Cautions))
				for _, ct := range c.Cautions {
					if ct = s.Scrub(ct); ct != "" {
						cautions = append(cautions, ct)
					}
				}
				c.Cautions = cautions
			}
			cards[i] = c
		}
		out.SectionMatches[sec] = match.SectionReport{Cards: cards, AvgScore: sr.AvgScore}
	}
	return out
}
