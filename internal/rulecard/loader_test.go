package rulecard

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// #region helpers
func newTestLoader(t *testing.T, lenient bool) *Loader {
	t.Helper()
	l, err := NewLoader(nil, lenient, nil)
	require.NoError(t, err)
	return l
}

func decode(t *testing.T, l *Loader, lines ...string) ([]RuleCard, LoadReport, error) {
	t.Helper()
	return l.DecodeJSONL(strings.NewReader(strings.Join(lines, "\n")))
}

// #endregion helpers

// #region fallback-tests
func TestDecode_TagsBackfilledFromTrigger(t *testing.T) {
	l := newTestLoader(t, false)
	cards, report, err := decode(t, l, `{"id":"RC-0001","topic":"ELEMENTS","trigger":["목","화"],"priority":7}`)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	require.Equal(t, []string{"목", "화"}, cards[0].Tags)
	require.Equal(t, []string{"목", "화"}, cards[0].Trigger)
	require.Equal(t, SectionElement, cards[0].Section)
	require.Equal(t, 1, report.TagSources[TagSourceTrigger])
	require.NoError(t, cards[0].Validate())
}

func TestDecode_TagsBackfilledFromInterpretation(t *testing.T) {
	l := newTestLoader(t, false)
	cards, report, err := decode(t, l, `{"id":"RC-0002","topic":"STRUCTURE","interpretation":"재물을 다루는 구조"}`)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	require.Equal(t, []string{"재물", "다루", "구조"}, cards[0].Tags)
	require.Equal(t, cards[0].Tags, cards[0].Trigger, "trigger falls back to tags")
	require.Equal(t, 1, report.TagSources[TagSourceInterpretation])
}

func TestDecode_TagsBackfilledFromSection(t *testing.T) {
	l := newTestLoader(t, false)
	cards, report, err := decode(t, l, `{"id":"RC-0003","topic":"CAREER"}`)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	require.Equal(t, SectionApplication, cards[0].Section)
	require.Equal(t, []string{"appl"}, cards[0].Tags)
	require.Equal(t, []string{"appl"}, cards[0].Trigger)
	require.Equal(t, 1, report.TagSources[TagSourceSection])
}

func TestDecode_ExplicitTagsKept(t *testing.T) {
	l := newTestLoader(t, false)
	cards, _, err := decode(t, l, `{"id":"RC-0004","section":"ten","tags":["정제"," 편재 "],"trigger":"정재"}`)
	require.NoError(t, err)
	require.Equal(t, []string{"정재", "편재"}, cards[0].Tags, "typo table and whitespace applied")
	require.Equal(t, []string{"정재"}, cards[0].Trigger)
	require.Equal(t, SectionRelational, cards[0].Section)
}

// #endregion fallback-tests

// #region trigger-shape-tests
func TestDecode_TriggerShapes(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"json list string", `{"id":"a","topic":"ELEM","trigger":"[\"목\",\"화\"]"}`, []string{"목", "화"}},
		{"json object string", `{"id":"a","topic":"ELEM","trigger":"{\"b\":[\"수\"],\"a\":\"금\"}"}`, []string{"금", "수"}},
		{"object", `{"id":"a","topic":"ELEM","trigger":{"x":["토"]}}`, []string{"토"}},
		{"plain string", `{"id":"a","topic":"ELEM","trigger":"목생화"}`, []string{"목생화"}},
		{"triggers alias", `{"id":"a","topic":"ELEM","triggers":["목"],"trigger":["화"]}`, []string{"화", "목"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, _, err := decode(t, newTestLoader(t, false), tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.want, cards[0].Trigger)
		})
	}
}

// #endregion trigger-shape-tests

// #region error-tests
func TestDecode_StrictFailsOnMalformedLine(t *testing.T) {
	_, _, err := decode(t, newTestLoader(t, false),
		`{"id":"a","topic":"ELEM","tags":["목"]}`,
		`{not json`,
	)
	var cerr *CardError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, 2, cerr.Line)
}

func TestDecode_LenientSkipsMalformedLines(t *testing.T) {
	cards, report, err := decode(t, newTestLoader(t, true),
		`{"id":"a","topic":"ELEM","tags":["목"]}`,
		`{not json`,
		`{"topic":"ELEM","tags":["화"]}`,
		`{"id":"c","topic":"UNKNOWN","tags":["화"]}`,
		``,
		`{"id":"d","topic":"TEN","tags":["비견"]}`,
	)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	require.Equal(t, 3, report.Skipped)
	require.Equal(t, 1, report.BySection[SectionElement])
	require.Equal(t, 1, report.BySection[SectionRelational])
}

func TestDecode_DuplicateIDAlwaysFails(t *testing.T) {
	_, _, err := decode(t, newTestLoader(t, true),
		`{"id":"dup","topic":"ELEM","tags":["목"]}`,
		`{"id":"dup","topic":"TEN","tags":["비견"]}`,
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicates line 1")
}

func TestNewLoader_TopicInTwoSections(t *testing.T) {
	_, err := NewLoader(map[Section][]string{
		SectionSurvival:    {"GENERAL"},
		SectionApplication: {"general"},
	}, false, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "GENERAL")
}

// #endregion error-tests

// #region file-tests
func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.yaml")
	content := `
- id: RC-0100
  topic: ELEMENTS
  trigger: [목, 화]
  priority: 80
- id: RC-0101
  section: SURV
  tags: [생존, 안정]
  priority: "4.5"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cards, report, err := newTestLoader(t, false).Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, report.Cards)
	require.Equal(t, 8.0, cards[0].Priority, "percent-scale priority rescaled")
	require.Equal(t, 4.5, cards[1].Priority)
	require.Equal(t, []string{"생존", "안정"}, cards[1].Trigger)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := newTestLoader(t, false).Load(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
}

// #endregion file-tests
