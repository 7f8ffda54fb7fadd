package rulecard

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// #region topic-sections
// DefaultTopicSections returns the authoring topics admitted into each section.
func DefaultTopicSections() map[Section][]string {
	return map[Section][]string{
		SectionElement:     {"ELEMENTS", "ELEM"},
		SectionRelational:  {"TEN_GODS", "TEN"},
		SectionStructural:  {"STRUCTURE", "STRU"},
		SectionSurvival:    {"GENERAL", "SURV"},
		SectionApplication: {"APPL", "CAREER", "WEALTH", "LOVE"},
	}
}

// invertTopics builds the topic -> section lookup, rejecting a topic that
// would make a card eligible for two sections.
func invertTopics(m map[Section][]string) (map[string]Section, error) {
	out := make(map[string]Section)
	for _, sec := range Sections() {
		for _, topic := range m[sec] {
			key := strings.ToUpper(strings.TrimSpace(topic))
			if key == "" {
				return nil, fmt.Errorf("topic_sections.%s: empty topic", sec)
			}
			if prev, ok := out[key]; ok && prev != sec {
				return nil, fmt.Errorf("topic %q mapped to both %s and %s", key, prev, sec)
			}
			out[key] = sec
		}
	}
	for sec := range m {
		if !sec.Valid() {
			return nil, fmt.Errorf("topic_sections: unknown section %q", sec)
		}
	}
	return out, nil
}

// #endregion topic-sections

// #region loader
// Tag provenance labels recorded in LoadReport.TagSources.
const (
	TagSourceExplicit       = "tags"
	TagSourceTrigger        = "trigger"
	TagSourceInterpretation = "interpretation"
	TagSourceSection        = "section"
)

// LoadReport summarises one corpus load.
type LoadReport struct {
	Cards      int
	Skipped    int
	BySection  map[Section]int
	TagSources map[string]int
}

// Loader turns authored corpus files into validated RuleCards. The tag and
// trigger fallback chains run here, once, so query-time code never
// re-evaluates them.
type Loader struct {
	topics  map[string]Section
	lenient bool
	logger  *zap.Logger
}

// NewLoader creates a Loader. Lenient mode skips malformed records instead
// of failing; duplicate ids fail in either mode.
func NewLoader(topicSections map[Section][]string, lenient bool, logger *zap.Logger) (*Loader, error) {
	if topicSections == nil {
		topicSections = DefaultTopicSections()
	}
	topics, err := invertTopics(topicSections)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{topics: topics, lenient: lenient, logger: logger}, nil
}

// Load reads a .jsonl, .json or .yaml/.yml corpus file.
func (l *Loader) Load(path string) ([]RuleCard, LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	var (
		cards  []RuleCard
		report LoadReport
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cards, report, err = l.DecodeYAML(f)
	default:
		cards, report, err = l.DecodeJSONL(f)
	}
	if err != nil {
		return nil, report, fmt.Errorf("load corpus %s: %w", path, err)
	}

	l.logger.Info("corpus loaded",
		zap.String("path", path),
		zap.Int("cards", report.Cards),
		zap.Int("skipped", report.Skipped),
		zap.Any("by_section", report.BySection),
		zap.Any("tag_sources", report.TagSources),
	)
	return cards, report, nil
}

// DecodeJSONL reads one JSON record per line. Blank lines are ignored.
func (l *Loader) DecodeJSONL(r io.Reader) ([]RuleCard, LoadReport, error) {
	b := newBatch(l)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec rawCard
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			if err := b.reject(&CardError{Line: line, Reason: fmt.Sprintf("malformed JSON: %v", err)}); err != nil {
				return nil, b.report, err
			}
			continue
		}
		if err := b.add(rec, line); err != nil {
			return nil, b.report, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, b.report, fmt.Errorf("scan corpus: %w", err)
	}
	return b.cards, b.report, nil
}

// DecodeYAML reads a YAML sequence of records.
func (l *Loader) DecodeYAML(r io.Reader) ([]RuleCard, LoadReport, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, LoadReport{BySection: map[Section]int{}, TagSources: map[string]int{}}, nil
		}
		return nil, LoadReport{}, fmt.Errorf("parse yaml: %w", err)
	}
	seq := &doc
	if seq.Kind == yaml.DocumentNode && len(seq.Content) == 1 {
		seq = seq.Content[0]
	}
	if seq.Kind != yaml.SequenceNode {
		return nil, LoadReport{}, errors.New("parse yaml: corpus must be a sequence of cards")
	}

	b := newBatch(l)
	for _, node := range seq.Content {
		var rec rawCard
		if err := node.Decode(&rec); err != nil {
			if err := b.reject(&CardError{Line: node.Line, Reason: fmt.Sprintf("malformed record: %v", err)}); err != nil {
				return nil, b.report, err
			}
			continue
		}
		if err := b.add(rec, node.Line); err != nil {
			return nil, b.report, err
		}
	}
	return b.cards, b.report, nil
}

// #endregion loader

// #region batch
// batch accumulates cards for a single decode pass.
type batch struct {
	l      *Loader
	cards  []RuleCard
	seen   map[string]int
	report LoadReport
}

func newBatch(l *Loader) *batch {
	return &batch{
		l:    l,
		seen: make(map[string]int),
		report: LoadReport{
			BySection:  make(map[Section]int),
			TagSources: make(map[string]int),
		},
	}
}

// reject fails the load in strict mode, or counts and logs the skip.
func (b *batch) reject(cerr *CardError) error {
	if !b.l.lenient {
		return cerr
	}
	b.report.Skipped++
	b.l.logger.Warn("rule card skipped", zap.String("id", cerr.ID), zap.Int("line", cerr.Line), zap.String("reason", cerr.Reason))
	return nil
}

func (b *batch) add(rec rawCard, line int) error {
	card, source, cerr := b.l.build(rec)
	if cerr != nil {
		cerr.Line = line
		return b.reject(cerr)
	}
	if first, dup := b.seen[card.ID]; dup {
		return &CardError{ID: card.ID, Line: line, Field: "id", Reason: fmt.Sprintf("duplicates line %d", first)}
	}
	b.seen[card.ID] = line
	b.cards = append(b.cards, card)
	b.report.Cards++
	b.report.BySection[card.Section]++
	b.report.TagSources[source]++
	return nil
}

// #endregion batch

// #region build
// rawCard is the loosely-typed authored record.
type rawCard struct {
	ID             any    `json:"id" yaml:"id"`
	Topic          string `json:"topic" yaml:"topic"`
	Section        string `json:"section" yaml:"section"`
	Tags           any    `json:"tags" yaml:"tags"`
	Trigger        any    `json:"trigger" yaml:"trigger"`
	Triggers       any    `json:"triggers" yaml:"triggers"`
	Priority       any    `json:"priority" yaml:"priority"`
	Interpretation string `json:"interpretation" yaml:"interpretation"`
	Mechanism      string `json:"mechanism" yaml:"mechanism"`
	Action         string `json:"action" yaml:"action"`
	Cautions       any    `json:"cautions" yaml:"cautions"`
}

// build applies section resolution and the fallback chains to one record.
func (l *Loader) build(rec rawCard) (RuleCard, string, *CardError) {
	id := strings.TrimSpace(scalarString(rec.ID))
	if id == "" {
		return RuleCard{}, "", &CardError{Field: "id", Reason: "missing"}
	}

	sec, err := l.resolveSection(rec)
	if err != nil {
		return RuleCard{}, "", &CardError{ID: id, Field: "section", Reason: err.Error()}
	}

	trigger := CanonTags(append(flattenTokens(rec.Trigger), flattenTokens(rec.Triggers)...))

	// Tag fallback chain: explicit tags, trigger tokens, interpretation
	// keywords, then the section id itself.
	source := TagSourceExplicit
	tags := CanonTags(flattenTokens(rec.Tags))
	if len(tags) == 0 {
		source, tags = TagSourceTrigger, trigger
	}
	if len(tags) == 0 {
		source, tags = TagSourceInterpretation, CanonTags(Keywords(rec.Interpretation))
	}
	if len(tags) == 0 {
		source, tags = TagSourceSection, []string{CanonTag(string(sec))}
	}
	if len(trigger) == 0 {
		trigger = tags
	}

	card := RuleCard{
		ID:             id,
		Section:        sec,
		Topic:          strings.TrimSpace(rec.Topic),
		Tags:           tags,
		Trigger:        trigger,
		Priority:       SafePriority(rec.Priority),
		Interpretation: rec.Interpretation,
		Mechanism:      rec.Mechanism,
		Action:         rec.Action,
		Cautions:       flattenTokens(rec.Cautions),
	}
	if err := card.Validate(); err != nil {
		var cerr *CardError
		if errors.As(err, &cerr) {
			return RuleCard{}, "", cerr
		}
		return RuleCard{}, "", &CardError{ID: id, Reason: err.Error()}
	}
	return card, source, nil
}

func (l *Loader) resolveSection(rec rawCard) (Section, error) {
	if strings.TrimSpace(rec.Section) != "" {
		return ParseSection(rec.Section)
	}
	topic := strings.ToUpper(strings.TrimSpace(rec.Topic))
	if topic == "" {
		return "", errors.New("neither section nor topic set")
	}
	if sec, ok := l.topics[topic]; ok {
		return sec, nil
	}
	if sec, err := ParseSection(topic); err == nil {
		return sec, nil
	}
	return "", fmt.Errorf("topic %q not mapped to a section", rec.Topic)
}

// flattenTokens accepts the shapes authors used for token lists: a list,
// a JSON-encoded list or object inside a string, an object whose values are
// strings or lists (read in key order), or a single plain string.
func flattenTokens(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				return flattenTokens(parsed)
			}
		}
		return []string{s}
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			out = append(out, flattenTokens(s)...)
		}
		return out
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, flattenTokens(e)...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, flattenTokens(t[k])...)
		}
		return out
	default:
		if s := scalarString(t); s != "" {
			return []string{s}
		}
		return nil
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// #endregion build
