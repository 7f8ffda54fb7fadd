package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/rulecard-match/internal/eval"
	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/logging"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
	"github.com/danielpatrickdp/rulecard-match/internal/store"
)

// #region recorder
// Recorder persists one request with its provenance rows.
// *store.Store satisfies it.
type Recorder interface {
	SaveRequest(rec store.RequestRecord, provenance []logging.ProvenanceEntry) (store.RequestRecord, error)
}

// #endregion recorder

// #region service-struct
// Service is the request-handling collaborator around the match engine:
// validate, match, evaluate coverage, persist. Each request is independent,
// so one Service serves any number of concurrent callers.
type Service struct {
	engine     *match.Engine
	harness    *eval.EvalHarness
	recorder   Recorder
	batchLimit int
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder persists every request. Without it nothing is stored.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithBatchLimit bounds the goroutines MatchBatch runs at once.
func WithBatchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service over a built engine.
func New(engine *match.Engine, harness *eval.EvalHarness, opts ...Option) *Service {
	s := &Service{
		engine:     engine,
		harness:    harness,
		batchLimit: 8,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// #endregion service-struct

// #region outcome
// Outcome is everything produced for one request.
type Outcome struct {
	RequestID string
	Results   match.Results
	Trace     match.TraceRecord
	Report    match.Report
	Eval      eval.EvalResult
}

// #endregion outcome

// #region match
// Match runs one request end to end. Validation errors and integrity
// violations fail the request; zero-match sections do not.
func (s *Service) Match(ctx context.Context, f features.FeatureSet) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	results, trace, err := s.engine.MatchAll(f)
	if err != nil {
		s.logger.Info("request rejected", zap.Error(err))
		return Outcome{}, err
	}

	out := Outcome{
		RequestID: store.NewRequestID(),
		Results:   results,
		Trace:     trace,
		Report:    match.BuildReport(s.engine.Index(), f, results, trace),
		Eval:      s.harness.Run(results),
	}
	out.Report.RequestID = out.RequestID

	if s.recorder != nil {
		if err := s.persist(f, out); err != nil {
			s.logger.Error("persist failed", zap.String("request_id", out.RequestID), zap.Error(err))
			return Outcome{}, err
		}
	}

	s.logger.Info("request matched",
		zap.String("request_id", out.RequestID),
		zap.Int("cards", trace.Len()),
		zap.Bool("coverage_passed", out.Eval.Passed),
		zap.Any("zero_sections", out.Eval.ZeroSections),
	)
	return out, nil
}

// #endregion match

// #region batch
// MatchBatch runs fs concurrently, one goroutine per request bounded by the
// batch limit. Outcomes keep input order; the first error cancels the rest.
func (s *Service) MatchBatch(ctx context.Context, fs []features.FeatureSet) ([]Outcome, error) {
	outcomes := make([]Outcome, len(fs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i, f := range fs {
		i, f := i, f
		g.Go(func() error {
			out, err := s.Match(gctx, f)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// #endregion batch

// #region persist
func (s *Service) persist(f features.FeatureSet, out Outcome) error {
	// the wire map form keeps empty lists present so stored requests decode again
	fm, err := f.ToMap()
	if err != nil {
		return err
	}
	featuresJSON, err := json.Marshal(fm)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	traceJSON, err := json.Marshal(out.Trace)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	reportJSON, err := json.Marshal(out.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	hash := f.ContextHash()
	tokens := features.Tokens(f).Slice()
	var provenance []logging.ProvenanceEntry
	for _, sec := range rulecard.Sections() {
		res := out.Results[sec]
		scores := make(map[string]float64, len(res.Matches))
		for _, m := range res.Matches {
			scores[m.CardID] = m.Score
		}
		entry, err := logging.SectionEntry(out.RequestID, hash, logging.SectionRecord{
			Section:    string(sec),
			Tokens:     tokens,
			Candidates: res.Candidates,
			Fired:      res.FiredCount,
			TopN:       s.engine.TopN(sec),
			Scores:     scores,
			AvgScore:   res.AvgScore,
		}, res.IDs())
		if err != nil {
			return err
		}
		provenance = append(provenance, entry)
	}

	zero := make([]string, 0, len(out.Eval.ZeroSections))
	for _, sec := range out.Eval.ZeroSections {
		zero = append(zero, string(sec))
	}

	_, err = s.recorder.SaveRequest(store.RequestRecord{
		RequestID:    out.RequestID,
		ContextHash:  hash,
		FeaturesJSON: string(featuresJSON),
		TraceJSON:    string(traceJSON),
		ReportJSON:   string(reportJSON),
		Matched:      out.Trace.Len(),
		ZeroSections: zero,
	}, provenance)
	if err != nil {
		return fmt.Errorf("persist request: %w", err)
	}
	return nil
}

// #endregion persist
