// Package recommend composes an assessment, gap analysis and content lookup
// into a recommendation bundle.
package recommend

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/skillprobe/internal/gaps"
	"github.com/abhisek/skillprobe/internal/logger"
	"github.com/abhisek/skillprobe/internal/pipeline"
)

const (
	tracerName = "github.com/abhisek/skillprobe/internal/recommend"

	// DefaultTopK is how many results each gap query asks for.
	DefaultTopK = 3

	// DefaultStrategy is passed through to the lookup.
	DefaultStrategy = "hybrid"

	// lowAbility triggers an early re-assessment.
	lowAbility = -0.3
)

// Orchestrator runs assess-then-recommend cycles.
type Orchestrator struct {
	pipeline *pipeline.Pipeline
	lookup   ContentLookup
	progress ProgressRecorder
	log      *logger.Logger
	tracer   trace.Tracer
	strategy string
	topK     int
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLookup sets the content lookup. Without one, bundles carry gaps but
// no content.
func WithLookup(l ContentLookup) Option {
	return func(o *Orchestrator) { o.lookup = l }
}

// WithProgressRecorder persists UpdateAfterLearning records.
func WithProgressRecorder(r ProgressRecorder) Option {
	return func(o *Orchestrator) { o.progress = r }
}

func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracer = tp.Tracer(tracerName) }
}

func WithStrategy(s string) Option {
	return func(o *Orchestrator) { o.strategy = s }
}

func WithTopK(k int) Option {
	return func(o *Orchestrator) { o.topK = k }
}

// WithClock overrides time.Now for progress timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator around p.
func New(p *pipeline.Pipeline, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pipeline: p,
		log:      logger.Nop(),
		tracer:   otel.Tracer(tracerName),
		strategy: DefaultStrategy,
		topK:     DefaultTopK,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.topK <= 0 {
		o.topK = DefaultTopK
	}
	return o
}

// RunAssessmentAndRecommend runs the assessment, derives learning gaps and,
// when both a lookup and a profile are available, gathers content for each
// gap. A failing lookup is logged and skipped; pipeline errors are returned.
func (o *Orchestrator) RunAssessmentAndRecommend(ctx context.Context, learnerID string, in pipeline.Input, profile *LearnerProfile) (*Bundle, error) {
	ctx, span := o.tracer.Start(ctx, "recommend.run", trace.WithAttributes(
		attribute.String("learner.id", learnerID),
	))
	defer span.End()

	res, err := o.pipeline.Run(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assessment failed")
		return nil, fmt.Errorf("run assessment: %w", err)
	}

	theta := res.Session.Theta
	found := gaps.Identify(res.Mastery, theta)

	b := &Bundle{
		LearnerID:      learnerID,
		Assessment:     res.Dashboard,
		Gaps:           found,
		Content:        []ContentItem{},
		Path:           []string{},
		NextAssessment: nextTrigger(theta, found),
		Result:         res,
	}
	for _, g := range found {
		b.TotalMinutes += g.Minutes
	}

	if o.lookup != nil && profile != nil {
		o.gatherContent(ctx, b, *profile)
	}

	span.SetAttributes(
		attribute.Float64("ability.theta", theta),
		attribute.Int("gaps.count", len(found)),
		attribute.Int("content.count", len(b.Content)),
		attribute.String("next_assessment", string(b.NextAssessment)),
	)
	return b, nil
}

func (o *Orchestrator) gatherContent(ctx context.Context, b *Bundle, profile LearnerProfile) {
	seen := make(map[string]bool)
	queries := gaps.CreateDiscoveryQueries(b.Gaps, profile.Context)

	for _, q := range queries {
		items, err := o.lookupOne(ctx, q, profile)
		if err != nil {
			o.log.Warn("content lookup failed",
				"learner", b.LearnerID,
				"query", q.Text,
				"error", err,
			)
			continue
		}
		for _, it := range items {
			if it.Difficulty != q.Difficulty || seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			b.Content = append(b.Content, it)
			b.Path = append(b.Path, it.ID)
		}
	}
}

func (o *Orchestrator) lookupOne(ctx context.Context, q gaps.Query, profile LearnerProfile) ([]ContentItem, error) {
	ctx, span := o.tracer.Start(ctx, "recommend.lookup", trace.WithAttributes(
		attribute.String("query", q.Text),
		attribute.String("difficulty", string(q.Difficulty)),
	))
	defer span.End()

	items, err := o.lookup.Lookup(ctx, q.Text, profile, o.strategy, o.topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("results", len(items)))
	return items, nil
}

// nextTrigger schedules an early re-assessment for weak learners.
func nextTrigger(theta float64, found []gaps.LearningGap) Trigger {
	if theta < lowAbility {
		return TriggerAfterThreeItems
	}
	for _, g := range found {
		if g.Priority == gaps.PriorityHigh {
			return TriggerAfterThreeItems
		}
	}
	return TriggerWeekly
}

// UpdateAfterLearning records finished content without re-running the
// assessment. Re-assessing is left to the caller.
func (o *Orchestrator) UpdateAfterLearning(ctx context.Context, learnerID string, contentIDs []string, elapsed time.Duration) (ProgressRecord, error) {
	rec := ProgressRecord{
		LearnerID:  learnerID,
		ContentIDs: append([]string(nil), contentIDs...),
		Elapsed:    elapsed,
		RecordedAt: o.now().UTC(),
	}
	if o.progress != nil {
		if err := o.progress.RecordProgress(ctx, rec); err != nil {
			return rec, fmt.Errorf("record progress: %w", err)
		}
	}
	o.log.Info("progress recorded",
		"learner", learnerID,
		"content", len(rec.ContentIDs),
		"minutes", int(elapsed.Minutes()),
	)
	return rec, nil
}
