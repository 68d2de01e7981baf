package readingtime

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/post-comb/app/content"
)

var _ content.Lifecycle = (*Annotator)(nil)

// Annotator writes readingTime onto records before they are created or
// updated. It never reads readingTime, so repeated runs over unchanged
// content produce the same value.
type Annotator struct {
	estimator *Estimator
	strict    bool
}

type Option func(*Annotator)

// WithStrictNormalization makes the lifecycle hooks return normalization
// failures instead of leaving the record untouched.
func WithStrictNormalization() Option {
	return func(a *Annotator) {
		a.strict = true
	}
}

func NewAnnotator(estimator *Estimator, opts ...Option) *Annotator {
	if estimator == nil {
		estimator = NewEstimator(DefaultWordsPerMinute)
	}

	a := &Annotator{estimator: estimator}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Annotator) Annotate(record *content.Record) {
	if err := a.annotate(record); err != nil {
		slog.Warn("Reading time not updated", "error", err)
	}
}

func (a *Annotator) BeforeCreate(ctx context.Context, event *content.Event) error {
	return a.hook(event)
}

func (a *Annotator) BeforeUpdate(ctx context.Context, event *content.Event) error {
	return a.hook(event)
}

func (a *Annotator) Estimate(value any) (Stats, error) {
	text, err := Normalize(value)
	if err != nil {
		return Stats{}, err
	}
	return a.estimator.Run(text), nil
}

func (a *Annotator) hook(event *content.Event) error {
	err := a.annotate(event.Params.Data)
	if err == nil {
		return nil
	}

	if a.strict {
		return err
	}

	slog.Warn("Reading time not updated", "model", event.Model, "action", event.Action, "error", err)
	return nil
}

func (a *Annotator) annotate(record *content.Record) error {
	if !record.HasContent() {
		return nil
	}

	stats, err := a.Estimate(record.Content)
	if err != nil {
		return err
	}

	record.SetReadingTime(stats.RoundedMinutes())

	slog.Debug("Reading time estimated",
		"words", stats.Words,
		"words_per_minute", a.estimator.WordsPerMinute(),
		"reading_time", *record.ReadingTime)

	return nil
}
