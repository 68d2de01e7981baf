package tasks

import (
	"context"

	"github.com/lysyi3m/post-comb/app/content"
	"github.com/lysyi3m/post-comb/app/feed"
)

// TaskSchedulerInterface is what the application and the API use to drive
// background work.
//
//	scheduler := NewScheduler(configCache, sourceRepo, postRepo, pipeline, httpClient, parser, filterer, contentExtractor)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueSourceTasks(sourceConfig)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueSourceTasks(sourceConfig *feed.Config) error
	EnqueueRecalculation() (string, error)
}

// PostWriter writes posts through the lifecycle hooks; *content.Pipeline satisfies it
type PostWriter interface {
	Create(ctx context.Context, record *content.Record) (string, error)
	Update(ctx context.Context, documentID string, record *content.Record) error
	PrepareUpdate(ctx context.Context, documentID string, record *content.Record) error
}

var _ PostWriter = (*content.Pipeline)(nil)
