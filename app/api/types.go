package api

import (
	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/feed"
	"github.com/lysyi3m/post-comb/app/readingtime"
	"github.com/lysyi3m/post-comb/app/tasks"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type GeneratorInterface interface {
	Run(posts []database.Post) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// EstimatorInterface gives a stateless estimate for arbitrary content
type EstimatorInterface interface {
	Estimate(value any) (readingtime.Stats, error)
}

var _ EstimatorInterface = (*readingtime.Annotator)(nil)

type Handler struct {
	postRepo     database.PostRepository
	sourceRepo   database.SourceRepository
	posts        tasks.PostWriter
	estimator    EstimatorInterface
	generator    GeneratorInterface
	configCache  *feed.ConfigCache
	scheduler    tasks.TaskSchedulerInterface
	feedMaxItems int
}

type estimateRequest struct {
	Content any `json:"content"`
}
