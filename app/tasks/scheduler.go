package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/post-comb/app/cfg"
	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/feed"
)

const (
	taskQueueSize  = 300
	taskTimeout    = 5 * time.Minute
	maxRetryDelay  = 30 * time.Second
	postModelLabel = "posts"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache      *feed.ConfigCache
	sourceRepo       database.SourceRepository
	postRepo         database.PostRepository
	posts            PostWriter
	httpClient       *http.Client
	parser           *feed.Parser
	filterer         *feed.Filterer
	contentExtractor *feed.ContentExtractor
	userAgent        string
	interval         time.Duration
	workerCount      int
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(configCache *feed.ConfigCache, sourceRepo database.SourceRepository,
	postRepo database.PostRepository, posts PostWriter, httpClient *http.Client,
	parser *feed.Parser, filterer *feed.Filterer, contentExtractor *feed.ContentExtractor) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	config := cfg.Get()

	return &Scheduler{
		configCache:      configCache,
		sourceRepo:       sourceRepo,
		postRepo:         postRepo,
		posts:            posts,
		httpClient:       httpClient,
		parser:           parser,
		filterer:         filterer,
		contentExtractor: contentExtractor,
		userAgent:        config.UserAgent,
		interval:         time.Duration(max(config.SchedulerInterval, 1)) * time.Second,
		workerCount:      max(config.WorkerCount, 1),
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, taskQueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueImports()
			}
		}
	}()
}

// Stop cancels running tasks and waits for the workers. Queued tasks are dropped.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueSourceTasks queues a config sync and, for enabled sources, an import
func (s *Scheduler) EnqueueSourceTasks(sourceConfig *feed.Config) error {
	if err := s.EnqueueTask(NewSyncSourceConfigTask(sourceConfig, s.sourceRepo)); err != nil {
		return fmt.Errorf("failed to enqueue source sync: %w", err)
	}

	if !sourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping import", "source", sourceConfig.Name)
		return nil
	}

	if err := s.EnqueueTask(s.newImportTask(sourceConfig)); err != nil {
		return fmt.Errorf("failed to enqueue source import: %w", err)
	}
	return nil
}

func (s *Scheduler) EnqueueRecalculation() (string, error) {
	task := NewRecalculateReadingTimeTask(postModelLabel, s.postRepo, s.posts)
	if err := s.EnqueueTask(task); err != nil {
		return "", err
	}
	return task.GetID(), nil
}

func (s *Scheduler) newImportTask(sourceConfig *feed.Config) *ImportSourceTask {
	return NewImportSourceTask(sourceConfig, s.httpClient, s.userAgent,
		s.parser, s.filterer, s.contentExtractor,
		s.sourceRepo, s.postRepo, s.posts)
}

func (s *Scheduler) enqueueStartupTasks() {
	sourceConfigs := s.configCache.GetConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Processing source configurations", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		if err := s.EnqueueSourceTasks(sourceConfig); err != nil {
			slog.Warn("Failed to enqueue source tasks", "source", sourceConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueDueImports() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	now := time.Now().UTC()
	for _, sourceConfig := range sourceConfigs {
		source, err := s.sourceRepo.GetSource(sourceConfig.Name)
		if err != nil {
			slog.Warn("Failed to get source from database, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}
		if source == nil {
			slog.Warn("Source not found in database, skipping", "source", sourceConfig.Name)
			continue
		}

		if source.NextFetchAt != nil && source.NextFetchAt.After(now) {
			slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name, "next_fetch_at", source.NextFetchAt)
			continue
		}

		if err := s.EnqueueTask(s.newImportTask(sourceConfig)); err != nil {
			slog.Warn("Failed to enqueue ImportSourceTask", "source", sourceConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed",
		"worker_id", workerID,
		"type", task.GetType(),
		"id", task.GetID(),
		"target", task.GetTarget(),
		"retry_count", task.GetRetryCount(),
		"error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries",
			"type", task.GetType(),
			"id", task.GetID(),
			"max_retries", task.GetMaxRetries(),
			"last_error", err)
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled",
		"type", task.GetType(),
		"target", task.GetTarget(),
		"retry_count", task.GetRetryCount(),
		"max_retries", task.GetMaxRetries(),
		"delay", delay.String())

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", task.GetType(), "id", task.GetID())
		case <-timer.C:
			if err := s.EnqueueTask(task); err != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", task.GetType(), "id", task.GetID(), "error", err)
			}
		}
	}()
}

// retryDelay doubles from one second per attempt, capped at maxRetryDelay
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		return maxRetryDelay
	}
	return min(time.Duration(1<<uint(attempt-1))*time.Second, maxRetryDelay)
}
