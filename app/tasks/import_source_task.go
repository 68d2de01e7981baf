package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/post-comb/app/content"
	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/feed"
)

// ImportSourceTask pulls a source feed and writes new or changed items as
// posts through the lifecycle pipeline.
type ImportSourceTask struct {
	Task
	SourceConfig     *feed.Config
	fetcher          fetcher
	parser           *feed.Parser
	filterer         *feed.Filterer
	contentExtractor *feed.ContentExtractor
	sourceRepo       database.SourceRepository
	postRepo         database.PostRepository
	posts            PostWriter
}

func NewImportSourceTask(sourceConfig *feed.Config, httpClient *http.Client, userAgent string,
	parser *feed.Parser, filterer *feed.Filterer, contentExtractor *feed.ContentExtractor,
	sourceRepo database.SourceRepository, postRepo database.PostRepository, posts PostWriter) *ImportSourceTask {
	return &ImportSourceTask{
		Task:             NewTask(TaskTypeImportSource, sourceConfig.Name),
		SourceConfig:     sourceConfig,
		fetcher:          fetcher{httpClient: httpClient, userAgent: userAgent},
		parser:           parser,
		filterer:         filterer,
		contentExtractor: contentExtractor,
		sourceRepo:       sourceRepo,
		postRepo:         postRepo,
		posts:            posts,
	}
}

type importStats struct {
	total, filtered, unchanged, created, updated, rejected int
}

func (t *ImportSourceTask) Execute(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	settings := t.SourceConfig.Settings
	if !settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.Target)
		return nil
	}

	data, err := t.fetcher.get(ctx, t.SourceConfig.URL, t.timeout(), false)
	if err != nil {
		return fmt.Errorf("failed to fetch source: %w", err)
	}

	metadata, items, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse source: %w", err)
	}

	if err := t.storeSourceMetadata(metadata); err != nil {
		return err
	}

	marked := t.filterer.Run(items, t.SourceConfig)
	accepted := feed.Accepted(marked, settings.MaxItems)

	stats := importStats{total: len(items), filtered: len(items) - len(accepted)}
	for _, item := range accepted {
		if err := checkContext(ctx); err != nil {
			return err
		}
		if err := t.importItem(ctx, item, &stats); err != nil {
			return err
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.Target,
		"duration", t.GetDuration(),
		"total", stats.total,
		"filtered", stats.filtered,
		"unchanged", stats.unchanged,
		"created", stats.created,
		"updated", stats.updated,
		"rejected", stats.rejected)

	return nil
}

func (t *ImportSourceTask) importItem(ctx context.Context, item feed.Item, stats *importStats) error {
	existing, err := t.postRepo.GetPostBySourceGUID(ctx, t.Target, item.GUID)
	if err != nil {
		return fmt.Errorf("failed to look up post for %s: %w", item.GUID, err)
	}

	if existing != nil && existing.ContentHash == item.ContentHash {
		stats.unchanged++
		return nil
	}

	if t.SourceConfig.Settings.ExtractContent && item.Link != "" {
		if extracted, err := t.extractArticle(ctx, item.Link); err != nil {
			slog.Warn("Content extraction failed, keeping feed content", "source", t.Target, "url", item.Link, "error", err)
		} else {
			item.Content = extracted
		}
	}

	record := feed.ToRecord(t.Target, item)

	if existing == nil {
		_, err = t.posts.Create(ctx, record)
	} else {
		err = t.posts.Update(ctx, existing.DocumentID, record)
	}

	switch {
	case errors.Is(err, content.ErrHookFailed):
		slog.Warn("Item rejected by lifecycle hooks", "source", t.Target, "guid", item.GUID, "error", err)
		stats.rejected++
		return nil
	case err != nil:
		return fmt.Errorf("failed to store post for %s: %w", item.GUID, err)
	case existing == nil:
		stats.created++
	default:
		stats.updated++
	}

	return nil
}

func (t *ImportSourceTask) extractArticle(ctx context.Context, link string) (string, error) {
	data, err := t.fetcher.get(ctx, link, t.timeout(), true)
	if err != nil {
		return "", err
	}
	return t.contentExtractor.Run(data, link)
}

func (t *ImportSourceTask) storeSourceMetadata(metadata *feed.Metadata) error {
	source, err := t.sourceRepo.GetSource(t.Target)
	if err != nil {
		return fmt.Errorf("failed to load source: %w", err)
	}
	if source == nil {
		if err := t.sourceRepo.UpsertSource(t.Target, t.SourceConfig.URL); err != nil {
			return fmt.Errorf("failed to register source: %w", err)
		}
	}

	nextFetch := time.Now().UTC().Add(time.Duration(t.SourceConfig.Settings.RefreshInterval) * time.Second)
	if err := t.sourceRepo.UpdateSourceMetadata(t.Target, metadata.Title, metadata.Link, nextFetch); err != nil {
		return fmt.Errorf("failed to update source metadata and next fetch time: %w", err)
	}

	return nil
}

func (t *ImportSourceTask) timeout() time.Duration {
	return time.Duration(t.SourceConfig.Settings.Timeout) * time.Second
}
