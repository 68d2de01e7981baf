package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/post-comb/app/content"
	"github.com/lysyi3m/post-comb/app/database"
)

// RecalculateReadingTimeTask re-runs the before-update hooks over every
// stored post's current content and writes back readingTime only, e.g.
// after the rate changed.
type RecalculateReadingTimeTask struct {
	Task
	postRepo database.PostRepository
	posts    PostWriter
}

func NewRecalculateReadingTimeTask(model string, postRepo database.PostRepository, posts PostWriter) *RecalculateReadingTimeTask {
	return &RecalculateReadingTimeTask{
		Task:     NewTask(TaskTypeRecalculateReadingTime, model),
		postRepo: postRepo,
		posts:    posts,
	}
}

func (t *RecalculateReadingTimeTask) Execute(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	posts, err := t.postRepo.GetAllPosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load posts: %w", err)
	}

	updated, unchanged, rejected := 0, 0, 0
	for _, post := range posts {
		if err := checkContext(ctx); err != nil {
			return err
		}

		documentID := post.DocumentID
		changed, err := t.postRepo.RefreshReadingTime(ctx, documentID, func(record *content.Record) error {
			return t.posts.PrepareUpdate(ctx, documentID, record)
		})
		switch {
		case errors.Is(err, content.ErrHookFailed):
			slog.Warn("Post rejected by lifecycle hooks", "document_id", documentID, "error", err)
			rejected++
		case errors.Is(err, database.ErrPostNotFound):
			slog.Debug("Post removed before recalculation", "document_id", documentID)
		case err != nil:
			return fmt.Errorf("failed to recalculate post %s: %w", documentID, err)
		case changed:
			updated++
		default:
			unchanged++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"model", t.Target,
		"duration", t.GetDuration(),
		"total", len(posts),
		"updated", updated,
		"unchanged", unchanged,
		"rejected", rejected)

	return nil
}
