package api

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/post-comb/app/content"
	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/feed"
	"github.com/lysyi3m/post-comb/app/tasks"
)

func NewHandler(configCache *feed.ConfigCache, postRepo database.PostRepository,
	sourceRepo database.SourceRepository, posts tasks.PostWriter, estimator EstimatorInterface,
	scheduler tasks.TaskSchedulerInterface, feedMaxItems int) *Handler {
	return &Handler{
		postRepo:     postRepo,
		sourceRepo:   sourceRepo,
		posts:        posts,
		estimator:    estimator,
		generator:    feed.NewGenerator(),
		configCache:  configCache,
		scheduler:    scheduler,
		feedMaxItems: feedMaxItems,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if postCount, err := h.postRepo.GetPostCount(c.Request.Context()); err == nil {
		health["posts"] = postCount
	}
	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}
	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetFeed(c *gin.Context) {
	posts, err := h.postRepo.ListPosts(c.Request.Context(), h.feedMaxItems)
	if err != nil {
		slog.Error("Database error", "operation", "list_posts", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(posts)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("X-Feed-Items", strconv.Itoa(len(posts)))
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(rss))
}

func (h *Handler) GetPost(c *gin.Context) {
	post, ok := h.loadPost(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, postJSON(post))
}

func (h *Handler) APIListPosts(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxListLimit)
	}

	posts, err := h.postRepo.ListPosts(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		items = append(items, postJSON(&posts[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": items,
		"total": len(items),
	})
}

func (h *Handler) APICreatePost(c *gin.Context) {
	var record content.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post payload", "details": err.Error()})
		return
	}
	// readingTime is derived by the lifecycle hooks only
	record.ReadingTime = nil

	documentID, err := h.posts.Create(c.Request.Context(), &record)
	if err != nil {
		h.writeError(c, "create_post", err)
		return
	}

	post, ok := h.loadPost(c, documentID)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, postJSON(post))
}

func (h *Handler) APIUpdatePost(c *gin.Context) {
	documentID := c.Param("id")

	var record content.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post payload", "details": err.Error()})
		return
	}
	// readingTime is derived by the lifecycle hooks only
	record.ReadingTime = nil

	if err := h.posts.Update(c.Request.Context(), documentID, &record); err != nil {
		h.writeError(c, "update_post", err)
		return
	}

	post, ok := h.loadPost(c, documentID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, postJSON(post))
}

func (h *Handler) APIEstimateReadingTime(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	record := content.NewRecord(req.Content)
	if !record.HasContent() {
		c.JSON(http.StatusOK, gin.H{"words": 0, "minutes": 0, "readingTime": nil})
		return
	}

	stats, err := h.estimator.Estimate(req.Content)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Content cannot be normalized", "details": err.Error()})
		return
	}

	minutes := stats.RoundedMinutes()
	c.JSON(http.StatusOK, gin.H{
		"words":       stats.Words,
		"minutes":     stats.Minutes,
		"readingTime": minutes,
		"text":        feed.ReadingTimeLabel(&minutes),
	})
}

func (h *Handler) APIRecalculateReadingTime(c *gin.Context) {
	taskID, err := h.scheduler.EnqueueRecalculation()
	if err != nil {
		slog.Error("Error enqueueing recalculation task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue recalculation", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task": gin.H{
			"id":   taskID,
			"type": tasks.TaskTypeRecalculateReadingTime,
		},
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	stored := make(map[string]database.Source)
	if rows, err := h.sourceRepo.GetSources(); err == nil {
		for _, source := range rows {
			stored[source.Name] = source
		}
	} else {
		slog.Error("Database error", "operation", "get_sources", "error", err)
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]gin.H, 0, len(names))
	for _, name := range names {
		sourceConfig := configs[name]
		info := gin.H{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"title":            "",
			"enabled":          sourceConfig.Settings.Enabled,
			"max_items":        sourceConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"extract_content":  sourceConfig.Settings.ExtractContent,
			"filters":          len(sourceConfig.Filters),
		}

		if source, ok := stored[name]; ok {
			info["title"] = source.Title
			info["link"] = source.Link
			info["last_fetched_at"] = source.LastFetchedAt
			info["next_fetch_at"] = source.NextFetchAt
			info["updated_at"] = source.UpdatedAt
		}

		sources = append(sources, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIReloadSource(c *gin.Context) {
	name := c.Param("name")

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		status := http.StatusBadRequest
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "Failed to reload configuration", "details": err.Error()})
		return
	}

	if err := h.scheduler.EnqueueSourceTasks(sourceConfig); err != nil {
		slog.Error("Error enqueueing source tasks", "source", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue source tasks", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"source": gin.H{
			"name":    sourceConfig.Name,
			"url":     sourceConfig.URL,
			"enabled": sourceConfig.Settings.Enabled,
		},
	})
}

func (h *Handler) loadPost(c *gin.Context, documentID string) (*database.Post, bool) {
	post, err := h.postRepo.GetPost(c.Request.Context(), documentID)
	if err != nil {
		slog.Error("Database error", "operation", "get_post", "document_id", documentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	return post, true
}

func (h *Handler) writeError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, content.ErrHookFailed):
		slog.Warn("Write rejected by lifecycle hooks", "operation", operation, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Post rejected", "details": err.Error()})
	case errors.Is(err, database.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
	default:
		slog.Error("Database error", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}

func postJSON(post *database.Post) gin.H {
	out := gin.H{}
	for k, v := range post.Attributes {
		out[k] = v
	}

	out["documentId"] = post.DocumentID
	out["title"] = post.Title
	out["slug"] = post.Slug
	out["content"] = post.Content
	out["readingTime"] = post.ReadingTime
	out["publishedAt"] = post.PublishedAt
	out["createdAt"] = post.CreatedAt
	out["updatedAt"] = post.UpdatedAt
	if post.Source != "" {
		out["source"] = post.Source
		out["sourceGuid"] = post.SourceGUID
	}

	return out
}
