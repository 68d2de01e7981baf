package tasks

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/feed"
)

type failingTask struct {
	Task
	calls int
}

func (t *failingTask) Execute(ctx context.Context) error {
	t.calls++
	return errors.New("boom")
}

func newTestScheduler(t *testing.T, sourcesDir string) (*Scheduler, *database.PostStore) {
	t.Helper()
	setupTestConfig(t)

	db := setupTestDB(t)
	postRepo := database.NewPostRepository(db)
	configCache := feed.NewConfigCache(sourcesDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	scheduler := NewScheduler(configCache, database.NewSourceRepository(db), postRepo,
		newPipeline(postRepo, 200), http.DefaultClient,
		feed.NewParser(), feed.NewFilterer(), feed.NewContentExtractor())
	return scheduler, postRepo
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{40, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := retryDelay(tt.attempt); got != tt.expected {
			t.Errorf("retryDelay(%d) = %v, expected %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestTask_Bookkeeping(t *testing.T) {
	task := NewTask(TaskTypeImportSource, "remote")

	if task.ID == "" || task.MaxRetries != DefaultMaxRetries {
		t.Errorf("Unexpected task: %+v", task)
	}
	if other := NewTask(TaskTypeImportSource, "remote"); other.ID == task.ID {
		t.Error("Expected unique task IDs")
	}
	if task.GetDuration() != 0 {
		t.Error("Unstarted task should report zero duration")
	}

	task.Start()
	for task.CanRetry() {
		task.IncrementRetryCount()
	}
	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("Expected %d retries, got %d", DefaultMaxRetries, task.GetRetryCount())
	}
}

func TestScheduler_EnqueueSourceTasks(t *testing.T) {
	scheduler, _ := newTestScheduler(t, t.TempDir())
	defer scheduler.Stop()

	disabled := sourceConfig("off", "https://example.com/feed.xml")
	disabled.Settings.Enabled = false
	if err := scheduler.EnqueueSourceTasks(disabled); err != nil {
		t.Fatal(err)
	}
	if len(scheduler.taskQueue) != 1 {
		t.Errorf("Expected only the sync task for a disabled source, got %d", len(scheduler.taskQueue))
	}

	if err := scheduler.EnqueueSourceTasks(sourceConfig("on", "https://example.com/feed.xml")); err != nil {
		t.Fatal(err)
	}
	if len(scheduler.taskQueue) != 3 {
		t.Errorf("Expected sync and import tasks for an enabled source, got %d queued", len(scheduler.taskQueue))
	}

	id, err := scheduler.EnqueueRecalculation()
	if err != nil || id == "" {
		t.Errorf("Expected recalculation to be queued, got %q (err %v)", id, err)
	}
}

func TestScheduler_QueueFullAndStopped(t *testing.T) {
	scheduler, _ := newTestScheduler(t, t.TempDir())

	for i := 0; i < taskQueueSize; i++ {
		if err := scheduler.EnqueueTask(&failingTask{Task: NewTask(TaskTypeImportSource, "x")}); err != nil {
			t.Fatalf("Unexpected error at %d: %v", i, err)
		}
	}
	if err := scheduler.EnqueueTask(&failingTask{Task: NewTask(TaskTypeImportSource, "x")}); err == nil {
		t.Error("Expected error for full queue")
	}

	scheduler.Stop()
	if err := scheduler.EnqueueTask(&failingTask{Task: NewTask(TaskTypeImportSource, "x")}); err == nil {
		t.Error("Expected error after stop")
	}
}

func TestScheduler_ExecuteTaskSchedulesRetry(t *testing.T) {
	scheduler, _ := newTestScheduler(t, t.TempDir())
	defer scheduler.Stop()

	task := &failingTask{Task: NewTask(TaskTypeImportSource, "x")}
	scheduler.executeTask(0, task)

	if task.calls != 1 {
		t.Errorf("Expected 1 execution, got %d", task.calls)
	}
	if task.GetRetryCount() != 1 {
		t.Errorf("Expected retry to be scheduled, got retry count %d", task.GetRetryCount())
	}

	exhausted := &failingTask{Task: NewTask(TaskTypeImportSource, "x")}
	exhausted.MaxRetries = 0
	scheduler.executeTask(0, exhausted)
	if exhausted.GetRetryCount() != 0 {
		t.Error("Exhausted task should not be retried")
	}
}

func TestScheduler_StartImportsConfiguredSources(t *testing.T) {
	server := newSourceServer(t)
	server.setFeed(rssDocument(testItem{"post", "Scheduled", "https://remote.example.com/post", words("word", 300)}))

	sourcesDir := t.TempDir()
	sourceFile := "url: " + server.URL + "/feed.xml\nsettings:\n  enabled: true\n"
	if err := os.WriteFile(filepath.Join(sourcesDir, "remote.yml"), []byte(sourceFile), 0644); err != nil {
		t.Fatal(err)
	}

	scheduler, postRepo := newTestScheduler(t, sourcesDir)
	scheduler.Start()
	defer scheduler.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		post, err := postRepo.GetPostBySourceGUID(context.Background(), "remote", "post")
		if err != nil {
			t.Fatal(err)
		}
		if post != nil {
			if post.ReadingTime == nil || *post.ReadingTime != 2 {
				t.Errorf("Expected reading time 2, got %v", post.ReadingTime)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("Scheduled import did not create the post in time")
}
