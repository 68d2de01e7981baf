package content

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type mockStore struct {
	mu      sync.Mutex
	created []*Record
	updated map[string]*Record
}

func newMockStore() *mockStore {
	return &mockStore{updated: make(map[string]*Record)}
}

func (m *mockStore) CreateRecord(ctx context.Context, record *Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, cloneRecord(record))
	return "doc-1", nil
}

func (m *mockStore) UpdateRecord(ctx context.Context, documentID string, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated[documentID] = cloneRecord(record)
	return nil
}

func cloneRecord(record *Record) *Record {
	clone := NewRecord(record.Content)
	for k, v := range record.Fields {
		clone.Fields[k] = v
	}
	if record.ReadingTime != nil {
		clone.SetReadingTime(*record.ReadingTime)
	}
	return clone
}

type countingLifecycle struct {
	creates int
	updates int
}

func (c *countingLifecycle) BeforeCreate(ctx context.Context, event *Event) error {
	c.creates++
	event.Params.Data.Set("stage", "created")
	return nil
}

func (c *countingLifecycle) BeforeUpdate(ctx context.Context, event *Event) error {
	c.updates++
	event.Params.Data.Set("stage", "updated")
	return nil
}

func TestPipeline_CreateRunsHooksBeforeStore(t *testing.T) {
	store := newMockStore()
	pipeline := NewPipeline("blog-post", store)

	var seen *Event
	pipeline.OnBeforeCreate(func(ctx context.Context, event *Event) error {
		seen = event
		event.Params.Data.SetReadingTime(5)
		return nil
	})

	documentID, err := pipeline.Create(context.Background(), NewRecord("hello"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if documentID != "doc-1" {
		t.Errorf("Expected document ID 'doc-1', got '%s'", documentID)
	}

	if seen == nil {
		t.Fatal("Expected before-create hook to run")
	}
	if seen.Action != ActionCreate || seen.Model != "blog-post" {
		t.Errorf("Unexpected event: action=%s model=%s", seen.Action, seen.Model)
	}

	if len(store.created) != 1 {
		t.Fatalf("Expected 1 stored record, got %d", len(store.created))
	}
	if store.created[0].ReadingTime == nil || *store.created[0].ReadingTime != 5 {
		t.Error("Store should receive the record as mutated by the hook")
	}
}

func TestPipeline_UpdateCarriesDocumentID(t *testing.T) {
	store := newMockStore()
	pipeline := NewPipeline("blog-post", store)

	var where map[string]any
	pipeline.OnBeforeUpdate(func(ctx context.Context, event *Event) error {
		where = event.Params.Where
		return nil
	})

	if err := pipeline.Update(context.Background(), "abc", NewRecord("x")); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if where["documentId"] != "abc" {
		t.Errorf("Expected where.documentId 'abc', got %v", where["documentId"])
	}
	if _, ok := store.updated["abc"]; !ok {
		t.Error("Expected record to be stored under 'abc'")
	}
}

func TestPipeline_PrepareUpdateSkipsStore(t *testing.T) {
	store := newMockStore()
	pipeline := NewPipeline("blog-post", store)
	pipeline.OnBeforeUpdate(RecordHook(func(record *Record) {
		record.SetReadingTime(2)
	}))

	record := NewRecord("x")
	if err := pipeline.PrepareUpdate(context.Background(), "abc", record); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if record.ReadingTime == nil || *record.ReadingTime != 2 {
		t.Errorf("Expected hook to set reading time 2, got %v", record.ReadingTime)
	}
	if len(store.updated) != 0 {
		t.Errorf("Expected no store writes, got %d", len(store.updated))
	}
}

func TestPipeline_HookErrorAbortsWrite(t *testing.T) {
	store := newMockStore()
	pipeline := NewPipeline("blog-post", store)

	boom := errors.New("boom")
	pipeline.OnBeforeCreate(func(ctx context.Context, event *Event) error {
		return boom
	})

	_, err := pipeline.Create(context.Background(), NewRecord("x"))
	if err == nil {
		t.Fatal("Expected error from failing hook")
	}
	if !errors.Is(err, ErrHookFailed) {
		t.Errorf("Expected ErrHookFailed, got: %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped hook error, got: %v", err)
	}
	if len(store.created) != 0 {
		t.Error("Store should not be called when a hook fails")
	}
}

func TestPipeline_HooksRunInRegistrationOrder(t *testing.T) {
	pipeline := NewPipeline("blog-post", newMockStore())

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		pipeline.OnBeforeUpdate(func(ctx context.Context, event *Event) error {
			order = append(order, i)
			return nil
		})
	}

	if err := pipeline.Update(context.Background(), "id", NewRecord("x")); err != nil {
		t.Fatal(err)
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("Expected hooks in order [1 2 3], got %v", order)
	}
}

func TestPipeline_RegisterLifecycle(t *testing.T) {
	store := newMockStore()
	pipeline := NewPipeline("blog-post", store)
	lifecycle := &countingLifecycle{}
	pipeline.Register(lifecycle)

	if _, err := pipeline.Create(context.Background(), NewRecord("a")); err != nil {
		t.Fatal(err)
	}
	if err := pipeline.Update(context.Background(), "doc-1", NewRecord("b")); err != nil {
		t.Fatal(err)
	}

	if lifecycle.creates != 1 || lifecycle.updates != 1 {
		t.Errorf("Expected 1 create and 1 update, got %d and %d", lifecycle.creates, lifecycle.updates)
	}
	if store.created[0].String("stage") != "created" {
		t.Error("Expected before-create hook to mark record")
	}
	if store.updated["doc-1"].String("stage") != "updated" {
		t.Error("Expected before-update hook to mark record")
	}
}

func TestPipeline_RecordHook(t *testing.T) {
	store := newMockStore()
	pipeline := NewPipeline("blog-post", store)
	pipeline.OnBeforeCreate(RecordHook(func(record *Record) {
		record.SetReadingTime(1)
	}))

	if _, err := pipeline.Create(context.Background(), NewRecord("x")); err != nil {
		t.Fatal(err)
	}
	if *store.created[0].ReadingTime != 1 {
		t.Error("Expected RecordHook mutation to reach the store")
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	store := newMockStore()
	pipeline := NewPipeline("blog-post", store)
	pipeline.OnBeforeCreate(RecordHook(func(record *Record) {}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pipeline.Create(ctx, NewRecord("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if len(store.created) != 0 {
		t.Error("Store should not be called for a cancelled context")
	}
}

func TestPipeline_NilRecord(t *testing.T) {
	pipeline := NewPipeline("blog-post", newMockStore())

	if _, err := pipeline.Create(context.Background(), nil); err == nil {
		t.Error("Expected error for nil record on create")
	}
	if err := pipeline.Update(context.Background(), "id", nil); err == nil {
		t.Error("Expected error for nil record on update")
	}
}
