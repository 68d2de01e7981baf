package content

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Pipeline runs registered before-create/before-update hooks against a
// record and then hands it to the store. Hooks run synchronously on the
// caller's goroutine in registration order.
type Pipeline struct {
	model        string
	store        Store
	mu           sync.RWMutex
	beforeCreate []HookFunc
	beforeUpdate []HookFunc
}

func NewPipeline(model string, store Store) *Pipeline {
	return &Pipeline{
		model: model,
		store: store,
	}
}

// RecordHook adapts a plain record mutator to a HookFunc.
func RecordHook(fn func(record *Record)) HookFunc {
	return func(ctx context.Context, event *Event) error {
		fn(event.Params.Data)
		return nil
	}
}

func (p *Pipeline) Register(lifecycle Lifecycle) {
	p.OnBeforeCreate(lifecycle.BeforeCreate)
	p.OnBeforeUpdate(lifecycle.BeforeUpdate)
}

func (p *Pipeline) OnBeforeCreate(fn HookFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.beforeCreate = append(p.beforeCreate, fn)
}

func (p *Pipeline) OnBeforeUpdate(fn HookFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.beforeUpdate = append(p.beforeUpdate, fn)
}

func (p *Pipeline) Model() string {
	return p.model
}

func (p *Pipeline) Create(ctx context.Context, record *Record) (string, error) {
	if record == nil {
		return "", fmt.Errorf("record is nil")
	}

	event := &Event{
		Action: ActionCreate,
		Model:  p.model,
		Params: Params{Data: record},
	}

	if err := p.run(ctx, p.hooks(ActionCreate), event); err != nil {
		return "", err
	}

	documentID, err := p.store.CreateRecord(ctx, record)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", p.model, err)
	}

	slog.Debug("Record created", "model", p.model, "document_id", documentID)
	return documentID, nil
}

func (p *Pipeline) Update(ctx context.Context, documentID string, record *Record) error {
	if err := p.PrepareUpdate(ctx, documentID, record); err != nil {
		return err
	}

	if err := p.store.UpdateRecord(ctx, documentID, record); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", p.model, documentID, err)
	}

	slog.Debug("Record updated", "model", p.model, "document_id", documentID)
	return nil
}

// PrepareUpdate runs the before-update hooks against record without
// handing it to the store.
func (p *Pipeline) PrepareUpdate(ctx context.Context, documentID string, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}

	event := &Event{
		Action: ActionUpdate,
		Model:  p.model,
		Params: Params{
			Data:  record,
			Where: map[string]any{"documentId": documentID},
		},
	}

	return p.run(ctx, p.hooks(ActionUpdate), event)
}

func (p *Pipeline) hooks(action Action) []HookFunc {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var src []HookFunc
	if action == ActionCreate {
		src = p.beforeCreate
	} else {
		src = p.beforeUpdate
	}

	hooks := make([]HookFunc, len(src))
	copy(hooks, src)
	return hooks
}

func (p *Pipeline) run(ctx context.Context, hooks []HookFunc, event *Event) error {
	for i, hook := range hooks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := hook(ctx, event); err != nil {
			return fmt.Errorf("%w: %s before %s (hook %d): %w", ErrHookFailed, p.model, event.Action, i, err)
		}
	}
	return nil
}
