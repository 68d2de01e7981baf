package content

import (
	"context"
	"errors"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Well-known pass-through fields the store projects into columns
const (
	FieldTitle       = "title"
	FieldSlug        = "slug"
	FieldPublishedAt = "publishedAt"
	FieldSource      = "source"
	FieldSourceGUID  = "sourceGuid"
	FieldContentHash = "contentHash"
)

var ErrHookFailed = errors.New("lifecycle hook failed")

// Record is a content record about to be written. Content is either a
// markup string or a decoded rich-text structure; Fields carries every
// other attribute untouched.
type Record struct {
	Content     any
	ReadingTime *int
	Fields      map[string]any
}

type Params struct {
	Data  *Record
	Where map[string]any
}

type Event struct {
	Action Action
	Model  string
	Params Params
}

type HookFunc func(ctx context.Context, event *Event) error

// Lifecycle is implemented by components that want both hook points.
type Lifecycle interface {
	BeforeCreate(ctx context.Context, event *Event) error
	BeforeUpdate(ctx context.Context, event *Event) error
}

type Store interface {
	CreateRecord(ctx context.Context, record *Record) (string, error)
	UpdateRecord(ctx context.Context, documentID string, record *Record) error
}
