package database

import (
	"context"
	"errors"
	"time"

	"github.com/lysyi3m/post-comb/app/content"
)

var ErrPostNotFound = errors.New("post not found")

type Post struct {
	ID          int64
	DocumentID  string
	Title       string
	Slug        string
	Content     any // string or decoded rich-text structure
	ReadingTime *int
	Attributes  map[string]any
	Source      string
	SourceGUID  string
	ContentHash string
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Record rebuilds the content record the post was written from.
func (p *Post) Record() *content.Record {
	record := content.NewRecord(p.Content)
	for k, v := range p.Attributes {
		record.Fields[k] = v
	}
	if p.ReadingTime != nil {
		record.SetReadingTime(*p.ReadingTime)
	}
	return record
}

type Source struct {
	ID            int64
	Name          string // Configuration source identifier derived from filename
	URL           string
	Title         string
	Link          string
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PostRepository interface {
	content.Store

	GetPost(ctx context.Context, documentID string) (*Post, error)
	GetPostBySourceGUID(ctx context.Context, source, guid string) (*Post, error)
	ListPosts(ctx context.Context, limit int) ([]Post, error)
	GetAllPosts(ctx context.Context) ([]Post, error)
	GetPostCount(ctx context.Context) (int, error)
	RefreshReadingTime(ctx context.Context, documentID string, annotate func(record *content.Record) error) (bool, error)
}

type SourceRepository interface {
	GetSource(name string) (*Source, error)
	GetSources() ([]Source, error)
	GetSourceCount() (int, error)

	UpsertSource(name, url string) error
	UpdateSourceMetadata(name, title, link string, nextFetch time.Time) error
}
