package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/post-comb/app/content"
)

const postColumns = `id, document_id, title, slug, content, reading_time, attributes,
	COALESCE(source, ''), COALESCE(source_guid, ''), content_hash,
	published_at, created_at, updated_at`

var _ PostRepository = (*PostStore)(nil)

// PostStore is the SQLite PostRepository; it is also the content.Store behind the lifecycle pipeline
type PostStore struct {
	db *DB
}

func NewPostRepository(db *DB) *PostStore {
	return &PostStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type postRow struct {
	title       string
	slug        string
	content     sql.NullString
	readingTime sql.NullInt64
	attributes  string
	source      sql.NullString
	sourceGUID  sql.NullString
	contentHash string
	publishedAt sql.NullTime
}

func (r *PostStore) CreateRecord(ctx context.Context, record *content.Record) (string, error) {
	row, err := newPostRow(record)
	if err != nil {
		return "", err
	}

	documentID := uuid.New().String()
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO posts (
			document_id, title, slug, content, reading_time, attributes,
			source, source_guid, content_hash, published_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, documentID, row.title, row.slug, row.content, row.readingTime, row.attributes,
		row.source, row.sourceGUID, row.contentHash, row.publishedAt, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert post: %w", err)
	}

	return documentID, nil
}

// UpdateRecord merges record into the stored post. Nil Content or
// ReadingTime leave the stored values as they are; Fields merge by key.
func (r *PostStore) UpdateRecord(ctx context.Context, documentID string, record *content.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanPost(tx.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE document_id = ?`, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}

	merged := existing.Record()
	if record.Content != nil {
		merged.Content = record.Content
	}
	if record.ReadingTime != nil {
		merged.SetReadingTime(*record.ReadingTime)
	}
	for k, v := range record.Fields {
		merged.Fields[k] = v
	}

	row, err := newPostRow(merged)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE posts
		SET title = ?, slug = ?, content = ?, reading_time = ?, attributes = ?,
		    source = ?, source_guid = ?, content_hash = ?, published_at = ?, updated_at = ?
		WHERE document_id = ?
	`, row.title, row.slug, row.content, row.readingTime, row.attributes,
		row.source, row.sourceGUID, row.contentHash, row.publishedAt, time.Now().UTC(), documentID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit post update: %w", err)
	}

	return nil
}

// RefreshReadingTime loads the post's current content inside a transaction,
// lets annotate derive a reading time from it and writes back reading_time
// only. It reports whether the stored value changed.
func (r *PostStore) RefreshReadingTime(ctx context.Context, documentID string, annotate func(record *content.Record) error) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanPost(tx.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE document_id = ?`, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrPostNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to load post: %w", err)
	}

	record := content.NewRecord(existing.Content)
	if err := annotate(record); err != nil {
		return false, err
	}

	if record.ReadingTime == nil {
		return false, nil
	}
	if existing.ReadingTime != nil && *existing.ReadingTime == *record.ReadingTime {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE posts SET reading_time = ? WHERE document_id = ?`, *record.ReadingTime, documentID)
	if err != nil {
		return false, fmt.Errorf("failed to update reading time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit reading time: %w", err)
	}

	return true, nil
}

func (r *PostStore) GetPost(ctx context.Context, documentID string) (*Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE document_id = ?`, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (r *PostStore) GetPostBySourceGUID(ctx context.Context, source, guid string) (*Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE source = ? AND source_guid = ?`, source, guid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by source guid: %w", err)
	}
	return post, nil
}

func (r *PostStore) ListPosts(ctx context.Context, limit int) ([]Post, error) {
	return r.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts
		ORDER BY COALESCE(published_at, created_at) DESC, id DESC
		LIMIT ?
	`, limit)
}

func (r *PostStore) GetAllPosts(ctx context.Context) ([]Post, error) {
	return r.queryPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY id`)
}

func (r *PostStore) GetPostCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

func (r *PostStore) queryPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func newPostRow(record *content.Record) (*postRow, error) {
	row := &postRow{
		title:       record.Title(),
		slug:        record.Slug(),
		contentHash: record.String(content.FieldContentHash),
		attributes:  "{}",
	}

	if row.slug == "" {
		row.slug = content.Slugify(row.title)
	}

	if record.Content != nil {
		data, err := json.Marshal(record.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to encode post content: %w", err)
		}
		row.content = sql.NullString{String: string(data), Valid: true}
	}

	if record.ReadingTime != nil {
		row.readingTime = sql.NullInt64{Int64: int64(*record.ReadingTime), Valid: true}
	}

	if len(record.Fields) > 0 {
		data, err := json.Marshal(record.Fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode post attributes: %w", err)
		}
		row.attributes = string(data)
	}

	if source := record.String(content.FieldSource); source != "" {
		row.source = sql.NullString{String: source, Valid: true}
	}
	if guid := record.String(content.FieldSourceGUID); guid != "" {
		row.sourceGUID = sql.NullString{String: guid, Valid: true}
	}

	if published := record.PublishedAt(); published != nil {
		row.publishedAt = sql.NullTime{Time: published.UTC(), Valid: true}
	}

	return row, nil
}

func scanPost(s rowScanner) (*Post, error) {
	var post Post
	var contentJSON sql.NullString
	var readingTime sql.NullInt64
	var attributes string
	var publishedAt sql.NullTime

	err := s.Scan(
		&post.ID, &post.DocumentID, &post.Title, &post.Slug, &contentJSON, &readingTime, &attributes,
		&post.Source, &post.SourceGUID, &post.ContentHash,
		&publishedAt, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if contentJSON.Valid {
		if err := json.Unmarshal([]byte(contentJSON.String), &post.Content); err != nil {
			return nil, fmt.Errorf("failed to decode post content: %w", err)
		}
	}

	if readingTime.Valid {
		minutes := int(readingTime.Int64)
		post.ReadingTime = &minutes
	}

	post.Attributes = make(map[string]any)
	if attributes != "" {
		if err := json.Unmarshal([]byte(attributes), &post.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode post attributes: %w", err)
		}
	}

	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}

	return &post, nil
}
