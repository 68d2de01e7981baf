package content

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
)

const (
	keyContent     = "content"
	keyReadingTime = "readingTime"
)

func NewRecord(content any) *Record {
	return &Record{
		Content: content,
		Fields:  make(map[string]any),
	}
}

// HasContent reports whether Content is present and non-empty. Nil, "",
// false, numeric zero and empty maps or slices all count as empty.
func (r *Record) HasContent() bool {
	if r == nil {
		return false
	}
	return !isBlank(r.Content)
}

func (r *Record) SetReadingTime(minutes int) {
	r.ReadingTime = &minutes
}

func (r *Record) Set(key string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[key] = value
}

func (r *Record) String(key string) string {
	if v, ok := r.Fields[key].(string); ok {
		return v
	}
	return ""
}

func (r *Record) Title() string {
	return r.String(FieldTitle)
}

func (r *Record) Slug() string {
	return r.String(FieldSlug)
}

// PublishedAt accepts either a time.Time or an RFC 3339 string.
func (r *Record) PublishedAt() *time.Time {
	switch v := r.Fields[FieldPublishedAt].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.Content != nil {
		out[keyContent] = r.Content
	}
	if r.ReadingTime != nil {
		out[keyReadingTime] = *r.ReadingTime
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}

	r.Content = nil
	r.ReadingTime = nil
	r.Fields = make(map[string]any, len(raw))

	for key, value := range raw {
		switch key {
		case keyContent:
			if err := json.Unmarshal(value, &r.Content); err != nil {
				return fmt.Errorf("failed to decode content: %w", err)
			}
		case keyReadingTime:
			if err := json.Unmarshal(value, &r.ReadingTime); err != nil {
				return fmt.Errorf("failed to decode readingTime: %w", err)
			}
		default:
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("failed to decode field %s: %w", key, err)
			}
			r.Fields[key] = v
		}
	}

	return nil
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0 || math.IsNaN(val)
	case float32:
		return val == 0 || math.IsNaN(float64(val))
	case int:
		return val == 0
	case int64:
		return val == 0
	case json.Number:
		return val == "" || val == "0"
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
