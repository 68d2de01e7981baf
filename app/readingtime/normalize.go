package readingtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var ErrNormalization = errors.New("content normalization failed")

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Normalize turns record content into the text used for estimation.
// Strings lose anything between '<' and '>' in a single flat pass; any
// other value is measured on its serialized JSON form.
func Normalize(content any) (string, error) {
	if s, ok := content.(string); ok {
		return StripTags(s), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(content); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNormalization, err)
	}

	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}
