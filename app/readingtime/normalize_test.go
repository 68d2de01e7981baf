package readingtime

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNormalize_String(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Plain text", "Plain text"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{`<a href="https://example.com">link</a> text`, "link text"},
		{"<p></p>", ""},
		{"<br/>line<br />break", "linebreak"},
		// Flat removal also eats text that merely looks like a tag.
		{"if a <b and c> d", "if a  d"},
		{"unclosed < bracket", "unclosed < bracket"},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.input)
		if err != nil {
			t.Errorf("Normalize(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("Normalize(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalize_StructuredContent(t *testing.T) {
	doc := map[string]any{
		"type": "doc",
		"children": []any{
			map[string]any{"type": "text", "text": "<em>kept</em> & raw"},
		},
	}

	got, err := Normalize(doc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := `{"children":[{"text":"<em>kept</em> & raw","type":"text"}],"type":"doc"}`
	if got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestNormalize_Scalars(t *testing.T) {
	got, err := Normalize(float64(42))
	if err != nil {
		t.Fatal(err)
	}
	if got != "42" {
		t.Errorf("Expected '42', got %q", got)
	}

	got, err = Normalize(true)
	if err != nil {
		t.Fatal(err)
	}
	if got != "true" {
		t.Errorf("Expected 'true', got %q", got)
	}
}

func TestNormalize_Unserializable(t *testing.T) {
	inputs := []any{
		make(chan int),
		func() {},
		math.NaN(),
		map[string]any{"nested": make(chan int)},
	}

	for _, input := range inputs {
		_, err := Normalize(input)
		if err == nil {
			t.Errorf("Expected error for %T", input)
			continue
		}
		if !errors.Is(err, ErrNormalization) {
			t.Errorf("Expected ErrNormalization, got: %v", err)
		}
	}
}

func TestStripTags(t *testing.T) {
	html := strings.Repeat("<div><span>word</span></div> ", 3)
	if got := strings.TrimSpace(StripTags(html)); got != "word word word" {
		t.Errorf("Unexpected stripped text: %q", got)
	}
}
