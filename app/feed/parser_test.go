package feed

import (
	"strings"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Engineering Blog</title>
    <link>https://blog.example.com</link>
    <description>Notes from the team</description>
    <language>en</language>
    <image>
      <url>https://blog.example.com/logo.png</url>
      <title>Engineering Blog</title>
      <link>https://blog.example.com</link>
    </image>
    <item>
      <guid>post-1</guid>
      <title>  First Post  </title>
      <link>https://blog.example.com/first</link>
      <description>Short summary</description>
      <content:encoded><![CDATA[<p>Full <b>body</b> of the first post</p>]]></content:encoded>
      <pubDate>Mon, 03 Jul 2023 10:00:00 +0000</pubDate>
      <author>jane@example.com (Jane Doe)</author>
      <category>Go</category>
      <category>Testing</category>
    </item>
    <item>
      <title>Summary Only</title>
      <link>https://blog.example.com/second</link>
      <description>&lt;p&gt;Only a summary&lt;/p&gt;</description>
    </item>
    <item>
      <title>No identity</title>
    </item>
  </channel>
</rss>`

func TestParser_ParsesRSS(t *testing.T) {
	metadata, items, err := NewParser().Run([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Engineering Blog" {
		t.Errorf("Expected title 'Engineering Blog', got '%s'", metadata.Title)
	}
	if metadata.Link != "https://blog.example.com" {
		t.Errorf("Unexpected link '%s'", metadata.Link)
	}
	if metadata.Language != "en" {
		t.Errorf("Expected language 'en', got '%s'", metadata.Language)
	}
	if metadata.ImageURL != "https://blog.example.com/logo.png" {
		t.Errorf("Unexpected image URL '%s'", metadata.ImageURL)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items (one without guid or link dropped), got %d", len(items))
	}

	first := items[0]
	if first.GUID != "post-1" {
		t.Errorf("Expected GUID 'post-1', got '%s'", first.GUID)
	}
	if first.Title != "First Post" {
		t.Errorf("Expected trimmed title, got '%s'", first.Title)
	}
	if !strings.Contains(first.Content, "<b>body</b>") {
		t.Errorf("Expected full content, got '%s'", first.Content)
	}
	if !first.PublishedAt.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected published at %v", first.PublishedAt)
	}
	if len(first.Categories) != 2 || first.Categories[0] != "Go" {
		t.Errorf("Unexpected categories %v", first.Categories)
	}
	if len(first.Authors) != 1 || !strings.Contains(first.Authors[0], "Jane Doe") {
		t.Errorf("Unexpected authors %v", first.Authors)
	}
	if first.ContentHash == "" {
		t.Error("Expected content hash to be set")
	}

	second := items[1]
	if second.GUID != "https://blog.example.com/second" {
		t.Errorf("Expected link to stand in for missing guid, got '%s'", second.GUID)
	}
	if second.Body() != "<p>Only a summary</p>" {
		t.Errorf("Expected body to fall back to description, got '%s'", second.Body())
	}
}

func TestParser_ParsesAtom(t *testing.T) {
	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Blog</title>
  <link href="https://atom.example.com/"/>
  <updated>2024-01-02T00:00:00Z</updated>
  <entry>
    <id>urn:uuid:1</id>
    <title>Atom Entry</title>
    <link href="https://atom.example.com/entry"/>
    <updated>2024-01-02T00:00:00Z</updated>
    <content type="html">&lt;p&gt;Atom body&lt;/p&gt;</content>
  </entry>
</feed>`

	metadata, items, err := NewParser().Run([]byte(atom))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if metadata.Title != "Atom Blog" {
		t.Errorf("Expected title 'Atom Blog', got '%s'", metadata.Title)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].GUID != "urn:uuid:1" {
		t.Errorf("Unexpected GUID '%s'", items[0].GUID)
	}
	if !items[0].PublishedAt.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected updated date to stand in for published, got %v", items[0].PublishedAt)
	}
}

func TestParser_InvalidFeed(t *testing.T) {
	if _, _, err := NewParser().Run([]byte("this is not a feed")); err == nil {
		t.Error("Expected error for invalid feed data")
	}
}

func TestContentHash(t *testing.T) {
	base := Item{Title: "Title", Link: "https://example.com", Content: "<p>body</p>"}

	if ContentHash(base) != ContentHash(base) {
		t.Error("Expected hash to be deterministic")
	}

	changed := base
	changed.Content = "<p>edited body</p>"
	if ContentHash(base) == ContentHash(changed) {
		t.Error("Expected content edits to change the hash")
	}

	retitled := base
	retitled.Title = "Other"
	if ContentHash(base) == ContentHash(retitled) {
		t.Error("Expected title edits to change the hash")
	}
}

func TestFormatAuthor(t *testing.T) {
	tests := []struct {
		name, email, expected string
	}{
		{"Jane", "jane@example.com", "jane@example.com (Jane)"},
		{"Jane", "", "Jane"},
		{"", "jane@example.com", "jane@example.com"},
		{" ", " ", ""},
	}

	for _, tt := range tests {
		if got := formatAuthor(tt.name, tt.email); got != tt.expected {
			t.Errorf("formatAuthor(%q, %q) = %q, expected %q", tt.name, tt.email, got, tt.expected)
		}
	}
}
