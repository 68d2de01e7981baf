package feed

import (
	"testing"
	"time"

	"github.com/lysyi3m/post-comb/app/content"
)

func TestToRecord(t *testing.T) {
	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	item := Item{
		GUID:        "item-1",
		Title:       "Imported",
		Link:        "https://example.com/imported",
		Description: "Summary",
		Content:     "<p>Full body</p>",
		PublishedAt: published,
		Authors:     []string{"Jane"},
		Categories:  []string{"Go"},
		ContentHash: "hash",
	}

	record := ToRecord("example", item)

	if record.Content != "<p>Full body</p>" {
		t.Errorf("Expected body as content, got %#v", record.Content)
	}
	if record.ReadingTime != nil {
		t.Error("Reading time is left to the lifecycle hook")
	}
	if record.Title() != "Imported" {
		t.Errorf("Unexpected title '%s'", record.Title())
	}
	if record.String(content.FieldSource) != "example" || record.String(content.FieldSourceGUID) != "item-1" {
		t.Errorf("Unexpected source identity: %v", record.Fields)
	}
	if record.String(content.FieldContentHash) != "hash" {
		t.Errorf("Unexpected content hash '%s'", record.String(content.FieldContentHash))
	}
	if p := record.PublishedAt(); p == nil || !p.Equal(published) || p.Location() != time.UTC {
		t.Errorf("Expected UTC published time, got %v", p)
	}
	if record.String("description") != "Summary" {
		t.Errorf("Expected summary kept as description, got '%s'", record.String("description"))
	}
}

func TestToRecord_SummaryOnly(t *testing.T) {
	record := ToRecord("example", Item{GUID: "x", Description: "<p>Only summary</p>"})

	if record.Content != "<p>Only summary</p>" {
		t.Errorf("Expected description as content, got %#v", record.Content)
	}
	if _, ok := record.Fields["description"]; ok {
		t.Error("Description should not be duplicated when it is the body")
	}
	if _, ok := record.Fields[content.FieldPublishedAt]; ok {
		t.Error("Zero publish time should be omitted")
	}
}
