package feed

import (
	"github.com/lysyi3m/post-comb/app/content"
)

// ToRecord builds the content record a source item is imported as.
// The item body becomes the record content so the reading-time hook sees it.
func ToRecord(source string, item Item) *content.Record {
	record := content.NewRecord(item.Body())

	record.Set(content.FieldTitle, item.Title)
	record.Set(content.FieldSource, source)
	record.Set(content.FieldSourceGUID, item.GUID)
	record.Set(content.FieldContentHash, item.ContentHash)

	if !item.PublishedAt.IsZero() {
		record.Set(content.FieldPublishedAt, item.PublishedAt.UTC())
	}
	if item.Link != "" {
		record.Set("link", item.Link)
	}
	if item.Description != "" && item.Description != item.Body() {
		record.Set("description", item.Description)
	}
	if item.ImageURL != "" {
		record.Set("imageUrl", item.ImageURL)
	}
	if len(item.Authors) > 0 {
		record.Set("authors", item.Authors)
	}
	if len(item.Categories) > 0 {
		record.Set("categories", item.Categories)
	}

	return record
}
