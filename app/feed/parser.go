package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Parser turns raw RSS, Atom or JSON Feed bytes into source items ready for import
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:           parsed.Title,
		Link:            parsed.Link,
		Description:     parsed.Description,
		Language:        parsed.Language,
		FeedPublishedAt: parsed.PublishedParsed,
	}
	if parsed.Image != nil {
		metadata.ImageURL = parsed.Image.URL
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}
		item := p.toItem(entry)
		if item.GUID == "" {
			continue
		}
		item.ContentHash = ContentHash(item)
		items = append(items, item)
	}

	return metadata, items, nil
}

// ContentHash identifies the importable state of an item; a changed hash means the post needs an update
func ContentHash(item Item) string {
	hash := sha256.Sum256([]byte(item.Title + "|" + item.Link + "|" + item.Body()))
	return hex.EncodeToString(hash[:])
}

func (p *Parser) toItem(entry *gofeed.Item) Item {
	item := Item{
		GUID:        strings.TrimSpace(cmp.Or(entry.GUID, entry.Link)),
		Title:       strings.TrimSpace(entry.Title),
		Link:        entry.Link,
		Description: entry.Description,
		Content:     entry.Content,
		UpdatedAt:   entry.UpdatedParsed,
		Authors:     p.extractAuthors(entry),
		Categories:  entry.Categories,
	}

	switch {
	case entry.PublishedParsed != nil:
		item.PublishedAt = *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		item.PublishedAt = *entry.UpdatedParsed
	}

	if entry.Image != nil {
		item.ImageURL = entry.Image.URL
	}

	return item
}

func (p *Parser) extractAuthors(entry *gofeed.Item) []string {
	var authors []string

	people := entry.Authors
	if len(people) == 0 && entry.Author != nil {
		people = []*gofeed.Person{entry.Author}
	}

	for _, person := range people {
		if person == nil {
			continue
		}
		if author := formatAuthor(person.Name, person.Email); author != "" {
			authors = append(authors, author)
		}
	}

	return authors
}

func formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s (%s)", email, name)
	case name != "":
		return name
	default:
		return email
	}
}
