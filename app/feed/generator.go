package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/post-comb/app/cfg"
	"github.com/lysyi3m/post-comb/app/database"
)

// Generator renders stored posts as the public RSS 2.0 feed
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(posts []database.Post) (string, error) {
	config := cfg.Get()
	baseURL := PublicBaseURL(config)

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", config.SiteTitle, 4)
	g.writeElement(&buf, "link", baseURL, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Latest posts from %s", config.SiteTitle), 4)
	fmt.Fprintf(&buf, "    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(baseURL+"/feed.xml"))

	lastBuildDate := time.Now()
	if len(posts) > 0 {
		lastBuildDate = cmp.Or(derefTime(posts[0].PublishedAt), posts[0].UpdatedAt, lastBuildDate)
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Post-Comb/%s", config.Version), 4)

	for _, post := range posts {
		g.writeItem(&buf, post, baseURL)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

// PublicBaseURL is the configured base URL, or the local listener address when none is set
func PublicBaseURL(config *cfg.Cfg) string {
	if config.BaseUrl != "" {
		return strings.TrimRight(config.BaseUrl, "/")
	}
	return fmt.Sprintf("http://localhost:%s", config.Port)
}

// ReadingTimeLabel formats a stored estimate, e.g. "3 min read". Missing
// and zero estimates have no label.
func ReadingTimeLabel(minutes *int) string {
	if minutes == nil || *minutes <= 0 {
		return ""
	}
	return fmt.Sprintf("%d min read", *minutes)
}

func (g *Generator) writeItem(buf *bytes.Buffer, post database.Post, baseURL string) {
	permalink := fmt.Sprintf("%s/posts/%s", baseURL, post.DocumentID)
	link, _ := post.Attributes["link"].(string)

	buf.WriteString("    <item>\n")
	fmt.Fprintf(buf, "      <guid isPermaLink=\"true\">%s</guid>\n", html.EscapeString(permalink))
	g.writeElement(buf, "title", cmp.Or(post.Title, "Untitled"), 6)
	g.writeElement(buf, "link", cmp.Or(link, permalink), 6)

	description := ReadingTimeLabel(post.ReadingTime)
	if summary, ok := post.Attributes["description"].(string); ok && summary != "" {
		description = strings.TrimSpace(description + "\n\n" + summary)
	}
	g.writeElement(buf, "description", cmp.Or(description, "No description available"), 6)

	if body, ok := post.Content.(string); ok && body != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(strings.ReplaceAll(body, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	pubDate := cmp.Or(derefTime(post.PublishedAt), post.CreatedAt)
	g.writeElement(buf, "pubDate", pubDate.Format(time.RFC1123Z), 6)

	if authors := stringList(post.Attributes["authors"]); len(authors) > 0 {
		g.writeElement(buf, "author", authors[0], 6)
	}
	for _, category := range stringList(post.Attributes["categories"]) {
		g.writeElement(buf, "category", category, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// stringList reads a list attribute that may come back from JSON as []any
func stringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		list := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok && s != "" {
				list = append(list, s)
			}
		}
		return list
	}
	return nil
}
