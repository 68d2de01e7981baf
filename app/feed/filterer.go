package feed

import (
	"fmt"
	"strings"
)

// Filterer marks items rejected by a source's include/exclude rules. Marked items are never imported.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

func (f *Filterer) Run(items []Item, sourceConfig *Config) []Item {
	if sourceConfig == nil || len(sourceConfig.Filters) == 0 {
		return items
	}

	marked := make([]Item, 0, len(items))
	for _, item := range items {
		item.IsFiltered, item.FilterReason = f.check(item, sourceConfig.Filters)
		marked = append(marked, item)
	}

	return marked
}

// Accepted returns the items that passed filtering, capped at limit when limit > 0
func Accepted(items []Item, limit int) []Item {
	accepted := make([]Item, 0, len(items))
	for _, item := range items {
		if item.IsFiltered {
			continue
		}
		if limit > 0 && len(accepted) >= limit {
			break
		}
		accepted = append(accepted, item)
	}
	return accepted
}

func (f *Filterer) check(item Item, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := strings.ToLower(item.fieldValue(filter.Field))

		for _, exclude := range filter.Excludes {
			if strings.Contains(value, strings.ToLower(exclude)) {
				return true, fmt.Sprintf("excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) == 0 {
			continue
		}

		included := false
		for _, include := range filter.Includes {
			if strings.Contains(value, strings.ToLower(include)) {
				included = true
				break
			}
		}
		if !included {
			return true, fmt.Sprintf("excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
		}
	}

	return false, ""
}

func (i Item) fieldValue(field string) string {
	switch field {
	case "title":
		return i.Title
	case "description":
		return i.Description
	case "content":
		return i.Content
	case "authors":
		return strings.Join(i.Authors, " ")
	case "link":
		return i.Link
	case "categories":
		return strings.Join(i.Categories, " ")
	}
	return ""
}
