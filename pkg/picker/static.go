package picker

import (
	"context"
	"sort"
	"strings"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

// StaticSearcher searches an in-memory entity list keyed by resource. Matches
// are case-insensitive substring matches on the query parameter field, prefix
// matches first. It backs fixtures, tests and offline CLI sessions.
type StaticSearcher struct {
	Entities map[string][]model.Entity
}

// NewStaticSearcher returns a searcher over entities grouped by resource.
func NewStaticSearcher(entities map[string][]model.Entity) *StaticSearcher {
	return &StaticSearcher{Entities: entities}
}

func (s *StaticSearcher) Search(ctx context.Context, filter Filter) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if s == nil {
		return Page{}, nil
	}

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	field := filter.QueryParam
	if field == "" || field == "q" {
		field = ""
	}

	type match struct {
		entity   model.Entity
		key      string
		isPrefix bool
	}
	var matches []match
	for _, entity := range s.Entities[filter.Resource] {
		if !matchesParams(entity, filter.Params) {
			continue
		}
		key := strings.ToLower(searchKey(entity, field))
		if q != "" && !strings.Contains(key, q) {
			continue
		}
		matches = append(matches, match{entity: entity, key: key, isPrefix: strings.HasPrefix(key, q)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].key < matches[j].key
	})

	total := len(matches)
	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}
	page := Page{Contents: make([]model.Entity, 0, len(matches)), TotalItems: total}
	for _, m := range matches {
		page.Contents = append(page.Contents, m.entity)
	}
	page.Size = len(page.Contents)
	return page, nil
}

func searchKey(entity model.Entity, field string) string {
	if field != "" {
		return entity.String(field)
	}
	for _, candidate := range []string{"name", "display_name", "label", "id"} {
		if value := entity.String(candidate); value != "" {
			return value
		}
	}
	return ""
}

func matchesParams(entity model.Entity, params map[string]string) bool {
	for key, want := range params {
		if entity.String(key) != want {
			return false
		}
	}
	return true
}
