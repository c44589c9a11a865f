package metadata

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Hit is one search result
type Hit struct {
	Attr        string
	Version     string
	Description string
	Broken      bool
}

// Search returns the packages whose attribute or description contains
// every term, ignoring case, sorted by attribute.
func (s *Snapshot) Search(terms []string) []Hit {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	if len(lowered) == 0 {
		return nil
	}

	var hits []Hit
	for attr, p := range s.Packages {
		if !matchesAll(strings.ToLower(attr), strings.ToLower(p.Meta.Description), lowered) {
			continue
		}
		hits = append(hits, Hit{
			Attr:        attr,
			Version:     p.Version,
			Description: p.Meta.Description,
			Broken:      p.Meta.Broken,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Attr < hits[j].Attr })
	return hits
}

func matchesAll(attr, desc string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(attr, t) && !strings.Contains(desc, t) {
			return false
		}
	}
	return true
}

// Has reports whether attr exists in the snapshot
func (s *Snapshot) Has(attr string) bool {
	_, ok := s.Packages[attr]
	return ok
}

// Suggest returns up to limit attributes that fuzzily match query, best
// match first.
func (s *Snapshot) Suggest(query string, limit int) []string {
	if query == "" || limit <= 0 {
		return nil
	}

	attrs := make([]string, 0, len(s.Packages))
	for attr := range s.Packages {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	matches := fuzzy.Find(query, attrs)
	out := make([]string, 0, limit)
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
