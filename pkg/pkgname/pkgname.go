// Package pkgname maps between nixpkgs attribute names ("hello") and the
// derivation names nix-env reports ("hello-2.12.1").
//
// The mapping comes from an index derived from the package metadata
// snapshot. Lookups never fail: a name missing from the index maps to
// itself, so a stale or absent cache only degrades matching.
package pkgname

import (
	"encoding/json"
	"sort"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/arthur-debert/npkg/pkg/types"
)

// Normalizer converts package identifiers between the two naming forms
type Normalizer interface {
	// ToAttrs converts derivation names to attribute names
	ToAttrs(names []string) []string
	// ToNames converts attribute names to derivation names
	ToNames(attrs []string) []string
}

// Index is a one-to-one attribute/derivation-name mapping
type Index struct {
	byAttr map[string]string
	byName map[string]string
}

// NewIndex builds an index from attr -> name pairs. When several attributes
// share a derivation name the shortest attribute wins, ties broken
// alphabetically; the losers fall back to identity.
func NewIndex(pairs map[string]string) *Index {
	attrs := make([]string, 0, len(pairs))
	for a := range pairs {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		if len(attrs[i]) != len(attrs[j]) {
			return len(attrs[i]) < len(attrs[j])
		}
		return attrs[i] < attrs[j]
	})

	ix := &Index{
		byAttr: make(map[string]string, len(pairs)),
		byName: make(map[string]string, len(pairs)),
	}
	for _, a := range attrs {
		name := pairs[a]
		if _, taken := ix.byName[name]; taken {
			continue
		}
		ix.byName[name] = a
		ix.byAttr[a] = name
	}
	return ix
}

// Len returns the number of mapped pairs
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.byAttr)
}

// Attr looks up the attribute for a derivation name
func (ix *Index) Attr(name string) (string, bool) {
	if ix == nil {
		return "", false
	}
	a, ok := ix.byName[name]
	return a, ok
}

// ToAttrs converts derivation names to attribute names
func (ix *Index) ToAttrs(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n
		if ix == nil {
			continue
		}
		if a, ok := ix.byName[n]; ok {
			out[i] = a
		}
	}
	return out
}

// ToNames converts attribute names to derivation names
func (ix *Index) ToNames(attrs []string) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = a
		if ix == nil {
			continue
		}
		if n, ok := ix.byAttr[a]; ok {
			out[i] = n
		}
	}
	return out
}

// MarshalJSON encodes the index as an attr -> name object
func (ix *Index) MarshalJSON() ([]byte, error) {
	if ix == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(ix.byAttr)
}

// Load reads an index file. Any failure yields an empty index, which makes
// every lookup an identity mapping.
func Load(fsys types.FS, path string) *Index {
	logger := logging.GetLogger("pkgname")

	data, err := fsys.ReadFile(path)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Name index unavailable, using identity mapping")
		return NewIndex(nil)
	}

	var pairs map[string]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Name index is corrupt, using identity mapping")
		return NewIndex(nil)
	}

	logger.Debug().Int("entries", len(pairs)).Str("path", path).Msg("Name index loaded")
	return NewIndex(pairs)
}

// Save writes the index to path
func Save(fsys types.FS, path string, ix *Index) error {
	data, err := json.Marshal(ix)
	if err != nil {
		return errors.Wrap(err, errors.ErrCache, "failed to encode name index")
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrCache, "failed to write name index %s", path).
			WithDetail(errors.DetailPath, path)
	}
	return nil
}
