package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/metadata"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/arthur-debert/npkg/pkg/ui"
)

// markers label search hits with the targets that have them installed
var markers = map[types.Target]string{
	types.TargetSystem:      "system",
	types.TargetUser:        "home",
	types.TargetEnvironment: "env",
}

// List prints the installed packages of target, or of every available
// target when target is empty.
func (s *Session) List(ctx context.Context, target types.Target) error {
	targets := []types.Target{target}
	if target == "" {
		targets = s.defaultTargets(ctx)
	} else if err := s.requireTarget(ctx, target); err != nil {
		return err
	}

	for _, t := range targets {
		set, err := s.reader(ctx, t).Read(ctx, t)
		if err != nil {
			return err
		}
		s.printer.Packages(t.DisplayName(), set.Sorted())
	}
	return nil
}

// Search prints the packages matching every term
func (s *Session) Search(ctx context.Context, terms []string) ([]metadata.Hit, error) {
	if len(terms) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "no search terms given")
	}
	if err := s.metadata.Ensure(ctx); err != nil {
		return nil, err
	}
	snap, err := s.metadata.Snapshot()
	if err != nil {
		return nil, err
	}

	hits := snap.Search(terms)
	if len(hits) == 0 {
		query := strings.Join(terms, " ")
		s.printer.Warning(fmt.Sprintf("No packages match %q", query))
		s.printer.Suggestions(query, snap.Suggest(strings.Join(terms, ""), suggestionLimit))
		return nil, nil
	}

	sets := s.installedSets(ctx)
	results := make([]ui.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = ui.SearchResult{
			Attr:        h.Attr,
			Version:     h.Version,
			Description: h.Description,
			Broken:      h.Broken,
		}
		for t, set := range sets {
			if set.Contains(h.Attr) {
				results[i].InstalledIn = append(results[i].InstalledIn, markers[t])
			}
		}
	}
	s.printer.SearchResults(results, terms)
	return hits, nil
}

// installedSets reads every available target. Unreadable targets are
// skipped so a broken document never hides search results.
func (s *Session) installedSets(ctx context.Context) map[types.Target]types.InstalledSet {
	sets := make(map[types.Target]types.InstalledSet)
	for _, t := range s.defaultTargets(ctx) {
		set, err := s.reader(ctx, t).Read(ctx, t)
		if err != nil {
			s.logger.Debug().Err(err).Str("target", string(t)).Msg("Skipping installed markers")
			continue
		}
		sets[t] = set
	}
	return sets
}
