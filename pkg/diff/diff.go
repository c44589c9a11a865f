// Package diff narrows a requested change to the packages that would
// actually change a target.
package diff

import (
	"github.com/arthur-debert/npkg/pkg/types"
)

// ComputeEffective returns the requested packages that are absent from
// installed (install) or present in it (remove). Identifiers are compared
// exactly; callers bring both sides to the same naming form first.
// Duplicates in requested are dropped and request order is kept.
func ComputeEffective(requested []string, installed types.InstalledSet, action types.Action) []string {
	have := make(map[string]bool, len(installed))
	for _, p := range installed {
		have[p] = true
	}

	seen := make(map[string]bool, len(requested))
	var out []string
	for _, p := range requested {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true

		switch action {
		case types.ActionInstall:
			if !have[p] {
				out = append(out, p)
			}
		case types.ActionRemove:
			if have[p] {
				out = append(out, p)
			}
		}
	}
	return out
}

// Narrow applies ComputeEffective to a whole request
func Narrow(req types.RequestedChange, installed types.InstalledSet) types.EffectiveChange {
	return types.EffectiveChange{
		Request:  req,
		Packages: ComputeEffective(req.Packages, installed, req.Action),
	}
}
