package types

import (
	"sort"
	"strings"
)

// Locator holds the configuration document paths and the optional flake
// reference for one invocation.
type Locator struct {
	SystemConfig string
	UserConfig   string
	Flake        string
}

// Document returns the configuration document backing target.
// The second result is false for the environment target.
func (l Locator) Document(t Target) (string, bool) {
	switch t {
	case TargetSystem:
		return l.SystemConfig, true
	case TargetUser:
		return l.UserConfig, true
	default:
		return "", false
	}
}

// FlakeDir returns the flake reference without its output selector,
// e.g. "/etc/nixos" for "/etc/nixos#laptop".
func (l Locator) FlakeDir() string {
	dir, _, _ := strings.Cut(l.Flake, "#")
	return dir
}

// InstalledSet is the list of package identifiers present in a target.
// Only membership matters; order is kept for display.
type InstalledSet []string

// Contains reports whether name is present
func (s InstalledSet) Contains(name string) bool {
	for _, p := range s {
		if p == name {
			return true
		}
	}
	return false
}

// Sorted returns a sorted copy
func (s InstalledSet) Sorted() []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// RequestedChange is what the user asked for on one target
type RequestedChange struct {
	Target   Target
	Action   Action
	Packages []string

	// Output redirects the candidate document to another path. Setting it
	// implies a dry run.
	Output string
	DryRun bool
}

// SkipRebuild reports whether the rebuild step must not run
func (r RequestedChange) SkipRebuild() bool {
	return r.DryRun || r.Output != ""
}

// EffectiveChange is a RequestedChange narrowed to packages that actually
// change the target.
type EffectiveChange struct {
	Request  RequestedChange
	Packages []string
}

// Empty reports whether there is nothing to do
func (e EffectiveChange) Empty() bool {
	return len(e.Packages) == 0
}
