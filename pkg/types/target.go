package types

import (
	"strings"

	"github.com/arthur-debert/npkg/pkg/errors"
)

// Target is a surface packages can be installed into
type Target string

const (
	// TargetSystem is the NixOS system configuration document
	TargetSystem Target = "system"

	// TargetUser is the home-manager configuration document
	TargetUser Target = "user"

	// TargetEnvironment is the imperative nix-env profile
	TargetEnvironment Target = "environment"
)

// AllTargets lists targets in display order
var AllTargets = []Target{TargetSystem, TargetUser, TargetEnvironment}

// Package list attributes edited in the declarative documents
const (
	SystemPackagesAttr = "environment.systemPackages"
	UserPackagesAttr   = "home.packages"
)

// IsDeclarative reports whether the target is backed by a configuration document
func (t Target) IsDeclarative() bool {
	return t == TargetSystem || t == TargetUser
}

// Attribute returns the package list attribute path for declarative targets
func (t Target) Attribute() string {
	switch t {
	case TargetSystem:
		return SystemPackagesAttr
	case TargetUser:
		return UserPackagesAttr
	default:
		return ""
	}
}

// DisplayName returns the heading used when listing the target
func (t Target) DisplayName() string {
	switch t {
	case TargetSystem:
		return "System"
	case TargetUser:
		return "Home Manager"
	case TargetEnvironment:
		return "Nix Environment"
	default:
		return string(t)
	}
}

// ParseTarget accepts the canonical names plus the short aliases used on the
// command line.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "system", "sys", "s":
		return TargetSystem, nil
	case "user", "home", "home-manager", "h":
		return TargetUser, nil
	case "environment", "env", "e":
		return TargetEnvironment, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unknown target %q", s)
}

// Action is the kind of change applied to a package list
type Action string

const (
	ActionInstall Action = "install"
	ActionRemove  Action = "remove"
)
