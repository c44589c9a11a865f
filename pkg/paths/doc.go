// Package paths provides centralized path handling for npkg.
//
// It resolves the preference file, the metadata cache and the default
// locations of the declarative configuration documents.
//
// # Environment Variables
//
//   - NPKG_CONFIG_DIR: Override XDG config directory (default: $XDG_CONFIG_HOME/npkg)
//   - NPKG_CACHE_DIR: Override XDG cache directory (default: $XDG_CACHE_HOME/npkg)
//   - NPKG_STATE_DIR: Override XDG state directory (default: $XDG_STATE_HOME/npkg)
//
// # Cache Layout
//
//	$XDG_CACHE_HOME/npkg/
//	├── packages.json.zst   metadata snapshot
//	├── pnameref.json       attribute to derivation name index
//	├── version.json        nixos-version marker of the snapshot
//	└── <file>              scratch copies staged for elevated writes
package paths
