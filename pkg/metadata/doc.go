// Package metadata maintains the local copy of the nixpkgs package
// metadata published with each NixOS release.
//
// The cache directory holds three files:
//
//	packages.json.zst  the release's packages.json, zstd-compressed
//	pnameref.json      attribute -> derivation name index (see pkgname)
//	version.json       the "nixos-version --json" output the cache was built for
//
// The snapshot is refreshed whenever the running system reports a
// different NixOS version than the marker, and is used for searching and
// for mapping nix-env derivation names back to attributes.
package metadata
