// Package config loads npkg preferences.
//
// Layers, lowest precedence first:
//
//	embedded defaults.toml
//	computed defaults (home-manager document under the user's home)
//	config.json (per-user file, else the system-wide one)
//	NPKG_* environment variables
//
// A preference file that cannot be parsed, or one naming a system document
// that does not exist, is reported and replaced by the defaults.
package config
