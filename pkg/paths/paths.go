package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/npkg/pkg/errors"
)

// Environment variable names
const (
	EnvConfigDir = "NPKG_CONFIG_DIR"
	EnvCacheDir  = "NPKG_CACHE_DIR"
	EnvStateDir  = "NPKG_STATE_DIR"
	EnvHome      = "HOME"
)

// Fixed file names and locations
const (
	AppDirName = "npkg"

	ConfigFileName   = "config.json"
	SnapshotFileName = "packages.json.zst"
	IndexFileName    = "pnameref.json"
	VersionFileName  = "version.json"

	// SystemPreferenceFile is consulted when the user has no preference file
	SystemPreferenceFile = "/etc/npkg/config.json"

	// DefaultSystemConfig is the NixOS system configuration document
	DefaultSystemConfig = "/etc/nixos/configuration.nix"
)

// Paths provides centralized path management for npkg
type Paths interface {
	HomeDir() string
	ConfigDir() string
	CacheDir() string
	StateDir() string
	UserPreferenceFile() string
	SystemPreferenceFile() string
	DefaultHomeConfig() string
	SnapshotPath() string
	IndexPath() string
	VersionMarkerPath() string
	StagingPath(target string) string
}

type paths struct {
	home        string
	configDir   string
	cacheDir    string
	stateDir    string
	systemPrefs string
}

// New creates a Paths instance from the environment.
func New() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv(EnvHome)
	}
	if home == "" {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "cannot determine home directory")
	}

	p := &paths{home: home, systemPrefs: SystemPreferenceFile}

	if dir := os.Getenv(EnvConfigDir); dir != "" {
		p.configDir = ExpandHome(dir)
	} else {
		p.configDir = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	if dir := os.Getenv(EnvCacheDir); dir != "" {
		p.cacheDir = ExpandHome(dir)
	} else {
		p.cacheDir = filepath.Join(xdg.CacheHome, AppDirName)
	}

	if dir := os.Getenv(EnvStateDir); dir != "" {
		p.stateDir = ExpandHome(dir)
	} else {
		p.stateDir = filepath.Join(xdg.StateHome, AppDirName)
	}

	return p, nil
}

// NewForRoot builds a Paths whose every location lives under root.
// The system preference file becomes root/etc/npkg/config.json.
func NewForRoot(root string) Paths {
	home := filepath.Join(root, "home")
	return &paths{
		home:        home,
		configDir:   filepath.Join(home, ".config", AppDirName),
		cacheDir:    filepath.Join(home, ".cache", AppDirName),
		stateDir:    filepath.Join(home, ".local", "state", AppDirName),
		systemPrefs: filepath.Join(root, SystemPreferenceFile),
	}
}

// ExpandHome expands a leading ~ to the home directory
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}

	// ~user forms are left alone
	return path
}

func (p *paths) HomeDir() string   { return p.home }
func (p *paths) ConfigDir() string { return p.configDir }
func (p *paths) CacheDir() string  { return p.cacheDir }
func (p *paths) StateDir() string  { return p.stateDir }

// UserPreferenceFile returns the per-user preference file
func (p *paths) UserPreferenceFile() string {
	return filepath.Join(p.configDir, ConfigFileName)
}

// SystemPreferenceFile returns the machine-wide preference file
func (p *paths) SystemPreferenceFile() string {
	return p.systemPrefs
}

// DefaultHomeConfig returns the default home-manager configuration document
func (p *paths) DefaultHomeConfig() string {
	return filepath.Join(p.home, ".config", "nixpkgs", "home.nix")
}

func (p *paths) SnapshotPath() string      { return filepath.Join(p.cacheDir, SnapshotFileName) }
func (p *paths) IndexPath() string         { return filepath.Join(p.cacheDir, IndexFileName) }
func (p *paths) VersionMarkerPath() string { return filepath.Join(p.cacheDir, VersionFileName) }

// StagingPath returns the scratch location used to stage target before an
// elevated copy. It keeps the target's base name.
func (p *paths) StagingPath(target string) string {
	return filepath.Join(p.cacheDir, filepath.Base(target))
}
