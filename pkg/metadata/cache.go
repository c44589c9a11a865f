package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/arthur-debert/npkg/pkg/nixcmd"
	"github.com/arthur-debert/npkg/pkg/paths"
	"github.com/arthur-debert/npkg/pkg/pkgname"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/rs/zerolog"
)

// State is the freshness of the cache
type State int

const (
	// StateCurrent means every file matches the running system
	StateCurrent State = iota
	// StateStale means the snapshot must be downloaded again
	StateStale
	// StateIndexMissing means only the name index must be rebuilt
	StateIndexMissing
)

func (s State) String() string {
	switch s {
	case StateCurrent:
		return "current"
	case StateStale:
		return "stale"
	case StateIndexMissing:
		return "index-missing"
	default:
		return "unknown"
	}
}

// Options configures a Cache
type Options struct {
	FS     types.FS
	Runner nixcmd.Runner
	Paths  paths.Paths
	// Client defaults to http.DefaultClient
	Client *http.Client
	// BaseURL defaults to DefaultBaseURL
	BaseURL string
	// Progress receives a download progress bar when set
	Progress io.Writer
	Logger   zerolog.Logger
}

// Cache manages the metadata files in the cache directory
type Cache struct {
	fs       types.FS
	runner   nixcmd.Runner
	paths    paths.Paths
	client   *http.Client
	baseURL  string
	progress io.Writer
	logger   zerolog.Logger
}

// New creates a Cache
func New(opts Options) *Cache {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("metadata")
	}
	c := &Cache{
		fs:       opts.FS,
		runner:   opts.Runner,
		paths:    opts.Paths,
		client:   opts.Client,
		baseURL:  opts.BaseURL,
		progress: opts.Progress,
		logger:   logger,
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c
}

type versionMarker struct {
	NixosVersion string `json:"nixosVersion"`
}

func parseVersion(data []byte) (string, error) {
	var m versionMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return "", errors.Wrap(err, errors.ErrCache, "failed to parse nixos version")
	}
	if m.NixosVersion == "" {
		return "", errors.New(errors.ErrCache, "nixos version is empty")
	}
	return m.NixosVersion, nil
}

func (c *Cache) exists(path string) bool {
	_, err := c.fs.Stat(path)
	return err == nil
}

// Check compares the cache with the running system. It returns the raw
// version output so a refresh can store it as the new marker.
func (c *Cache) Check(ctx context.Context) (State, []byte, error) {
	current, err := c.runner.NixosVersion(ctx)
	if err != nil {
		return StateStale, nil, err
	}
	version, err := parseVersion(current)
	if err != nil {
		return StateStale, nil, err
	}

	if !c.exists(c.paths.CacheDir()) {
		c.logger.Debug().Msg("Cache directory missing")
		return StateStale, current, nil
	}
	marker, err := c.fs.ReadFile(c.paths.VersionMarkerPath())
	if err != nil {
		c.logger.Debug().Msg("Version marker missing")
		return StateStale, current, nil
	}
	cached, err := parseVersion(marker)
	if err != nil || cached != version {
		c.logger.Debug().Str("cached", cached).Str("current", version).Msg("Cache out of date")
		return StateStale, current, nil
	}
	if !c.exists(c.paths.SnapshotPath()) {
		return StateStale, current, nil
	}
	if !c.exists(c.paths.IndexPath()) {
		return StateIndexMissing, current, nil
	}
	return StateCurrent, current, nil
}

// Ensure brings the cache up to date with the running system
func (c *Cache) Ensure(ctx context.Context) error {
	state, current, err := c.Check(ctx)
	if err != nil {
		return err
	}

	switch state {
	case StateStale:
		c.logger.Warn().Msg("Updating package metadata cache")
		return c.refresh(ctx, current)
	case StateIndexMissing:
		c.logger.Info().Msg("Rebuilding package name index")
		snap, err := c.Snapshot()
		if err != nil {
			return err
		}
		return c.writeIndex(snap)
	default:
		return nil
	}
}

// Refresh downloads the snapshot for the running system unconditionally
func (c *Cache) Refresh(ctx context.Context) error {
	current, err := c.runner.NixosVersion(ctx)
	if err != nil {
		return err
	}
	if _, err := parseVersion(current); err != nil {
		return err
	}
	return c.refresh(ctx, current)
}

func (c *Cache) refresh(ctx context.Context, marker []byte) error {
	done := logging.LogOperationStart(c.logger, "metadata refresh")
	defer done()

	version, err := c.runner.NixpkgsVersion(ctx)
	if err != nil {
		return err
	}

	raw, err := c.download(ctx, ReleaseURL(c.baseURL, version))
	if err != nil {
		return err
	}
	snap, err := DecodeSnapshot(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	stored, err := compress(raw)
	if err != nil {
		return err
	}

	if err := c.fs.MkdirAll(c.paths.CacheDir(), 0755); err != nil {
		return errors.Wrap(err, errors.ErrCache, "failed to create cache directory").
			WithDetail(errors.DetailPath, c.paths.CacheDir())
	}
	if err := c.write(c.paths.SnapshotPath(), stored); err != nil {
		return err
	}
	if err := c.writeIndex(snap); err != nil {
		return err
	}
	// marker last: an interrupted refresh leaves the cache stale
	if err := c.write(c.paths.VersionMarkerPath(), marker); err != nil {
		return err
	}

	c.logger.Info().
		Str("nixpkgs", version).
		Int("packages", len(snap.Packages)).
		Msg("Package metadata cache updated")
	return nil
}

func (c *Cache) write(path string, data []byte) error {
	if err := c.fs.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrCache, "failed to write %s", path).
			WithDetail(errors.DetailPath, path)
	}
	return nil
}

func (c *Cache) writeIndex(snap *Snapshot) error {
	return pkgname.Save(c.fs, c.paths.IndexPath(), pkgname.NewIndex(snap.Pairs()))
}

// Snapshot loads the stored snapshot
func (c *Cache) Snapshot() (*Snapshot, error) {
	data, err := c.fs.ReadFile(c.paths.SnapshotPath())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCache, "package metadata is not cached").
			WithDetail(errors.DetailPath, c.paths.SnapshotPath())
	}
	return decompressSnapshot(data)
}

// Names returns the name index, refreshing the cache first when needed.
// A cache that cannot be refreshed degrades to whatever index is on disk,
// possibly none, which maps every name to itself.
func (c *Cache) Names(ctx context.Context) *pkgname.Index {
	if err := c.Ensure(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Package metadata unavailable, names are not normalized")
	}
	return pkgname.Load(c.fs, c.paths.IndexPath())
}
