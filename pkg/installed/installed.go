// Package installed reads the set of packages already present in a target.
//
// Declarative targets are read from their configuration document. The
// environment target is read from nix-env, whose derivation names are
// mapped back to attribute names so both sides of a diff use one form.
package installed

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/arthur-debert/npkg/pkg/nixcmd"
	"github.com/arthur-debert/npkg/pkg/nixedit"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/rs/zerolog"
)

// AttrResolver looks up the attribute for a derivation name
type AttrResolver interface {
	Attr(name string) (string, bool)
}

// Reader reads installed sets for every target
type Reader struct {
	fs      types.FS
	runner  nixcmd.Runner
	names   AttrResolver
	locator types.Locator
	logger  zerolog.Logger
}

// NewReader creates a Reader. names may be nil, in which case environment
// entries fall back to their pname.
func NewReader(fsys types.FS, runner nixcmd.Runner, names AttrResolver, locator types.Locator) *Reader {
	return &Reader{
		fs:      fsys,
		runner:  runner,
		names:   names,
		locator: locator,
		logger:  logging.GetLogger("installed"),
	}
}

// Read returns the installed set of target
func (r *Reader) Read(ctx context.Context, target types.Target) (types.InstalledSet, error) {
	if doc, ok := r.locator.Document(target); ok {
		src, err := ReadDocument(r.fs, doc)
		if err != nil {
			return nil, err
		}
		return FromDocument(src, target.Attribute())
	}
	return r.Environment(ctx)
}

// ReadDocument loads a configuration document
func ReadDocument(fsys types.FS, path string) (string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrDocumentRead, "failed to read %s", path).
			WithDetail(errors.DetailPath, path)
	}
	return string(data), nil
}

// FromDocument returns the bare package names listed under attr
func FromDocument(src, attr string) (types.InstalledSet, error) {
	pkgs, err := nixedit.Packages(src, attr)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrEmptyPackages, "no package list found at %s", attr)
	}
	return types.InstalledSet(pkgs), nil
}

type envEntry struct {
	Name  string `json:"name"`
	Pname string `json:"pname"`
}

// Environment returns the attribute names of the packages in the user's
// nix-env profile
func (r *Reader) Environment(ctx context.Context) (types.InstalledSet, error) {
	out, err := r.runner.EnvQuery(ctx)
	if err != nil {
		return nil, err
	}
	set, err := ParseEnvQuery(out, r.names)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Int("count", len(set)).Msg("Read environment packages")
	return set, nil
}

// ParseEnvQuery decodes "nix-env -q --json" output. Each entry resolves
// through names first, then its pname, then its derivation name.
func ParseEnvQuery(data []byte, names AttrResolver) (types.InstalledSet, error) {
	var entries map[string]envEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, errors.ErrEmptyPackages, "failed to parse nix-env query output")
	}

	set := make(types.InstalledSet, 0, len(entries))
	for key, e := range entries {
		name := e.Name
		if name == "" {
			name = key
		}
		attr := e.Pname
		if attr == "" {
			attr = name
		}
		if names != nil {
			if a, ok := names.Attr(name); ok {
				attr = a
			}
		}
		set = append(set, attr)
	}
	sort.Strings(set)
	return set, nil
}
