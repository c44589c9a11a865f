// Package commands implements the top-level operations of npkg.
//
// A Session is built once per invocation from the loaded preferences and
// holds everything an operation needs: the filesystem, the process runner,
// the metadata cache and the printer. Operations never mutate the Session.
//
//   - Install, Remove - change the packages of one target
//   - List            - print installed packages
//   - Search          - search package metadata
//   - Update          - update channels and rebuild
package commands

import (
	"context"

	"github.com/arthur-debert/npkg/pkg/apply"
	"github.com/arthur-debert/npkg/pkg/config"
	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/installed"
	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/arthur-debert/npkg/pkg/metadata"
	"github.com/arthur-debert/npkg/pkg/nixcmd"
	"github.com/arthur-debert/npkg/pkg/paths"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/arthur-debert/npkg/pkg/ui"
	"github.com/rs/zerolog"
)

// Options holds the collaborators of a Session
type Options struct {
	Config   *config.Config
	FS       types.FS
	Runner   nixcmd.Runner
	Paths    paths.Paths
	Printer  *ui.Printer
	Metadata *metadata.Cache
}

// Session runs operations for one invocation
type Session struct {
	cfg      config.Config
	locator  types.Locator
	fs       types.FS
	runner   nixcmd.Runner
	paths    paths.Paths
	printer  *ui.Printer
	metadata *metadata.Cache
	apply    *apply.Orchestrator
	logger   zerolog.Logger
}

// NewSession creates a Session. A nil Metadata cache is created from the
// other options.
func NewSession(opts Options) *Session {
	s := &Session{
		cfg:      *opts.Config,
		locator:  opts.Config.Locator(),
		fs:       opts.FS,
		runner:   opts.Runner,
		paths:    opts.Paths,
		printer:  opts.Printer,
		metadata: opts.Metadata,
		logger:   logging.GetLogger("commands"),
	}
	if s.metadata == nil {
		s.metadata = metadata.New(metadata.Options{
			FS:     opts.FS,
			Runner: opts.Runner,
			Paths:  opts.Paths,
		})
	}
	s.apply = apply.New(apply.Options{
		FS:      opts.FS,
		Runner:  opts.Runner,
		Paths:   opts.Paths,
		Locator: s.locator,
	})
	return s
}

// reader returns an installed-set reader. Environment reads need the name
// index, which may download metadata, so it is only resolved for them.
func (s *Session) reader(ctx context.Context, target types.Target) *installed.Reader {
	var names installed.AttrResolver
	if target == types.TargetEnvironment {
		names = s.metadata.Names(ctx)
	}
	return installed.NewReader(s.fs, s.runner, names, s.locator)
}

// requireTarget fails for a Home target when home-manager is absent
func (s *Session) requireTarget(ctx context.Context, target types.Target) error {
	if target == types.TargetUser && !s.runner.HomeManagerAvailable(ctx) {
		return errors.New(errors.ErrMissingTool, "home-manager is not installed").
			WithDetail(errors.DetailTarget, string(target))
	}
	return nil
}

// defaultTargets lists the targets used when none was selected
func (s *Session) defaultTargets(ctx context.Context) []types.Target {
	targets := []types.Target{types.TargetSystem}
	if s.runner.HomeManagerAvailable(ctx) {
		targets = append(targets, types.TargetUser)
	}
	return append(targets, types.TargetEnvironment)
}
