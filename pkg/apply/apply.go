package apply

import (
	"context"
	"path/filepath"

	"github.com/arthur-debert/npkg/pkg/diff"
	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/installed"
	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/arthur-debert/npkg/pkg/nixcmd"
	"github.com/arthur-debert/npkg/pkg/nixedit"
	"github.com/arthur-debert/npkg/pkg/paths"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/rs/zerolog"
)

// Outcome is how a successful Apply ended
type Outcome int

const (
	// OutcomeNoOp means nothing needed to change
	OutcomeNoOp Outcome = iota
	// OutcomeDryRun means the candidate was written but not rebuilt
	OutcomeDryRun
	// OutcomeApplied means the document was written and rebuilt
	OutcomeApplied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoOp:
		return "no-op"
	case OutcomeDryRun:
		return "dry-run"
	case OutcomeApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Result describes a successful Apply
type Result struct {
	Outcome Outcome
	// Packages are the packages that changed, bare names
	Packages []string
	// Path is where the candidate document was written
	Path string
}

// Options configures an Orchestrator
type Options struct {
	FS      types.FS
	Runner  nixcmd.Runner
	Paths   paths.Paths
	Locator types.Locator
	Logger  zerolog.Logger
}

// Orchestrator applies changes to declarative targets
type Orchestrator struct {
	fs      types.FS
	runner  nixcmd.Runner
	paths   paths.Paths
	locator types.Locator
	logger  zerolog.Logger
}

// New creates an Orchestrator
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("apply")
	}
	return &Orchestrator{
		fs:      opts.FS,
		runner:  opts.Runner,
		paths:   opts.Paths,
		locator: opts.Locator,
		logger:  logger,
	}
}

// Apply carries req through to the target's configuration document
func (o *Orchestrator) Apply(ctx context.Context, req types.RequestedChange) (Result, error) {
	done := logging.LogOperationStart(o.logger, "apply "+string(req.Action))
	defer done()

	docPath, ok := o.locator.Document(req.Target)
	if !ok {
		return Result{}, errors.Newf(errors.ErrInvalidInput, "target %s has no configuration document", req.Target).
			WithDetail(errors.DetailTarget, string(req.Target))
	}
	attr := req.Target.Attribute()

	original, err := installed.ReadDocument(o.fs, docPath)
	if err != nil {
		return Result{}, err
	}
	current, err := installed.FromDocument(original, attr)
	if err != nil {
		return Result{}, err
	}

	bare := req
	bare.Packages = make([]string, len(req.Packages))
	for i, p := range req.Packages {
		bare.Packages[i] = nixedit.Bare(p)
	}
	eff := diff.Narrow(bare, current)
	if eff.Empty() {
		o.logger.Info().
			Str("target", string(req.Target)).
			Strs("requested", req.Packages).
			Msg("Nothing to change")
		return Result{Outcome: OutcomeNoOp}, nil
	}

	candidate, err := nixedit.Mutate(original, attr, eff.Packages, req.Action)
	if err != nil {
		return Result{}, err
	}

	if req.Output != "" {
		if err := o.fs.WriteFile(req.Output, []byte(candidate), 0644); err != nil {
			return Result{}, errors.WriteError(filepath.Dir(req.Output), err)
		}
		o.logger.Info().Str("path", req.Output).Msg("Wrote candidate document")
		return Result{Outcome: OutcomeDryRun, Packages: eff.Packages, Path: req.Output}, nil
	}

	if err := o.WriteWithElevation(ctx, docPath, []byte(candidate)); err != nil {
		return Result{}, err
	}
	if req.DryRun {
		return Result{Outcome: OutcomeDryRun, Packages: eff.Packages, Path: docPath}, nil
	}

	if err := nixcmd.Switch(ctx, o.runner, req.Target, o.locator.Flake); err != nil {
		o.logger.Error().Err(err).Str("path", docPath).Msg("Rebuild failed, restoring document")
		restoreErr := o.WriteWithElevation(ctx, docPath, []byte(original))
		if restoreErr != nil {
			return Result{}, errors.Join(err, restoreErr)
		}
		return Result{}, err
	}

	return Result{Outcome: OutcomeApplied, Packages: eff.Packages, Path: docPath}, nil
}
