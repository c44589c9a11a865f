package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/arthur-debert/npkg/pkg/apply"
	"github.com/arthur-debert/npkg/pkg/diff"
	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/installed"
	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/arthur-debert/npkg/pkg/nixedit"
	"github.com/arthur-debert/npkg/pkg/types"
)

const suggestionLimit = 5

// Install adds pkgs to target
func (s *Session) Install(ctx context.Context, target types.Target, pkgs []string) (apply.Result, error) {
	return s.Change(ctx, types.RequestedChange{Target: target, Action: types.ActionInstall, Packages: pkgs})
}

// Remove drops pkgs from target
func (s *Session) Remove(ctx context.Context, target types.Target, pkgs []string) (apply.Result, error) {
	return s.Change(ctx, types.RequestedChange{Target: target, Action: types.ActionRemove, Packages: pkgs})
}

// Change carries out req and reports the outcome on the printer
func (s *Session) Change(ctx context.Context, req types.RequestedChange) (apply.Result, error) {
	if len(req.Packages) == 0 {
		return apply.Result{}, errors.Newf(errors.ErrInvalidInput, "no packages to %s", req.Action)
	}
	if err := s.requireTarget(ctx, req.Target); err != nil {
		return apply.Result{}, err
	}
	if req.Action == types.ActionInstall {
		s.warnUnknown(req.Packages)
	}

	var (
		res apply.Result
		err error
	)
	if req.Target.IsDeclarative() {
		res, err = s.apply.Apply(ctx, req)
	} else {
		res, err = s.changeEnvironment(ctx, req)
	}
	if err != nil {
		return res, err
	}

	s.report(req, res)
	return res, nil
}

func (s *Session) changeEnvironment(ctx context.Context, req types.RequestedChange) (apply.Result, error) {
	if req.SkipRebuild() {
		return apply.Result{}, errors.New(errors.ErrInvalidInput, "the environment target has no configuration document to write")
	}
	done := logging.LogOperationStart(s.logger, "environment "+string(req.Action))
	defer done()

	names := s.metadata.Names(ctx)
	current, err := installed.NewReader(s.fs, s.runner, names, s.locator).Environment(ctx)
	if err != nil {
		return apply.Result{}, err
	}

	bare := req
	bare.Packages = make([]string, len(req.Packages))
	for i, p := range req.Packages {
		bare.Packages[i] = nixedit.Bare(p)
	}
	eff := diff.Narrow(bare, current)
	if eff.Empty() {
		return apply.Result{Outcome: apply.OutcomeNoOp}, nil
	}

	switch req.Action {
	case types.ActionInstall:
		err = s.runner.EnvInstall(ctx, s.cfg.Channel, eff.Packages)
	case types.ActionRemove:
		err = s.runner.EnvRemove(ctx, names.ToNames(eff.Packages))
	}
	if err != nil {
		return apply.Result{}, err
	}
	return apply.Result{Outcome: apply.OutcomeApplied, Packages: eff.Packages}, nil
}

// warnUnknown points out requested packages missing from cached metadata.
// It never downloads, so an absent cache stays silent.
func (s *Session) warnUnknown(pkgs []string) {
	snap, err := s.metadata.Snapshot()
	if err != nil {
		return
	}
	for _, p := range pkgs {
		attr := nixedit.Bare(p)
		if snap.Has(attr) {
			continue
		}
		s.printer.Warning(fmt.Sprintf("%s is not a known package", attr))
		s.printer.Suggestions(attr, snap.Suggest(attr, suggestionLimit))
	}
}

func (s *Session) report(req types.RequestedChange, res apply.Result) {
	list := strings.Join(res.Packages, ", ")
	switch res.Outcome {
	case apply.OutcomeNoOp:
		if req.Action == types.ActionInstall {
			s.printer.Info("No new packages to install")
		} else {
			s.printer.Info("No packages to remove")
		}
	case apply.OutcomeDryRun:
		s.printer.Success(fmt.Sprintf("Wrote %s (%s %s)", res.Path, req.Action, list))
	case apply.OutcomeApplied:
		verb := "Installed"
		if req.Action == types.ActionRemove {
			verb = "Removed"
		}
		s.printer.Success(fmt.Sprintf("%s %s in %s", verb, list, req.Target.DisplayName()))
	}
}
