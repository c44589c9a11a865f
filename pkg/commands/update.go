package commands

import (
	"context"

	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/arthur-debert/npkg/pkg/nixcmd"
	"github.com/arthur-debert/npkg/pkg/types"
)

// Update refreshes the channels and the flake inputs, then rebuilds
// target, or every available target when target is empty.
func (s *Session) Update(ctx context.Context, target types.Target) error {
	done := logging.LogOperationStart(s.logger, "update")
	defer done()

	targets := []types.Target{target}
	if target == "" {
		targets = s.defaultTargets(ctx)
	} else if err := s.requireTarget(ctx, target); err != nil {
		return err
	}

	if err := s.runner.ChannelUpdate(ctx, false); err != nil {
		return err
	}
	if err := s.runner.ChannelUpdate(ctx, true); err != nil {
		return err
	}
	if dir := s.locator.FlakeDir(); dir != "" {
		if err := s.runner.FlakeUpdate(ctx, dir); err != nil {
			return err
		}
	}

	for _, t := range targets {
		var err error
		if t == types.TargetEnvironment {
			err = s.runner.EnvUpgrade(ctx)
		} else {
			err = nixcmd.Switch(ctx, s.runner, t, s.locator.Flake)
		}
		if err != nil {
			return err
		}
		s.printer.Success("Updated " + t.DisplayName())
	}
	return nil
}
