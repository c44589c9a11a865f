package nixcmd

import (
	"context"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/types"
)

// Switch rebuilds target from its configuration, through flake when one
// is given. The environment target has no rebuild step.
func Switch(ctx context.Context, r Runner, target types.Target, flake string) error {
	switch target {
	case types.TargetSystem:
		return r.SystemSwitch(ctx, flake)
	case types.TargetUser:
		return r.HomeSwitch(ctx, flake)
	default:
		return errors.Newf(errors.ErrInvalidInput, "target %s cannot be rebuilt", target).
			WithDetail(errors.DetailTarget, string(target))
	}
}
