package commands

import (
	"context"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/types"
)

// CommandType names a top-level operation
type CommandType string

const (
	CommandInstall CommandType = "install"
	CommandRemove  CommandType = "remove"
	CommandList    CommandType = "list"
	CommandSearch  CommandType = "search"
	CommandUpdate  CommandType = "update"
)

// DispatchOptions contains all possible options for an operation.
// Each command uses only the fields it needs.
type DispatchOptions struct {
	// Target is empty when no target flag was given
	Target types.Target
	// Args are package names, or search terms for CommandSearch
	Args []string

	Output string
	DryRun bool
}

// Dispatch runs the operation named by cmdType
func (s *Session) Dispatch(ctx context.Context, cmdType CommandType, opts DispatchOptions) error {
	s.logger.Debug().
		Str("command", string(cmdType)).
		Str("target", string(opts.Target)).
		Strs("args", opts.Args).
		Bool("dryRun", opts.DryRun).
		Str("output", opts.Output).
		Msg("Dispatching command")

	switch cmdType {
	case CommandInstall, CommandRemove:
		target := opts.Target
		if target == "" {
			target = types.TargetEnvironment
		}
		action := types.ActionInstall
		if cmdType == CommandRemove {
			action = types.ActionRemove
		}
		_, err := s.Change(ctx, types.RequestedChange{
			Target:   target,
			Action:   action,
			Packages: opts.Args,
			Output:   opts.Output,
			DryRun:   opts.DryRun,
		})
		return err
	case CommandList:
		return s.List(ctx, opts.Target)
	case CommandSearch:
		_, err := s.Search(ctx, opts.Args)
		return err
	case CommandUpdate:
		return s.Update(ctx, opts.Target)
	default:
		return errors.Newf(errors.ErrNoOperation, "unknown command %q", cmdType)
	}
}
