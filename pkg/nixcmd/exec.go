package nixcmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultElevate is the elevation helper used when none is configured
const DefaultElevate = "sudo"

// Options configures an ExecRunner
type Options struct {
	// Elevate is the helper prepended to commands that need root,
	// "sudo" when empty.
	Elevate string
	// Stdout and Stderr receive the output of interactive commands.
	// They default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
	Logger zerolog.Logger
}

// processFunc starts name with args and waits for it
type processFunc func(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	elevate string
	stdout  io.Writer
	stderr  io.Writer
	logger  zerolog.Logger

	process processFunc
	euid    func() int
}

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner creates a runner that spawns real processes
func NewExecRunner(opts Options) *ExecRunner {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("nixcmd")
	}

	r := &ExecRunner{
		elevate: opts.Elevate,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		logger:  logger,
		process: startProcess,
		euid:    os.Geteuid,
	}
	if r.elevate == "" {
		r.elevate = DefaultElevate
	}
	if r.stdout == nil {
		r.stdout = os.Stdout
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}
	return r
}

func startProcess(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// command builds the final argv, prefixing the elevation helper when the
// command needs root and the process does not already have it.
func (r *ExecRunner) command(elevated bool, name string, args ...string) (string, []string) {
	if !elevated || r.euid() == 0 {
		return name, args
	}
	return r.elevate, append([]string{name}, args...)
}

// run executes a command streaming its output to the user
func (r *ExecRunner) run(ctx context.Context, elevated bool, name string, args ...string) error {
	name, args = r.command(elevated, name, args...)
	logging.LogCommand(r.logger, name, args)

	if err := r.process(ctx, name, args, r.stdout, r.stderr); err != nil {
		return r.failure(name, args, err)
	}
	return nil
}

// output executes a command and returns what it printed on stdout
func (r *ExecRunner) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	logging.LogCommand(r.logger, name, args)

	var stdout, stderr bytes.Buffer
	if err := r.process(ctx, name, args, &stdout, &stderr); err != nil {
		r.logger.Debug().
			Str("command", name).
			Str("stderr", stderr.String()).
			Msg("Command stderr")
		return nil, r.failure(name, args, err)
	}
	return stdout.Bytes(), nil
}

func (r *ExecRunner) failure(name string, args []string, err error) error {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	code := exitStatus(err)
	r.logger.Error().
		Err(err).
		Str("command", line).
		Int("exit_code", code).
		Msg("Command failed")
	return errors.CmdError(line, code, err)
}

// exitStatus returns the exit code carried by err, or -1 when the process
// never ran.
func exitStatus(err error) int {
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return -1
}

func (r *ExecRunner) EnvQuery(ctx context.Context) ([]byte, error) {
	return r.output(ctx, "nix-env", "-q", "--json")
}

func (r *ExecRunner) EnvInstall(ctx context.Context, channel string, attrs []string) error {
	args := []string{"-iA"}
	for _, a := range attrs {
		args = append(args, channel+"."+a)
	}
	return r.run(ctx, false, "nix-env", args...)
}

func (r *ExecRunner) EnvRemove(ctx context.Context, names []string) error {
	return r.run(ctx, false, "nix-env", append([]string{"-e"}, names...)...)
}

func (r *ExecRunner) EnvUpgrade(ctx context.Context) error {
	return r.run(ctx, false, "nix-env", "-u", "*")
}

func (r *ExecRunner) SystemSwitch(ctx context.Context, flake string) error {
	if flake == "" {
		return r.run(ctx, true, "nixos-rebuild", "switch")
	}
	return r.run(ctx, true, "nixos-rebuild", "switch", "--flake", flake, "--use-remote-sudo")
}

func (r *ExecRunner) HomeSwitch(ctx context.Context, flake string) error {
	if flake == "" {
		return r.run(ctx, false, "home-manager", "switch")
	}
	return r.run(ctx, false, "home-manager", "switch", "--flake", flake)
}

func (r *ExecRunner) HomeManagerAvailable(ctx context.Context) bool {
	logging.LogCommand(r.logger, "home-manager", []string{"--help"})
	return r.process(ctx, "home-manager", []string{"--help"}, io.Discard, io.Discard) == nil
}

func (r *ExecRunner) ElevatedCopy(ctx context.Context, src, dst string) error {
	return r.run(ctx, true, "cp", src, dst)
}

func (r *ExecRunner) ChannelUpdate(ctx context.Context, elevated bool) error {
	return r.run(ctx, elevated, "nix-channel", "--update")
}

func (r *ExecRunner) FlakeUpdate(ctx context.Context, dir string) error {
	return r.run(ctx, false, "nix", "flake", "update", dir)
}

func (r *ExecRunner) NixosVersion(ctx context.Context) ([]byte, error) {
	return r.output(ctx, "nixos-version", "--json")
}

func (r *ExecRunner) NixpkgsVersion(ctx context.Context) (string, error) {
	out, err := r.output(ctx, "nix-instantiate", "<nixpkgs/lib>", "-A", "version", "--eval", "--json")
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(string(out)), `"`), nil
}
