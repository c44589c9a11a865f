package nixcmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e exitError) ExitCode() int { return e.code }

// recorder stands in for process spawning
type recorder struct {
	calls  []string
	stdout map[string]string
	fail   map[string]error
}

func (rec *recorder) process(_ context.Context, name string, args []string, stdout, _ io.Writer) error {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	rec.calls = append(rec.calls, line)
	if out, ok := rec.stdout[line]; ok {
		_, _ = io.WriteString(stdout, out)
	}
	return rec.fail[line]
}

func newTestRunner(euid int) (*ExecRunner, *recorder) {
	rec := &recorder{stdout: map[string]string{}, fail: map[string]error{}}
	r := NewExecRunner(Options{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	r.process = rec.process
	r.euid = func() int { return euid }
	return r, rec
}

func TestCommandLines(t *testing.T) {
	ctx := context.Background()
	r, rec := newTestRunner(1000)

	require.NoError(t, r.EnvInstall(ctx, "nixos", []string{"htop", "curl"}))
	require.NoError(t, r.EnvRemove(ctx, []string{"htop-3.2.2"}))
	require.NoError(t, r.EnvUpgrade(ctx))
	require.NoError(t, r.SystemSwitch(ctx, ""))
	require.NoError(t, r.SystemSwitch(ctx, "/etc/nixos#laptop"))
	require.NoError(t, r.HomeSwitch(ctx, ""))
	require.NoError(t, r.HomeSwitch(ctx, "/home/me/flake#me"))
	require.NoError(t, r.ElevatedCopy(ctx, "/cache/configuration.nix", "/etc/nixos/configuration.nix"))
	require.NoError(t, r.ChannelUpdate(ctx, false))
	require.NoError(t, r.ChannelUpdate(ctx, true))
	require.NoError(t, r.FlakeUpdate(ctx, "/etc/nixos"))

	assert.Equal(t, []string{
		"nix-env -iA nixos.htop nixos.curl",
		"nix-env -e htop-3.2.2",
		"nix-env -u *",
		"sudo nixos-rebuild switch",
		"sudo nixos-rebuild switch --flake /etc/nixos#laptop --use-remote-sudo",
		"home-manager switch",
		"home-manager switch --flake /home/me/flake#me",
		"sudo cp /cache/configuration.nix /etc/nixos/configuration.nix",
		"nix-channel --update",
		"sudo nix-channel --update",
		"nix flake update /etc/nixos",
	}, rec.calls)
}

func TestElevationSkippedForRoot(t *testing.T) {
	r, rec := newTestRunner(0)

	require.NoError(t, r.SystemSwitch(context.Background(), ""))
	require.NoError(t, r.ElevatedCopy(context.Background(), "a", "b"))

	assert.Equal(t, []string{"nixos-rebuild switch", "cp a b"}, rec.calls)
}

func TestCustomElevationHelper(t *testing.T) {
	r, rec := newTestRunner(1000)
	r.elevate = "doas"

	require.NoError(t, r.ChannelUpdate(context.Background(), true))
	assert.Equal(t, []string{"doas nix-channel --update"}, rec.calls)
}

func TestFailuresBecomeCmdErrors(t *testing.T) {
	r, rec := newTestRunner(1000)
	rec.fail["sudo nixos-rebuild switch"] = exitError{code: 100}
	rec.fail["nix-env -u *"] = fmt.Errorf("exec: not found")

	err := r.SystemSwitch(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCmd))
	details := errors.GetErrorDetails(err)
	assert.Equal(t, "sudo nixos-rebuild switch", details[errors.DetailCommand])
	assert.Equal(t, 100, details[errors.DetailExitCode])

	err = r.EnvUpgrade(context.Background())
	assert.True(t, errors.IsErrorCode(err, errors.ErrCmd))
	assert.Equal(t, -1, errors.GetErrorDetails(err)[errors.DetailExitCode])
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	r, rec := newTestRunner(1000)
	rec.stdout["nix-env -q --json"] = `{"0":{"name":"htop-3.2.2","pname":"htop"}}`
	rec.stdout["nixos-version --json"] = `{"nixosVersion":"23.11.1234.abcdef"}`
	rec.stdout["nix-instantiate <nixpkgs/lib> -A version --eval --json"] = "\"23.11.1234.abcdef\"\n"

	out, err := r.EnvQuery(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(out), "htop-3.2.2")

	out, err = r.NixosVersion(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nixosVersion":"23.11.1234.abcdef"}`, string(out))

	ver, err := r.NixpkgsVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "23.11.1234.abcdef", ver)

	rec.fail["nixos-version --json"] = exitError{code: 1}
	_, err = r.NixosVersion(ctx)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCmd))
}

func TestHomeManagerAvailable(t *testing.T) {
	r, rec := newTestRunner(1000)
	assert.True(t, r.HomeManagerAvailable(context.Background()))

	rec.fail["home-manager --help"] = fmt.Errorf("exec: \"home-manager\": executable file not found in $PATH")
	assert.False(t, r.HomeManagerAvailable(context.Background()))
}

func TestSwitchDispatch(t *testing.T) {
	ctx := context.Background()
	r, rec := newTestRunner(1000)

	require.NoError(t, Switch(ctx, r, types.TargetSystem, ""))
	require.NoError(t, Switch(ctx, r, types.TargetUser, "/flake#me"))
	err := Switch(ctx, r, types.TargetEnvironment, "")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	assert.Equal(t, []string{"sudo nixos-rebuild switch", "home-manager switch --flake /flake#me"}, rec.calls)
}
