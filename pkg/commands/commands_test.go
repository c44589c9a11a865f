// TEST TYPE: Integration Test
// DEPENDENCIES: testutil environment, httptest metadata server
// PURPOSE: Exercise the top-level operations against a virtual machine

package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/arthur-debert/npkg/pkg/apply"
	"github.com/arthur-debert/npkg/pkg/config"
	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/metadata"
	"github.com/arthur-debert/npkg/pkg/testutil"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/arthur-debert/npkg/pkg/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const packagesJSON = `{
  "version": 2,
  "packages": {
    "htop": {"name": "htop-3.2.2", "pname": "htop", "version": "3.2.2", "meta": {"description": "An interactive process viewer"}},
    "ripgrep": {"name": "ripgrep-14.0.3", "pname": "ripgrep", "version": "14.0.3", "meta": {"description": "A line-oriented search tool"}},
    "neovim": {"name": "neovim-0.9.5", "pname": "neovim", "version": "0.9.5", "meta": {"description": "Vim text editor fork"}},
    "git": {"name": "git-2.42.0", "pname": "git", "version": "2.42.0", "meta": {"description": "Distributed version control system"}}
  }
}`

type fixture struct {
	env     *testutil.Environment
	out     *bytes.Buffer
	cfg     *config.Config
	session *Session
}

func metadataServer(t *testing.T) *httptest.Server {
	t.Helper()
	var body bytes.Buffer
	w := brotli.NewWriter(&body)
	_, err := w.Write([]byte(packagesJSON))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write(body.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	env := testutil.NewEnvironment(t)
	cfg := &config.Config{
		SystemConfig: env.Locator.SystemConfig,
		HomeConfig:   env.Locator.UserConfig,
		Channel:      "nixos",
		Elevate:      "sudo",
	}
	for _, m := range mutate {
		m(cfg)
	}

	srv := metadataServer(t)
	out := &bytes.Buffer{}
	session := NewSession(Options{
		Config:  cfg,
		FS:      env.FS,
		Runner:  env.Runner,
		Paths:   env.Paths,
		Printer: ui.NewPrinter(out, ui.FormatText),
		Metadata: metadata.New(metadata.Options{
			FS:      env.FS,
			Runner:  env.Runner,
			Paths:   env.Paths,
			Client:  srv.Client(),
			BaseURL: srv.URL,
		}),
	})
	return &fixture{env: env, out: out, cfg: cfg, session: session}
}

func indexOf(calls []string, prefix string) int {
	for i, c := range calls {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

func TestInstallSystem(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.Install(context.Background(), types.TargetSystem, []string{"git"})
	require.NoError(t, err)

	assert.Equal(t, apply.OutcomeApplied, res.Outcome)
	assert.Equal(t, []string{"git"}, res.Packages)
	assert.Contains(t, f.env.ReadFile(f.env.Locator.SystemConfig), "git")
	assert.True(t, f.env.Runner.Called("sudo nixos-rebuild switch"))
	assert.Contains(t, f.out.String(), "success: Installed git in System")
}

func TestInstallAlreadyPresentIsNoOp(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.Install(context.Background(), types.TargetSystem, []string{"pkgs.htop"})
	require.NoError(t, err)

	assert.Equal(t, apply.OutcomeNoOp, res.Outcome)
	assert.False(t, f.env.Runner.Called("sudo nixos-rebuild"))
	assert.Equal(t, testutil.SystemDocument, f.env.ReadFile(f.env.Locator.SystemConfig))
	assert.Contains(t, f.out.String(), "info: No new packages to install")
}

func TestRemoveHome(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.Remove(context.Background(), types.TargetUser, []string{"fd"})
	require.NoError(t, err)

	assert.Equal(t, apply.OutcomeApplied, res.Outcome)
	doc := f.env.ReadFile(f.env.Locator.UserConfig)
	assert.NotContains(t, doc, "pkgs.fd")
	assert.Contains(t, doc, "pkgs.ripgrep")
	assert.True(t, f.env.Runner.Called("home-manager switch"))
	assert.Contains(t, f.out.String(), "Removed fd in Home Manager")
}

func TestHomeRequiresHomeManager(t *testing.T) {
	f := newFixture(t)
	f.env.Runner.HomeManager = false

	_, err := f.session.Install(context.Background(), types.TargetUser, []string{"git"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrMissingTool))
	assert.Equal(t, testutil.HomeDocument, f.env.ReadFile(f.env.Locator.UserConfig))

	err = f.session.List(context.Background(), types.TargetUser)
	assert.True(t, errors.IsErrorCode(err, errors.ErrMissingTool))
}

func TestChangeRequiresPackages(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Install(context.Background(), types.TargetSystem, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestDryRunReportsPath(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.Change(context.Background(), types.RequestedChange{
		Target:   types.TargetSystem,
		Action:   types.ActionInstall,
		Packages: []string{"git"},
		Output:   "/virtual/etc/nixos/candidate.nix",
	})
	require.NoError(t, err)

	assert.Equal(t, apply.OutcomeDryRun, res.Outcome)
	assert.Contains(t, f.out.String(), "Wrote /virtual/etc/nixos/candidate.nix")
	assert.Equal(t, testutil.SystemDocument, f.env.ReadFile(f.env.Locator.SystemConfig))
}

func TestEnvironmentInstall(t *testing.T) {
	f := newFixture(t)
	f.env.Runner.EnvJSON = testutil.EnvQueryJSON

	res, err := f.session.Install(context.Background(), types.TargetEnvironment, []string{"htop", "neovim"})
	require.NoError(t, err)

	assert.Equal(t, apply.OutcomeApplied, res.Outcome)
	assert.Equal(t, []string{"neovim"}, res.Packages)
	assert.True(t, f.env.Runner.Called("nix-env -iA nixos.neovim"))
	assert.False(t, f.env.Runner.Called("nix-env -iA nixos.htop"))
}

func TestEnvironmentInstallUsesChannel(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Channel = "nixpkgs" })

	_, err := f.session.Install(context.Background(), types.TargetEnvironment, []string{"git"})
	require.NoError(t, err)
	assert.True(t, f.env.Runner.Called("nix-env -iA nixpkgs.git"))
}

func TestEnvironmentRemoveUsesDerivationNames(t *testing.T) {
	f := newFixture(t)
	f.env.Runner.EnvJSON = testutil.EnvQueryJSON

	res, err := f.session.Remove(context.Background(), types.TargetEnvironment, []string{"ripgrep", "git"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ripgrep"}, res.Packages)
	assert.Contains(t, f.env.Runner.Calls(), "nix-env -e ripgrep-14.0.3")
}

func TestEnvironmentRemoveAbsentIsNoOp(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.Remove(context.Background(), types.TargetEnvironment, []string{"git"})
	require.NoError(t, err)

	assert.Equal(t, apply.OutcomeNoOp, res.Outcome)
	assert.False(t, f.env.Runner.Called("nix-env -e"))
	assert.Contains(t, f.out.String(), "info: No packages to remove")
}

func TestEnvironmentCommandFailure(t *testing.T) {
	f := newFixture(t)
	f.env.Runner.FailOn(testutil.MethodEnvInstall, 1)

	_, err := f.session.Install(context.Background(), types.TargetEnvironment, []string{"git"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCmd))
}

func TestEnvironmentRejectsOutput(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Change(context.Background(), types.RequestedChange{
		Target:   types.TargetEnvironment,
		Action:   types.ActionInstall,
		Packages: []string{"git"},
		DryRun:   true,
	})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	assert.False(t, f.env.Runner.Called("nix-env -iA"))
}

func TestInstallWarnsAboutUnknownPackages(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.metadata.Ensure(context.Background()))

	_, err := f.session.Install(context.Background(), types.TargetSystem, []string{"rgrep"})
	require.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, "warning: rgrep is not a known package")
	assert.Contains(t, out, "  ripgrep")
}

func TestListSingleTarget(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.List(context.Background(), types.TargetSystem))
	assert.Equal(t, "System:\n  - htop\n  - vim\n", f.out.String())
}

func TestListAllTargets(t *testing.T) {
	f := newFixture(t)
	f.env.Runner.EnvJSON = testutil.EnvQueryJSON

	require.NoError(t, f.session.List(context.Background(), ""))

	out := f.out.String()
	system := strings.Index(out, "System:")
	home := strings.Index(out, "Home Manager:")
	envIdx := strings.Index(out, "Nix Environment:")
	require.True(t, system >= 0 && home > system && envIdx > home, out)
	assert.Contains(t, out, "  - fd\n  - ripgrep\n")
}

func TestListSkipsHomeWithoutHomeManager(t *testing.T) {
	f := newFixture(t)
	f.env.Runner.HomeManager = false

	require.NoError(t, f.session.List(context.Background(), ""))

	out := f.out.String()
	assert.Contains(t, out, "System:")
	assert.NotContains(t, out, "Home Manager:")
	assert.Contains(t, out, "Nix Environment:")
}

func TestSearchMarksInstalledTargets(t *testing.T) {
	f := newFixture(t)
	f.env.Runner.EnvJSON = testutil.EnvQueryJSON

	hits, err := f.session.Search(context.Background(), []string{"PROCESS"})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "htop", hits[0].Attr)
	assert.Contains(t, f.out.String(), "* htop (3.2.2) [env, system]\n  An interactive process viewer\n")
}

func TestSearchRequiresEveryTerm(t *testing.T) {
	f := newFixture(t)

	hits, err := f.session.Search(context.Background(), []string{"vim", "fork"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "neovim", hits[0].Attr)
}

func TestSearchSuggestsOnMiss(t *testing.T) {
	f := newFixture(t)

	hits, err := f.session.Search(context.Background(), []string{"rgrep"})
	require.NoError(t, err)

	assert.Empty(t, hits)
	out := f.out.String()
	assert.Contains(t, out, `warning: No packages match "rgrep"`)
	assert.Contains(t, out, "Did you mean:")
	assert.Contains(t, out, "  ripgrep\n")
}

func TestSearchRequiresTerms(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Search(context.Background(), nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestUpdateAllTargets(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.Update(context.Background(), ""))

	calls := f.env.Runner.Calls()
	user := indexOf(calls, "nix-channel --update")
	root := indexOf(calls, "sudo nix-channel --update")
	system := indexOf(calls, "sudo nixos-rebuild switch")
	home := indexOf(calls, "home-manager switch")
	envUp := indexOf(calls, "nix-env -u")
	require.True(t, user >= 0 && root > user, calls)
	assert.True(t, system > root && home > system && envUp > home, calls)
	assert.False(t, f.env.Runner.Called("nix flake update"))
}

func TestUpdateWithFlake(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Flake = "/etc/nixos#laptop" })

	require.NoError(t, f.session.Update(context.Background(), types.TargetSystem))

	calls := f.env.Runner.Calls()
	flake := indexOf(calls, "nix flake update /etc/nixos")
	system := indexOf(calls, "sudo nixos-rebuild switch --flake /etc/nixos#laptop --use-remote-sudo")
	require.True(t, flake >= 0, calls)
	assert.True(t, system > flake, calls)
	assert.False(t, f.env.Runner.Called("home-manager switch"))
	assert.Contains(t, f.out.String(), "success: Updated System")
}

func TestUpdateStopsOnChannelFailure(t *testing.T) {
	f := newFixture(t)
	f.env.Runner.FailOn(testutil.MethodChannelUpdate, 1)

	err := f.session.Update(context.Background(), types.TargetEnvironment)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCmd))
	assert.False(t, f.env.Runner.Called("nix-env -u"))
}

func TestDispatchDefaultsToEnvironment(t *testing.T) {
	f := newFixture(t)

	err := f.session.Dispatch(context.Background(), CommandInstall, DispatchOptions{Args: []string{"git"}})
	require.NoError(t, err)
	assert.True(t, f.env.Runner.Called("nix-env -iA nixos.git"))
	assert.False(t, f.env.Runner.Called("sudo nixos-rebuild"))
}

func TestDispatchUnknownCommand(t *testing.T) {
	f := newFixture(t)

	err := f.session.Dispatch(context.Background(), CommandType("frobnicate"), DispatchOptions{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrNoOperation))
}
