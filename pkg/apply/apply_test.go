// TEST TYPE: Integration
// DEPENDENCIES: testutil.Environment (memory FS, fake runner)
// PURPOSE: Drive whole changes through the orchestrator and check disk state and commands

package apply

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/installed"
	"github.com/arthur-debert/npkg/pkg/testutil"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(env *testutil.Environment) *Orchestrator {
	return New(Options{
		FS:      env.FS,
		Runner:  env.Runner,
		Paths:   env.Paths,
		Locator: env.Locator,
	})
}

func install(target types.Target, pkgs ...string) types.RequestedChange {
	return types.RequestedChange{Target: target, Action: types.ActionInstall, Packages: pkgs}
}

func remove(target types.Target, pkgs ...string) types.RequestedChange {
	return types.RequestedChange{Target: target, Action: types.ActionRemove, Packages: pkgs}
}

func TestInstallAppliesAndRebuilds(t *testing.T) {
	env := testutil.NewEnvironment(t)
	env.WriteFile(env.Locator.SystemConfig, "{ pkgs, ... }: { environment.systemPackages = [ pkgs.htop ]; }\n")

	var seen string
	env.Runner.AfterSwitch = func(types.Target) { seen = env.ReadFile(env.Locator.SystemConfig) }

	res, err := newOrchestrator(env).Apply(context.Background(), install(types.TargetSystem, "htop", "curl"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, []string{"curl"}, res.Packages)
	assert.Equal(t, "{ pkgs, ... }: { environment.systemPackages = [ pkgs.htop pkgs.curl ]; }\n", seen)
	assert.Equal(t, []string{"sudo nixos-rebuild switch"}, env.Runner.Calls())

	set, err := installed.FromDocument(env.ReadFile(env.Locator.SystemConfig), types.SystemPackagesAttr)
	require.NoError(t, err)
	assert.Equal(t, types.InstalledSet{"htop", "curl"}, set)
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	env := testutil.NewEnvironment(t)
	env.WriteFile(env.Locator.SystemConfig, "{ environment.systemPackages = [ pkgs.curl ]; }\n")

	res, err := newOrchestrator(env).Apply(context.Background(), remove(types.TargetSystem, "vim"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoOp, res.Outcome)
	assert.Equal(t, "{ environment.systemPackages = [ pkgs.curl ]; }\n", env.ReadFile(env.Locator.SystemConfig))
	assert.Empty(t, env.Runner.Calls())
	assert.Equal(t, 0, errors.ExitCode(err))
}

func TestOutputPathIsDryRun(t *testing.T) {
	env := testutil.NewEnvironment(t)
	req := install(types.TargetSystem, "curl")
	req.Output = "/virtual/home/candidate.nix"

	res, err := newOrchestrator(env).Apply(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, OutcomeDryRun, res.Outcome)
	assert.Equal(t, req.Output, res.Path)
	assert.Equal(t, testutil.SystemDocument, env.ReadFile(env.Locator.SystemConfig))
	assert.Contains(t, env.ReadFile(req.Output), "    htop\n    curl\n")
	assert.Empty(t, env.Runner.Calls())
}

func TestOutputPathNeverElevates(t *testing.T) {
	env := testutil.NewEnvironment(t)
	req := install(types.TargetSystem, "curl")
	req.Output = "/virtual/etc/nixos/candidate.nix"
	env.FS.Deny(req.Output)

	_, err := newOrchestrator(env).Apply(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrWrite))
	assert.Equal(t, "/virtual/etc/nixos", errors.GetErrorDetails(err)[errors.DetailDir])
	assert.Empty(t, env.Runner.Calls())
}

func TestDryRunWritesWithoutRebuild(t *testing.T) {
	env := testutil.NewEnvironment(t)
	req := remove(types.TargetUser, "fd")
	req.DryRun = true

	res, err := newOrchestrator(env).Apply(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, OutcomeDryRun, res.Outcome)
	assert.NotContains(t, env.ReadFile(env.Locator.UserConfig), "pkgs.fd")
	assert.Empty(t, env.Runner.Calls())
}

func TestElevatedWriteFailureLeavesDocument(t *testing.T) {
	env := testutil.NewEnvironment(t)
	env.DenyDocument(types.TargetSystem)
	env.Runner.FailOn(testutil.MethodElevatedCopy, 1)

	_, err := newOrchestrator(env).Apply(context.Background(), install(types.TargetSystem, "curl"))
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrWrite))
	assert.Equal(t, "/virtual/etc/nixos", errors.GetErrorDetails(err)[errors.DetailDir])
	assert.Equal(t, testutil.SystemDocument, env.ReadFile(env.Locator.SystemConfig))
	assert.False(t, env.Runner.Called("sudo nixos-rebuild"))
	assert.False(t, env.Exists(env.Paths.StagingPath(env.Locator.SystemConfig)))
	assert.Equal(t, 1, errors.ExitCode(err))
}

func TestElevatedWriteSucceeds(t *testing.T) {
	env := testutil.NewEnvironment(t)
	env.DenyDocument(types.TargetSystem)
	staged := env.Paths.StagingPath(env.Locator.SystemConfig)

	res, err := newOrchestrator(env).Apply(context.Background(), install(types.TargetSystem, "curl"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Contains(t, env.ReadFile(env.Locator.SystemConfig), "    curl\n")
	assert.Equal(t, []string{
		"sudo cp " + staged + " " + env.Locator.SystemConfig,
		"sudo nixos-rebuild switch",
	}, env.Runner.Calls())
	assert.False(t, env.Exists(staged))
}

func TestRebuildFailureRestoresDocument(t *testing.T) {
	env := testutil.NewEnvironment(t)
	env.Runner.FailOn(testutil.MethodSystemSwitch, 1)

	_, err := newOrchestrator(env).Apply(context.Background(), install(types.TargetSystem, "curl"))
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrCmd))
	assert.False(t, errors.IsErrorCode(err, errors.ErrWrite))
	assert.Equal(t, testutil.SystemDocument, env.ReadFile(env.Locator.SystemConfig))
	assert.Equal(t, 1, errors.ExitCode(err))
}

func TestHomeRebuildFailureRestoresThroughElevation(t *testing.T) {
	env := testutil.NewEnvironment(t)
	env.DenyDocument(types.TargetUser)
	env.Runner.FailOn(testutil.MethodHomeSwitch, 2)

	_, err := newOrchestrator(env).Apply(context.Background(), remove(types.TargetUser, "ripgrep"))
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrCmd))
	assert.Equal(t, testutil.HomeDocument, env.ReadFile(env.Locator.UserConfig))

	copies := 0
	for _, c := range env.Runner.Calls() {
		if strings.HasPrefix(c, "sudo cp ") {
			copies++
		}
	}
	assert.Equal(t, 2, copies)
}

// copyOnce lets the first elevated copy through and fails the rest
type copyOnce struct {
	*testutil.FakeRunner
	copies int
}

func (c *copyOnce) ElevatedCopy(ctx context.Context, src, dst string) error {
	c.copies++
	if c.copies > 1 {
		return errors.CmdError("sudo cp", 1, fmt.Errorf("exit status 1"))
	}
	return c.FakeRunner.ElevatedCopy(ctx, src, dst)
}

func TestRestoreFailureReportsBoth(t *testing.T) {
	env := testutil.NewEnvironment(t)
	env.DenyDocument(types.TargetSystem)
	env.Runner.FailOn(testutil.MethodSystemSwitch, 1)
	runner := &copyOnce{FakeRunner: env.Runner}

	o := New(Options{FS: env.FS, Runner: runner, Paths: env.Paths, Locator: env.Locator})
	_, err := o.Apply(context.Background(), install(types.TargetSystem, "curl"))
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrCmd))
	assert.True(t, errors.IsErrorCode(err, errors.ErrWrite))
	assert.Equal(t, 2, runner.copies)
}

func TestMalformedDocumentIsNotWritten(t *testing.T) {
	env := testutil.NewEnvironment(t)
	doc := "{ environment.systemPackages = import ./packages.nix; }\n"
	env.WriteFile(env.Locator.SystemConfig, doc)
	writes := env.FS.WriteCount()

	_, err := newOrchestrator(env).Apply(context.Background(), install(types.TargetSystem, "curl"))
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrEmptyPackages))
	assert.Equal(t, writes, env.FS.WriteCount())
	assert.Equal(t, doc, env.ReadFile(env.Locator.SystemConfig))
}

func TestQualifiedRequestsMatchBareEntries(t *testing.T) {
	env := testutil.NewEnvironment(t)

	res, err := newOrchestrator(env).Apply(context.Background(), install(types.TargetSystem, "pkgs.htop"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, res.Outcome)
}

func TestFlakeIsPassedToRebuild(t *testing.T) {
	env := testutil.NewEnvironment(t)
	env.Locator.Flake = "/etc/nixos#laptop"

	_, err := newOrchestrator(env).Apply(context.Background(), install(types.TargetSystem, "curl"))
	require.NoError(t, err)
	assert.Equal(t, []string{"sudo nixos-rebuild switch --flake /etc/nixos#laptop --use-remote-sudo"}, env.Runner.Calls())
}

func TestEnvironmentTargetRejected(t *testing.T) {
	env := testutil.NewEnvironment(t)

	_, err := newOrchestrator(env).Apply(context.Background(), install(types.TargetEnvironment, "curl"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestWriteToMissingDirectory(t *testing.T) {
	env := testutil.NewEnvironment(t)
	o := newOrchestrator(env)

	env.FS.Deny("/virtual/nowhere/configuration.nix")
	err := o.WriteWithElevation(context.Background(), "/virtual/nowhere/configuration.nix", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrWrite))
	assert.Empty(t, env.Runner.Calls())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "no-op", OutcomeNoOp.String())
	assert.Equal(t, "dry-run", OutcomeDryRun.String())
	assert.Equal(t, "applied", OutcomeApplied.String())
}
