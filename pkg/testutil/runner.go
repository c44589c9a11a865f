package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/nixcmd"
	"github.com/arthur-debert/npkg/pkg/types"
)

// Method names accepted by FakeRunner.FailOn
const (
	MethodEnvQuery       = "EnvQuery"
	MethodEnvInstall     = "EnvInstall"
	MethodEnvRemove      = "EnvRemove"
	MethodEnvUpgrade     = "EnvUpgrade"
	MethodSystemSwitch   = "SystemSwitch"
	MethodHomeSwitch     = "HomeSwitch"
	MethodElevatedCopy   = "ElevatedCopy"
	MethodChannelUpdate  = "ChannelUpdate"
	MethodFlakeUpdate    = "FlakeUpdate"
	MethodNixosVersion   = "NixosVersion"
	MethodNixpkgsVersion = "NixpkgsVersion"
)

// FakeRunner implements nixcmd.Runner by recording the command lines the
// real runner would spawn. Elevated commands are recorded with a "sudo"
// prefix.
type FakeRunner struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error

	// EnvJSON is returned by EnvQuery
	EnvJSON string
	// NixosVersionJSON is returned by NixosVersion
	NixosVersionJSON string
	// Nixpkgs is returned by NixpkgsVersion
	Nixpkgs string
	// HomeManager is returned by HomeManagerAvailable
	HomeManager bool
	// FS receives elevated copies. Copies are recorded only when nil.
	FS types.FS
	// AfterSwitch runs after a successful rebuild, letting a test observe
	// the state the rebuild would have seen.
	AfterSwitch func(target types.Target)
}

var _ nixcmd.Runner = (*FakeRunner)(nil)

// NewFakeRunner creates a runner where every command succeeds
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		fail:             make(map[string]error),
		EnvJSON:          "{}",
		NixosVersionJSON: `{"nixosVersion":"23.11.20240101.abcdef0"}`,
		Nixpkgs:          "23.11.20240101.abcdef0",
		HomeManager:      true,
	}
}

// FailOn makes method return a CMD error with the given exit code
func (f *FakeRunner) FailOn(method string, exitCode int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = errors.CmdError(method, exitCode, fmt.Errorf("exit status %d", exitCode))
}

// Calls returns the recorded command lines in order
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Called reports whether any recorded command line starts with prefix
func (f *FakeRunner) Called(prefix string) bool {
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *FakeRunner) record(method string, line ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.Join(line, " "))
	return f.fail[method]
}

func (f *FakeRunner) EnvQuery(context.Context) ([]byte, error) {
	if err := f.record(MethodEnvQuery, "nix-env", "-q", "--json"); err != nil {
		return nil, err
	}
	return []byte(f.EnvJSON), nil
}

func (f *FakeRunner) EnvInstall(_ context.Context, channel string, attrs []string) error {
	line := []string{"nix-env", "-iA"}
	for _, a := range attrs {
		line = append(line, channel+"."+a)
	}
	return f.record(MethodEnvInstall, line...)
}

func (f *FakeRunner) EnvRemove(_ context.Context, names []string) error {
	return f.record(MethodEnvRemove, append([]string{"nix-env", "-e"}, names...)...)
}

func (f *FakeRunner) EnvUpgrade(context.Context) error {
	return f.record(MethodEnvUpgrade, "nix-env", "-u", "*")
}

func (f *FakeRunner) SystemSwitch(_ context.Context, flake string) error {
	line := []string{"sudo", "nixos-rebuild", "switch"}
	if flake != "" {
		line = append(line, "--flake", flake, "--use-remote-sudo")
	}
	if err := f.record(MethodSystemSwitch, line...); err != nil {
		return err
	}
	if f.AfterSwitch != nil {
		f.AfterSwitch(types.TargetSystem)
	}
	return nil
}

func (f *FakeRunner) HomeSwitch(_ context.Context, flake string) error {
	line := []string{"home-manager", "switch"}
	if flake != "" {
		line = append(line, "--flake", flake)
	}
	if err := f.record(MethodHomeSwitch, line...); err != nil {
		return err
	}
	if f.AfterSwitch != nil {
		f.AfterSwitch(types.TargetUser)
	}
	return nil
}

func (f *FakeRunner) HomeManagerAvailable(context.Context) bool {
	_ = f.record("HomeManagerAvailable", "home-manager", "--help")
	return f.HomeManager
}

func (f *FakeRunner) ElevatedCopy(_ context.Context, src, dst string) error {
	if err := f.record(MethodElevatedCopy, "sudo", "cp", src, dst); err != nil {
		return err
	}
	if f.FS == nil {
		return nil
	}
	data, err := f.FS.ReadFile(src)
	if err != nil {
		return errors.CmdError("sudo cp", 1, err)
	}
	if err := f.FS.WriteFile(dst, data, 0644); err != nil {
		return errors.CmdError("sudo cp", 1, err)
	}
	return nil
}

func (f *FakeRunner) ChannelUpdate(_ context.Context, elevated bool) error {
	if elevated {
		return f.record(MethodChannelUpdate, "sudo", "nix-channel", "--update")
	}
	return f.record(MethodChannelUpdate, "nix-channel", "--update")
}

func (f *FakeRunner) FlakeUpdate(_ context.Context, dir string) error {
	return f.record(MethodFlakeUpdate, "nix", "flake", "update", dir)
}

func (f *FakeRunner) NixosVersion(context.Context) ([]byte, error) {
	if err := f.record(MethodNixosVersion, "nixos-version", "--json"); err != nil {
		return nil, err
	}
	return []byte(f.NixosVersionJSON), nil
}

func (f *FakeRunner) NixpkgsVersion(context.Context) (string, error) {
	if err := f.record(MethodNixpkgsVersion, "nix-instantiate", "<nixpkgs/lib>", "-A", "version", "--eval", "--json"); err != nil {
		return "", err
	}
	return f.Nixpkgs, nil
}
