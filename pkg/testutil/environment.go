// pkg/testutil/environment.go
// DEPENDENCIES: paths, types
// PURPOSE: Build an isolated virtual machine layout for command tests

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/npkg/pkg/paths"
	"github.com/arthur-debert/npkg/pkg/types"
)

// VirtualRoot is the directory every Environment lives under
const VirtualRoot = "/virtual"

// Environment bundles an in-memory filesystem, a fake runner and the
// document locations of one virtual machine.
type Environment struct {
	FS      *MemoryFS
	Runner  *FakeRunner
	Paths   paths.Paths
	Locator types.Locator

	t *testing.T
}

// NewEnvironment creates an Environment with the system and home
// documents seeded from SystemDocument and HomeDocument.
func NewEnvironment(t *testing.T) *Environment {
	t.Helper()

	p := paths.NewForRoot(VirtualRoot)
	mem := NewMemoryFS()
	runner := NewFakeRunner()
	runner.FS = mem.Privileged()

	env := &Environment{
		FS:     mem,
		Runner: runner,
		Paths:  p,
		Locator: types.Locator{
			SystemConfig: filepath.Join(VirtualRoot, "etc", "nixos", "configuration.nix"),
			UserConfig:   p.DefaultHomeConfig(),
		},
		t: t,
	}

	for _, dir := range []string{p.HomeDir(), p.ConfigDir(), p.CacheDir(), p.StateDir()} {
		if err := mem.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	env.WriteFile(env.Locator.SystemConfig, SystemDocument)
	env.WriteFile(env.Locator.UserConfig, HomeDocument)
	return env
}

// WriteFile creates path with content, bypassing any denial
func (env *Environment) WriteFile(path, content string) {
	env.t.Helper()
	fsys := env.FS.Privileged()
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		env.t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := fsys.WriteFile(path, []byte(content), 0644); err != nil {
		env.t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// ReadFile returns the content of path, failing the test if it is missing
func (env *Environment) ReadFile(path string) string {
	env.t.Helper()
	data, err := env.FS.ReadFile(path)
	if err != nil {
		env.t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// Exists reports whether path exists
func (env *Environment) Exists(path string) bool {
	_, err := env.FS.Stat(path)
	return err == nil
}

// DenyDocument makes the document of target unwritable without elevation
func (env *Environment) DenyDocument(target types.Target) {
	doc, ok := env.Locator.Document(target)
	if !ok {
		env.t.Fatalf("target %s has no document", target)
	}
	env.FS.Deny(doc)
}
