// Package testutil provides the shared test infrastructure for npkg.
//
// Key components:
//   - MemoryFS: afero-backed in-memory filesystem with permission-denial injection
//   - FakeRunner: records external commands instead of spawning them
//   - Environment: a rooted virtual machine layout wiring the two together
//
// Usage guidelines:
//   - Tests that touch documents or the cache should use NewEnvironment
//   - All test data is defined inline (see documents.go)
//   - Each test gets its own Environment, nothing is shared
package testutil
