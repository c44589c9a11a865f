// Package nixcmd is the only place npkg spawns processes.
//
// Every external command (nix-env, nixos-rebuild, home-manager,
// nix-channel, nix, nixos-version, nix-instantiate and the elevation
// helper) has one method on Runner. Callers depend on the interface so
// tests can substitute a recorder instead of spawning processes.
//
// A command that cannot be started or exits non-zero yields a CMD error
// carrying the command line and exit status. Output is never interpreted
// beyond the exit status except for the query commands that return data.
package nixcmd
