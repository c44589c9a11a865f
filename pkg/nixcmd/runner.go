package nixcmd

import "context"

// Runner invokes the external commands npkg depends on
type Runner interface {
	// EnvQuery returns the raw output of "nix-env -q --json"
	EnvQuery(ctx context.Context) ([]byte, error)
	// EnvInstall runs "nix-env -iA <channel>.<attr>..."
	EnvInstall(ctx context.Context, channel string, attrs []string) error
	// EnvRemove runs "nix-env -e <name>..."
	EnvRemove(ctx context.Context, names []string) error
	// EnvUpgrade runs "nix-env -u '*'"
	EnvUpgrade(ctx context.Context) error

	// SystemSwitch runs an elevated "nixos-rebuild switch", building from
	// flake when it is non-empty.
	SystemSwitch(ctx context.Context, flake string) error
	// HomeSwitch runs "home-manager switch", building from flake when it
	// is non-empty.
	HomeSwitch(ctx context.Context, flake string) error
	// HomeManagerAvailable reports whether "home-manager --help" succeeds
	HomeManagerAvailable(ctx context.Context) bool

	// ElevatedCopy copies src over dst through the elevation helper
	ElevatedCopy(ctx context.Context, src, dst string) error

	// ChannelUpdate runs "nix-channel --update", through the elevation
	// helper when elevated is set.
	ChannelUpdate(ctx context.Context, elevated bool) error
	// FlakeUpdate runs "nix flake update <dir>"
	FlakeUpdate(ctx context.Context, dir string) error

	// NixosVersion returns the raw output of "nixos-version --json"
	NixosVersion(ctx context.Context) ([]byte, error)
	// NixpkgsVersion returns the nixpkgs library version string,
	// e.g. "23.11.20240101.abcdef0".
	NixpkgsVersion(ctx context.Context) (string, error)
}
