package npkg

import (
	_ "embed"
	"strings"
)

// Short messages
const (
	MsgRootShort       = "Manage the packages of a NixOS machine"
	MsgCompletionShort = "Generate shell completion script"
	MsgVersionShort    = "Print version information"

	// Flag descriptions
	MsgFlagInstall = "Install packages"
	MsgFlagRemove  = "Remove packages"
	MsgFlagList    = "List installed packages"
	MsgFlagSearch  = "Search available packages"
	MsgFlagUpdate  = "Update channels and rebuild"
	MsgFlagSystem  = "Target the NixOS configuration"
	MsgFlagHome    = "Target the home-manager configuration"
	MsgFlagEnv     = "Target the nix-env environment (default for -i and -r)"
	MsgFlagOutput  = "Write the edited configuration to FILE instead of rebuilding"
	MsgFlagDryRun  = "Edit the configuration but skip the rebuild"
	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagFormat  = "Output format: auto, term or text"

	// Errors and hints
	MsgErrNoOperation = "no operation specified"
	MsgErrNoPackages  = "no packages specified"
	MsgErrNoTerms     = "no search terms specified"
	MsgErrUnexpected  = "%s takes no arguments"
	MsgHintUsage      = "Use one of -i, -r, -l, -s or -u. Run 'npkg --help' for usage."

	// Version output
	MsgVersionFormat = "npkg version %s\n  commit: %s\n  built:  %s\n"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/root-example.txt
	msgRootExampleRaw string
	MsgRootExample    = strings.TrimRight(msgRootExampleRaw, "\n")

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)
)
