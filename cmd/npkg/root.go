package npkg

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/arthur-debert/npkg/internal/version"
	"github.com/arthur-debert/npkg/pkg/cobrax/topics"
	"github.com/arthur-debert/npkg/pkg/commands"
	"github.com/arthur-debert/npkg/pkg/config"
	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/filesystem"
	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/arthur-debert/npkg/pkg/metadata"
	"github.com/arthur-debert/npkg/pkg/nixcmd"
	"github.com/arthur-debert/npkg/pkg/paths"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/arthur-debert/npkg/pkg/ui"
	"github.com/arthur-debert/npkg/pkg/ui/styles"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Deps supplies the collaborators of a run. Nil fields are built for the
// running machine.
type Deps struct {
	FS     types.FS
	Paths  paths.Paths
	Runner nixcmd.Runner
	// Client and BaseURL locate the package metadata server
	Client  *http.Client
	BaseURL string
}

type rootFlags struct {
	install, remove, list, search, update bool
	system, home, env                     bool

	output    string
	dryRun    bool
	verbosity int
	format    string
}

func (f *rootFlags) command() (commands.CommandType, error) {
	switch {
	case f.install:
		return commands.CommandInstall, nil
	case f.remove:
		return commands.CommandRemove, nil
	case f.list:
		return commands.CommandList, nil
	case f.search:
		return commands.CommandSearch, nil
	case f.update:
		return commands.CommandUpdate, nil
	}
	return "", errors.New(errors.ErrNoOperation, MsgErrNoOperation)
}

// requested reports whether an operation flag was given
func (f *rootFlags) requested() bool {
	return f.install || f.remove || f.list || f.search || f.update
}

// target is empty when no target flag was given
func (f *rootFlags) target() types.Target {
	switch {
	case f.system:
		return types.TargetSystem
	case f.home:
		return types.TargetUser
	case f.env:
		return types.TargetEnvironment
	}
	return ""
}

func checkArgs(cmdType commands.CommandType, args []string) error {
	switch cmdType {
	case commands.CommandInstall, commands.CommandRemove:
		if len(args) == 0 {
			return errors.New(errors.ErrInvalidInput, MsgErrNoPackages)
		}
	case commands.CommandSearch:
		if len(args) == 0 {
			return errors.New(errors.ErrInvalidInput, MsgErrNoTerms)
		}
	default:
		if len(args) > 0 {
			return errors.Newf(errors.ErrInvalidInput, MsgErrUnexpected, cmdType)
		}
	}
	return nil
}

// NewRootCmd creates the npkg command for the running machine
func NewRootCmd() *cobra.Command {
	return newRootCmd(Deps{})
}

func newRootCmd(deps Deps) *cobra.Command {
	initTemplateFormatting()

	opts := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:     "npkg [flags] [packages or search terms...]",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Example: MsgRootExample,
		Version: version.Version,
		Args:    cobra.ArbitraryArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdType, err := opts.command()
			if err != nil {
				return err
			}
			if err := checkArgs(cmdType, args); err != nil {
				return err
			}
			format, err := ui.ParseFormat(opts.format)
			if err != nil {
				return errors.Wrap(err, errors.ErrInvalidInput, "invalid --format")
			}

			session, err := deps.session(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			return session.Dispatch(cmd.Context(), cmdType, commands.DispatchOptions{
				Target: opts.target(),
				Args:   args,
				Output: opts.output,
				DryRun: opts.dryRun,
			})
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// operation flags are persistent so that a package or search term named
	// like a subcommand still parses when cobra resolves that subcommand
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.install, "install", "i", false, MsgFlagInstall)
	flags.BoolVarP(&opts.remove, "remove", "r", false, MsgFlagRemove)
	flags.BoolVarP(&opts.list, "list", "l", false, MsgFlagList)
	flags.BoolVarP(&opts.search, "search", "s", false, MsgFlagSearch)
	flags.BoolVarP(&opts.update, "update", "u", false, MsgFlagUpdate)
	flags.BoolVarP(&opts.system, "system", "S", false, MsgFlagSystem)
	flags.BoolVarP(&opts.home, "home", "H", false, MsgFlagHome)
	flags.BoolVarP(&opts.env, "env", "E", false, MsgFlagEnv)
	flags.StringVarP(&opts.output, "output", "o", "", MsgFlagOutput)
	flags.BoolVarP(&opts.dryRun, "dry-run", "d", false, MsgFlagDryRun)
	flags.CountVarP(&opts.verbosity, "verbose", "v", MsgFlagVerbose)
	flags.StringVar(&opts.format, "format", "auto", MsgFlagFormat)

	rootCmd.MarkFlagsMutuallyExclusive("install", "remove", "list", "search", "update")
	rootCmd.MarkFlagsMutuallyExclusive("system", "home", "env")
	for _, other := range []string{"list", "search", "update", "env"} {
		rootCmd.MarkFlagsMutuallyExclusive("output", other)
		rootCmd.MarkFlagsMutuallyExclusive("dry-run", other)
	}

	rootCmd.SetUsageTemplate(MsgUsageTemplate)
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// a topic scan error leaves cobra's default help in place
	_ = topics.InitializeWithOptions(rootCmd, helpTopics(), topics.Options{
		Extensions: []string{".txt", ".md"},
		Renderer:   topics.NewGlamourRenderer(),
	})
	forwardOperations(rootCmd, opts)

	return rootCmd
}

// forwardOperations hands a subcommand invocation back to the root when an
// operation flag is set, so "npkg -s version" searches for "version".
func forwardOperations(root *cobra.Command, opts *rootFlags) {
	for _, sub := range root.Commands() {
		validate, run, runE := sub.Args, sub.Run, sub.RunE
		sub.Args = func(cmd *cobra.Command, args []string) error {
			if opts.requested() || validate == nil {
				return nil
			}
			return validate(cmd, args)
		}
		sub.Run = nil
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			if opts.requested() {
				return root.RunE(root, append([]string{cmd.Name()}, args...))
			}
			if runE != nil {
				return runE(cmd, args)
			}
			run(cmd, args)
			return nil
		}
	}
}

func (d Deps) session(out io.Writer, format ui.Format) (*commands.Session, error) {
	fsys := d.FS
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	p := d.Paths
	if p == nil {
		var err error
		if p, err = paths.New(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(fsys, p)
	if err != nil {
		return nil, err
	}
	runner := d.Runner
	if runner == nil {
		runner = nixcmd.NewExecRunner(nixcmd.Options{Elevate: cfg.Elevate})
	}

	var progress io.Writer
	if ui.IsTerminal(os.Stderr) {
		progress = os.Stderr
	}
	cache := metadata.New(metadata.Options{
		FS:       fsys,
		Runner:   runner,
		Paths:    p,
		Client:   d.Client,
		BaseURL:  d.BaseURL,
		Progress: progress,
	})

	return commands.NewSession(commands.Options{
		Config:   cfg,
		FS:       fsys,
		Runner:   runner,
		Paths:    p,
		Printer:  ui.NewPrinter(out, format),
		Metadata: cache,
	}), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), MsgVersionFormat, version.Version, version.Commit, version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// ReportError prints err for the user, with a usage hint when no
// operation was requested
func ReportError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, styles.Render("Error", fmt.Sprintf("Error: %v", err)))
	if errors.IsErrorCode(err, errors.ErrNoOperation) {
		_, _ = fmt.Fprintln(w, MsgHintUsage)
	}
}
