// Package cli parses casl command-line arguments.
package cli

import (
	"io"

	"github.com/spf13/cobra"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandStop    Command = "stop"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

var subcommands = []struct {
	cmd   Command
	short string
}{
	{CommandRun, "Listen and dispatch commands for recognized phrases (default)"},
	{CommandStop, "Stop the running casl process"},
	{CommandStatus, "Print state and pipeline counters of the running process"},
	{CommandDevices, "List available input devices"},
	{CommandDoctor, "Run configuration and environment checks"},
	{CommandVersion, "Print version information"},
}

// Parse resolves args into one command. No command means run.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandRun}
	root := newRoot("casl", &parsed)
	// cobra falls back to os.Args when args is nil
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

// HelpText renders usage for binaryName.
func HelpText(binaryName string) string {
	return newRoot(binaryName, &Parsed{}).UsageString()
}

func newRoot(binaryName string, parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           binaryName,
		Short:         "Turn spoken phrases into commands and actions",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(*cobra.Command, []string) error {
			if showVersion {
				parsed.Command = CommandVersion
			}
			return nil
		},
	}
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&parsed.ConfigPath, "config", "", "config file `PATH` (default: $XDG_CONFIG_HOME/casl/casl.json)")
	root.Flags().BoolVar(&showVersion, "version", false, "show version")
	root.SetHelpFunc(func(*cobra.Command, []string) {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
	})

	for _, sub := range subcommands {
		root.AddCommand(&cobra.Command{
			Use:   string(sub.cmd),
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				parsed.Command = sub.cmd
				return nil
			},
		})
	}
	return root
}
