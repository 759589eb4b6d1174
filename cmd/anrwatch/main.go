package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createStatusCommand(),
		createEventsCommand(),
		createCheckCommand(globalFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "anrwatch",
		Short: "Application-not-responding watchdog",
		Long: `anrwatch probes the clients of a compositor, flags the ones that stop
answering, offers to terminate them through a dialog and reports recoveries.

Examples:
  anrwatch serve anrwatch.toml      # Start daemon
  anrwatch status                   # Show tracked clients
  anrwatch events --type anr        # Follow notifications
  anrwatch check anrwatch.toml      # Validate config and dialog presence`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the anrwatch daemon",
		Long: `Start the watchdog and the host bridge API.
Settings come from the TOML file, defaults and ANRWATCH_* environment variables.

Examples:
  anrwatch serve                    # Defaults (uses --config when set)
  anrwatch serve anrwatch.toml      # Start with specific config file
  anrwatch serve --daemonize        # Run in background (pidfile configured via [server].pidfile)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return runServe(cmd.Context(), serveFlags, args)
		},
	}
	cmd.Flags().BoolVar(&serveFlags.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&serveFlags.LogFile, "logfile", "", "redirect daemon output to file")
	return cmd
}

func createStatusCommand() *cobra.Command {
	f := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show watchdog state from a running daemon",
		Long: `Print the liveness record of every tracked client.

Examples:
  anrwatch status
  anrwatch status --json
  anrwatch status --api-url=http://remote:8090/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	addAPIFlags(cmd, &f.APIFlags)
	cmd.Flags().BoolVar(&f.JSON, "json", false, "print raw JSON")
	return cmd
}

func createEventsCommand() *cobra.Command {
	f := &EventsFlags{}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow notifications from a running daemon",
		Long: `Stream anr, anrrecovered and ping events until interrupted.

Examples:
  anrwatch events
  anrwatch events --type anr --type anrrecovered`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	addAPIFlags(cmd, &f.APIFlags)
	cmd.Flags().StringSliceVar(&f.Types, "type", nil, "event types to follow (default all)")
	return cmd
}

func createCheckCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check [config.toml]",
		Short: "Validate configuration and look for the dialog executable",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigPath
			if len(args) > 0 {
				path = args[0]
			}
			return runCheck(cmd.OutOrStdout(), path)
		},
	}
}

func addAPIFlags(cmd *cobra.Command, f *APIFlags) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", defaultAPIURL, "daemon API base URL")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", defaultAPITimeout, "request timeout")
}
