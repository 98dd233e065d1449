package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/domain/launch"
	"github.com/oshokin/server-launcher/internal/logger"
	"github.com/oshokin/server-launcher/internal/service/launcher"
	"github.com/oshokin/server-launcher/internal/version"
)

// errUnknownLogLevel is returned for --log-level values zap does not know.
var errUnknownLogLevel = errors.New("unknown log level")

var (
	// settingsPath stores the path to the settings YAML file.
	settingsPath string
	// logLevel is the minimum level of log messages.
	logLevel string
	// launchConfigPath overrides the launch config file from the settings.
	launchConfigPath string
	// updateMode overrides the update mode from the settings.
	updateMode string
	// failClosed makes install and fetch failures abort the run.
	failClosed bool

	// rootCmd represents the base command that runs the launch sequence.
	rootCmd = &cobra.Command{
		Use:   "server-launcher",
		Short: "Prepare the runtime and the server artifact, then start the server.",
		Long: `Bootstrap launcher for a Java server application.

Checks that the java runtime can be started and installs it into a local directory
when it cannot. Downloads the server artifact from the latest release when the
artifact file is missing; an existing file is trusted and never re-checked unless
--update-mode=always is given. Reads the heap sizes from launcher.properties,
creating it with xmx=4096 and xms=1024 when absent, and starts:

  java -Xmx<xmx>M -Xms<xms>M -jar server.jar nogui

The server shares this console. The launcher exits when the server exits.

Exit codes: 0 success, 1 generic failure, 2 probe, 3 install, 4 fetch, 5 config,
6 spawn, 7 wait interrupted, 8 server exited with a non-zero status.`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: applyLogLevel,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Flags are valid at this point; failures are logged by the launcher itself.
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			launcherOptions := &launcher.Options{
				SettingsPath:     settingsPath,
				LaunchConfigPath: launchConfigPath,
				UpdateMode:       updateMode,
				FailClosed:       failClosed,
			}

			return launcher.Run(ctx, launcherOptions)
		},
	}
)

// Execute runs the server-launcher CLI and exits with the status of the run.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(launch.ExitCode(err))
	}
}

// applyLogLevel sets the global log level from the --log-level flag.
func applyLogLevel(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Flags shared by every subcommand.
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", config.DefaultConfigFilename,
		"path to settings file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info",
		"log level: debug, info, warn or error")

	// Launch sequence overrides.
	rootCmd.Flags().StringVarP(&launchConfigPath, "config", "c", "",
		"path to launch config file (default from settings: "+config.DefaultLaunchConfigFilename+")")
	rootCmd.Flags().StringVar(&updateMode, "update-mode", "",
		"artifact update mode: presence or always (default from settings)")
	rootCmd.Flags().BoolVar(&failClosed, "fail-closed", false,
		"abort when the runtime install or the artifact fetch fails")
}
