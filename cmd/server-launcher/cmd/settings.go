package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/service/common"
)

// errSettingsExist is returned when init-settings would overwrite a file.
var errSettingsExist = errors.New("settings file already exists, use --force to overwrite")

var (
	// forceSettings allows init-settings to overwrite an existing file.
	forceSettings bool

	// initSettingsCmd writes the default settings file.
	initSettingsCmd = &cobra.Command{
		Use:   "init-settings [path]",
		Short: "Write a settings file with the default values.",
		Long: `Writes the built-in settings to a YAML file so they can be edited.

The path defaults to the --settings value. An existing file is kept unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := settingsPath
			if len(args) > 0 {
				path = args[0]
			}

			if common.FileExists(path) && !forceSettings {
				return fmt.Errorf("%s: %w", path, errSettingsExist)
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", path)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initSettingsCmd.Flags().BoolVarP(&forceSettings, "force", "f", false, "overwrite an existing file")

	rootCmd.AddCommand(initSettingsCmd)
}
