package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/harborlight/weekly/internal/archive"
	"github.com/harborlight/weekly/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .weekly directory, config and archive",
	Long: `Initialize the .weekly directory in the current directory.

This writes .weekly/config.yaml with the default settings and creates the
archive.db render archive. Commands run in this directory or below pick up
the config automatically.

Examples:
  weekly init          # Initialize in current directory
  weekly init --force  # Rewrite config.yaml with defaults (archive is kept)`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "get working directory")
	}

	configDir := filepath.Join(cwd, config.ConfigDirName)
	configFile := filepath.Join(configDir, config.ConfigFileName)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(configFile); err == nil && !initForce {
		relPath, _ := filepath.Rel(cwd, configDir)
		fmt.Fprintf(out, "Already initialized at %s\n", relPath)
		return nil
	} else if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "checking config path")
	}

	if _, err := config.SaveDefault(cwd, initForce); err != nil {
		return err
	}

	a, err := archive.Open(configDir)
	if err != nil {
		return errors.Wrap(err, "initializing archive")
	}
	defer a.Close()

	relPath, _ := filepath.Rel(cwd, configDir)
	archivePath, _ := filepath.Rel(cwd, a.Path())
	fmt.Fprintf(out, "Initialized weekly at %s\n", relPath)
	fmt.Fprintf(out, "  config:  %s\n", filepath.Join(relPath, config.ConfigFileName))
	fmt.Fprintf(out, "  archive: %s\n", archivePath)
	return nil
}
