package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/harborlight/weekly/internal/archive"
	"github.com/harborlight/weekly/internal/config"
	"github.com/harborlight/weekly/internal/output"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List archived renders",
	Long: `List renders recorded in .weekly/archive.db, newest first.

Each entry records the team, reporting week, RAG status, output format and
target, a SHA-256 of the output, and the schema and template versions the
render plan was built against. Pass an entry id to show one entry in full.`,
	Example: `  weekly history
  weekly history --team Programs --limit 5
  weekly history 0a1b2c3d-... --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var (
	historyLimit int
	historyTeam  string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to list (0 for all)")
	historyCmd.Flags().StringVar(&historyTeam, "team", "", "Only list renders for this team")
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(output.FormatText)
	if err != nil {
		return err
	}

	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		entry, err := a.Get(args[0])
		if err != nil {
			return err
		}
		if !format.IsStructured() {
			format = output.FormatYAML
		}
		return writeResult(out, format, entry)
	}

	entries, err := a.List(historyLimit, historyTeam)
	if err != nil {
		return err
	}
	if format.IsStructured() {
		return writeResult(out, format, entries)
	}
	return output.WriteEntries(out, entries)
}

// openArchive opens the archive of the nearest .weekly directory.
func openArchive() (*archive.Archive, error) {
	configDir, err := config.FindConfigDir(".")
	if err != nil {
		return nil, errors.WithHint(err, "run `weekly init` to create .weekly and its archive")
	}
	return archive.Open(configDir)
}
