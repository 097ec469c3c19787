package cli

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// NewRootCommand builds the metascan command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "metascan",
		Short: "Extract, de-identify and analyze DICOM metadata",
		Long: `metascan walks a directory of DICOM files, extracts each file's full
tag tree into a JSON metadata document, optionally de-identifies the
documents with a run-consistent pseudonym mapping, and derives
relationship graphs, duplicate groups and categorical clusters from
the resulting corpus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newExtractCommand())
	root.AddCommand(newAnalyzeCommand())
	return root
}

// generateSecretKey mints a random 32-character hex key for runs that
// did not supply one. The key must be reused across runs that should
// share a pseudonym mapping.
func generateSecretKey() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
