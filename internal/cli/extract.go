package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"dicom-metascan/internal/anonymize"
	"dicom-metascan/internal/extract"
	"dicom-metascan/internal/pipeline"
)

func newExtractCommand() *cobra.Command {
	var (
		inputDir   string
		outputDir  string
		anonymizeF bool
		policyFile string
		secretKey  string
		mapping    string
		workers    int
		recursive  bool
		retry      bool
		dryRun     bool

		includePrivate   bool
		includePixelData bool
		maxValueLength   int
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract metadata documents from a DICOM directory tree",
		Long: `extract walks the input directory, parses every DICOM file and writes
one JSON metadata document per file into the output directory,
mirroring the input's relative layout.

With --anonymize, identity-bearing fields are rewritten per the field
policy before serialization. The same secret key must be reused across
runs that should assign consistent pseudonyms; losing the key breaks
patient consistency for future runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := anonymize.DefaultPolicy()
			if policyFile != "" {
				p, err := anonymize.LoadPolicy(policyFile)
				if err != nil {
					return err
				}
				policy = p
			}

			if anonymizeF && secretKey == "" {
				secretKey = generateSecretKey()
				fmt.Printf("Generated secret key: %s\n", secretKey)
				fmt.Println("Save this key to keep pseudonyms consistent across runs.")
			}
			if anonymizeF && mapping == "" {
				mapping = filepath.Join(filepath.Dir(outputDir), "patient_mapping.json")
			}

			cfg := pipeline.Config{
				InputDir:    inputDir,
				OutputDir:   outputDir,
				Anonymize:   anonymizeF,
				Policy:      policy,
				MappingFile: mapping,
				Salt:        secretKey,
				Workers:     workers,
				Recursive:   recursive,
				RetryFailed: retry,
				DryRun:      dryRun,
				Extract: extract.Options{
					IncludePrivate:   includePrivate,
					IncludePixelData: includePixelData,
					MaxValueLength:   maxValueLength,
				},
			}

			runner, err := pipeline.NewRunner(cfg, slog.Default())
			if err != nil {
				return err
			}

			stats, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Found:      %d\n", stats.Found)
			fmt.Printf("Processed:  %d\n", stats.Processed)
			fmt.Printf("Skipped:    %d\n", stats.Skipped)
			fmt.Printf("Failed:     %d\n", stats.Failed)
			if anonymizeF {
				fmt.Printf("Pseudonyms: %d\n", stats.Pseudonyms)
			}
			return nil
		},
	}

	defaults := extract.DefaultOptions()

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "input directory containing DICOM files")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for metadata documents")
	cmd.Flags().BoolVar(&anonymizeF, "anonymize", false, "de-identify documents before writing")
	cmd.Flags().StringVar(&policyFile, "policy", "", "YAML field policy (default: built-in policy)")
	cmd.Flags().StringVarP(&secretKey, "key", "k", "", "secret key for pseudonymization")
	cmd.Flags().StringVarP(&mapping, "mapping", "m", "", "patient mapping file (default: {output parent}/patient_mapping.json)")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "parallel file workers")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "search subdirectories")
	cmd.Flags().BoolVar(&retry, "retry", false, "retry files that failed in a previous run")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "list files without processing")
	cmd.Flags().BoolVar(&includePrivate, "include-private", defaults.IncludePrivate, "include private (odd-group) tags")
	cmd.Flags().BoolVar(&includePixelData, "include-pixel-data", defaults.IncludePixelData, "include bulk pixel data elements")
	cmd.Flags().IntVar(&maxValueLength, "max-value-length", defaults.MaxValueLength, "truncate tag values to this many characters")

	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}
