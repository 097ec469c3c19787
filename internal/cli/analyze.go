package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"dicom-metascan/internal/analyze"
	"dicom-metascan/internal/repository"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		inputDir   string
		reportPath string
		clusterA   string
		clusterB   string
		similarity string
		topHubs    int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a directory of extracted metadata documents",
		Long: `analyze loads every metadata document under the input directory,
builds the patient>study>series>instance relationship graph, detects
duplicate examinations and clusters the corpus over categorical
attribute pairs, then writes the aggregate statistics report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := repository.Load(inputDir, slog.Default())
			if err != nil {
				return err
			}

			graph := analyze.BuildGraph(repo.Views)
			if similarity != "" {
				if err := graph.AddSimilarityEdges(repo.Views, similarity); err != nil {
					return err
				}
			}

			duplicates := analyze.FindDuplicates(repo.Views)

			pairs := analyze.DefaultPairs
			if clusterA != "" && clusterB != "" {
				pairs = [][2]string{{clusterA, clusterB}}
			}
			clusters, err := analyze.ClusterPairs(repo.Views, pairs)
			if err != nil {
				return err
			}

			report := analyze.BuildReport(repo, graph, duplicates, clusters, topHubs)
			if reportPath == "" {
				reportPath = filepath.Join(inputDir, "statistics.json")
			}
			if err := analyze.WriteReport(reportPath, report); err != nil {
				return err
			}

			fmt.Printf("Documents:  %d\n", report.Documents)
			fmt.Printf("Patients:   %d\n", report.Patients)
			fmt.Printf("Studies:    %d\n", report.Studies)
			fmt.Printf("Series:     %d\n", report.Series)
			fmt.Printf("Graph:      %d nodes, %d edges (density %.4f)\n",
				report.Graph.Nodes, report.Graph.Edges, report.Graph.Density)
			fmt.Printf("Duplicates: %d groups\n", len(report.Duplicates))
			fmt.Printf("Warnings:   %d\n", report.Warnings)
			fmt.Printf("Report:     %s\n", reportPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "directory of extracted metadata documents")
	cmd.Flags().StringVarP(&reportPath, "report", "o", "", "statistics report path (default: {input}/statistics.json)")
	cmd.Flags().StringVar(&clusterA, "cluster-a", "", "first clustering attribute (default: built-in pairs)")
	cmd.Flags().StringVar(&clusterB, "cluster-b", "", "second clustering attribute")
	cmd.Flags().StringVar(&similarity, "similarity-attribute", "", "add similarity edges over this attribute (empty disables)")
	cmd.Flags().IntVar(&topHubs, "top", analyze.DefaultTopHubs, "number of hub nodes to report")

	cmd.MarkFlagRequired("input")
	return cmd
}
