package analyze

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dicom-metascan/internal/repository"
)

// GraphSummary is the serializable slice of the graph metrics.
type GraphSummary struct {
	Nodes      int                 `json:"nodes"`
	Edges      int                 `json:"edges"`
	NodeCounts map[NodeKind]int    `json:"node_counts"`
	EdgeCounts map[EdgeKind]int    `json:"edge_counts"`
	Density    float64             `json:"density"`
	TopHubs    []RankedNodeSummary `json:"top_hubs"`
}

// RankedNodeSummary is one hub entry in the report.
type RankedNodeSummary struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	InDegree int      `json:"in_degree"`
}

// Report is the aggregate statistics document written at the end of an
// analysis run.
type Report struct {
	GeneratedAt string `json:"generated_at"`

	Documents  int `json:"documents"`
	Patients   int `json:"patients"`
	Studies    int `json:"studies"`
	Series     int `json:"series"`
	Instances  int `json:"instances"`
	TagRecords int `json:"tag_records"`
	Warnings   int `json:"warnings"`

	Modalities    map[string]int `json:"modalities"`
	Manufacturers map[string]int `json:"manufacturers"`
	Institutions  map[string]int `json:"institutions"`
	BodyParts     map[string]int `json:"body_parts"`

	// StudiesByMonth buckets documents by YYYY-MM of their StudyDate.
	// Unparseable or missing dates fall into the Unknown bucket.
	StudiesByMonth map[string]int `json:"studies_by_month"`

	Graph      GraphSummary               `json:"graph"`
	Duplicates []DuplicateGroup           `json:"duplicates"`
	Clusters   map[string][]ClusterBucket `json:"clusters"`
}

// DefaultTopHubs bounds the hub list in the report unless the caller
// asks for more.
const DefaultTopHubs = 10

func countValues(views []repository.DocumentView, get func(repository.DocumentView) string) map[string]int {
	counts := make(map[string]int)
	for _, v := range views {
		val := get(v)
		if !present(val) {
			val = UnknownBucket
		}
		counts[val]++
	}
	return counts
}

func distinct(views []repository.DocumentView, get func(repository.DocumentView) string) int {
	seen := make(map[string]bool)
	for _, v := range views {
		if val := get(v); present(val) {
			seen[val] = true
		}
	}
	return len(seen)
}

// MonthOf converts a DICOM date (YYYYMMDD) to its YYYY-MM bucket.
// Anything that does not parse as a date maps to the Unknown bucket.
func MonthOf(studyDate string) string {
	t, err := time.Parse("20060102", studyDate)
	if err != nil {
		return UnknownBucket
	}
	return t.Format("2006-01")
}

// BuildReport assembles run statistics from the repository and the
// analysis outputs. Clusters are keyed by pair name (see PairName);
// topHubs <= 0 falls back to DefaultTopHubs.
func BuildReport(repo *repository.Repository, g *Graph, duplicates []DuplicateGroup, clusters map[string][]ClusterBucket, topHubs int) Report {
	views := repo.Views

	if topHubs <= 0 {
		topHubs = DefaultTopHubs
	}

	byMonth := make(map[string]int)
	for _, v := range views {
		byMonth[MonthOf(v.StudyDate)]++
	}

	var hubs []RankedNodeSummary
	for _, r := range g.TopByInDegree(topHubs) {
		hubs = append(hubs, RankedNodeSummary{
			ID:       r.Node.ID,
			Kind:     r.Node.Kind,
			InDegree: r.Degree,
		})
	}

	return Report{
		GeneratedAt: time.Now().Format(time.RFC3339),

		Documents:  len(views),
		Patients:   distinct(views, func(v repository.DocumentView) string { return v.PatientID }),
		Studies:    distinct(views, func(v repository.DocumentView) string { return v.StudyInstanceUID }),
		Series:     distinct(views, func(v repository.DocumentView) string { return v.SeriesInstanceUID }),
		Instances:  distinct(views, func(v repository.DocumentView) string { return v.SOPInstanceUID }),
		TagRecords: len(repo.Tags),
		Warnings:   len(repo.Warnings),

		Modalities:    countValues(views, func(v repository.DocumentView) string { return v.Modality }),
		Manufacturers: countValues(views, func(v repository.DocumentView) string { return v.Manufacturer }),
		Institutions:  countValues(views, func(v repository.DocumentView) string { return v.InstitutionName }),
		BodyParts:     countValues(views, func(v repository.DocumentView) string { return v.BodyPartExamined }),

		StudiesByMonth: byMonth,

		Graph: GraphSummary{
			Nodes:      g.NodeCount(),
			Edges:      g.EdgeCount(),
			NodeCounts: g.NodeCounts(),
			EdgeCounts: g.EdgeCounts(),
			Density:    g.Density(),
			TopHubs:    hubs,
		},
		Duplicates: duplicates,
		Clusters:   clusters,
	}
}

// WriteReport serializes the report as indented JSON.
func WriteReport(path string, report Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("could not marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return nil
}
