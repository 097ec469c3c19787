package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicom-metascan/internal/repository"
)

func view(patient, study, series, instance, modality string) repository.DocumentView {
	return repository.DocumentView{
		FilePath:          instance + ".json",
		PatientID:         patient,
		StudyInstanceUID:  study,
		SeriesInstanceUID: series,
		SOPInstanceUID:    instance,
		Modality:          modality,
	}
}

func testViews() []repository.DocumentView {
	return []repository.DocumentView{
		view("P1", "ST1", "SE1", "I1", "CT"),
		view("P1", "ST1", "SE1", "I2", "CT"),
		view("P1", "ST1", "SE2", "I3", "CT"),
		view("P2", "ST2", "SE3", "I4", "MR"),
	}
}

func TestBuildGraphCounts(t *testing.T) {
	g := BuildGraph(testViews())

	// 2 patients + 2 studies + 3 series + 4 instances.
	assert.Equal(t, 11, g.NodeCount())

	counts := g.NodeCounts()
	assert.Equal(t, 2, counts[NodePatient])
	assert.Equal(t, 2, counts[NodeStudy])
	assert.Equal(t, 3, counts[NodeSeries])
	assert.Equal(t, 4, counts[NodeInstance])

	// P1->ST1, P2->ST2, ST1->SE1, ST1->SE2, ST2->SE3, SE1->I1,
	// SE1->I2, SE2->I3, SE3->I4.
	assert.Equal(t, 9, g.EdgeCount())
	assert.Equal(t, 9, g.EdgeCounts()[EdgeContains])
}

func TestBuildGraphIdempotent(t *testing.T) {
	views := testViews()
	first := BuildGraph(views)
	second := BuildGraph(append(views, views...))

	assert.Equal(t, first.NodeCount(), second.NodeCount())
	assert.Equal(t, first.EdgeCount(), second.EdgeCount())
}

func TestBuildGraphOrphans(t *testing.T) {
	views := []repository.DocumentView{
		// Series with no study: still inserted, but unparented.
		view("P1", repository.Missing, "SE1", "I1", "CT"),
	}
	g := BuildGraph(views)

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount()) // only SE1 -> I1
	assert.Equal(t, 0, g.Degree("P:P1"))
}

func TestSimilarityEdges(t *testing.T) {
	g := BuildGraph(testViews())
	base := g.EdgeCount()

	require.NoError(t, g.AddSimilarityEdges(testViews(), "Modality"))

	// Three CT instances form a star of two edges; the lone MR
	// instance links nothing.
	assert.Equal(t, base+2, g.EdgeCount())
	assert.Equal(t, 2, g.EdgeCounts()[EdgeSimilar])

	// Re-adding is a no-op.
	require.NoError(t, g.AddSimilarityEdges(testViews(), "Modality"))
	assert.Equal(t, base+2, g.EdgeCount())
}

func TestSimilarityEdgesUnknownAttribute(t *testing.T) {
	g := BuildGraph(testViews())
	err := g.AddSimilarityEdges(testViews(), "NoSuchAttribute")
	assert.Error(t, err)
}

func TestGraphMetrics(t *testing.T) {
	g := BuildGraph(testViews())

	n := g.NodeCount()
	assert.InDelta(t, float64(g.EdgeCount())/float64(n*(n-1)), g.Density(), 1e-9)

	dist := g.DegreeDistribution()
	total := 0
	for _, c := range dist {
		total += c
	}
	assert.Equal(t, n, total)

	centrality := g.DegreeCentrality()
	// ST1 has one incoming and two outgoing edges.
	assert.InDelta(t, 3.0/float64(n-1), centrality["ST:ST1"], 1e-9)

	// Metric calls leave the graph untouched.
	assert.Equal(t, 11, g.NodeCount())
	assert.Equal(t, 9, g.EdgeCount())
}

func TestTopByInDegree(t *testing.T) {
	g := BuildGraph(testViews())
	top := g.TopByInDegree(2)

	require.Len(t, top, 2)
	// ST1 receives one edge, as does every non-root node; ranking
	// falls back to ID order among ties.
	assert.GreaterOrEqual(t, top[0].Degree, top[1].Degree)
}

func TestGraphEmptyInput(t *testing.T) {
	g := BuildGraph(nil)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0.0, g.Density())
	assert.Empty(t, g.DegreeCentrality())
}
