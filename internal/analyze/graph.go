package analyze

import (
	"sort"

	"dicom-metascan/internal/repository"
)

// NodeKind classifies a graph node by its hierarchy level.
type NodeKind string

const (
	NodePatient  NodeKind = "patient"
	NodeStudy    NodeKind = "study"
	NodeSeries   NodeKind = "series"
	NodeInstance NodeKind = "instance"
)

// EdgeKind distinguishes containment from similarity edges.
type EdgeKind string

const (
	// EdgeContains is a directed parent-to-child containment edge.
	EdgeContains EdgeKind = "contains"
	// EdgeSimilar links nodes that share an attribute value.
	EdgeSimilar EdgeKind = "similar"
)

// Node is one entity in the relationship graph. ID carries a kind
// prefix (P:, ST:, SE:, I:) so the same raw UID can never collide
// across hierarchy levels.
type Node struct {
	ID    string
	Kind  NodeKind
	Label string
}

// Edge is a directed edge between two node IDs.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Graph is the relationship graph over a loaded corpus. Node and edge
// insertion is idempotent; building it twice from the same views yields
// identical counts.
type Graph struct {
	nodes map[string]Node
	edges map[Edge]bool

	out map[string]int // node ID -> out-degree
	in  map[string]int // node ID -> in-degree
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		edges: make(map[Edge]bool),
		out:   make(map[string]int),
		in:    make(map[string]int),
	}
}

func (g *Graph) addNode(id string, kind NodeKind, label string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = Node{ID: id, Kind: kind, Label: label}
}

func (g *Graph) addEdge(from, to string, kind EdgeKind) {
	e := Edge{From: from, To: to, Kind: kind}
	if g.edges[e] {
		return
	}
	g.edges[e] = true
	g.out[from]++
	g.in[to]++
}

// Node IDs are prefixed per kind so a study and a series with the same
// raw UID stay distinct nodes.
func patientNodeID(uid string) string  { return "P:" + uid }
func studyNodeID(uid string) string    { return "ST:" + uid }
func seriesNodeID(uid string) string   { return "SE:" + uid }
func instanceNodeID(uid string) string { return "I:" + uid }

func present(v string) bool {
	return v != "" && v != repository.Missing
}

// BuildGraph constructs the containment graph from the document-level
// view. Every document contributes its patient, study, series and
// instance nodes plus the edges between consecutive levels; a level
// whose identifier is missing leaves its children as root-like orphans
// rather than dropping them.
func BuildGraph(views []repository.DocumentView) *Graph {
	g := NewGraph()

	for _, v := range views {
		var patientID, studyID, seriesID, instID string

		if present(v.PatientID) {
			patientID = patientNodeID(v.PatientID)
			g.addNode(patientID, NodePatient, v.PatientID)
		}
		if present(v.StudyInstanceUID) {
			studyID = studyNodeID(v.StudyInstanceUID)
			g.addNode(studyID, NodeStudy, v.StudyInstanceUID)
		}
		if present(v.SeriesInstanceUID) {
			seriesID = seriesNodeID(v.SeriesInstanceUID)
			g.addNode(seriesID, NodeSeries, v.SeriesInstanceUID)
		}
		if present(v.SOPInstanceUID) {
			instID = instanceNodeID(v.SOPInstanceUID)
			g.addNode(instID, NodeInstance, v.SOPInstanceUID)
		}

		if patientID != "" && studyID != "" {
			g.addEdge(patientID, studyID, EdgeContains)
		}
		if studyID != "" && seriesID != "" {
			g.addEdge(studyID, seriesID, EdgeContains)
		}
		if seriesID != "" && instID != "" {
			g.addEdge(seriesID, instID, EdgeContains)
		}
	}

	return g
}

// AddSimilarityEdges links instance nodes that share a value of the
// named attribute. Each shared value forms a star rooted at the first
// instance seen with it, keeping the edge count linear in the corpus
// size. Missing attribute values link nothing.
func (g *Graph) AddSimilarityEdges(views []repository.DocumentView, attribute string) error {
	hubs := make(map[string]string) // attribute value -> hub node ID

	for _, v := range views {
		if !present(v.SOPInstanceUID) {
			continue
		}
		val, err := AttributeValue(v, attribute)
		if err != nil {
			return err
		}
		if !present(val) {
			continue
		}

		id := instanceNodeID(v.SOPInstanceUID)
		if _, ok := g.nodes[id]; !ok {
			continue
		}

		hub, ok := hubs[val]
		if !ok {
			hubs[val] = id
			continue
		}
		if hub != id {
			g.addEdge(hub, id, EdgeSimilar)
		}
	}
	return nil
}

// NodeCount returns the total number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeCounts returns the node count per kind.
func (g *Graph) NodeCounts() map[NodeKind]int {
	counts := make(map[NodeKind]int)
	for _, n := range g.nodes {
		counts[n.Kind]++
	}
	return counts
}

// EdgeCounts returns the edge count per kind.
func (g *Graph) EdgeCounts() map[EdgeKind]int {
	counts := make(map[EdgeKind]int)
	for e := range g.edges {
		counts[e.Kind]++
	}
	return counts
}

// Degree returns a node's total degree (in plus out).
func (g *Graph) Degree(id string) int {
	return g.in[id] + g.out[id]
}

// DegreeDistribution maps degree -> number of nodes with that degree.
func (g *Graph) DegreeDistribution() map[int]int {
	dist := make(map[int]int)
	for id := range g.nodes {
		dist[g.Degree(id)]++
	}
	return dist
}

// Density is the ratio of present edges to possible directed edges,
// n*(n-1). Zero for graphs with fewer than two nodes.
func (g *Graph) Density() float64 {
	n := len(g.nodes)
	if n < 2 {
		return 0
	}
	return float64(len(g.edges)) / float64(n*(n-1))
}

// DegreeCentrality returns degree/(n-1) per node, the normalized
// connectedness of each entity.
func (g *Graph) DegreeCentrality() map[string]float64 {
	n := len(g.nodes)
	out := make(map[string]float64, n)
	if n < 2 {
		for id := range g.nodes {
			out[id] = 0
		}
		return out
	}
	for id := range g.nodes {
		out[id] = float64(g.Degree(id)) / float64(n-1)
	}
	return out
}

// RankedNode pairs a node with its in-degree for hub ranking.
type RankedNode struct {
	Node   Node
	Degree int
}

// TopByInDegree returns the n nodes with the most incoming edges,
// ties broken by node ID for stable output.
func (g *Graph) TopByInDegree(n int) []RankedNode {
	ranked := make([]RankedNode, 0, len(g.nodes))
	for id, node := range g.nodes {
		ranked = append(ranked, RankedNode{Node: node, Degree: g.in[id]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Degree != ranked[j].Degree {
			return ranked[i].Degree > ranked[j].Degree
		}
		return ranked[i].Node.ID < ranked[j].Node.ID
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns all edges sorted by (from, to, kind).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
