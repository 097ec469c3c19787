package analyze

import (
	"fmt"
	"sort"

	"dicom-metascan/internal/repository"
)

// UnknownBucket absorbs missing values on either clustering axis.
const UnknownBucket = "Unknown"

// DefaultPairs are the canonical clustering attribute pairs computed
// when the caller does not pick one.
var DefaultPairs = [][2]string{
	{"Modality", "Manufacturer"},
	{"InstitutionName", "Modality"},
	{"BodyPartExamined", "Modality"},
}

// PairName labels an attribute pair in reports.
func PairName(attrA, attrB string) string {
	return attrA + " x " + attrB
}

// ClusterBucket is one cell of a categorical cross-tabulation.
type ClusterBucket struct {
	A     string `json:"a"`
	B     string `json:"b"`
	Count int    `json:"count"`
}

// AttributeValue resolves a clustering attribute by name on a document
// view. Unknown attribute names are a caller error, not a data problem.
func AttributeValue(v repository.DocumentView, name string) (string, error) {
	switch name {
	case "Modality":
		return v.Modality, nil
	case "Manufacturer":
		return v.Manufacturer, nil
	case "ManufacturerModelName":
		return v.ManufacturerModelName, nil
	case "InstitutionName":
		return v.InstitutionName, nil
	case "StationName":
		return v.StationName, nil
	case "BodyPartExamined":
		return v.BodyPartExamined, nil
	case "PatientSex":
		return v.PatientSex, nil
	case "StudyDescription":
		return v.StudyDescription, nil
	case "SeriesDescription":
		return v.SeriesDescription, nil
	case "ReferringPhysicianName":
		return v.ReferringPhysicianName, nil
	default:
		return "", fmt.Errorf("unknown clustering attribute %q", name)
	}
}

// ClusterPairs runs Cluster for every pair and keys the results by
// PairName.
func ClusterPairs(views []repository.DocumentView, pairs [][2]string) (map[string][]ClusterBucket, error) {
	out := make(map[string][]ClusterBucket, len(pairs))
	for _, p := range pairs {
		buckets, err := Cluster(views, p[0], p[1])
		if err != nil {
			return nil, err
		}
		out[PairName(p[0], p[1])] = buckets
	}
	return out, nil
}

// Cluster cross-tabulates two categorical attributes over the document
// view. Missing values map to the Unknown bucket on their axis, so
// every document contributes exactly one count and the bucket sum
// always equals the document count. Buckets are sorted by descending
// count, then by axis values.
func Cluster(views []repository.DocumentView, attrA, attrB string) ([]ClusterBucket, error) {
	type pair struct{ a, b string }
	counts := make(map[pair]int)

	for _, v := range views {
		a, err := AttributeValue(v, attrA)
		if err != nil {
			return nil, err
		}
		b, err := AttributeValue(v, attrB)
		if err != nil {
			return nil, err
		}
		if !present(a) {
			a = UnknownBucket
		}
		if !present(b) {
			b = UnknownBucket
		}
		counts[pair{a, b}]++
	}

	buckets := make([]ClusterBucket, 0, len(counts))
	for p, n := range counts {
		buckets = append(buckets, ClusterBucket{A: p.a, B: p.b, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		if buckets[i].A != buckets[j].A {
			return buckets[i].A < buckets[j].A
		}
		return buckets[i].B < buckets[j].B
	})
	return buckets, nil
}
