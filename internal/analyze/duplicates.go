package analyze

import (
	"sort"

	"dicom-metascan/internal/repository"
)

// DuplicateGroup is a set of documents sharing the exact composite key
// (PatientID, StudyDate, Modality). Count is always at least two.
type DuplicateGroup struct {
	PatientID string   `json:"patient_id"`
	StudyDate string   `json:"study_date"`
	Modality  string   `json:"modality"`
	Count     int      `json:"count"`
	Files     []string `json:"files"`
}

type duplicateKey struct {
	patientID string
	studyDate string
	modality  string
}

// FindDuplicates groups the document-level view by the strict composite
// key and returns the groups with more than one member. Documents
// missing any key component are excluded from grouping entirely; there
// is no fuzzy matching of near dates or similar IDs. Groups are sorted
// by descending count, then ascending PatientID, then StudyDate.
func FindDuplicates(views []repository.DocumentView) []DuplicateGroup {
	buckets := make(map[duplicateKey][]string)

	for _, v := range views {
		if !present(v.PatientID) || !present(v.StudyDate) || !present(v.Modality) {
			continue
		}
		key := duplicateKey{v.PatientID, v.StudyDate, v.Modality}
		buckets[key] = append(buckets[key], v.FilePath)
	}

	var groups []DuplicateGroup
	for key, files := range buckets {
		if len(files) < 2 {
			continue
		}
		sort.Strings(files)
		groups = append(groups, DuplicateGroup{
			PatientID: key.patientID,
			StudyDate: key.studyDate,
			Modality:  key.modality,
			Count:     len(files),
			Files:     files,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		if groups[i].PatientID != groups[j].PatientID {
			return groups[i].PatientID < groups[j].PatientID
		}
		return groups[i].StudyDate < groups[j].StudyDate
	})
	return groups
}
