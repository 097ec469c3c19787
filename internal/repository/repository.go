package repository

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"dicom-metascan/internal/document"
)

// Missing marks an attribute a document does not carry. Analysis code
// groups on attribute values, so absent values need a stable stand-in.
const Missing = "n.a."

// DocumentView is the flattened per-file attribute row the analysis
// passes work on. One view per loaded document.
type DocumentView struct {
	FilePath string

	PatientID   string
	PatientName string
	PatientSex  string

	StudyDate        string
	StudyTime        string
	StudyDescription string
	StudyInstanceUID string

	SeriesInstanceUID string
	SeriesDescription string
	SeriesNumber      string

	SOPInstanceUID string
	Modality       string

	Manufacturer           string
	ManufacturerModelName  string
	InstitutionName        string
	StationName            string
	BodyPartExamined       string
	ReferringPhysicianName string
}

// TagRow is one tag occurrence together with the document it came from.
// Tag-level statistics aggregate over these rows.
type TagRow struct {
	DocIndex int
	Record   *document.Record
}

// Hierarchy indexes the loaded corpus as patient > study > series >
// instance. Keys are the raw identifier values.
type Hierarchy struct {
	// Patients maps PatientID to its study UIDs.
	Patients map[string]map[string]bool
	// Studies maps StudyInstanceUID to its series UIDs.
	Studies map[string]map[string]bool
	// Series maps SeriesInstanceUID to its SOP instance UIDs.
	Series map[string]map[string]bool
	// StudyPatient maps a study back to its owning patient.
	StudyPatient map[string]string
	// SeriesStudy maps a series back to its owning study.
	SeriesStudy map[string]string
}

// Warning records a non-fatal structural defect found while indexing,
// such as an instance whose series has no study.
type Warning struct {
	FilePath string
	Detail   string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.FilePath, w.Detail)
}

// Repository holds the loaded document corpus for analysis. It is
// populated once by Load and read-only afterwards.
type Repository struct {
	Documents []*document.Document
	Views     []DocumentView
	Tags      []TagRow
	Index     Hierarchy
	Warnings  []Warning

	logger *slog.Logger
}

// Load reads every *.json document under root into a repository.
// Documents that cannot be parsed, or that carry none of the hierarchy
// identifiers, are skipped whole with a warning; a document is never
// half-loaded.
func Load(root string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo := &Repository{
		Index: Hierarchy{
			Patients:     make(map[string]map[string]bool),
			Studies:      make(map[string]map[string]bool),
			Series:       make(map[string]map[string]bool),
			StudyPatient: make(map[string]string),
			SeriesStudy:  make(map[string]string),
		},
		logger: logger,
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") && !strings.HasPrefix(d.Name(), ".") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not scan document root %s: %w", root, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		doc, err := document.Read(path)
		if err != nil {
			logger.Warn("skipping unreadable document", "path", path, "error", err)
			continue
		}
		if doc.PatientID == "" && doc.StudyInstanceUID == "" &&
			doc.SeriesInstanceUID == "" && doc.SOPInstanceUID == "" {
			logger.Warn("skipping document without hierarchy identifiers", "path", path)
			continue
		}
		repo.add(path, doc)
	}

	repo.index()

	logger.Info("loaded document repository",
		"root", root,
		"documents", len(repo.Documents),
		"tag_rows", len(repo.Tags),
		"warnings", len(repo.Warnings))
	return repo, nil
}

func (r *Repository) add(path string, doc *document.Document) {
	idx := len(r.Documents)
	r.Documents = append(r.Documents, doc)

	flat := doc.Flatten()
	for _, rec := range flat {
		r.Tags = append(r.Tags, TagRow{DocIndex: idx, Record: rec})
	}

	attr := func(keyword string) string {
		if v := document.ValueOf(flat, keyword); v != "" {
			return v
		}
		return Missing
	}

	r.Views = append(r.Views, DocumentView{
		FilePath: path,

		PatientID:   attr("PatientID"),
		PatientName: attr("PatientName"),
		PatientSex:  attr("PatientSex"),

		StudyDate:        attr("StudyDate"),
		StudyTime:        attr("StudyTime"),
		StudyDescription: attr("StudyDescription"),
		StudyInstanceUID: attr("StudyInstanceUID"),

		SeriesInstanceUID: attr("SeriesInstanceUID"),
		SeriesDescription: attr("SeriesDescription"),
		SeriesNumber:      attr("SeriesNumber"),

		SOPInstanceUID: attr("SOPInstanceUID"),
		Modality:       attr("Modality"),

		Manufacturer:           attr("Manufacturer"),
		ManufacturerModelName:  attr("ManufacturerModelName"),
		InstitutionName:        attr("InstitutionName"),
		StationName:            attr("StationName"),
		BodyPartExamined:       attr("BodyPartExamined"),
		ReferringPhysicianName: attr("ReferringPhysicianName"),
	})

	r.link(path, doc)
}

// link slots one document into the hierarchy index. Levels whose
// identifier is absent become warnings, never errors; a corpus with a
// few malformed files must still be analyzable.
func (r *Repository) link(path string, doc *document.Document) {
	patient := doc.PatientID
	study := doc.StudyInstanceUID
	series := doc.SeriesInstanceUID
	instance := doc.SOPInstanceUID

	if patient == "" {
		r.warn(path, "instance has no PatientID")
	}
	if study == "" {
		r.warn(path, "instance has no StudyInstanceUID")
	}
	if series == "" {
		r.warn(path, "instance has no SeriesInstanceUID")
	}

	if patient != "" && study != "" {
		if r.Index.Patients[patient] == nil {
			r.Index.Patients[patient] = make(map[string]bool)
		}
		r.Index.Patients[patient][study] = true
		if prior, ok := r.Index.StudyPatient[study]; ok && prior != patient {
			r.warn(path, fmt.Sprintf("study %s claimed by patients %s and %s", study, prior, patient))
		} else {
			r.Index.StudyPatient[study] = patient
		}
	}

	if study != "" && series != "" {
		if r.Index.Studies[study] == nil {
			r.Index.Studies[study] = make(map[string]bool)
		}
		r.Index.Studies[study][series] = true
		if prior, ok := r.Index.SeriesStudy[series]; ok && prior != study {
			r.warn(path, fmt.Sprintf("series %s claimed by studies %s and %s", series, prior, study))
		} else {
			r.Index.SeriesStudy[series] = study
		}
	}

	if series != "" && instance != "" {
		if r.Index.Series[series] == nil {
			r.Index.Series[series] = make(map[string]bool)
		}
		r.Index.Series[series][instance] = true
	}
}

// index runs post-load consistency checks over the hierarchy: a series
// reachable from no study, or a study reachable from no patient, is an
// orphan.
func (r *Repository) index() {
	for study := range r.Index.Studies {
		if _, ok := r.Index.StudyPatient[study]; !ok {
			r.warn("", fmt.Sprintf("study %s belongs to no patient", study))
		}
	}
	for series := range r.Index.Series {
		if _, ok := r.Index.SeriesStudy[series]; !ok {
			r.warn("", fmt.Sprintf("series %s belongs to no study", series))
		}
	}
}

func (r *Repository) warn(path, detail string) {
	w := Warning{FilePath: path, Detail: detail}
	r.Warnings = append(r.Warnings, w)
	r.logger.Warn("hierarchy inconsistency", "path", path, "detail", detail)
}

// Len returns the number of loaded documents.
func (r *Repository) Len() int {
	return len(r.Documents)
}
