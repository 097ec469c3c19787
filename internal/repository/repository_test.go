package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicom-metascan/internal/document"
)

func writeDoc(t *testing.T, path string, fields map[string]string) {
	t.Helper()

	doc := &document.Document{}
	for _, kw := range []string{
		"PatientID", "PatientSex", "StudyInstanceUID", "StudyDate",
		"SeriesInstanceUID", "SOPInstanceUID", "Modality", "Manufacturer",
	} {
		v, ok := fields[kw]
		if !ok {
			continue
		}
		doc.Records = append(doc.Records, &document.Record{
			Path: kw, Keyword: kw, Name: kw, Value: v, VM: 1, VR: "LO",
		})
	}
	require.NoError(t, document.Write(path, doc))
}

func TestLoadBuildsViewsAndIndex(t *testing.T) {
	root := t.TempDir()

	writeDoc(t, filepath.Join(root, "a.json"), map[string]string{
		"PatientID": "P1", "StudyInstanceUID": "ST1", "SeriesInstanceUID": "SE1",
		"SOPInstanceUID": "I1", "Modality": "CT", "Manufacturer": "Acme",
	})
	writeDoc(t, filepath.Join(root, "sub", "b.json"), map[string]string{
		"PatientID": "P1", "StudyInstanceUID": "ST1", "SeriesInstanceUID": "SE1",
		"SOPInstanceUID": "I2", "Modality": "CT",
	})
	writeDoc(t, filepath.Join(root, "c.json"), map[string]string{
		"PatientID": "P2", "StudyInstanceUID": "ST2", "SeriesInstanceUID": "SE2",
		"SOPInstanceUID": "I3", "Modality": "MR",
	})

	repo, err := Load(root, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, repo.Len())
	assert.Len(t, repo.Views, 3)
	assert.Empty(t, repo.Warnings)

	assert.Len(t, repo.Index.Patients, 2)
	assert.Len(t, repo.Index.Patients["P1"], 1)
	assert.Len(t, repo.Index.Studies["ST1"], 1)
	assert.Len(t, repo.Index.Series["SE1"], 2)
	assert.Equal(t, "P1", repo.Index.StudyPatient["ST1"])
	assert.Equal(t, "ST2", repo.Index.SeriesStudy["SE2"])
}

func TestLoadFillsMissingAttributes(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, filepath.Join(root, "a.json"), map[string]string{
		"PatientID": "P1", "StudyInstanceUID": "ST1", "SeriesInstanceUID": "SE1",
		"SOPInstanceUID": "I1", "Modality": "CT",
	})

	repo, err := Load(root, nil)
	require.NoError(t, err)
	require.Len(t, repo.Views, 1)

	v := repo.Views[0]
	assert.Equal(t, "CT", v.Modality)
	assert.Equal(t, Missing, v.Manufacturer)
	assert.Equal(t, Missing, v.PatientName)
	assert.Equal(t, Missing, v.StudyDescription)
}

func TestLoadSkipsCorruptAndIDLess(t *testing.T) {
	root := t.TempDir()

	writeDoc(t, filepath.Join(root, "good.json"), map[string]string{
		"PatientID": "P1", "StudyInstanceUID": "ST1", "SeriesInstanceUID": "SE1",
		"SOPInstanceUID": "I1",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "corrupt.json"), []byte("{not json"), 0644))
	writeDoc(t, filepath.Join(root, "idless.json"), map[string]string{
		"Modality": "CT", "Manufacturer": "Acme",
	})

	repo, err := Load(root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, "I1", repo.Documents[0].SOPInstanceUID)
}

func TestLoadWarnsOnOrphans(t *testing.T) {
	root := t.TempDir()

	// Instance with a series but no study: the series is an orphan.
	writeDoc(t, filepath.Join(root, "orphan.json"), map[string]string{
		"PatientID": "P1", "SeriesInstanceUID": "SE9", "SOPInstanceUID": "I9",
	})

	repo, err := Load(root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Len())
	assert.NotEmpty(t, repo.Warnings)

	found := false
	for _, w := range repo.Warnings {
		if w.Detail == "series SE9 belongs to no study" {
			found = true
		}
	}
	assert.True(t, found, "expected orphan series warning, got %v", repo.Warnings)
}

func TestLoadCollectsTagRows(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, filepath.Join(root, "a.json"), map[string]string{
		"PatientID": "P1", "StudyInstanceUID": "ST1", "SeriesInstanceUID": "SE1",
		"SOPInstanceUID": "I1", "Modality": "CT",
	})

	repo, err := Load(root, nil)
	require.NoError(t, err)
	assert.Len(t, repo.Tags, 5)
	for _, row := range repo.Tags {
		assert.Equal(t, 0, row.DocIndex)
	}
}
