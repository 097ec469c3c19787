package document

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	doc := &Document{
		SourcePath: "study1/series1/img1.dcm",
		Records: []*Record{
			{Path: "PatientID", Tag: "(0010,0020)", Group: 0x0010, Element: 0x0020, VR: "LO", Name: "Patient ID", Keyword: "PatientID", Value: "PAT123", VM: 1},
			{Path: "Modality", Tag: "(0008,0060)", Group: 0x0008, Element: 0x0060, VR: "CS", Name: "Modality", Keyword: "Modality", Value: "CT", VM: 1},
			{
				Path: "ReferencedStudySequence", Tag: "(0008,1110)", Group: 0x0008, Element: 0x1110,
				VR: "SQ", Name: "Referenced Study Sequence", Keyword: "ReferencedStudySequence", Value: "<Sequence>", VM: 1,
				Items: [][]*Record{
					{
						{Path: "ReferencedStudySequence[0].StudyInstanceUID", Tag: "(0020,000D)", Group: 0x0020, Element: 0x000D, VR: "UI", Name: "Study Instance UID", Keyword: "StudyInstanceUID", Value: "1.2.3", VM: 1},
					},
					{
						{Path: "ReferencedStudySequence[1].StudyInstanceUID", Tag: "(0020,000D)", Group: 0x0020, Element: 0x000D, VR: "UI", Name: "Study Instance UID", Keyword: "StudyInstanceUID", Value: "1.2.4", VM: 1},
					},
				},
			},
		},
	}
	doc.DeriveIdentifiers()
	return doc
}

func TestFlattenOrder(t *testing.T) {
	doc := sampleDocument()

	flat := doc.Flatten()
	require.Len(t, flat, 5)

	paths := make([]string, len(flat))
	for i, r := range flat {
		paths[i] = r.Path
	}
	assert.Equal(t, []string{
		"PatientID",
		"Modality",
		"ReferencedStudySequence",
		"ReferencedStudySequence[0].StudyInstanceUID",
		"ReferencedStudySequence[1].StudyInstanceUID",
	}, paths)

	assert.Equal(t, 5, doc.Len())
}

func TestMarshalFlatSchema(t *testing.T) {
	doc := sampleDocument()

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 5)

	first := raw[0]
	for _, field := range []string{"path", "tag", "group", "element", "vr", "name", "keyword", "value", "vm", "private"} {
		assert.Contains(t, first, field)
	}
	assert.Equal(t, "(0010,0020)", first["tag"])
	assert.Equal(t, float64(16), first["group"])
	assert.NotContains(t, first, "Items")
}

func TestDeriveIdentifiers(t *testing.T) {
	doc := sampleDocument()

	assert.Equal(t, "PAT123", doc.PatientID)
	assert.Equal(t, "CT", doc.Modality)
	// The sequence child is still found; the "<Sequence>" container is not.
	assert.Equal(t, "1.2.3", doc.StudyInstanceUID)
}

func TestValueOfSkipsPlaceholders(t *testing.T) {
	records := []*Record{
		{Keyword: "PixelData", Value: "<PixelData omitted>"},
		{Keyword: "Manufacturer", Value: "ACME"},
	}
	assert.Equal(t, "", ValueOf(records, "PixelData"))
	assert.Equal(t, "ACME", ValueOf(records, "Manufacturer"))
	assert.Equal(t, "", ValueOf(records, "StationName"))
}

func TestCloneIsDeep(t *testing.T) {
	doc := sampleDocument()
	clone := doc.Clone()

	clone.Records[0].Value = "CHANGED"
	clone.Records[2].Items[0][0].Value = "9.9.9"

	assert.Equal(t, "PAT123", doc.Records[0].Value)
	assert.Equal(t, "1.2.3", doc.Records[2].Items[0][0].Value)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDocument()

	path := filepath.Join(dir, "sub", "img1.json")
	require.NoError(t, Write(path, doc))

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 5, len(loaded.Records)) // flat on reload
	assert.Equal(t, "PAT123", loaded.PatientID)
	assert.Equal(t, "CT", loaded.Modality)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"a/b/img.dcm", filepath.Join("out", "a/b/img.json")},
		{"a/IMG0001", filepath.Join("out", "a/IMG0001.json")},
		{"a/scan.DICOM", filepath.Join("out", "a/scan.json")},
	}
	for _, tt := range tests {
		if got := OutputPath("out", tt.rel); got != tt.want {
			t.Errorf("OutputPath(out, %q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}
