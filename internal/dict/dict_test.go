package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupKnownTag(t *testing.T) {
	d := New()

	e := d.Lookup(0x0010, 0x0020) // PatientID
	assert.True(t, e.Known)
	assert.Equal(t, "PatientID", e.Keyword)
	assert.Equal(t, "Patient ID", e.Name)
	assert.Equal(t, "LO", e.VR)
	assert.Equal(t, ClassString, e.Class)
	assert.False(t, e.Private)
}

func TestLookupUnknownTag(t *testing.T) {
	d := New()

	e := d.Lookup(0x0009, 0x1234)
	assert.False(t, e.Known)
	assert.Equal(t, UnknownName, e.Name)
	assert.Equal(t, UnknownName, e.Keyword)
	assert.True(t, e.Private)
	assert.Equal(t, ClassBinary, e.Class)
}

func TestLookupCached(t *testing.T) {
	d := New()

	first := d.Lookup(0x0008, 0x0060)
	second := d.Lookup(0x0008, 0x0060)
	assert.Equal(t, first, second)
	assert.Equal(t, "Modality", first.Keyword)
}

func TestIsPrivate(t *testing.T) {
	assert.True(t, IsPrivate(0x0009))
	assert.True(t, IsPrivate(0x0041))
	assert.False(t, IsPrivate(0x0010))
	assert.False(t, IsPrivate(0x7FE0))
}

func TestFormatTag(t *testing.T) {
	assert.Equal(t, "(0010,0020)", FormatTag(0x0010, 0x0020))
	assert.Equal(t, "(7FE0,0010)", FormatTag(0x7FE0, 0x0010))
	assert.Equal(t, "(0008,103E)", FormatTag(0x0008, 0x103E))
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		vr   string
		want VRClass
	}{
		{"SQ", ClassSequence},
		{"PN", ClassPersonName},
		{"DA", ClassDate},
		{"TM", ClassDate},
		{"DS", ClassNumeric},
		{"US", ClassNumeric},
		{"OB", ClassBinary},
		{"UN", ClassBinary},
		{"LO", ClassString},
		{"UI", ClassString},
	}

	for _, tt := range tests {
		if got := ClassOf(tt.vr); got != tt.want {
			t.Errorf("ClassOf(%q) = %q, want %q", tt.vr, got, tt.want)
		}
	}
}

func TestSplitKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PatientID", "Patient ID"},
		{"PatientBirthDate", "Patient Birth Date"},
		{"SOPInstanceUID", "SOP Instance UID"},
		{"Modality", "Modality"},
		{"KVP", "KVP"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SplitKeyword(tt.in); got != tt.want {
			t.Errorf("SplitKeyword(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
