package document

import (
	"encoding/json"
	"strings"
)

// Record is one addressable data element of an extracted tag tree.
//
// Sequence records carry their item trees in Items; everything else is a
// leaf whose formatted value lives in Value. On the wire a document is a
// flat ordered array: children follow their parent with paths extended
// by the item index (e.g. "ReferencedStudySequence[0].StudyInstanceUID"),
// which is the stable schema every downstream consumer reads.
type Record struct {
	Path    string `json:"path"`
	Tag     string `json:"tag"`
	Group   int    `json:"group"`
	Element int    `json:"element"`
	VR      string `json:"vr"`
	Name    string `json:"name"`
	Keyword string `json:"keyword"`
	Value   string `json:"value"`
	VM      int    `json:"vm"`
	Private bool   `json:"private"`

	// Items holds the child records of a sequence, one slice per item.
	// Not serialized; the flat form encodes nesting in Path.
	Items [][]*Record `json:"-"`
}

// IsSequence reports whether the record is a sequence container.
func (r *Record) IsSequence() bool {
	return r.VR == "SQ"
}

// Clone returns a deep copy of the record and its items.
func (r *Record) Clone() *Record {
	c := *r
	if r.Items != nil {
		c.Items = make([][]*Record, len(r.Items))
		for i, item := range r.Items {
			c.Items[i] = cloneRecords(item)
		}
	}
	return &c
}

func cloneRecords(records []*Record) []*Record {
	out := make([]*Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Document is the full extracted tag tree of one source file plus the
// identifiers that place it in the patient>study>series>instance
// hierarchy.
type Document struct {
	SourcePath string
	Records    []*Record

	PatientID         string
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
	Modality          string
}

// Walk visits every record depth-first in encoded order, parents before
// their sequence items.
func (d *Document) Walk(visit func(r *Record)) {
	walkRecords(d.Records, visit)
}

func walkRecords(records []*Record, visit func(r *Record)) {
	for _, r := range records {
		visit(r)
		for _, item := range r.Items {
			walkRecords(item, visit)
		}
	}
}

// Flatten returns the document's records as the flat ordered list used
// on the wire.
func (d *Document) Flatten() []*Record {
	var out []*Record
	d.Walk(func(r *Record) { out = append(out, r) })
	return out
}

// Len returns the total record count, nested items included.
func (d *Document) Len() int {
	n := 0
	d.Walk(func(*Record) { n++ })
	return n
}

// Clone returns a deep copy; anonymization transforms the copy so the
// extracted original stays untouched.
func (d *Document) Clone() *Document {
	c := *d
	c.Records = cloneRecords(d.Records)
	return &c
}

// DeriveIdentifiers fills the hierarchy identifiers from the tree.
func (d *Document) DeriveIdentifiers() {
	flat := d.Flatten()
	d.PatientID = ValueOf(flat, "PatientID")
	d.StudyInstanceUID = ValueOf(flat, "StudyInstanceUID")
	d.SeriesInstanceUID = ValueOf(flat, "SeriesInstanceUID")
	d.SOPInstanceUID = ValueOf(flat, "SOPInstanceUID")
	d.Modality = ValueOf(flat, "Modality")
}

// MarshalJSON serializes the document as the flat ordered record array.
func (d *Document) MarshalJSON() ([]byte, error) {
	flat := d.Flatten()
	if flat == nil {
		flat = []*Record{}
	}
	return json.Marshal(flat)
}

// ValueOf returns the first value recorded for a keyword (or formatted
// tag), or the empty string. Placeholder values like "<Sequence>" or
// "<PixelData omitted>" count as missing.
func ValueOf(records []*Record, keyword string) string {
	for _, r := range records {
		if r.Keyword == keyword || r.Tag == keyword {
			if strings.HasPrefix(r.Value, "<") {
				return ""
			}
			return r.Value
		}
	}
	return ""
}
