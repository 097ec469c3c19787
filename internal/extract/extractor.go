package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	dcm "dicom-metascan/internal/dicom"
	"dicom-metascan/internal/dict"
	"dicom-metascan/internal/document"
)

// Placeholder values recorded instead of real content. Downstream
// consumers treat any "<...>" value as missing.
const (
	SequenceValue     = "<Sequence>"
	PixelDataOmitted  = "<PixelData omitted>"
	sequenceReadError = "<sequence read error>"
)

// Options controls what the extractor keeps.
type Options struct {
	// IncludePrivate keeps odd-group vendor tags.
	IncludePrivate bool
	// IncludePixelData records pixel data instead of omitting it.
	IncludePixelData bool
	// MaxValueLength truncates formatted values; 0 disables truncation.
	MaxValueLength int
}

// DefaultOptions matches the reference extraction behavior: private
// tags in, pixel data out, values capped at 200 characters.
func DefaultOptions() Options {
	return Options{
		IncludePrivate:   true,
		IncludePixelData: false,
		MaxValueLength:   200,
	}
}

// Extractor parses one decoded dataset at a time into a tag-tree
// document. It is stateless apart from the shared dictionary and safe
// for concurrent use.
type Extractor struct {
	dict *dict.Dictionary
	opts Options
}

// New creates an extractor using the given dictionary.
func New(d *dict.Dictionary, opts Options) *Extractor {
	return &Extractor{dict: d, opts: opts}
}

// ExtractFile parses a DICOM file and extracts its tag tree. A parse
// failure aborts only this file; the caller decides how to report it.
func (e *Extractor) ExtractFile(path string) (*document.Document, error) {
	var ds *dcm.Dataset
	var err error
	if e.opts.IncludePixelData {
		ds, err = dcm.ReadDicom(path)
	} else {
		ds, err = dcm.ReadDicomMetadataOnly(path)
	}
	if err != nil {
		return nil, err
	}
	return e.Extract(ds.Data, path), nil
}

// Extract walks an already parsed dataset depth-first in encoded order
// and produces its metadata document.
func (e *Extractor) Extract(ds dicom.Dataset, sourcePath string) *document.Document {
	doc := &document.Document{
		SourcePath: sourcePath,
		Records:    e.walk(ds.Elements, ""),
	}
	doc.DeriveIdentifiers()
	return doc
}

func (e *Extractor) walk(elems []*dicom.Element, base string) []*document.Record {
	var records []*document.Record

	for _, elem := range elems {
		if elem == nil {
			continue
		}

		entry := e.dict.Lookup(elem.Tag.Group, elem.Tag.Element)
		if entry.Private && !e.opts.IncludePrivate {
			continue
		}

		vr := elem.RawValueRepresentation
		if vr == "" {
			vr = entry.VR
		}

		segment := entry.Keyword
		if !entry.Known {
			segment = dict.FormatTag(elem.Tag.Group, elem.Tag.Element)
		}
		path := segment
		if base != "" {
			path = base + "." + segment
		}

		rec := &document.Record{
			Path:    path,
			Tag:     dict.FormatTag(elem.Tag.Group, elem.Tag.Element),
			Group:   int(elem.Tag.Group),
			Element: int(elem.Tag.Element),
			VR:      vr,
			Name:    entry.Name,
			Keyword: entry.Keyword,
			VM:      1,
			Private: entry.Private,
		}

		switch {
		case isSequence(vr, elem):
			rec.VR = "SQ"
			rec.Value = SequenceValue
			e.walkSequence(elem, rec, path)

		case elem.Tag == tag.PixelData && !e.opts.IncludePixelData:
			rec.Value = PixelDataOmitted

		default:
			rec.Value, rec.VM = e.formatValue(elem)
		}

		records = append(records, rec)
	}

	return records
}

func isSequence(vr string, elem *dicom.Element) bool {
	if vr == "SQ" {
		return true
	}
	return elem.Value != nil && elem.Value.ValueType() == dicom.Sequences
}

// walkSequence recurses into each sequence item, extending the path
// with the item index. A malformed item is a local fault: it is
// recorded on the container and the remaining items continue.
func (e *Extractor) walkSequence(elem *dicom.Element, rec *document.Record, path string) {
	if elem.Value == nil {
		rec.Value = sequenceReadError
		return
	}

	items, ok := elem.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		rec.Value = sequenceReadError
		return
	}

	for i, item := range items {
		itemElems, ok := item.GetValue().([]*dicom.Element)
		if !ok {
			rec.Items = append(rec.Items, nil)
			continue
		}
		children := e.walk(itemElems, fmt.Sprintf("%s[%d]", path, i))
		rec.Items = append(rec.Items, children)
	}
}

// formatValue renders a leaf element's value per its VR and returns the
// formatted string plus the value multiplicity. Multi-valued elements
// join with ", ".
func (e *Extractor) formatValue(elem *dicom.Element) (string, int) {
	if elem.Value == nil {
		return "", 0
	}

	var s string
	vm := 1

	switch v := elem.Value.GetValue().(type) {
	case []string:
		s = strings.Join(v, ", ")
		vm = len(v)
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		s = strings.Join(parts, ", ")
		vm = len(v)
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		s = strings.Join(parts, ", ")
		vm = len(v)
	case []byte:
		s = fmt.Sprintf("<%d bytes>", len(v))
	case dicom.PixelDataInfo:
		if v.IntentionallySkipped || !e.opts.IncludePixelData {
			s = PixelDataOmitted
		} else {
			s = fmt.Sprintf("<PixelData: %d frames>", len(v.Frames))
		}
	case nil:
		return "", 0
	default:
		s = fmt.Sprintf("%v", v)
	}

	return e.truncate(s), vm
}

func (e *Extractor) truncate(s string) string {
	if e.opts.MaxValueLength <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= e.opts.MaxValueLength {
		return s
	}
	return string(runes[:e.opts.MaxValueLength]) + "…"
}
