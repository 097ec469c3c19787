package dict

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// VRClass groups DICOM value representations into the handful of type
// classes the rest of the pipeline dispatches on.
type VRClass string

const (
	ClassString     VRClass = "string"
	ClassNumeric    VRClass = "numeric"
	ClassDate       VRClass = "date"
	ClassPersonName VRClass = "person-name"
	ClassSequence   VRClass = "sequence"
	ClassBinary     VRClass = "binary"
)

// UnknownName is used for tags absent from the dictionary. A lookup miss
// is not an error; the tag is kept and reported under this name.
const UnknownName = "Unknown"

// Entry describes one tag coordinate.
type Entry struct {
	Group   uint16
	Element uint16
	Name    string
	Keyword string
	VR      string
	Class   VRClass
	Private bool
	Known   bool
}

// Dictionary resolves tag coordinates against the DICOM standard tag
// registry. It is read-only and safe for concurrent use.
type Dictionary struct {
	mu    sync.Mutex
	cache map[tag.Tag]Entry
}

// New creates a dictionary backed by the standard tag registry.
func New() *Dictionary {
	return &Dictionary{cache: make(map[tag.Tag]Entry)}
}

// Lookup resolves a tag coordinate. Unresolved coordinates return an
// entry with Name and Keyword set to UnknownName and Known=false.
func (d *Dictionary) Lookup(group, element uint16) Entry {
	t := tag.Tag{Group: group, Element: element}

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.cache[t]; ok {
		return e
	}

	e := Entry{
		Group:   group,
		Element: element,
		Private: IsPrivate(group),
	}

	info, err := tag.Find(t)
	if err != nil {
		e.Name = UnknownName
		e.Keyword = UnknownName
		e.VR = "UN"
		e.Class = ClassBinary
	} else {
		e.Keyword = info.Name
		e.Name = SplitKeyword(info.Name)
		e.VR = info.VR
		e.Class = ClassOf(info.VR)
		e.Known = true
	}

	d.cache[t] = e
	return e
}

// IsPrivate reports whether a group number denotes a private (vendor)
// tag. Private tags have odd group numbers per the encoding convention.
func IsPrivate(group uint16) bool {
	return group%2 == 1
}

// FormatTag renders a coordinate in the canonical "(GGGG,EEEE)" form.
func FormatTag(group, element uint16) string {
	return fmt.Sprintf("(%04X,%04X)", group, element)
}

// ClassOf maps a two-letter VR code to its type class.
func ClassOf(vr string) VRClass {
	switch vr {
	case "SQ":
		return ClassSequence
	case "PN":
		return ClassPersonName
	case "DA", "DT", "TM":
		return ClassDate
	case "DS", "IS", "FL", "FD", "SL", "SS", "UL", "US", "SV", "UV":
		return ClassNumeric
	case "OB", "OW", "OF", "OD", "OL", "OV", "UN":
		return ClassBinary
	default:
		return ClassString
	}
}

// SplitKeyword turns a registry keyword like "PatientBirthDate" or
// "SOPInstanceUID" into a spaced human-readable name.
func SplitKeyword(keyword string) string {
	if keyword == "" {
		return ""
	}

	runes := []rune(keyword)
	var b strings.Builder
	b.Grow(len(keyword) + 8)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}

	return b.String()
}
