package dicom

import (
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Dataset wraps a parsed DICOM dataset for easier access.
type Dataset struct {
	Data     dicom.Dataset
	FilePath string
}

// ReadDicom reads a DICOM file including pixel data.
func ReadDicom(path string) (*Dataset, error) {
	return read(path)
}

// ReadDicomMetadataOnly reads a DICOM file without decoding pixel data.
// This is the default for metadata extraction; the pixel data element
// stays in the dataset but is marked as skipped.
func ReadDicomMetadataOnly(path string) (*Dataset, error) {
	return read(path, dicom.SkipPixelData())
}

func read(path string, opts ...dicom.ParseOption) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat file: %w", err)
	}

	ds, err := dicom.Parse(file, info.Size(), nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not parse DICOM: %w", err)
	}

	return &Dataset{
		Data:     ds,
		FilePath: path,
	}, nil
}

// GetString returns a string value for a tag, or empty string if not found.
func (d *Dataset) GetString(t tag.Tag) string {
	elem, err := d.Data.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return ""
	}

	val := elem.Value.GetValue()
	if val == nil {
		return ""
	}

	switch v := val.(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	case string:
		return v
	}

	return fmt.Sprintf("%v", val)
}

// GetPatientName returns the patient name.
func (d *Dataset) GetPatientName() string {
	return d.GetString(tag.PatientName)
}

// GetPatientID returns the patient ID.
func (d *Dataset) GetPatientID() string {
	return d.GetString(tag.PatientID)
}

// GetPatientBirthDate returns the patient DOB.
func (d *Dataset) GetPatientBirthDate() string {
	return d.GetString(tag.PatientBirthDate)
}

// GetModality returns the modality (e.g. "CT", "MR", "US").
func (d *Dataset) GetModality() string {
	return d.GetString(tag.Modality)
}
