package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputPath maps a source file's path relative to the input root onto
// the mirrored document path under the output root. The source
// extension is replaced with .json; extensionless files get .json
// appended.
func OutputPath(outputRoot, relPath string) string {
	ext := filepath.Ext(relPath)
	switch strings.ToLower(ext) {
	case ".dcm", ".dicom":
		relPath = strings.TrimSuffix(relPath, ext)
	}
	return filepath.Join(outputRoot, relPath+".json")
}

// Write serializes the document to path, creating parent directories as
// needed.
func Write(path string, doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("could not marshal document: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write document: %w", err)
	}
	return nil
}

// Read loads a serialized document from path. The flat record list is
// restored as-is; nesting information stays encoded in the paths.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read document: %w", err)
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("could not parse document: %w", err)
	}

	doc := &Document{SourcePath: path, Records: records}
	doc.DeriveIdentifiers()
	return doc, nil
}
