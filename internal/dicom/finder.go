package dicom

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DicomExtensions are common DICOM file extensions.
var DicomExtensions = []string{".dcm", ".dicom"}

// ExcludedNames are filenames to skip outright.
var ExcludedNames = map[string]bool{
	"DICOMDIR":       true,
	".progress.json": true,
	".DS_Store":      true,
	"Thumbs.db":      true,
	"desktop.ini":    true,
	"log.txt":        true,
	"README":         true,
	"README.md":      true,
	"LICENSE":        true,
}

// ExcludedExtensions are extensions that are never DICOM; skipping them
// avoids the magic-byte probe on obviously unrelated files.
var ExcludedExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
	".xml":  true,
	".txt":  true,
	".md":   true,
	".log":  true,
	".csv":  true,
	".xlsx": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".pdf":  true,
	".html": true,
	".zip":  true,
	".tar":  true,
	".gz":   true,
	".go":   true,
	".py":   true,
	".sh":   true,
	".exe":  true,
	".dll":  true,
	".so":   true,
}

// ExcludedDirs are directory names to skip entirely.
var ExcludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	".idea":        true,
	".vscode":      true,
}

// FindDicomFiles finds all DICOM files under inputPath, sorted by path.
// Files with a DICOM extension are accepted directly; files without a
// recognized extension are probed for the DICM magic bytes.
func FindDicomFiles(inputPath string, recursive bool) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip files we cannot access
		}

		if info.IsDir() {
			if ExcludedDirs[info.Name()] {
				return filepath.SkipDir
			}
			if !recursive && path != inputPath {
				return filepath.SkipDir
			}
			return nil
		}

		if ExcludedNames[info.Name()] {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ExcludedExtensions[ext] {
			return nil
		}

		isDicom := false
		for _, de := range DicomExtensions {
			if ext == de {
				isDicom = true
				break
			}
		}
		if !isDicom {
			isDicom = hasDicomMagicBytes(path)
		}

		if isDicom && !seen[path] {
			files = append(files, path)
			seen[path] = true
		}
		return nil
	}

	if err := filepath.Walk(inputPath, walkFn); err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// hasDicomMagicBytes checks for "DICM" at byte offset 128.
func hasDicomMagicBytes(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	header := make([]byte, 132)
	if _, err := io.ReadFull(file, header); err != nil {
		return false
	}
	return string(header[128:132]) == "DICM"
}
