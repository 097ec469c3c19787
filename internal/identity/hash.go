package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var nonAlphaRegex = regexp.MustCompile(`[^A-Z\s]`)

// NormalizeName normalizes a person name for consistent matching.
// Handles "SMITH^JOHN", "John Smith", "smith, john", etc.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}

	name = strings.ToUpper(name)

	// Replace DICOM separators with spaces
	name = strings.ReplaceAll(name, "^", " ")
	name = strings.ReplaceAll(name, ",", " ")

	name = nonAlphaRegex.ReplaceAllString(name, "")

	// Order-insensitive: sort the name parts before joining
	parts := strings.Fields(name)
	sort.Strings(parts)

	return strings.Join(parts, "")
}

// CreateIdentityHash creates a consistent hash from a name, DOB, and
// optional salt. Returns an uppercase 12-character hex string.
func CreateIdentityHash(name, dob, salt string) string {
	identityString := fmt.Sprintf("%s|%s|%s", NormalizeName(name), strings.TrimSpace(dob), salt)
	return HashValue(identityString, "")
}

// HashValue is the salted one-way hash used by the "hash" field action:
// SHA-256 truncated to 12 uppercase hex characters. Consistent within
// and across runs for a fixed salt.
func HashValue(value, salt string) string {
	hash := sha256.Sum256([]byte(value + "|" + salt))
	return strings.ToUpper(hex.EncodeToString(hash[:])[:12])
}
