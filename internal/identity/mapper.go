package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrPseudonymCollision is returned when two distinct original
// identifiers would end up with the same pseudonym. This is a
// data-integrity risk and aborts the run.
var ErrPseudonymCollision = errors.New("pseudonym collision")

// MatchMethod indicates how a patient was matched.
type MatchMethod string

const (
	MatchIdentity MatchMethod = "identity"
	MatchPID      MatchMethod = "pid"
	MatchNone     MatchMethod = "none"
)

// ReverseEntry stores reverse lookup info for the audit trail.
type ReverseEntry struct {
	IdentityHashes []string `json:"identity_hashes"`
	Originals      []string `json:"originals"`
}

// mapperData is the JSON structure for persistence.
type mapperData struct {
	IdentityMap map[string]string        `json:"identity_map"`
	ValueMap    map[string]string        `json:"value_map"`
	ReverseMap  map[string]*ReverseEntry `json:"reverse_map"`
	Counter     int                      `json:"counter"`
	RunID       string                   `json:"run_id"`
	Updated     string                   `json:"updated"`
	Note        string                   `json:"note"`
}

// Mapper owns the run-scoped pseudonym table. The same original
// identifier always maps to the same pseudonym within a run (and across
// runs when a mapping file is used), which is what keeps the
// patient>study>series>instance structure intact after de-identification.
// All access is serialized; the mapper is shared by every file worker.
type Mapper struct {
	mu          sync.Mutex
	mappingFile string
	salt        string
	runID       string
	logger      *slog.Logger

	identityMap map[string]string        // identity hash -> pseudonym
	valueMap    map[string]string        // original value -> pseudonym
	reverseMap  map[string]*ReverseEntry // pseudonym -> audit info
	assigned    map[string]string        // pseudonym -> first original (collision guard)
	counter     int
}

// NewMapper creates a mapper, loading prior state from mappingFile if it
// exists. An empty mappingFile keeps the mapping in memory only.
func NewMapper(mappingFile, salt string, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mapper{
		mappingFile: mappingFile,
		salt:        salt,
		runID:       uuid.NewString(),
		logger:      logger,
		identityMap: make(map[string]string),
		valueMap:    make(map[string]string),
		reverseMap:  make(map[string]*ReverseEntry),
		assigned:    make(map[string]string),
	}

	if mappingFile != "" {
		m.load()
	}

	return m
}

func (m *Mapper) load() {
	data, err := os.ReadFile(m.mappingFile)
	if err != nil {
		return // no prior mapping, start fresh
	}

	var md mapperData
	if err := json.Unmarshal(data, &md); err != nil {
		m.logger.Warn("could not load mapping file", "path", m.mappingFile, "error", err)
		return
	}

	if md.IdentityMap != nil {
		m.identityMap = md.IdentityMap
	}
	if md.ValueMap != nil {
		m.valueMap = md.ValueMap
	}
	if md.ReverseMap != nil {
		m.reverseMap = md.ReverseMap
	}
	m.counter = md.Counter

	for hash, id := range m.identityMap {
		if _, ok := m.assigned[id]; !ok {
			m.assigned[id] = hash
		}
	}
	for original, id := range m.valueMap {
		if _, ok := m.assigned[id]; !ok {
			m.assigned[id] = original
		}
	}

	m.logger.Info("loaded pseudonym mappings",
		"path", m.mappingFile, "pseudonyms", len(m.assigned))
}

func (m *Mapper) save() {
	if m.mappingFile == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(m.mappingFile), 0755); err != nil {
		m.logger.Warn("could not create mapping directory", "error", err)
		return
	}

	md := mapperData{
		IdentityMap: m.identityMap,
		ValueMap:    m.valueMap,
		ReverseMap:  m.reverseMap,
		Counter:     m.counter,
		RunID:       m.runID,
		Updated:     time.Now().Format(time.RFC3339),
		Note:        "identity_map uses hash(Name+DOB), value_map is keyed by original identifier",
	}

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		m.logger.Warn("could not marshal mapping data", "error", err)
		return
	}

	if err := os.WriteFile(m.mappingFile, data, 0644); err != nil {
		m.logger.Warn("could not save mapping file", "path", m.mappingFile, "error", err)
	}
}

// generateID mints the next pseudonym. A freshly minted pseudonym that
// is already assigned means the mapping file's counter is inconsistent
// with its tables; continuing would conflate two patients.
func (m *Mapper) generateID(original string) (string, error) {
	m.counter++
	id := fmt.Sprintf("ANON-%06d", m.counter)
	if prior, ok := m.assigned[id]; ok && prior != original {
		return "", fmt.Errorf("%w: %q already assigned to a different original", ErrPseudonymCollision, id)
	}
	m.assigned[id] = original
	return id, nil
}

func (m *Mapper) updateReverse(pseudonym, identityHash, original string) {
	entry := m.reverseMap[pseudonym]
	if entry == nil {
		entry = &ReverseEntry{}
		m.reverseMap[pseudonym] = entry
	}
	if identityHash != "" && !contains(entry.IdentityHashes, identityHash) {
		entry.IdentityHashes = append(entry.IdentityHashes, identityHash)
	}
	if original != "" && !contains(entry.Originals, original) {
		entry.Originals = append(entry.Originals, original)
	}
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}

// Pseudonym returns the run-consistent pseudonym for an original
// identifier, minting one on first encounter. Empty originals map to
// the empty string.
func (m *Mapper) Pseudonym(original string) (string, error) {
	original = strings.TrimSpace(original)
	if original == "" {
		return "", nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.valueMap[original]; ok {
		return id, nil
	}

	id, err := m.generateID(original)
	if err != nil {
		return "", err
	}
	m.valueMap[original] = id
	m.updateReverse(id, "", original)
	m.save()
	return id, nil
}

// AnonID gets or creates the pseudonym for a patient. Name+DOB identity
// matching is preferred when both look real; the patient ID is the
// fallback. The returned pseudonym also names the patient's output
// directory so the anonymized tree stays navigable.
func (m *Mapper) AnonID(patientID, patientName, patientDOB string) (string, MatchMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	patientID = strings.TrimSpace(patientID)
	patientName = strings.TrimSpace(patientName)
	patientDOB = strings.TrimSpace(patientDOB)

	if IsValidIdentity(patientName, patientDOB) {
		identityHash := CreateIdentityHash(patientName, patientDOB, m.salt)

		if id, ok := m.identityMap[identityHash]; ok {
			if patientID != "" {
				if _, exists := m.valueMap[patientID]; !exists {
					m.valueMap[patientID] = id
					m.save()
				}
			}
			return id, MatchIdentity, nil
		}

		// Same patient already seen under this ID: link the identity.
		if id, ok := m.valueMap[patientID]; ok && patientID != "" {
			m.identityMap[identityHash] = id
			m.updateReverse(id, identityHash, patientID)
			m.save()
			return id, MatchIdentity, nil
		}

		id, err := m.generateID(patientID)
		if err != nil {
			return "", MatchNone, err
		}
		m.identityMap[identityHash] = id
		if patientID != "" {
			m.valueMap[patientID] = id
		}
		m.updateReverse(id, identityHash, patientID)
		m.save()
		return id, MatchIdentity, nil
	}

	if patientID != "" {
		if id, ok := m.valueMap[patientID]; ok {
			return id, MatchPID, nil
		}

		id, err := m.generateID(patientID)
		if err != nil {
			return "", MatchNone, err
		}
		m.valueMap[patientID] = id
		m.updateReverse(id, "", patientID)
		m.save()
		return id, MatchPID, nil
	}

	id, err := m.generateID("")
	if err != nil {
		return "", MatchNone, err
	}
	m.save()
	return id, MatchNone, nil
}

// RunID identifies this mapper's run.
func (m *Mapper) RunID() string {
	return m.runID
}

// Count returns the number of distinct pseudonyms handed out.
func (m *Mapper) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.assigned)
}
