package anonymize

import (
	"fmt"
	"sync"

	"dicom-metascan/internal/document"
	"dicom-metascan/internal/identity"
)

// Engine applies a field policy to extracted documents. One engine
// serves a whole run; the pseudonym mapping and the hash collision
// guard are shared across every document it transforms.
type Engine struct {
	policy Policy
	mapper *identity.Mapper
	salt   string

	mu       sync.Mutex
	hashSeen map[string]string // hash output -> original value
}

// NewEngine creates an engine over a shared mapper.
func NewEngine(policy Policy, mapper *identity.Mapper, salt string) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		policy:   policy,
		mapper:   mapper,
		salt:     salt,
		hashSeen: make(map[string]string),
	}, nil
}

// Mapper exposes the shared pseudonym mapping; output directory naming
// must go through the same mapping as the PatientID field.
func (e *Engine) Mapper() *identity.Mapper {
	return e.mapper
}

// Anonymize returns a transformed copy of doc. The input document is
// never mutated. Two distinct originals hashing or pseudonymizing to
// the same output is identity.ErrPseudonymCollision, fatal for the run.
func (e *Engine) Anonymize(doc *document.Document) (*document.Document, error) {
	out := doc.Clone()

	if e.policy.StripPrivate {
		out.Records = stripPrivate(out.Records)
	}

	var firstErr error
	out.Walk(func(r *document.Record) {
		if firstErr != nil || r.IsSequence() {
			return
		}
		if err := e.applyTo(r); err != nil {
			firstErr = err
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}

	out.DeriveIdentifiers()
	return out, nil
}

func (e *Engine) applyTo(r *document.Record) error {
	action, ok := e.policy.Fields[r.Keyword]
	if !ok || r.Value == "" {
		return nil
	}

	switch action {
	case ActionRemove:
		r.Value = ""
		r.VM = 0

	case ActionHash:
		hashed := identity.HashValue(r.Value, e.salt)
		if err := e.checkHash(hashed, r.Value); err != nil {
			return err
		}
		r.Value = hashed
		r.VM = 1

	case ActionPseudonymize:
		pseudonym, err := e.mapper.Pseudonym(r.Value)
		if err != nil {
			return fmt.Errorf("could not pseudonymize %s: %w", r.Keyword, err)
		}
		r.Value = pseudonym
		r.VM = 1

	case ActionTruncateDate:
		r.Value = TruncateDate(r.Value)
	}

	return nil
}

func (e *Engine) checkHash(hashed, original string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prior, ok := e.hashSeen[hashed]; ok && prior != original {
		return fmt.Errorf("%w: hash %q produced by two distinct originals",
			identity.ErrPseudonymCollision, hashed)
	}
	e.hashSeen[hashed] = original
	return nil
}

// stripPrivate drops odd-group records at every nesting level.
func stripPrivate(records []*document.Record) []*document.Record {
	out := records[:0]
	for _, r := range records {
		if r.Private {
			continue
		}
		for i, item := range r.Items {
			r.Items[i] = stripPrivate(item)
		}
		out = append(out, r)
	}
	return out
}

// TruncateDate clamps a DICOM date (YYYYMMDD) to the first of its
// month. Values too short to carry a month are cleared.
func TruncateDate(value string) string {
	if len(value) >= 6 {
		return value[:6] + "01"
	}
	return ""
}
