package anonymize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Action is what happens to a field matched by the policy.
type Action string

const (
	// ActionRemove clears the value. Used for free-text and other
	// fields that must never survive, not even pseudonymized.
	ActionRemove Action = "remove"
	// ActionHash replaces the value with its salted one-way hash.
	ActionHash Action = "hash"
	// ActionPseudonymize replaces the value through the shared
	// run-consistent pseudonym mapping.
	ActionPseudonymize Action = "pseudonymize"
	// ActionTruncateDate clamps a DICOM date to YYYYMM01.
	ActionTruncateDate Action = "truncate-date"
)

// Policy maps field keywords to actions and carries engine-wide
// switches.
type Policy struct {
	// Fields maps a tag keyword (e.g. "PatientName") to its action.
	Fields map[string]Action `yaml:"fields"`
	// StripPrivate drops odd-group vendor tags from the anonymized copy.
	StripPrivate bool `yaml:"strip_private"`
}

// Validate rejects unknown actions up front; a typo in a policy file
// must not silently leave a field untouched.
func (p Policy) Validate() error {
	for keyword, action := range p.Fields {
		switch action {
		case ActionRemove, ActionHash, ActionPseudonymize, ActionTruncateDate:
		default:
			return fmt.Errorf("field %q: unknown action %q", keyword, action)
		}
	}
	return nil
}

// LoadPolicy reads a policy from a YAML file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("could not read policy file: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("could not parse policy file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// DefaultPolicy covers the standard identity-bearing tags: the patient
// ID is pseudonymized to keep the hierarchy navigable, dates keep their
// year-month, and everything else identifying is cleared.
func DefaultPolicy() Policy {
	fields := map[string]Action{
		"PatientID": ActionPseudonymize,

		"StudyDate":            ActionTruncateDate,
		"SeriesDate":           ActionTruncateDate,
		"AcquisitionDate":      ActionTruncateDate,
		"ContentDate":          ActionTruncateDate,
		"InstanceCreationDate": ActionTruncateDate,

		// Patient identifiers. PatientSex is kept for clinical relevance.
		"PatientName":                ActionRemove,
		"PatientBirthDate":           ActionRemove,
		"PatientBirthTime":           ActionRemove,
		"PatientAge":                 ActionRemove,
		"PatientAddress":             ActionRemove,
		"PatientTelephoneNumbers":    ActionRemove,
		"OtherPatientIDs":            ActionRemove,
		"PatientMotherBirthName":     ActionRemove,
		"MilitaryRank":               ActionRemove,
		"EthnicGroup":                ActionRemove,
		"PatientReligiousPreference": ActionRemove,

		// Free text is removed outright, never pseudonymized.
		"PatientComments":          ActionRemove,
		"StudyComments":            ActionRemove,
		"RequestedProcedureReason": ActionRemove,
		"ReasonForStudy":           ActionRemove,
		"PatientMedicalHistory":    ActionRemove,
		"CurrentPatientLocation":   ActionRemove,

		// Times only; dates are truncated above to keep year-month.
		"StudyTime":            ActionRemove,
		"SeriesTime":           ActionRemove,
		"AcquisitionTime":      ActionRemove,
		"ContentTime":          ActionRemove,
		"InstanceCreationTime": ActionRemove,

		// Institution information. InstitutionName is kept for
		// research tracking.
		"InstitutionAddress":          ActionRemove,
		"InstitutionalDepartmentName": ActionRemove,
		"StationName":                 ActionRemove,

		// Physician and operator names.
		"ReferringPhysicianName":             ActionRemove,
		"ReferringPhysicianAddress":          ActionRemove,
		"ReferringPhysicianTelephoneNumbers": ActionRemove,
		"PerformingPhysicianName":            ActionRemove,
		"OperatorsName":                      ActionRemove,
		"PhysiciansOfRecord":                 ActionRemove,
		"NameOfPhysiciansReadingStudy":       ActionRemove,
		"RequestingPhysician":                ActionRemove,
		"ScheduledPerformingPhysicianName":   ActionRemove,

		// Other identifiers.
		"AccessionNumber":          ActionRemove,
		"StudyID":                  ActionRemove,
		"PerformedProcedureStepID": ActionRemove,
		"ScheduledProcedureStepID": ActionRemove,
	}

	return Policy{Fields: fields, StripPrivate: true}
}
