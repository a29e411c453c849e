// Package deid defines the de-identification collaborator interface
// the pipeline optionally routes normalized records through, and ships
// one deterministic stub implementation that redacts a fixed set of
// known PHI field names. A real NER-based de-identifier is out of
// scope; grounded on the known-value lookup style of
// internal/quality's knownPlaceholderStrings (a static map consulted
// field-by-field rather than a learned model).
package deid

import "context"

// RedactedField records which field a Deidentifier removed or masked
// and why, so callers can report coverage without re-deriving it.
type RedactedField struct {
	Field  string
	Reason string
}

// Deidentifier strips or masks PHI-bearing fields from a normalized
// record, returning the redacted copy alongside what it touched.
type Deidentifier interface {
	Deidentify(ctx context.Context, record map[string]any) (map[string]any, []RedactedField, error)
}

// defaultFields are HIPAA Safe Harbor's eighteen identifier categories,
// narrowed to the field names this pipeline's normalized domain model
// actually uses.
var defaultFields = map[string]string{
	"patient_name":      "direct identifier",
	"given_name":        "direct identifier",
	"family_name":       "direct identifier",
	"ssn":               "direct identifier",
	"mrn":               "direct identifier",
	"phone":             "contact identifier",
	"email":             "contact identifier",
	"address":           "geographic identifier",
	"street":            "geographic identifier",
	"zip":               "geographic identifier",
	"date_of_birth":     "date identifier",
	"admission_date":    "date identifier",
	"discharge_date":    "date identifier",
	"device_id":         "device identifier",
	"account_number":    "account identifier",
	"license_number":    "account identifier",
	"vehicle_id":        "device identifier",
	"biometric_id":      "biometric identifier",
	"photo_url":         "biometric identifier",
}

// FieldRedactor masks every field named in its redact set, replacing
// the value with a fixed token rather than deleting the key (so
// downstream schema checks still see the field present).
type FieldRedactor struct {
	redact map[string]string
	token  string
}

// NewFieldRedactor returns a FieldRedactor over the default PHI field
// set. Pass extra fields to redact beyond the defaults; an empty
// fields map keeps the defaults only.
func NewFieldRedactor(extra map[string]string) *FieldRedactor {
	redact := make(map[string]string, len(defaultFields)+len(extra))
	for field, reason := range defaultFields {
		redact[field] = reason
	}
	for field, reason := range extra {
		redact[field] = reason
	}
	return &FieldRedactor{redact: redact, token: "[REDACTED]"}
}

// Deidentify returns a shallow copy of record with every recognized
// PHI field replaced by a fixed token.
func (r *FieldRedactor) Deidentify(ctx context.Context, record map[string]any) (map[string]any, []RedactedField, error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	out := make(map[string]any, len(record))
	var redacted []RedactedField
	for field, value := range record {
		reason, matched := r.redact[field]
		if !matched {
			out[field] = value
			continue
		}
		out[field] = r.token
		redacted = append(redacted, RedactedField{Field: field, Reason: reason})
	}
	return out, redacted, nil
}
