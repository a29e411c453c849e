// Package model defines the operational content the X12 dispatcher
// builds as it walks a claim/remittance interchange: claims, charges,
// adjustments, and prior authorizations, plus the per-message cache
// mappers use to pass context (the current claim id, patient id, ...)
// to one another without a parse tree. Grounded on
// pulsepipe.models.PulseOperationalContent / MessageCache.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Claim is one CLP-segment claim, mirroring pulsepipe.models.Claim.
type Claim struct {
	ClaimID             string
	PatientID           string
	EncounterID         string
	ClaimDate           *time.Time
	PayerID             string
	TotalChargeAmount   decimal.Decimal
	TotalPaymentAmount  decimal.Decimal
	ClaimStatus         string
	ClaimType           string
	ServiceStartDate    *time.Time
	ServiceEndDate      *time.Time
	OrganizationID      string
}

// Charge is one PLB-segment line-item charge.
type Charge struct {
	ChargeID             string
	EncounterID          string
	PatientID            string
	ServiceDate          *time.Time
	ChargeCode           string
	ChargeDescription    string
	ChargeAmount         decimal.Decimal
	Quantity             *int
	PerformingProviderID string
	OrderingProviderID   string
	RevenueCode          string
	CPTHCPCSCode         string
	DiagnosisPointers    []string
	ChargeStatus         string
	OrganizationID       string
}

// Adjustment is one CAS-segment adjustment triplet (group code, reason
// code, amount).
type Adjustment struct {
	AdjustmentID                 string
	ChargeID                     string
	PaymentID                    string
	AdjustmentDate                *time.Time
	AdjustmentReasonCode          string
	AdjustmentReasonDescription   string
	AdjustmentAmount              decimal.Decimal
	AdjustmentType                string
	OrganizationID                string
}

// PriorAuthorization is one UM-segment authorization record.
type PriorAuthorization struct {
	AuthID              string
	PatientID           string
	ProviderID          string
	RequestedProcedure  string
	AuthType            string
	ReviewStatus        string
	ServiceDates        []time.Time
	DiagnosisCodes      []string
	OrganizationID      string
}

// OperationalContent is the fully parsed result of one X12 interchange.
type OperationalContent struct {
	TransactionType                  string
	InterchangeControlNumber         string
	FunctionalGroupControlNumber     string
	OrganizationID                   string
	Claims                           []Claim
	Charges                          []Charge
	Adjustments                      []Adjustment
	PriorAuthorizations              []PriorAuthorization
}

// MessageCache carries cross-segment context (current claim id, patient
// id, last charge id, ...) between mappers as the dispatcher walks
// segments in order. It has no schema of its own, matching the Python
// dict-based MessageCache.
type MessageCache map[string]any

// Get returns cache[key] as a string, or "" if absent/not a string.
func (c MessageCache) Get(key string) string {
	v, ok := c[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// GetStrings returns cache[key] as a []string, or nil if absent.
func (c MessageCache) GetStrings(key string) []string {
	v, ok := c[key]
	if !ok {
		return nil
	}
	s, _ := v.([]string)
	return s
}
