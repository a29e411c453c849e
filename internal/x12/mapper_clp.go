package x12

import "github.com/pulsepipe/ingest/internal/x12/model"

var claimStatusByCode = map[string]string{
	"1": "accepted",
	"2": "denied",
	"3": "adjusted",
	"4": "paid",
}

// clpMapper maps CLP (claim level payment) segments into Claims.
type clpMapper struct{}

func init() { Register(&clpMapper{}) }

func (clpMapper) Accepts(segmentID string) bool { return segmentID == "CLP" }

func (clpMapper) Map(_ string, elements []string, content *model.OperationalContent, cache model.MessageCache) {
	if len(elements) < 4 {
		return
	}
	total, _ := ParseX12Decimal(elements[2], 2)
	paid, _ := ParseX12Decimal(elements[3], 2)

	status, ok := claimStatusByCode[elements[1]]
	if !ok {
		status = "submitted"
	}

	claim := model.Claim{
		ClaimID:            elements[0],
		PatientID:          cache.Get("patient_id"),
		PayerID:            cache.Get("payer_id"),
		TotalChargeAmount:  total,
		TotalPaymentAmount: paid,
		ClaimStatus:        status,
	}
	content.Claims = append(content.Claims, claim)
	cache["claim_id"] = claim.ClaimID
}
