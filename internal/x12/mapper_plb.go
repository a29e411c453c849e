package x12

import (
	"fmt"
	"strconv"

	"github.com/pulsepipe/ingest/internal/x12/model"
)

// plbMapper maps PLB (provider level adjustment/balance) segments into
// line-item Charges.
type plbMapper struct{}

func init() { Register(&plbMapper{}) }

func (plbMapper) Accepts(segmentID string) bool { return segmentID == "PLB" }

func (plbMapper) Map(_ string, elements []string, content *model.OperationalContent, cache model.MessageCache) {
	if len(elements) < 2 {
		return
	}
	amount, _ := ParseX12Decimal(elements[1], 2)

	var quantity *int
	if len(elements) > 3 {
		if q, err := strconv.Atoi(elements[3]); err == nil {
			quantity = &q
		}
	}

	charge := model.Charge{
		ChargeID:     fmt.Sprintf("%s_%d", cache.Get("claim_id"), len(content.Charges)+1),
		PatientID:    cache.Get("patient_id"),
		ChargeCode:   elements[0],
		ChargeAmount: amount,
		Quantity:     quantity,
		ChargeStatus: "posted",
	}
	content.Charges = append(content.Charges, charge)
	cache["last_charge_id"] = charge.ChargeID
}
