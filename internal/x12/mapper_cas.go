package x12

import (
	"fmt"

	"github.com/pulsepipe/ingest/internal/x12/model"
)

// casMapper maps CAS (claim adjustment) segments, which repeat a
// (group_code, reason_code, amount) triplet for as many adjustments as
// the claim carries.
type casMapper struct{}

func init() { Register(&casMapper{}) }

func (casMapper) Accepts(segmentID string) bool { return segmentID == "CAS" }

func (casMapper) Map(_ string, elements []string, content *model.OperationalContent, cache model.MessageCache) {
	for i := 0; i+2 < len(elements); i += 3 {
		groupCode := elements[i]
		reasonCode := elements[i+1]
		amount, _ := ParseX12Decimal(elements[i+2], 2)

		adjustment := model.Adjustment{
			AdjustmentID:        fmt.Sprintf("%s_%d", cache.Get("claim_id"), len(content.Adjustments)+1),
			ChargeID:            cache.Get("last_charge_id"),
			AdjustmentReasonCode: reasonCode,
			AdjustmentAmount:     amount,
			AdjustmentType:       groupCode,
		}
		content.Adjustments = append(content.Adjustments, adjustment)
	}
}
