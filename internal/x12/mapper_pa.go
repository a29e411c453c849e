package x12

import (
	"fmt"
	"time"

	"github.com/pulsepipe/ingest/internal/x12/model"
)

// priorAuthMapper maps UM (health care services review) segments into
// PriorAuthorizations.
type priorAuthMapper struct{}

func init() { Register(&priorAuthMapper{}) }

func (priorAuthMapper) Accepts(segmentID string) bool { return segmentID == "UM" }

func (priorAuthMapper) Map(_ string, elements []string, content *model.OperationalContent, cache model.MessageCache) {
	authID := fmt.Sprintf("UM_%d", len(content.PriorAuthorizations)+1)
	var authType, reviewStatus string
	if len(elements) > 0 && elements[0] != "" {
		authID = elements[0]
	}
	if len(elements) > 1 {
		authType = elements[1]
	}
	if len(elements) > 2 {
		reviewStatus = elements[2]
	}

	auth := model.PriorAuthorization{
		AuthID:             authID,
		PatientID:          cache.Get("patient_id"),
		ProviderID:         cache.Get("provider_id"),
		RequestedProcedure: cache.Get("requested_procedure"),
		AuthType:           authType,
		ReviewStatus:       reviewStatus,
		ServiceDates:       []time.Time{time.Now().UTC()},
		DiagnosisCodes:     cache.GetStrings("diagnosis_codes"),
	}
	content.PriorAuthorizations = append(content.PriorAuthorizations, auth)
	cache["last_auth_id"] = auth.AuthID
}
