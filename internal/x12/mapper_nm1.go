package x12

import "github.com/pulsepipe/ingest/internal/x12/model"

// entityIDField is the element index holding the id value for the
// entity types nm1Mapper cares about (NM109, zero-indexed as elements[8]
// once the segment id itself has been stripped).
const entityIDField = 8

// nm1Mapper maps NM1 (individual/organizational name) segments, stashing
// the id of whichever entity type it names (patient, rendering provider,
// payer) into cache for later segments to reference.
type nm1Mapper struct{}

func init() { Register(&nm1Mapper{}) }

func (nm1Mapper) Accepts(segmentID string) bool { return segmentID == "NM1" }

func (nm1Mapper) Map(_ string, elements []string, _ *model.OperationalContent, cache model.MessageCache) {
	if len(elements) < 1 {
		return
	}
	entityID := elements[0]
	var id string
	if len(elements) > entityIDField {
		id = elements[entityIDField]
	}

	switch entityID {
	case "QC": // Patient
		cache["patient_id"] = id
	case "82": // Rendering Provider
		cache["rendering_provider_id"] = id
	case "PR": // Payer
		cache["payer_id"] = id
	}
}
