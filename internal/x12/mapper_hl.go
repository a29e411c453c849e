package x12

import "github.com/pulsepipe/ingest/internal/x12/model"

// hlMapper maps HL (hierarchical level) segments, tracking parent/child
// relationships in cache for mappers further down the interchange.
type hlMapper struct{}

func init() { Register(&hlMapper{}) }

func (hlMapper) Accepts(segmentID string) bool { return segmentID == "HL" }

func (hlMapper) Map(_ string, elements []string, _ *model.OperationalContent, cache model.MessageCache) {
	if len(elements) == 0 {
		return
	}
	id := elements[0]
	var parent, code string
	if len(elements) > 1 {
		parent = elements[1]
	}
	if len(elements) > 2 {
		code = elements[2]
	}

	cache["hl_id"] = id
	cache["hl_parent"] = parent
	cache["hl_code"] = code

	hierarchy, _ := cache["hl_hierarchy"].(map[string]hlNode)
	if hierarchy == nil {
		hierarchy = make(map[string]hlNode)
	}
	hierarchy[id] = hlNode{Parent: parent, Code: code}
	cache["hl_hierarchy"] = hierarchy
}

type hlNode struct {
	Parent string
	Code   string
}
