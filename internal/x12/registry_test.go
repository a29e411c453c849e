package x12

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsepipe/ingest/internal/x12/model"
)

type stubMapper struct {
	id     string
	accept string
}

func (s stubMapper) Accepts(segmentID string) bool { return segmentID == s.accept }
func (s stubMapper) Map(_ string, _ []string, _ *model.OperationalContent, cache model.MessageCache) {
	cache["handled_by"] = s.id
}

func TestFindMapperFirstRegistrationWins(t *testing.T) {
	saved := registry
	defer func() { registry = saved }()

	registry = nil
	Register(stubMapper{id: "first", accept: "ZZ"})
	Register(stubMapper{id: "second", accept: "ZZ"})

	m := findMapper("ZZ")
	cache := model.MessageCache{}
	m.Map("ZZ", nil, &model.OperationalContent{}, cache)
	assert.Equal(t, "first", cache.Get("handled_by"))
}

func TestFindMapperNoMatchReturnsNil(t *testing.T) {
	saved := registry
	defer func() { registry = saved }()
	registry = nil
	assert.Nil(t, findMapper("ZZZ"))
}
