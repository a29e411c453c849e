// Package x12 dispatches parsed X12 segments to the mapper that claims
// them, in the order mappers registered — a direct but explicit
// Go replacement for the original __init_subclass__-driven
// MAPPER_REGISTRY (REDESIGN FLAG DN-1: dynamic subclass registration
// becomes an explicit interface plus a registration call).
package x12

import "github.com/pulsepipe/ingest/internal/x12/model"

// Mapper claims one or more segment ids and folds their elements into
// the content being built, using cache for cross-segment context.
type Mapper interface {
	Accepts(segmentID string) bool
	Map(segmentID string, elements []string, content *model.OperationalContent, cache model.MessageCache)
}

var registry []Mapper

// Register adds a mapper to the dispatch registry. Mappers register from
// their own package's init(), mirroring the original registration-at-
// class-definition-time behavior without relying on reflection.
func Register(m Mapper) {
	registry = append(registry, m)
}

// findMapper returns the first registered mapper accepting segmentID, or
// nil if none does — first-registration-wins, per the Open Question
// decision recorded in DESIGN.md.
func findMapper(segmentID string) Mapper {
	for _, m := range registry {
		if m.Accepts(segmentID) {
			return m
		}
	}
	return nil
}
