// Package bookmark tracks which source files have already been ingested so
// a re-scan of a watched directory skips them, per spec.md §4.2. It mirrors
// PulsePipe's file_watcher_bookmarks package: a small pluggable store keyed
// by normalized file path with insert-or-ignore "mark processed" semantics.
package bookmark

import (
	"context"
	"fmt"
)

// Store is the contract every bookmark backend implements.
type Store interface {
	IsProcessed(ctx context.Context, path string) (bool, error)
	MarkProcessed(ctx context.Context, path, status string) error
	GetAll(ctx context.Context) ([]string, error)
	ClearAll(ctx context.Context) (int, error)
	Close() error
}

// Config selects and parameterizes a Store, mirroring the original
// create_bookmark_store(config) factory's recognized keys.
type Config struct {
	Type   string `yaml:"type"`
	DBPath string `yaml:"db_path"`
}

// unsupportedErr mirrors the original factory's NotImplementedError
// messages for engines this Go port doesn't carry — no product-tier
// upsell, just an honest unsupported-feature error.
func unsupportedErr(storeType string) error {
	return fmt.Errorf("bookmark: store type %q is not implemented in this build", storeType)
}
