package bookmark

// NewFromConfig mirrors the original create_bookmark_store(config) factory:
// "sqlite" is implemented, other engine names are recognized but return an
// explicit unsupported error rather than silently falling back.
func NewFromConfig(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		dbPath := cfg.DBPath
		if dbPath == "" {
			dbPath = "bookmarks.db"
		}
		return NewSQLiteStore(dbPath)
	case "postgres", "redis", "s3":
		return nil, unsupportedErr(cfg.Type)
	default:
		return nil, unsupportedErr(cfg.Type)
	}
}
