package cacheinfra

// New builds the store selected by cfg.Backend, wrapped in a BlockingCache
// when cfg.Blocking is set.
func New(id string, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.backend() {
	case BackendLRU:
		store, err = NewLRUCache(id, cfg)
	case BackendSturdyc:
		store, err = NewSturdycCache(id, cfg)
	default:
		return nil, &ConfigError{Field: "Backend", Message: "must be one of sturdyc, lru"}
	}
	if err != nil {
		return nil, err
	}

	if cfg.Blocking {
		return NewBlockingCache(store, cfg.BlockingTimeout), nil
	}
	return store, nil
}
