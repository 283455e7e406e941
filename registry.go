package main

import "sync"

// libraryRegistry caches one Library per artist, constructed lazily on
// first use. Reloading an artist's catalog means building a fresh registry.
type libraryRegistry struct {
	mu   sync.Mutex
	cfg  *Config
	libs map[string]*Library
}

func newLibraryRegistry(cfg *Config) *libraryRegistry {
	return &libraryRegistry{
		cfg:  cfg,
		libs: make(map[string]*Library),
	}
}

// get returns the library for an artist, loading the catalog the first time
// the artist is requested. An empty ID selects the configured default.
func (r *libraryRegistry) get(artistID string) *Library {
	if artistID == "" {
		artistID = r.cfg.artist
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libs[artistID]
	if !ok {
		lib = newLibrary(r.cfg, artistID)
		r.libs[artistID] = lib
	}

	return lib
}
