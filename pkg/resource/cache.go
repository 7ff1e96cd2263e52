package resource

import (
	"context"
	"path"

	"github.com/hack-pad/hackpadfs"
	"github.com/rs/zerolog"
)

// CachedSource keeps a copy of every fetched resource in a writable file
// system, an IndexedDB-backed one in the browser. Resources of a run do
// not change, so cached copies are never revalidated.
type CachedSource struct {
	Source
	Cache hackpadfs.FS
	Log   zerolog.Logger
}

// Exists answers from the cache before asking the source.
func (s *CachedSource) Exists(ctx context.Context, name string) bool {
	if info, err := hackpadfs.Stat(s.Cache, cleanName(name)); err == nil && !info.IsDir() {
		return true
	}
	return s.Source.Exists(ctx, name)
}

// Fetch returns the cached copy, or fetches and stores one. A failed store
// is logged and otherwise ignored.
func (s *CachedSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	clean := cleanName(name)
	if data, err := hackpadfs.ReadFile(s.Cache, clean); err == nil {
		return data, nil
	}
	data, err := s.Source.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	if dir := path.Dir(clean); dir != "." {
		if err := hackpadfs.MkdirAll(s.Cache, dir, 0o755); err != nil {
			s.Log.Warn().Err(err).Str("resource", clean).Msg("cache mkdir failed")
			return data, nil
		}
	}
	if err := hackpadfs.WriteFullFile(s.Cache, clean, data, 0o644); err != nil {
		s.Log.Warn().Err(err).Str("resource", clean).Msg("cache write failed")
	}
	return data, nil
}

var _ Source = (*CachedSource)(nil)
