package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/loader"
	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

// Origin records where a hierarchy came from.
type Origin string

const (
	OriginNone    Origin = "none"
	OriginBackend Origin = "backend"
	OriginCache   Origin = "cache"
	OriginFixture Origin = "fixture"
)

// PayloadFetcher fetches raw hierarchy bodies. *loader.Client implements it.
type PayloadFetcher interface {
	FetchHierarchyPayload(ctx context.Context, dim model.Dimension, nodeID string) ([]byte, error)
}

// Source resolves hierarchies from the backend, then the payload cache, then
// fixture files on disk. Successful backend bodies are written through to the
// cache. Any of the three may be absent.
type Source struct {
	remote     PayloadFetcher
	store      *Store
	fixtureDir string

	mu      sync.Mutex
	origins map[model.Dimension]Origin
}

// NewSource builds a layered source. remote and store may be nil; an empty
// fixtureDir disables fixtures.
func NewSource(remote PayloadFetcher, store *Store, fixtureDir string) *Source {
	return &Source{
		remote:     remote,
		store:      store,
		fixtureDir: fixtureDir,
		origins:    make(map[model.Dimension]Origin),
	}
}

// FixturePath is the fixture file of a dimension inside dir.
func FixturePath(dir string, dim model.Dimension) string {
	return filepath.Join(dir, dim.Plural()+".json")
}

// Origin reports where the last hierarchy of dim came from.
func (s *Source) Origin(dim model.Dimension) Origin {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.origins[dim]; ok {
		return o
	}
	return OriginNone
}

func (s *Source) setOrigin(dim model.Dimension, o Origin) {
	s.mu.Lock()
	s.origins[dim] = o
	s.mu.Unlock()
}

// FetchHierarchy returns the forest rooted at nodeID (or the full forest when
// nodeID is empty). It never fails: exhausting every layer yields an empty
// forest.
func (s *Source) FetchHierarchy(ctx context.Context, dim model.Dimension, nodeID string) model.Forest {
	key := HierarchyKey(dim, nodeID)

	if s.remote != nil {
		body, err := s.remote.FetchHierarchyPayload(ctx, dim, nodeID)
		if err == nil {
			if forest := loader.DecodeHierarchy(body); len(forest) > 0 {
				if s.store != nil {
					if err := s.store.Put(ctx, key, body); err != nil {
						debug.Warn("cache write %s: %v", key, err)
					}
				}
				s.setOrigin(dim, OriginBackend)
				return forest
			}
		} else if !errors.Is(err, loader.ErrNoBackend) {
			debug.Warn("backend %s: %v", key, err)
		}
	}

	if s.store != nil {
		entry, err := s.store.Get(ctx, key)
		if err == nil {
			if forest := loader.DecodeHierarchy(entry.Body); len(forest) > 0 {
				debug.Log("cache hit %s (fetched %s)", key, entry.FetchedAt.Format("2006-01-02 15:04"))
				s.setOrigin(dim, OriginCache)
				return forest
			}
		} else if !errors.Is(err, ErrMiss) {
			debug.Warn("cache read %s: %v", key, err)
		}
	}

	if s.fixtureDir != "" {
		forest, err := loader.LoadHierarchyFile(FixturePath(s.fixtureDir, dim))
		if err == nil {
			if nodeID == "" {
				s.setOrigin(dim, OriginFixture)
				return forest
			}
			if node, ok := tree.FindNode(forest, nodeID); ok {
				s.setOrigin(dim, OriginFixture)
				return model.Forest{node.Clone()}
			}
		} else {
			debug.Log("fixture %s: %v", dim, err)
		}
	}

	s.setOrigin(dim, OriginNone)
	return model.Forest{}
}
