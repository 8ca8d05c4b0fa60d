package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/pricescope/pkg/cache"
	"github.com/vanderheijden86/pricescope/pkg/config"
	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/loader"
	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/scope"
)

// appEnv is everything a command needs to build a session: config, the
// workspace, and the layered hierarchy source.
type appEnv struct {
	cfg    config.Config
	ws     config.Workspace
	client *loader.Client // nil offline or without a backend
	store  *cache.Store   // nil when the cache is disabled or unavailable
	source *cache.Source
	groups loader.GroupsFile
}

func openEnv(ctx context.Context, opts *rootOptions) (*appEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dir := opts.dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	env := &appEnv{cfg: cfg, ws: config.Discover(dir)}
	debug.Log("workspace %s (exists=%v)", env.ws.Root, env.ws.Exists())

	if !opts.offline && cfg.HasBackend() {
		env.client = loader.NewClient(cfg.Backend.BaseURL,
			loader.WithTenant(cfg.Backend.Tenant),
			loader.WithTimeout(cfg.Backend.Timeout),
		)
	}

	if !cfg.Cache.Disabled && env.ws.Exists() {
		store, err := cache.Open(env.ws.CachePath())
		if err != nil {
			debug.Warn("cache unavailable: %v", err)
		} else {
			env.store = store
			if cfg.Cache.MaxAge > 0 {
				if n, err := store.Prune(ctx, time.Now().Add(-cfg.Cache.MaxAge)); err != nil {
					debug.Warn("pruning cache: %v", err)
				} else if n > 0 {
					debug.Log("pruned %d stale cache entries", n)
				}
			}
			if err := loader.EnsureStateInGitignore(env.ws.Root); err != nil {
				debug.Warn("updating .gitignore: %v", err)
			}
		}
	}

	fixtureDir := ""
	if env.ws.Exists() {
		fixtureDir = env.ws.FixtureDir()
	}
	// A nil *loader.Client must not become a non-nil interface.
	var remote cache.PayloadFetcher
	if env.client != nil {
		remote = env.client
	}
	env.source = cache.NewSource(remote, env.store, fixtureDir)

	groups, err := loader.LoadGroupsFile(env.ws.GroupsPath())
	if err != nil {
		return nil, err
	}
	env.groups = groups
	return env, nil
}

func (e *appEnv) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			debug.Warn("closing cache: %v", err)
		}
	}
}

// newSession fetches both hierarchies concurrently and returns a session
// over them.
func (e *appEnv) newSession(ctx context.Context) *scope.Session {
	var products, locations model.Forest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products = e.source.FetchHierarchy(gctx, model.DimensionProduct, "")
		return nil
	})
	g.Go(func() error {
		locations = e.source.FetchHierarchy(gctx, model.DimensionLocation, "")
		return nil
	})
	_ = g.Wait()

	s := scope.NewSession(e.source)
	s.SetHierarchies(products, locations)
	s.SetGroups(e.groups.Products, e.groups.Locations)
	debug.Log("session %s: products from %s, locations from %s",
		s.ID, e.source.Origin(model.DimensionProduct), e.source.Origin(model.DimensionLocation))
	return s
}

// fromFixtures reports whether both hierarchies came from fixture files,
// which is when watching them for changes is useful.
func (e *appEnv) fromFixtures() bool {
	return e.source.Origin(model.DimensionProduct) == cache.OriginFixture &&
		e.source.Origin(model.DimensionLocation) == cache.OriginFixture
}
