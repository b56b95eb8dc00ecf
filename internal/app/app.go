// Package app assembles the registries, the store, the integrity engine and
// the HTTP routes of one mcrud instance.
package app

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/config"
	"github.com/mcrud/mcrud/internal/integrity"
	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/schema"
	"github.com/mcrud/mcrud/internal/store"
	"github.com/mcrud/mcrud/internal/web/auth"
	"github.com/mcrud/mcrud/internal/web/cache"
	"github.com/mcrud/mcrud/internal/web/middleware"
	"github.com/mcrud/mcrud/internal/web/ratelimit"
)

// App owns every component of a running instance
type App struct {
	config     *config.Config
	logger     *zap.Logger
	schemas    *schema.Registry
	relations  *relationships.Registry
	store      store.Store
	engine     *integrity.Engine
	cache      cache.Cache
	tokens     *auth.Service
	middleware map[string]middleware.Middleware
	closers    []func(ctx context.Context) error
}

// New creates an App on top of st. The auth middleware is available when
// auth.jwt_secret is set.
func New(cfg *config.Config, st store.Store, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	relations := relationships.NewRegistry()
	a := &App{
		config:     cfg,
		logger:     logger,
		schemas:    schema.NewRegistry(),
		relations:  relations,
		store:      st,
		middleware: make(map[string]middleware.Middleware),
		engine: integrity.New(relations, st, logger.Named("integrity"), integrity.Config{
			MaxConcurrency: cfg.Integrity.MaxConcurrency,
			ActionTimeout:  cfg.Integrity.ActionTimeout,
		}),
	}

	if cfg.Auth.JWTSecret != "" {
		a.tokens = auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		a.middleware["auth"] = middleware.Auth(a.tokens)
	}

	return a
}

// RegisterSchema registers collections and discovers their relationships.
// References may name their target by model name or by collection key; both
// resolve to the collection key. References to collections not registered yet
// stay pending and are linked once the target arrives.
func (a *App) RegisterSchema(collections ...*schema.Collection) error {
	for _, c := range collections {
		if err := a.schemas.Register(c); err != nil {
			return err
		}
		for _, rel := range a.relations.RegisterCollection(c.Plural) {
			a.logger.Debug("pending relationship linked", zap.Stringer("relationship", rel))
		}
	}

	for _, c := range collections {
		refs := schema.ScanReferences(c.Descriptor)
		for i := range refs {
			refs[i].Target = a.collectionKey(refs[i].Target)
		}

		for _, err := range a.relations.Register(c.Plural, refs) {
			a.logger.Warn("relationship discovery", zap.String("collection", c.Plural), zap.Error(err))
		}
	}

	return nil
}

// collectionKey maps a model name or collection key to the collection key
func (a *App) collectionKey(name string) string {
	if c, ok := a.schemas.Get(name); ok {
		return c.Plural
	}
	if _, ok := a.schemas.GetByPlural(name); ok {
		return name
	}
	return schema.Pluralize(name)
}

// LoadSchemaFile registers the collections declared in a YAML or JSON file
func (a *App) LoadSchemaFile(path string) error {
	collections, err := schema.LoadFile(path)
	if err != nil {
		return err
	}
	return a.RegisterSchema(collections...)
}

// RegisterMiddleware makes m available to collections under name
func (a *App) RegisterMiddleware(name string, m middleware.Middleware) {
	a.middleware[name] = m
}

// UseRateLimiter makes the "ratelimit" middleware available to collections
func (a *App) UseRateLimiter(l ratelimit.Limiter) {
	a.middleware["ratelimit"] = ratelimit.Middleware(l, ratelimit.ClientKey, a.logger.Named("ratelimit"))
}

// UseCache enables the read cache
func (a *App) UseCache(c cache.Cache) {
	a.cache = c
}

// OnClose registers a cleanup function run by Close
func (a *App) OnClose(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases the resources the App opened, in reverse order
func (a *App) Close(ctx context.Context) error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errs
}

// ResolveRelationshipType resolves the relationship declared on owner.localKey
func (a *App) ResolveRelationshipType(owner, localKey string) (relationships.Type, error) {
	return a.relations.ResolveRelationshipType(a.collectionKey(owner), localKey)
}

// Schemas returns the schema registry
func (a *App) Schemas() *schema.Registry {
	return a.schemas
}

// Relationships returns the relationship registry
func (a *App) Relationships() *relationships.Registry {
	return a.relations
}

// Engine returns the integrity engine
func (a *App) Engine() *integrity.Engine {
	return a.engine
}

// Store returns the document store
func (a *App) Store() store.Store {
	return a.store
}

// Tokens returns the token service, or an error when no secret is configured
func (a *App) Tokens() (*auth.Service, error) {
	if a.tokens == nil {
		return nil, fmt.Errorf("auth.jwt_secret is not configured")
	}
	return a.tokens, nil
}
