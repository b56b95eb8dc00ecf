package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mcrud/mcrud/internal/schema"
	"github.com/mcrud/mcrud/internal/web/cache"
	"github.com/mcrud/mcrud/internal/web/handlers"
	"github.com/mcrud/mcrud/internal/web/middleware"
	"github.com/mcrud/mcrud/internal/web/profiling"
	"github.com/mcrud/mcrud/internal/web/router"
)

var (
	readOps  = []router.Operation{router.OpList, router.OpGetByID, router.OpGetRelation}
	writeOps = []router.Operation{router.OpPost, router.OpPatch, router.OpDeleteByID, router.OpAssociate, router.OpDeleteAssociation}
)

// Router mounts the routes of every registered collection
func (a *App) Router() (*router.Router, error) {
	r := router.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(a.logger.Named("http")),
		middleware.Recovery(a.logger),
	)
	router.SetupDefaultErrorHandlers(r)

	var responses *cache.Responses
	if a.cache != nil {
		responses = cache.NewResponses(a.cache, a.config.Cache.TTL, a.relations.Related, a.logger.Named("cache"))
	}

	for _, name := range a.schemas.List() {
		c, _ := a.schemas.Get(name)
		def, err := a.resource(c, responses)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", c.Name, err)
		}

		h := handlers.New(c, a.relations, a.store, a.engine, a.logger.Named("handlers"))
		if err := r.RegisterResource(def, h.Handlers()); err != nil {
			return nil, fmt.Errorf("collection %s: %w", c.Name, err)
		}
	}

	if a.config.Routes.Enabled {
		r.RegisterRoutesList(a.config.Routes.Prefix, a.config.Routes.URL)
	}

	if a.config.Server.Profiling {
		r.Mount(profiling.Path, profiling.Handler())
	}

	return r, nil
}

// resource builds the route definition of one collection
func (a *App) resource(c *schema.Collection, responses *cache.Responses) (*router.ResourceDefinition, error) {
	def := router.NewResourceDefinition(c.Plural, a.config.Server.APIPrefix, c.RoutePrefix())

	for _, name := range c.DisabledRoutes {
		op, err := router.ParseOperation(name)
		if err != nil {
			return nil, err
		}
		def.Disabled[op] = true
	}

	if a.tokens != nil {
		def.Guard = middleware.Auth(a.tokens)
	}

	keys := make([]string, 0, len(c.Middleware))
	for key := range c.Middleware {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		ops, err := parseOperations(key)
		if err != nil {
			return nil, err
		}
		for _, name := range c.Middleware[key] {
			m, ok := a.middleware[name]
			if !ok {
				return nil, fmt.Errorf("unknown middleware %q", name)
			}
			def.Use(m, ops...)
		}
	}

	// innermost, so named middleware also runs on cache hits
	if responses != nil {
		def.Use(responses.Read(c.Plural), readOps...)
		def.Use(responses.Write(c.Plural), writeOps...)
	}

	return def, nil
}

// parseOperations reads a comma separated operation list. "*" selects every
// operation.
func parseOperations(list string) ([]router.Operation, error) {
	var ops []router.Operation
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "":
			continue
		case "*":
			return nil, nil
		}
		op, err := router.ParseOperation(name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("empty operation list")
	}
	return ops, nil
}
