package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mcrud/mcrud/internal/web/middleware"
	"github.com/mcrud/mcrud/internal/web/response"
)

// DefaultRoutesURL is where the routes list is served when no URL is configured
const DefaultRoutesURL = "/mcrud/routes"

// ResourceDefinition describes the routes of one collection
type ResourceDefinition struct {
	Collection string                // collection key, e.g. "users"
	BasePath   string                // e.g. "/api/users"; empty mounts at the root
	Disabled   map[Operation]bool    // operations not to expose
	Guard      middleware.Middleware // wraps mutating operations when set
	Middleware map[Operation][]middleware.Middleware
}

// NewResourceDefinition creates a resource definition for collection mounted
// at prefix followed by path.
func NewResourceDefinition(collection, prefix, path string) *ResourceDefinition {
	return &ResourceDefinition{
		Collection: collection,
		BasePath:   joinPath(prefix, path),
		Disabled:   make(map[Operation]bool),
		Middleware: make(map[Operation][]middleware.Middleware),
	}
}

// Use adds middleware to the given operations, or to all of them when none
// are given. Middleware runs after the guard, in the order added.
func (def *ResourceDefinition) Use(m middleware.Middleware, ops ...Operation) {
	if len(ops) == 0 {
		ops = Operations
	}
	for _, op := range ops {
		def.Middleware[op] = append(def.Middleware[op], m)
	}
}

// ResourceHandlers contains handlers for resource operations
type ResourceHandlers struct {
	List              http.HandlerFunc
	GetByID           http.HandlerFunc
	Post              http.HandlerFunc
	Patch             http.HandlerFunc
	DeleteByID        http.HandlerFunc
	GetRelation       http.HandlerFunc
	Associate         http.HandlerFunc
	DeleteAssociation http.HandlerFunc
}

// GetHandler returns the handler for the given operation
func (h *ResourceHandlers) GetHandler(op Operation) http.HandlerFunc {
	switch op {
	case OpList:
		return h.List
	case OpGetByID:
		return h.GetByID
	case OpPost:
		return h.Post
	case OpPatch:
		return h.Patch
	case OpDeleteByID:
		return h.DeleteByID
	case OpGetRelation:
		return h.GetRelation
	case OpAssociate:
		return h.Associate
	case OpDeleteAssociation:
		return h.DeleteAssociation
	default:
		return nil
	}
}

// RegisterResource registers the enabled operations of a collection
func (r *Router) RegisterResource(def *ResourceDefinition, handlers ResourceHandlers) error {
	for _, op := range Operations {
		if def.Disabled[op] {
			continue
		}

		handler := handlers.GetHandler(op)
		if handler == nil {
			return fmt.Errorf("missing handler for operation: %s", op)
		}

		var mws []middleware.Middleware
		guarded := def.Guard != nil && op.Mutating()
		if guarded {
			mws = append(mws, def.Guard)
		}
		mws = append(mws, def.Middleware[op]...)

		method, pattern := def.route(op)
		info := r.Handle(method, pattern, handler, mws...)
		info.Collection = def.Collection
		info.Operation = op
		info.Guarded = guarded
	}

	return nil
}

func (def *ResourceDefinition) route(op Operation) (string, string) {
	list := def.BasePath
	if list == "" {
		list = "/"
	}
	item := def.BasePath + "/{id}"
	related := item + "/{related}"

	switch op {
	case OpList:
		return http.MethodGet, list
	case OpGetByID:
		return http.MethodGet, item
	case OpPost:
		return http.MethodPost, list
	case OpPatch:
		return http.MethodPatch, item
	case OpDeleteByID:
		return http.MethodDelete, item
	case OpGetRelation:
		return http.MethodGet, related
	case OpAssociate:
		return http.MethodPost, related
	default:
		return http.MethodDelete, related
	}
}

// RoutesListURL returns the path of the routes list endpoint. A non-empty
// url replaces the default; otherwise prefix is prepended to it.
func RoutesListURL(prefix, url string) string {
	if url != "" {
		if !strings.HasPrefix(url, "/") {
			url = "/" + url
		}
		return url
	}
	return joinPath(prefix, DefaultRoutesURL)
}

// RegisterRoutesList serves the list of collection routes registered so far
func (r *Router) RegisterRoutesList(prefix, url string) *RouteInfo {
	info := r.Get(RoutesListURL(prefix, url), func(w http.ResponseWriter, req *http.Request) {
		routes := make([]string, 0, len(r.registeredRoutes))
		for _, route := range r.registeredRoutes {
			if route.Operation != OpRoutes {
				routes = append(routes, route.String())
			}
		}
		response.RenderSuccess(w, map[string][]string{"routes": routes}, "")
	})
	info.Operation = OpRoutes
	return info
}

// SetupDefaultErrorHandlers answers unknown routes and methods with the error envelope
func SetupDefaultErrorHandlers(r *Router) {
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.RenderNotFound(w, fmt.Sprintf("no route for %s %s", req.Method, req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.RenderMethodNotAllowed(w)
	})
}

// joinPath joins non-empty path segments into "/a/b". It returns an empty
// string when every segment is empty.
func joinPath(segments ...string) string {
	var parts []string
	for _, segment := range segments {
		if segment = strings.Trim(segment, "/"); segment != "" {
			parts = append(parts, segment)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "/" + strings.Join(parts, "/")
}
