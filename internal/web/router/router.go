package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mcrud/mcrud/internal/web/middleware"
)

// Router manages HTTP routing using chi and records every route it serves
type Router struct {
	mux chi.Router

	// For introspection and the routes list endpoint
	registeredRoutes []*RouteInfo
}

// RouteInfo provides metadata about a route for introspection
type RouteInfo struct {
	Method     string
	Pattern    string
	Collection string
	Operation  Operation
	Guarded    bool
}

// String renders the route the way the routes list reports it, e.g. "get: /users/{id}"
func (ri RouteInfo) String() string {
	return strings.ToLower(ri.Method) + ": " + ri.Pattern
}

// Operation is one of the collection operations a resource exposes
type Operation int

const (
	// OpList represents GET /
	OpList Operation = iota
	// OpGetByID represents GET /{id}
	OpGetByID
	// OpPost represents POST /
	OpPost
	// OpPatch represents PATCH /{id}
	OpPatch
	// OpDeleteByID represents DELETE /{id}
	OpDeleteByID
	// OpGetRelation represents GET /{id}/{related}
	OpGetRelation
	// OpAssociate represents POST /{id}/{related}
	OpAssociate
	// OpDeleteAssociation represents DELETE /{id}/{related}
	OpDeleteAssociation
	// OpRoutes is the routes list endpoint
	OpRoutes
)

// Operations lists the collection operations in registration order
var Operations = []Operation{
	OpList, OpGetByID, OpPost, OpPatch, OpDeleteByID,
	OpGetRelation, OpAssociate, OpDeleteAssociation,
}

var operationNames = map[Operation]string{
	OpList:              "list",
	OpGetByID:           "getById",
	OpPost:              "post",
	OpPatch:             "patch",
	OpDeleteByID:        "deleteById",
	OpGetRelation:       "getRelation",
	OpAssociate:         "associate",
	OpDeleteAssociation: "deleteAssociation",
	OpRoutes:            "routes",
}

// String returns the operation name used in configuration
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOperation returns the operation with the given name
func ParseOperation(name string) (Operation, error) {
	for op, opName := range operationNames {
		if strings.EqualFold(opName, name) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation: %s", name)
}

// Mutating reports whether the operation writes to the store
func (o Operation) Mutating() bool {
	switch o {
	case OpPost, OpPatch, OpDeleteByID, OpAssociate, OpDeleteAssociation:
		return true
	default:
		return false
	}
}

// NewRouter creates a new Router instance
func NewRouter() *Router {
	return &Router{
		mux:              chi.NewRouter(),
		registeredRoutes: make([]*RouteInfo, 0),
	}
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware to every route. It must be called before routes are added.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Handle registers handler for method and pattern. Route middleware wraps
// only this route.
func (r *Router) Handle(method, pattern string, handler http.HandlerFunc, mws ...middleware.Middleware) *RouteInfo {
	var h http.Handler = handler
	if len(mws) > 0 {
		h = middleware.NewChain(mws...).Then(handler)
	}
	r.mux.Method(method, pattern, h)

	info := &RouteInfo{Method: method, Pattern: pattern}
	r.registeredRoutes = append(r.registeredRoutes, info)
	return info
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.Handle(http.MethodGet, pattern, handler)
}

// Mount attaches handler under pattern. Mounted handlers are not listed by
// GetRoutes.
func (r *Router) Mount(pattern string, handler http.Handler) {
	r.mux.Mount(pattern, handler)
}

// GetRoutes returns a copy of all registered routes
func (r *Router) GetRoutes() []RouteInfo {
	routes := make([]RouteInfo, len(r.registeredRoutes))
	for i, route := range r.registeredRoutes {
		routes[i] = *route
	}
	return routes
}

// NotFound sets the handler for 404 Not Found
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.NotFound(handler)
}

// MethodNotAllowed sets the handler for 405 Method Not Allowed
func (r *Router) MethodNotAllowed(handler http.HandlerFunc) {
	r.mux.MethodNotAllowed(handler)
}

// RouteList returns a formatted table of all routes
func (r *Router) RouteList() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s %-40s %-12s %-18s\n", "METHOD", "PATTERN", "COLLECTION", "OPERATION"))
	sb.WriteString(strings.Repeat("-", 80) + "\n")

	for _, info := range r.registeredRoutes {
		op := info.Operation.String()
		if info.Guarded {
			op += " (auth)"
		}
		sb.WriteString(fmt.Sprintf("%-8s %-40s %-12s %-18s\n", info.Method, info.Pattern, info.Collection, op))
	}

	return sb.String()
}
