package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo responds with the operation name and the path parameters
func echo(op Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Op", op.String())
		w.Header().Set("X-Id", chi.URLParam(r, "id"))
		w.Header().Set("X-Related", chi.URLParam(r, "related"))
		w.WriteHeader(http.StatusOK)
	}
}

func allHandlers() ResourceHandlers {
	return ResourceHandlers{
		List:              echo(OpList),
		GetByID:           echo(OpGetByID),
		Post:              echo(OpPost),
		Patch:             echo(OpPatch),
		DeleteByID:        echo(OpDeleteByID),
		GetRelation:       echo(OpGetRelation),
		Associate:         echo(OpAssociate),
		DeleteAssociation: echo(OpDeleteAssociation),
	}
}

func TestRegisterResource(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.RegisterResource(NewResourceDefinition("users", "api", "users"), allHandlers()))

	tests := []struct {
		method  string
		path    string
		op      Operation
		id      string
		related string
	}{
		{method: http.MethodGet, path: "/api/users", op: OpList},
		{method: http.MethodGet, path: "/api/users/42", op: OpGetByID, id: "42"},
		{method: http.MethodPost, path: "/api/users", op: OpPost},
		{method: http.MethodPatch, path: "/api/users/42", op: OpPatch, id: "42"},
		{method: http.MethodDelete, path: "/api/users/42", op: OpDeleteByID, id: "42"},
		{method: http.MethodGet, path: "/api/users/42/posts", op: OpGetRelation, id: "42", related: "posts"},
		{method: http.MethodPost, path: "/api/users/42/posts", op: OpAssociate, id: "42", related: "posts"},
		{method: http.MethodDelete, path: "/api/users/42/posts", op: OpDeleteAssociation, id: "42", related: "posts"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.op.String(), w.Header().Get("X-Op"))
			assert.Equal(t, tt.id, w.Header().Get("X-Id"))
			assert.Equal(t, tt.related, w.Header().Get("X-Related"))
		})
	}

	assert.Len(t, r.GetRoutes(), len(Operations))
}

func TestRegisterResourceDisabledOperations(t *testing.T) {
	r := NewRouter()
	SetupDefaultErrorHandlers(r)

	def := NewResourceDefinition("users", "", "people")
	def.Disabled[OpDeleteByID] = true
	require.NoError(t, r.RegisterResource(def, allHandlers()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/people/1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterResourceMissingHandler(t *testing.T) {
	handlers := allHandlers()
	handlers.Associate = nil

	err := NewRouter().RegisterResource(NewResourceDefinition("users", "", "users"), handlers)
	assert.EqualError(t, err, "missing handler for operation: associate")
}

func TestGuardWrapsMutatingOperations(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}

	r := NewRouter()
	def := NewResourceDefinition("users", "", "users")
	def.Guard = deny
	require.NoError(t, r.RegisterResource(def, allHandlers()))

	for _, route := range r.GetRoutes() {
		t.Run(route.String(), func(t *testing.T) {
			w := httptest.NewRecorder()
			path := strings.NewReplacer("{id}", "1", "{related}", "posts").Replace(route.Pattern)
			r.ServeHTTP(w, httptest.NewRequest(route.Method, path, nil))

			if route.Operation.Mutating() {
				assert.True(t, route.Guarded)
				assert.Equal(t, http.StatusUnauthorized, w.Code)
			} else {
				assert.False(t, route.Guarded)
				assert.Equal(t, http.StatusOK, w.Code)
			}
		})
	}
}

func TestRoutesList(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.RegisterResource(NewResourceDefinition("users", "", "users"), allHandlers()))
	r.RegisterRoutesList("", "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mcrud/routes", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Routes []string `json:"routes"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Len(t, body.Data.Routes, len(Operations))
	assert.Contains(t, body.Data.Routes, "get: /users/{id}")
	assert.Contains(t, body.Data.Routes, "delete: /users/{id}/{related}")
	assert.NotContains(t, body.Data.Routes, "get: /mcrud/routes")
}

func TestRoutesListURL(t *testing.T) {
	tests := []struct {
		prefix string
		url    string
		want   string
	}{
		{want: "/mcrud/routes"},
		{prefix: "api", want: "/api/mcrud/routes"},
		{prefix: "/api/", want: "/api/mcrud/routes"},
		{prefix: "api", url: "routes", want: "/routes"},
		{url: "/debug/routes", want: "/debug/routes"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RoutesListURL(tt.prefix, tt.url))
	}
}

func TestParseOperation(t *testing.T) {
	for _, op := range Operations {
		parsed, err := ParseOperation(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, parsed)
	}

	op, err := ParseOperation("DELETEBYID")
	require.NoError(t, err)
	assert.Equal(t, OpDeleteByID, op)

	_, err = ParseOperation("purge")
	assert.Error(t, err)
}

func TestRouteList(t *testing.T) {
	r := NewRouter()
	def := NewResourceDefinition("tags", "", "tags")
	def.Guard = func(next http.Handler) http.Handler { return next }
	require.NoError(t, r.RegisterResource(def, allHandlers()))

	out := r.RouteList()
	assert.Contains(t, out, "METHOD")
	assert.Contains(t, out, "/tags/{id}/{related}")
	assert.Contains(t, out, "associate (auth)")
}

func TestRegisterResourceAtRoot(t *testing.T) {
	r := NewRouter()
	def := NewResourceDefinition("users", "", "")
	require.NoError(t, r.RegisterResource(def, allHandlers()))
	r.RegisterRoutesList("", "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, OpList.String(), w.Header().Get("X-Op"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/42", nil))
	assert.Equal(t, "42", w.Header().Get("X-Id"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mcrud/routes", nil))
	assert.Empty(t, w.Header().Get("X-Op"))
	assert.Contains(t, w.Body.String(), "get: /{id}")
}

func TestResourceMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewRouter()
	def := NewResourceDefinition("users", "", "users")
	def.Guard = tag("guard")
	def.Use(tag("all"))
	def.Use(tag("writes"), OpPost)
	require.NoError(t, r.RegisterResource(def, allHandlers()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/users", nil))
	assert.Equal(t, []string{"guard", "all", "writes"}, order)

	order = nil
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, []string{"all"}, order)
}
