package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mcrud/mcrud/internal/web/auth"
)

func status(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		w.Write([]byte("ok"))
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := NewChain(tag("first")).Use(tag("second")).Then(status(http.StatusOK))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("reuses incoming", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc")
		h.ServeHTTP(w, req)
		assert.Equal(t, "abc", seen)
		assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	})
}

func TestLogging(t *testing.T) {
	tests := []struct {
		code  int
		level zapcore.Level
	}{
		{code: http.StatusOK, level: zapcore.InfoLevel},
		{code: http.StatusNotFound, level: zapcore.WarnLevel},
		{code: http.StatusInternalServerError, level: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			h := RequestID()(Logging(zap.New(core))(status(tt.code)))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", nil))

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.level, entry.Level)

			fields := entry.ContextMap()
			assert.Equal(t, "/users", fields["path"])
			assert.Equal(t, int64(tt.code), fields["status"])
			assert.Equal(t, int64(2), fields["bytes"])
			assert.NotEmpty(t, fields["request_id"])
		})
	}
}

func TestLoggingSkipPaths(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := Logging(zap.New(core), "/health")(status(http.StatusOK))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Zero(t, logs.Len())
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := Recovery(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "panic recovered", logs.All()[0].Message)
	assert.Equal(t, "panic: boom", logs.All()[0].ContextMap()["error"])
}

type validatorFunc func(string) (*auth.Claims, error)

func (f validatorFunc) ValidateToken(token string) (*auth.Claims, error) { return f(token) }

func TestAuth(t *testing.T) {
	validator := validatorFunc(func(token string) (*auth.Claims, error) {
		if token != "good" {
			return nil, errors.New("bad token")
		}
		claims := &auth.Claims{}
		claims.Subject = "ops"
		return claims, nil
	})

	var subject string
	h := Auth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = auth.Subject(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{name: "missing header", header: "", code: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", code: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", code: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", code: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer good", code: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			req := httptest.NewRequest(http.MethodPost, "/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "ops", subject)
			} else {
				assert.Empty(t, subject)
			}
		})
	}
}

func TestAuthWithService(t *testing.T) {
	service := auth.NewService("secret", time.Minute)
	token, err := service.GenerateToken("ops", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	Auth(service)(status(http.StatusCreated)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}
