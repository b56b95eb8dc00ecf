package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/web/middleware"
)

// RelatedFunc returns the collections whose documents reference collection
type RelatedFunc func(collection string) []string

// Responses caches successful collection reads and invalidates them on writes
type Responses struct {
	cache   Cache
	ttl     time.Duration
	related RelatedFunc
	logger  *zap.Logger
}

// NewResponses creates a response cache. related may be nil when collections
// are never populated into one another.
func NewResponses(c Cache, ttl time.Duration, related RelatedFunc, logger *zap.Logger) *Responses {
	if related == nil {
		related = func(string) []string { return nil }
	}
	return &Responses{cache: c, ttl: ttl, related: related, logger: logger}
}

// Generation returns the current generation of collection. A collection that
// has never been written is at generation zero.
func (rs *Responses) Generation(ctx context.Context, collection string) (int64, error) {
	value, err := rs.cache.Get(ctx, GenerationKey(collection))
	if errors.Is(err, ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(value), 10, 64)
}

// Invalidate drops every cached read of collection and of the collections
// related to it, since those may have populated its documents.
func (rs *Responses) Invalidate(ctx context.Context, collection string) error {
	var errs error
	for _, name := range append([]string{collection}, rs.related(collection)...) {
		if _, err := rs.cache.Incr(ctx, GenerationKey(name)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Read serves repeated reads of collection from the cache. Only 200
// responses are stored. Backend failures bypass the cache.
func (rs *Responses) Read(collection string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			generation, err := rs.Generation(ctx, collection)
			if err != nil {
				rs.logger.Warn("cache generation lookup failed",
					zap.String("collection", collection), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			key := ResponseKey(collection, generation, r)
			if data, err := rs.cache.Get(ctx, key); err == nil {
				var cached cachedResponse
				if err := json.Unmarshal(data, &cached); err == nil {
					if cached.ContentType != "" {
						w.Header().Set("Content-Type", cached.ContentType)
					}
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(cached.StatusCode)
					w.Write(cached.Body)
					return
				}
			}

			w.Header().Set("X-Cache", "MISS")
			recorder := newResponseRecorder(w)
			next.ServeHTTP(recorder, r)

			if recorder.statusCode != http.StatusOK {
				return
			}

			data, err := json.Marshal(cachedResponse{
				StatusCode:  recorder.statusCode,
				ContentType: recorder.Header().Get("Content-Type"),
				Body:        recorder.body.Bytes(),
			})
			if err == nil {
				err = rs.cache.Set(ctx, key, data, rs.ttl)
			}
			if err != nil {
				rs.logger.Warn("cache store failed", zap.String("collection", collection), zap.Error(err))
			}
		})
	}
}

// Write invalidates collection after a write request. Requests rejected
// with a 4xx status changed nothing and are ignored.
func (rs *Responses) Write(collection string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode >= 400 && recorder.statusCode < 500 {
				return
			}
			if err := rs.Invalidate(context.WithoutCancel(r.Context()), collection); err != nil {
				rs.logger.Error("cache invalidation failed", zap.String("collection", collection), zap.Error(err))
			}
		})
	}
}

// cachedResponse represents a cached HTTP response
type cachedResponse struct {
	StatusCode  int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// responseRecorder copies the response body while writing it through
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	body        *bytes.Buffer
	wroteHeader bool
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           new(bytes.Buffer),
	}
}

// WriteHeader records the status code and forwards it
func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.wroteHeader {
		r.statusCode = statusCode
		r.wroteHeader = true
		r.ResponseWriter.WriteHeader(statusCode)
	}
}

// Write records the response body and writes to the underlying writer
func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// statusRecorder captures only the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	if !r.wroteHeader {
		r.statusCode = statusCode
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(statusCode)
}
