package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/web/response"
)

// Recovery recovers from panics in downstream handlers, logs them with a
// stack trace and answers with a 500 error envelope.
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(panicError(rec)),
					zap.Stack("stack"),
				)
				response.RenderInternalError(w, nil)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func panicError(rec interface{}) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", rec)
}
