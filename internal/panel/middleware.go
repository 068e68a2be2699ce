package panel

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"atlas/internal/logging"
	"atlas/internal/services"
)

const requestIDHeader = "X-Request-ID"

// authMiddleware validates bearer tokens. An empty token disables the check.
func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authorized(r, token) {
				writeJSON(w, nil, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Kind: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorized(r *http.Request, token string) bool {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ") == token
	}
	return r.URL.Path == "/ws" && r.URL.Query().Get("token") == token
}

// requestIDMiddleware tags each request so backend calls made on its behalf
// can be correlated in the logs.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

// recoverMiddleware turns a handler panic into a diagnostic JSON response
// instead of a dropped connection.
func recoverMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
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
				logging.ErrorWithContext(logging.WithContext(r.Context(), logger), "panel handler panicked", "panel_panic",
					logging.String("path", r.URL.Path),
					logging.String("panic", fmt.Sprint(rec)),
					logging.String("stack", string(debug.Stack())),
					logging.Hint("reload the panel; report the stack if it repeats"),
				)
				writeJSON(w, logger, http.StatusInternalServerError, errorResponse{
					Error:  "Beklenmeyen bir hata oluştu. Sayfayı yenileyip tekrar deneyin.",
					Kind:   "internal",
					Detail: fmt.Sprint(rec),
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
