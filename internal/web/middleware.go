package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"ms-invoicing/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
)

// RequestLogger logs method, path, status and duration of every request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", status), time.Since(start).String())
		})
	}
}

// CSRF protects the HTML forms. Everything under /api is exempt.
func CSRF(authKey []byte, secure bool, trustedOrigins []string, log *logger.Logger) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(trustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.LogSecurity("CSRF", fmt.Sprintf("%s %s rejected: %v", r.Method, r.URL.Path, csrf.FailureReason(r)))
			http.Error(w, "Forbidden - invalid CSRF token", http.StatusForbidden)
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}
