package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/service"
)

func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		next.ServeHTTP(w, r)
		logger.Printf("%s %s from=%s dur=%s", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

// requireSupervisor gates a handler behind a bearer capability from the
// configured supervisor set.
func (s *Server) requireSupervisor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cap, ok := bearerCapability(r)
		if !ok || !s.auth.Allowed(cap) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "valid supervisor token required")
			return
		}
		next(w, r)
	}
}

func bearerCapability(r *http.Request) (service.Capability, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return service.Capability(token), true
}
