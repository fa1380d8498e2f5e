// Package middleware provides HTTP middleware for the forecast service.
//
// Purpose:
//
//	This package provides the actor-context gate applied to every
//	forecast domain route: it resolves the caller from header-injected
//	identity and rejects anonymous requests when enabled, generalized
//	from the teacher's per-route RBAC policy engine (which this domain
//	has no equivalent roles table for) down to an authenticate-or-reject
//	gate plus audit logging of the decision.
package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/audit"
	"github.com/dairyforecast/herdsim/internal/forecasterr"
)

// RBACConfig holds configuration for the actor-context middleware.
type RBACConfig struct {
	Logger *zap.Logger
	Audit  *audit.Logger
	// EnableRBAC controls whether anonymous requests are rejected
	// (default: true). Set to false for development/testing.
	EnableRBAC bool
}

// RBAC resolves the calling actor and attaches it to the request context.
// If EnableRBAC is false, it is a no-op that still extracts whatever
// actor headers are present (for development).
func RBAC(cfg RBACConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := HeaderExtractor(r)
			action := r.Method + ":" + r.URL.Path

			if cfg.EnableRBAC && actor.Subject == "" {
				if cfg.Audit != nil {
					cfg.Audit.Record(action, actor.Subject, false)
				}
				err := forecasterr.New(forecasterr.CodeRequestValidationError, "missing actor identity")
				data, _ := forecasterr.Marshal(err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write(data)
				return
			}

			if cfg.Audit != nil {
				cfg.Audit.Record(action, actor.Subject, true)
			}

			ctx := context.WithValue(r.Context(), actorContextKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
