// Package middleware provides HTTP middleware for the forecast service.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const actorContextKey contextKey = "herdsim.actor"

// Actor is the authenticated caller a request is scoped to. The forecast
// service treats authentication as an external collaborator (see the
// header-based extractor below); every job, dataset and scenario-preset
// row is owned by an Actor.Subject.
type Actor struct {
	Subject string
	Roles   []string
}

// ActorFromContext extracts the actor attached by Middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(Actor)
	return actor, ok
}

// Extractor derives an actor from an HTTP request.
type Extractor func(*http.Request) Actor

// HeaderExtractor reads actor identity from X-Actor-* headers, the same
// shape an upstream gateway would inject after terminating real auth.
func HeaderExtractor(r *http.Request) Actor {
	subject := r.Header.Get("X-Actor-Subject")
	var roles []string
	for _, role := range strings.Split(r.Header.Get("X-Actor-Roles"), ",") {
		role = strings.TrimSpace(role)
		if role != "" {
			roles = append(roles, role)
		}
	}
	return Actor{Subject: subject, Roles: roles}
}
