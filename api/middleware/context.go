package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
)

type contextKey string

const (
	ctxActorID contextKey = "actor_id"
	ctxRole    contextKey = "actor_role"
)

// WithActor seeds the request context with the authenticated actor.
// Exposed so tests and non-HTTP callers can build contexts the same way.
func WithActor(ctx context.Context, actorID uuid.UUID, role enums.ActorRole) context.Context {
	ctx = context.WithValue(ctx, ctxActorID, actorID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxActorID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func RoleFromContext(ctx context.Context) (enums.ActorRole, bool) {
	role, ok := ctx.Value(ctxRole).(enums.ActorRole)
	if !ok || role == "" {
		return "", false
	}
	return role, true
}
