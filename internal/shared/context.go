package shared

import "context"

type contextKey string

const actorKey contextKey = "actor_id"

// ContextWithActor stores the acting user id on the context. The workflow
// layer receives the actor explicitly; this only carries it from the HTTP
// boundary to handlers.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorKey, actorID)
}

// ActorFromContext returns the acting user id, 0 when absent.
func ActorFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(actorKey).(int64)
	return id
}
