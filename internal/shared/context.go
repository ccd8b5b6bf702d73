package shared

import "context"

// Actor identifies the acting user for an operation. It is resolved from
// the identity collaborator at the HTTP boundary and passed explicitly;
// services never read ambient global state.
type Actor struct {
	UserID   int64
	Role     string
	CenterID int64
}

// Roles known to the workflow.
const (
	RoleCoordinator = "COORDINATOR"
	RoleCounter     = "COUNTER"
	RoleManager     = "MANAGER"
	RoleAuditor     = "AUDITOR"
)

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
