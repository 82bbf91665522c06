package internal

import (
	"context"
	"time"
)

// Role is the coarse permission level attached to a user.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleAccountant  Role = "ACCOUNTANT"
	RoleCoordinator Role = "COORDINATOR"
	RoleVolunteer   Role = "VOLUNTEER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAccountant, RoleCoordinator, RoleVolunteer:
		return true
	}
	return false
}

// IsStaff reports whether the role may approve or reject expense forms.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleAccountant || r == RoleCoordinator
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Actor is the request-scoped identity passed into every service operation.
// Services never reach into ambient session state; the transport layer
// resolves the actor once and hands it down explicitly.
type Actor struct {
	UserID         string
	Role           Role
	OrganizationID string
}

type ctxKey string

const contextActorKey ctxKey = "actor"

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(contextActorKey).(Actor)
	return actor, ok
}

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
