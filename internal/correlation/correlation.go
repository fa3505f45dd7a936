// Package correlation propagates short opaque correlation IDs through
// every top-level operation (download run, per-job processing, per-provider
// fetch) so logs and errors from one logical operation can be stitched
// together after the fact.
//
// Go has no ambient thread-local storage, so the "task-local active
// context" the specification describes is modeled with context.Context
// value propagation: callers thread a context.Context through every call
// that needs to carry correlation, and Begin pushes a *Context value onto
// that chain the same way the teacher threads a *data.Provider or *Config
// through its call graph; there is no explicit pop, the previous scope is
// whatever the caller's original ctx carries.
package correlation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Context captures one nested correlation scope.
type Context struct {
	ID        string
	ParentID  string
	Operation string
	Provider  string // empty when not provider-scoped
	StartTime time.Time
	Metadata  map[string]any
}

type ctxKey struct{}

// NewID generates an 8-character hex correlation ID.
func NewID() string {
	raw := uuid.New().String()
	out := make([]byte, 0, 8)
	for _, r := range raw {
		if r == '-' {
			continue
		}
		out = append(out, byte(r))
		if len(out) == 8 {
			break
		}
	}
	return string(out)
}

// Begin opens a new nested correlation scope as a child of whatever scope
// is active on ctx (if any), and returns a context carrying it plus the new
// scope itself. Callers restore the previous scope via the returned
// context simply by continuing to use the original ctx in that branch.
func Begin(ctx context.Context, operation, provider string) (context.Context, *Context) {
	parent, _ := ctx.Value(ctxKey{}).(*Context)
	c := &Context{
		ID:        NewID(),
		Operation: operation,
		Provider:  provider,
		StartTime: time.Now().UTC(),
		Metadata:  map[string]any{},
	}
	if parent != nil {
		c.ParentID = parent.ID
	}
	return context.WithValue(ctx, ctxKey{}, c), c
}

// Active returns the correlation scope active on ctx, if any.
func Active(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Context)
	return c, ok
}

// ID returns the active correlation ID on ctx, or "" if none is active.
func ID(ctx context.Context) string {
	if c, ok := Active(ctx); ok {
		return c.ID
	}
	return ""
}
