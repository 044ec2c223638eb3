package notify

import (
	"context"
	"fmt"

	domainNotify "repguard/internal/domain/notify"
)

// Router dispatches a notification to the transport registered for its
// delivery method, falling back to a default transport when none is.
type Router struct {
	byMethod map[domainNotify.Method]domainNotify.Notifier
	fallback domainNotify.Notifier
}

func NewRouter(fallback domainNotify.Notifier) *Router {
	return &Router{
		byMethod: make(map[domainNotify.Method]domainNotify.Notifier),
		fallback: fallback,
	}
}

// Register binds a transport to a delivery method.
func (r *Router) Register(method domainNotify.Method, n domainNotify.Notifier) {
	r.byMethod[method] = n
}

func (r *Router) Send(ctx context.Context, msg domainNotify.Notification) (bool, error) {
	n, ok := r.byMethod[msg.Method]
	if !ok {
		n = r.fallback
	}
	if n == nil {
		return false, fmt.Errorf("no transport registered for method %s", msg.Method)
	}
	return n.Send(ctx, msg)
}
