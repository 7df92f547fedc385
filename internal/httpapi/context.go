package httpapi

import (
	"context"
	"net/http"
)

// requestContext returns the context a handler waits on. It ends when the
// request ends or when base does. A nil base means the request alone.
func requestContext(base context.Context, r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	if base == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// shuttingDown reports whether the server base context has ended.
func shuttingDown(base context.Context) bool {
	return base != nil && base.Err() != nil
}
