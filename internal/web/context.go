package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/pickimport/internal/core"
)

// withRequestMeta attaches the client IP and User-Agent for the import log.
// RemoteAddr has already been rewritten by TrustedRealIP.
func withRequestMeta(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithRequestMeta(ctx, core.RequestMeta{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
