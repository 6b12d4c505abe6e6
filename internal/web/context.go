package web

import (
	"context"
	"net/http"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
)

// withRequester attaches the client address and user agent to ctx so the
// service can log who started an import. RemoteAddr has already been
// resolved by TrustedRealIP.
func withRequester(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithRequester(ctx, core.Requester{
		Source:    "http",
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
}
