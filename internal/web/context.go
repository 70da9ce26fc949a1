package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/autoimport/internal/core"
)

// WithRequestMetadata copies the client address and User-Agent into ctx so
// import logs can name who started the import.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, r.RemoteAddr) // already rewritten by TrustedRealIP
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
