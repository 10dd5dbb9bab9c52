package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/openhouse/marketing-stats/pkg/logger"
)

const headerRequestID = "X-Request-ID"

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout        time.Duration
	trustedProxies int
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout: timeout,
	}
}

// WithTrustedProxies sets how many reverse proxies sit in front of the server.
func (a *Adapter) WithTrustedProxies(n int) *Adapter {
	if n > 0 {
		a.trustedProxies = n
	}
	return a
}

// Attach creates a context with timeout derived from the adapter and enriches it with request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := RequestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	stdCtx = appLogger.ContextWithClient(stdCtx, ClientIP(ctx, a.trustedProxies), string(ctx.Request.Header.UserAgent()))

	return stdCtx, cancel
}

// RequestID returns the caller supplied X-Request-ID, generating and echoing one when absent.
func RequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if existing := string(ctx.Response.Header.Peek(headerRequestID)); existing != "" {
		return existing
	}
	reqID := strings.TrimSpace(string(ctx.Request.Header.Peek(headerRequestID)))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx.Response.Header.Set(headerRequestID, reqID)
	return reqID
}

// ClientIP resolves the caller address. With no trusted proxies it is the TCP
// peer. Otherwise each trusted proxy appended one X-Forwarded-For hop, so the
// client is the hop trustedProxies positions from the right; anything left of
// it is caller supplied.
func ClientIP(ctx *fasthttp.RequestCtx, trustedProxies int) string {
	if ctx == nil {
		return ""
	}
	remote := ctx.RemoteIP().String()
	if trustedProxies <= 0 {
		return remote
	}

	var hops []string
	for _, hop := range strings.Split(string(ctx.Request.Header.Peek("X-Forwarded-For")), ",") {
		if hop = strings.TrimSpace(hop); hop != "" {
			hops = append(hops, hop)
		}
	}
	if len(hops) < trustedProxies {
		return remote
	}
	return hops[len(hops)-trustedProxies]
}
