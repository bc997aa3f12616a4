package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/taskboard/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
)

// Adapter converts fasthttp.RequestCtx into a stdlib context with a deadline,
// a request id and, when configured, the caller's session id.
type Adapter struct {
	timeout       time.Duration
	sessionHeader string
}

func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{timeout: timeout}
}

// WithSessionHeader names the request header whose value is attached to the
// context as the session id.
func (a *Adapter) WithSessionHeader(name string) *Adapter {
	a.sessionHeader = name
	return a
}

// Attach derives the request context. The request id is echoed back in the
// response headers.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := requestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	ctx.Response.Header.Set(HeaderRequestID, reqID)

	if a.sessionHeader != "" {
		if sessionID := string(ctx.Request.Header.Peek(a.sessionHeader)); sessionID != "" {
			stdCtx = appLogger.ContextWithSessionID(stdCtx, sessionID)
		}
	}
	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}

	return stdCtx, cancel
}

func requestID(ctx *fasthttp.RequestCtx) string {
	if header := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderRequestID))); header != "" {
		return header
	}
	return uuid.NewString()
}
