package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/middleware"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	"github.com/fastygo/taskboard/pkg/logger"
	"github.com/fastygo/taskboard/usecase/workspace"
)

// Workspaces is the per-session workspace registry.
type Workspaces interface {
	Open(ctx context.Context, sessionID string) (*workspace.Workspace, error)
	Close(sessionID string) bool
}

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondList(ctx *fasthttp.RequestCtx, data interface{}, count, limit int) {
	h.respondJSON(ctx, http.StatusOK, transport.NewList(data, count, limit))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	}
	h.respondJSON(ctx, status, transport.NewError(code, err.Error(), nil))
}

func (h baseHandler) invalid(ctx *fasthttp.RequestCtx, message string) {
	h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), message, nil))
}

// requestLogger tags the handler logger with the request and session ids of stdCtx.
func (h baseHandler) requestLogger(stdCtx context.Context) *zap.Logger {
	return logger.FromContext(stdCtx, h.logger)
}

// sessionID returns the session id forwarded by the auth middleware and
// answers 401 when it is missing.
func (h baseHandler) sessionID(ctx *fasthttp.RequestCtx) string {
	sessionID := string(ctx.Request.Header.Peek(middleware.HeaderSessionID))
	if sessionID == "" {
		h.respondJSON(ctx, http.StatusUnauthorized, transport.NewError(string(domain.ErrCodeUnauthorized), "missing session", nil))
	}
	return sessionID
}

func pathID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue("id").(string)
	return id
}

func mapError(err error) (int, string) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthorized)
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden, string(domain.ErrCodeForbidden)
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		return http.StatusConflict, string(domain.ErrCodeConflict)
	case domain.IsDomainError(err, domain.ErrCodePersistence):
		return http.StatusBadGateway, string(domain.ErrCodePersistence)
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}

func (h baseHandler) openWorkspace(ctx *fasthttp.RequestCtx, stdCtx context.Context, workspaces Workspaces, sessionID string) (*workspace.Workspace, bool) {
	ws, err := workspaces.Open(stdCtx, sessionID)
	if err != nil {
		h.respondError(ctx, err)
		return nil, false
	}
	return ws, true
}
