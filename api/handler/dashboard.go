package handler

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/internal/infrastructure/journal"
	"github.com/fastygo/taskboard/internal/middleware"
	"github.com/fastygo/taskboard/pkg/httpcontext"
)

const (
	defaultDriftLimit = 50
	maxDriftLimit     = 200
)

// DriftReader reads the reconciliation journal.
type DriftReader interface {
	Recent(userID string, limit int) ([]journal.Entry, error)
}

type DashboardHandler struct {
	baseHandler
	workspaces Workspaces
	drift      DriftReader
}

func NewDashboardHandler(workspaces Workspaces, drift DriftReader, adapter *httpcontext.Adapter, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		baseHandler: newBaseHandler(adapter, logger),
		workspaces:  workspaces,
		drift:       drift,
	}
}

// @Summary Task counters and recent tasks
// @Tags dashboard
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) GetDashboard(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, ok := h.openWorkspace(ctx, stdCtx, h.workspaces, sessionID)
	if !ok {
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Dashboard(stdCtx))
}

// @Summary Recent reconciliation findings of the caller
// @Tags dashboard
// @Router /api/v1/drift [get]
func (h *DashboardHandler) GetDrift(ctx *fasthttp.RequestCtx) {
	userID := string(ctx.Request.Header.Peek(middleware.HeaderUserID))
	if h.sessionID(ctx) == "" {
		return
	}

	limit, err := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	if err != nil || limit <= 0 || limit > maxDriftLimit {
		limit = defaultDriftLimit
	}
	if h.drift == nil {
		h.respondList(ctx, []journal.Entry{}, 0, limit)
		return
	}

	entries, err := h.drift.Recent(userID, limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, entries, len(entries), limit)
}
