package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/pkg/httpcontext"
)

type CategoryHandler struct {
	baseHandler
	workspaces Workspaces
}

func NewCategoryHandler(workspaces Workspaces, adapter *httpcontext.Adapter, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		baseHandler: newBaseHandler(adapter, logger),
		workspaces:  workspaces,
	}
}

// @Summary List categories
// @Tags categories
// @Router /api/v1/categories [get]
func (h *CategoryHandler) GetCategories(ctx *fasthttp.RequestCtx) {
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
	if transport.ParseBool(string(ctx.QueryArgs().Peek("refresh"))) {
		ws.Categories.Fetch(stdCtx)
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Categories.State())
}

// @Summary Create category
// @Tags categories
// @Router /api/v1/categories [post]
func (h *CategoryHandler) CreateCategory(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	var req transport.CategoryRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.invalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, ok := h.openWorkspace(ctx, stdCtx, h.workspaces, sessionID)
	if !ok {
		return
	}

	created, err := ws.Categories.Create(stdCtx, req.Name)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Delete category
// @Tags categories
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	id := pathID(ctx)
	if id == "" {
		h.invalid(ctx, "missing category id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, ok := h.openWorkspace(ctx, stdCtx, h.workspaces, sessionID)
	if !ok {
		return
	}

	if err := ws.Categories.Delete(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Categories.State())
}
