package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	"github.com/fastygo/taskboard/usecase/workspace"
)

// Reconciler runs an on-demand reconciliation and journals its findings.
type Reconciler interface {
	Reconcile(ctx context.Context, ws *workspace.Workspace) (workspace.Report, error)
}

type TaskHandler struct {
	baseHandler
	workspaces Workspaces
	reconciler Reconciler
}

func NewTaskHandler(workspaces Workspaces, reconciler Reconciler, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		workspaces:  workspaces,
		reconciler:  reconciler,
	}
}

// @Summary List tasks under a filter
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	args := ctx.QueryArgs()
	filter, err := transport.ParseFilter(
		string(args.Peek("status")),
		string(args.Peek("category_id")),
		string(args.Peek("search")),
		string(args.Peek("overdue")),
	)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, ok := h.openWorkspace(ctx, stdCtx, h.workspaces, sessionID)
	if !ok {
		return
	}

	changed, err := ws.Tasks.SetFilter(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if !changed && transport.ParseBool(string(args.Peek("refresh"))) {
		ws.Tasks.Refresh(stdCtx)
	}
	state := ws.Tasks.State()
	h.respondList(ctx, state, len(state.Tasks), 0)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	var req transport.TaskCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.invalid(ctx, "invalid payload")
		return
	}
	input, tags, err := req.Input()
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, ok := h.openWorkspace(ctx, stdCtx, h.workspaces, sessionID)
	if !ok {
		return
	}

	created, err := ws.Tasks.Create(stdCtx, input, tags)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update task fields and optionally replace its tags
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	patch, tags, err := transport.ParseTaskPatch(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, ok := h.openWorkspace(ctx, stdCtx, h.workspaces, sessionID)
	if !ok {
		return
	}

	if err := ws.Tasks.Update(stdCtx, pathID(ctx), patch, tags); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Tasks.State())
}

// @Summary Change only the status of a task
// @Tags tasks
// @Router /api/v1/tasks/{id}/status [patch]
func (h *TaskHandler) UpdateStatus(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	var req transport.StatusRequest
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

	if err := ws.Tasks.UpdateStatus(stdCtx, pathID(ctx), domain.Status(req.Status)); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Tasks.State())
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	sessionID := h.sessionID(ctx)
	if sessionID == "" {
		return
	}

	id := pathID(ctx)
	if id == "" {
		h.invalid(ctx, "missing task id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, ok := h.openWorkspace(ctx, stdCtx, h.workspaces, sessionID)
	if !ok {
		return
	}

	if err := ws.Tasks.Delete(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Tasks.State())
}

// @Summary Re-read the task lists and report drift
// @Tags tasks
// @Router /api/v1/tasks/reconcile [post]
func (h *TaskHandler) Reconcile(ctx *fasthttp.RequestCtx) {
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

	var report workspace.Report
	var err error
	if h.reconciler != nil {
		report, err = h.reconciler.Reconcile(stdCtx, ws)
	} else {
		report, err = ws.Reconcile(stdCtx)
	}
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if !report.Empty() {
		h.requestLogger(stdCtx).Info("manual reconcile found drift",
			zap.Int("missing", len(report.Tasks.Missing)+len(report.Overview.Missing)),
			zap.Int("unexpected", len(report.Tasks.Unexpected)+len(report.Overview.Unexpected)),
			zap.Int("changed", len(report.Tasks.Changed)+len(report.Overview.Changed)))
	}
	h.respondSuccess(ctx, http.StatusOK, report)
}
