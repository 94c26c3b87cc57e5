package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/httpcontext"
	taskUC "github.com/fastygo/todo/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, ownerID)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tasks)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}

	var req transport.TaskCreateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateTask(stdCtx, ownerID, req.Description)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Get task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}
	taskID, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, ownerID, taskID)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Update task
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}
	taskID, ok := h.taskID(ctx)
	if !ok {
		return
	}

	var req transport.TaskUpdateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.UpdateTask(stdCtx, ownerID, taskID, req.Patch()); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.MessageResponse{Message: "Task updated successfully"})
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	ownerID := h.ownerID(ctx)
	if ownerID == "" {
		return
	}
	taskID, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteTask(stdCtx, ownerID, taskID); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.MessageResponse{Message: "Task deleted successfully"})
}

func (h *TaskHandler) taskID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondInvalid(ctx, "missing task id")
		return "", false
	}
	return id, true
}

func (h *TaskHandler) decode(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		h.respondInvalid(ctx, domain.ErrInvalidPayload.Message)
		return false
	}
	return true
}
