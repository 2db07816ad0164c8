package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/rs/zerolog"
)

// WorkflowHandler - обработчики маршрутов согласования.
type WorkflowHandler struct {
	Service *services.WorkflowService
	Logger  zerolog.Logger
	Timeout time.Duration
}

// NewWorkflowHandler создаёт новый экземпляр WorkflowHandler.
func NewWorkflowHandler(service *services.WorkflowService, logger zerolog.Logger, timeout time.Duration) *WorkflowHandler {
	return &WorkflowHandler{Service: service, Logger: logger, Timeout: timeout}
}

// GetWorkflow возвращает маршрут с этапами.
func (h *WorkflowHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	details, err := h.Service.GetWorkflow(ctx, r.PathValue("workflowId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get workflow")
		return
	}
	utils.SendJSON(w, http.StatusOK, details)
}

// GetEntityWorkflows возвращает все маршруты контракта или тендера.
func (h *WorkflowHandler) GetEntityWorkflows(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	entityType := models.EntityType(r.PathValue("entityType"))
	workflows, err := h.Service.GetEntityWorkflows(ctx, entityType, r.PathValue("entityId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get workflows")
		return
	}
	utils.SendJSON(w, http.StatusOK, workflows)
}

// GetMyPending возвращает этапы, ожидающие решения текущего пользователя.
func (h *WorkflowHandler) GetMyPending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	page, err := utils.ParsePage(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	pending, err := h.Service.ListPending(ctx, actor, page)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch pending approvals")
		return
	}
	utils.SendJSON(w, http.StatusOK, pending)
}

// Decide принимает решение согласующего по этапу.
func (h *WorkflowHandler) Decide(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	stage, err := pathInt(r, "stage")
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.DecisionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	details, err := h.Service.Decide(ctx, actor, r.PathValue("workflowId"), stage, req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to record decision")
		return
	}
	utils.SendJSON(w, http.StatusOK, details)
}

// Reassign меняет согласующего ожидающего этапа.
func (h *WorkflowHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	stage, err := pathInt(r, "stage")
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.ReassignRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	details, err := h.Service.Reassign(ctx, actor, r.PathValue("workflowId"), stage, req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to reassign stage")
		return
	}
	utils.SendJSON(w, http.StatusOK, details)
}

// Cancel отменяет ожидающий маршрут.
func (h *WorkflowHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	details, err := h.Service.Cancel(ctx, actor, r.PathValue("workflowId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to cancel workflow")
		return
	}
	utils.SendJSON(w, http.StatusOK, details)
}
