package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/rs/zerolog"
)

// ContractHandler - обработчики запросов к контрактам.
type ContractHandler struct {
	Service *services.ContractService
	Logger  zerolog.Logger
	Timeout time.Duration
	// ExpiryWindow используется, если в запросе не передан days.
	ExpiryWindow time.Duration
}

// NewContractHandler создаёт новый экземпляр ContractHandler.
func NewContractHandler(service *services.ContractService, logger zerolog.Logger, timeout, expiryWindow time.Duration) *ContractHandler {
	return &ContractHandler{Service: service, Logger: logger, Timeout: timeout, ExpiryWindow: expiryWindow}
}

// GetContracts возвращает список контрактов с фильтрами status, type и ends_before.
func (h *ContractHandler) GetContracts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	endsBefore, err := queryTime(r, "ends_before")
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	contracts, err := h.Service.ListContracts(ctx, models.ContractFilter{
		Status:     queryList[models.ContractStatus](r, "status"),
		Type:       queryList[models.ContractType](r, "type"),
		EndsBefore: endsBefore,
		Page:       page,
	})
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch contracts")
		return
	}
	utils.SendJSON(w, http.StatusOK, contracts)
}

// CreateContract создает контракт и при необходимости маршрут согласования.
func (h *ContractHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.ContractRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	contract, err := h.Service.CreateContract(ctx, actor, req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to create contract")
		return
	}
	utils.SendJSON(w, http.StatusCreated, contract)
}

// GetContract возвращает контракт по ID.
func (h *ContractHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	contract, err := h.Service.GetContract(ctx, r.PathValue("contractId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get contract")
		return
	}
	utils.SendJSON(w, http.StatusOK, contract)
}

// EditContract изменяет контракт или его статус.
func (h *ContractHandler) EditContract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.ContractRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	contract, err := h.Service.UpdateContract(ctx, actor, r.PathValue("contractId"), req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to edit contract")
		return
	}
	utils.SendJSON(w, http.StatusOK, contract)
}

// SubmitContract отправляет контракт на согласование.
func (h *ContractHandler) SubmitContract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	contract, err := h.Service.SubmitForApproval(ctx, actor, r.PathValue("contractId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to submit contract")
		return
	}
	utils.SendJSON(w, http.StatusOK, contract)
}

// DeleteContract удаляет контракт.
func (h *ContractHandler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	if err := h.Service.DeleteContract(ctx, actor, r.PathValue("contractId")); err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to delete contract")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats возвращает сводную статистику по контрактам.
func (h *ContractHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	stats, err := h.Service.Stats(ctx)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get contract stats")
		return
	}
	utils.SendJSON(w, http.StatusOK, stats)
}

// GetHistory возвращает контракт вместе со всеми маршрутами согласования.
func (h *ContractHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	history, err := h.Service.History(ctx, r.PathValue("contractId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get contract history")
		return
	}
	utils.SendJSON(w, http.StatusOK, history)
}

// NotifyExpiring рассылает уведомления по контрактам, истекающим в ближайшие days дней.
func (h *ContractHandler) NotifyExpiring(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	window := h.ExpiryWindow
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			utils.SendErrorResponse(w, http.StatusBadRequest, "invalid days parameter, must be a positive integer")
			return
		}
		window = time.Duration(days) * 24 * time.Hour
	}

	contracts, err := h.Service.NotifyExpiring(ctx, actor, window)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to notify expiring contracts")
		return
	}
	utils.SendJSON(w, http.StatusOK, contracts)
}
