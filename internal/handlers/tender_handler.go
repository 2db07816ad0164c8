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

// TenderHandler - структура для обработки HTTP-запросов к тендерам.
type TenderHandler struct {
	Service *services.TenderService
	Logger  zerolog.Logger
	Timeout time.Duration
}

// NewTenderHandler создаёт новый экземпляр TenderHandler.
func NewTenderHandler(service *services.TenderService, logger zerolog.Logger, timeout time.Duration) *TenderHandler {
	return &TenderHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetTenders обрабатывает запросы для получения списка тендеров.
func (h *TenderHandler) GetTenders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	startsAfter, err := queryTime(r, "start_date")
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	endsBefore, err := queryTime(r, "end_date")
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}

	tenders, err := h.Service.FetchTenders(ctx, models.TenderFilter{
		Status:      queryList[models.TenderStatus](r, "status"),
		StartsAfter: startsAfter,
		EndsBefore:  endsBefore,
		Page:        page,
	})
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch tenders")
		return
	}
	utils.SendJSON(w, http.StatusOK, tenders)
}

// CreateTender обрабатывает запросы для создания тендера.
func (h *TenderHandler) CreateTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.TenderRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	tender, err := h.Service.CreateTender(ctx, actor, req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to create tender")
		return
	}
	utils.SendJSON(w, http.StatusCreated, tender)
}

// GetTender возвращает тендер с количеством предложений.
func (h *TenderHandler) GetTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tender, err := h.Service.GetTender(ctx, r.PathValue("tenderId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get tender")
		return
	}
	utils.SendJSON(w, http.StatusOK, tender)
}

// EditTender обрабатывает запросы для редактирования тендера.
func (h *TenderHandler) EditTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.TenderRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	tender, err := h.Service.EditTender(ctx, actor, r.PathValue("tenderId"), req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to edit tender")
		return
	}
	utils.SendJSON(w, http.StatusOK, tender)
}

// DeleteTender удаляет тендер без предложений.
func (h *TenderHandler) DeleteTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	if err := h.Service.DeleteTender(ctx, actor, r.PathValue("tenderId")); err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to delete tender")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishTender публикует тендер.
func (h *TenderHandler) PublishTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.PublishTender)
}

// OpenBidding открывает прием предложений.
func (h *TenderHandler) OpenBidding(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.OpenBidding)
}

// CloseTender закрывает прием предложений.
func (h *TenderHandler) CloseTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.CloseTender)
}

// AwardTender завершает тендер выбором победителя.
func (h *TenderHandler) AwardTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.AwardTender)
}

// CancelTender отменяет тендер.
func (h *TenderHandler) CancelTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.CancelTender)
}

type tenderTransition func(ctx context.Context, actor models.Actor, tenderID string) (*models.Tender, error)

func (h *TenderHandler) changeStatus(w http.ResponseWriter, r *http.Request, transition tenderTransition) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	tender, err := transition(ctx, actor, r.PathValue("tenderId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to update tender status")
		return
	}
	utils.SendJSON(w, http.StatusOK, tender)
}
