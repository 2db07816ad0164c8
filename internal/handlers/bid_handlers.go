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

// BidHandler - структура для обработки HTTP-запросов к предложениям.
type BidHandler struct {
	Service *services.BidService
	Logger  zerolog.Logger
	Timeout time.Duration
}

// NewBidHandler создаёт новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger zerolog.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetBids обрабатывает запросы на получение списка предложений.
func (h *BidHandler) GetBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	query := r.URL.Query()
	bids, err := h.Service.FetchBids(ctx, models.BidFilter{
		Status:   queryList[models.BidStatus](r, "status"),
		TenderID: query.Get("tender_id"),
		VendorID: query.Get("vendor_id"),
		Page:     page,
	})
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch bids")
		return
	}
	utils.SendJSON(w, http.StatusOK, bids)
}

// CreateBid обрабатывает запросы на создание предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.BidRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	bid, err := h.Service.CreateBid(ctx, actor, req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to create bid")
		return
	}
	utils.SendJSON(w, http.StatusCreated, bid)
}

// GetBid возвращает предложение по ID.
func (h *BidHandler) GetBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.GetBid(ctx, r.PathValue("bidId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// EditBid обрабатывает запросы на редактирование предложения.
func (h *BidHandler) EditBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.BidRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	bid, err := h.Service.EditBid(ctx, actor, r.PathValue("bidId"), req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to edit bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// SubmitBid повторно подает предложение до окончания тендера.
func (h *BidHandler) SubmitBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	bid, err := h.Service.SubmitBid(ctx, actor, r.PathValue("bidId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to submit bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// ReviewBid обрабатывает решение по предложению.
func (h *BidHandler) ReviewBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var review models.BidReview
	if err := utils.DecodeJSON(r, &review); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	bid, err := h.Service.ReviewBid(ctx, actor, r.PathValue("bidId"), review)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to review bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// DeleteBid удаляет еще не рассмотренное предложение.
func (h *BidHandler) DeleteBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	if err := h.Service.DeleteBid(ctx, actor, r.PathValue("bidId")); err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to delete bid")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
