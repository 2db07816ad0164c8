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

// VendorHandler - обработчики запросов к поставщикам.
type VendorHandler struct {
	Service *services.VendorService
	Logger  zerolog.Logger
	Timeout time.Duration
}

// NewVendorHandler создаёт новый экземпляр VendorHandler.
func NewVendorHandler(service *services.VendorService, logger zerolog.Logger, timeout time.Duration) *VendorHandler {
	return &VendorHandler{Service: service, Logger: logger, Timeout: timeout}
}

// GetVendors возвращает список поставщиков с фильтрами status и company_name.
func (h *VendorHandler) GetVendors(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	vendors, err := h.Service.ListVendors(ctx, models.VendorFilter{
		Status:      queryList[models.VendorStatus](r, "status"),
		CompanyName: r.URL.Query().Get("company_name"),
		Page:        page,
	})
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch vendors")
		return
	}
	utils.SendJSON(w, http.StatusOK, vendors)
}

// CreateVendor регистрирует поставщика.
func (h *VendorHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.VendorRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	vendor, err := h.Service.CreateVendor(ctx, actor, req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to create vendor")
		return
	}
	utils.SendJSON(w, http.StatusCreated, vendor)
}

// GetVendor возвращает поставщика по ID.
func (h *VendorHandler) GetVendor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	vendor, err := h.Service.GetVendor(ctx, r.PathValue("vendorId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get vendor")
		return
	}
	utils.SendJSON(w, http.StatusOK, vendor)
}

// EditVendor изменяет данные поставщика.
func (h *VendorHandler) EditVendor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	var req models.VendorRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendServiceError(w, h.Logger, err, "invalid request body")
		return
	}
	vendor, err := h.Service.UpdateVendor(ctx, actor, r.PathValue("vendorId"), req)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to edit vendor")
		return
	}
	utils.SendJSON(w, http.StatusOK, vendor)
}

// DeleteVendor удаляет поставщика без предложений.
func (h *VendorHandler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, err := requestActor(r)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "")
		return
	}
	if err := h.Service.DeleteVendor(ctx, actor, r.PathValue("vendorId")); err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to delete vendor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPerformance возвращает статистику предложений поставщика.
func (h *VendorHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	perf, err := h.Service.Performance(ctx, r.PathValue("vendorId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get vendor performance")
		return
	}
	utils.SendJSON(w, http.StatusOK, perf)
}
