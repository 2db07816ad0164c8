package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// VendorService - управление поставщиками.
type VendorService struct {
	Repo repository.VendorRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewVendorService создаёт новый экземпляр VendorService.
func NewVendorService(repo repository.VendorRepository, log zerolog.Logger) *VendorService {
	return &VendorService{Repo: repo, log: log, now: time.Now}
}

// CreateVendor регистрирует поставщика. Создавший пользователь становится его представителем.
func (s *VendorService) CreateVendor(ctx context.Context, actor models.Actor, req models.VendorRequest) (*models.Vendor, error) {
	now := s.now().UTC()
	vendor := &models.Vendor{
		ID:        uuid.NewString(),
		Status:    models.ActiveVendor,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyVendorFields(vendor, req)
	if err := validateVendor(vendor); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateVendor(ctx, vendor); err != nil {
		return nil, err
	}
	s.log.Info().Str("vendor_id", vendor.ID).Str("company_name", vendor.CompanyName).Msg("vendor created")
	return vendor, nil
}

// GetVendor возвращает поставщика по ID.
func (s *VendorService) GetVendor(ctx context.Context, vendorID string) (*models.Vendor, error) {
	return s.Repo.GetVendor(ctx, vendorID)
}

// ListVendors возвращает страницу поставщиков.
func (s *VendorService) ListVendors(ctx context.Context, filter models.VendorFilter) (*models.ListResult[models.Vendor], error) {
	for _, status := range filter.Status {
		if !status.Valid() {
			return nil, models.ValidationFailed("unsupported vendor status: %s", status)
		}
	}
	return s.Repo.ListVendors(ctx, filter)
}

// UpdateVendor изменяет данные поставщика. Статус меняют только сотрудники.
func (s *VendorService) UpdateVendor(ctx context.Context, actor models.Actor, vendorID string, req models.VendorRequest) (*models.Vendor, error) {
	vendor, err := s.Repo.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.CreatedBy != actor.ID && !actor.IsStaff() {
		return nil, models.Unauthorized("you are not allowed to edit vendor %s", vendorID)
	}
	if req.Status != nil && *req.Status != vendor.Status && !actor.IsStaff() {
		return nil, models.Unauthorized("only administrators and managers can change vendor status")
	}

	applyVendorFields(vendor, req)
	if err := validateVendor(vendor); err != nil {
		return nil, err
	}
	vendor.UpdatedAt = s.now().UTC()
	if err := s.Repo.UpdateVendor(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

// DeleteVendor удаляет поставщика, если у него нет предложений.
func (s *VendorService) DeleteVendor(ctx context.Context, actor models.Actor, vendorID string) error {
	if err := requireStaff(actor, "delete vendors"); err != nil {
		return err
	}
	if _, err := s.Repo.GetVendor(ctx, vendorID); err != nil {
		return err
	}
	if err := checkDependents(ctx, s.Repo, "vendor", vendorID); err != nil {
		return err
	}
	if err := s.Repo.DeleteVendor(ctx, vendorID); err != nil {
		return err
	}
	s.log.Info().Str("vendor_id", vendorID).Msg("vendor deleted")
	return nil
}

// Performance возвращает статистику предложений поставщика.
func (s *VendorService) Performance(ctx context.Context, vendorID string) (*models.VendorPerformance, error) {
	if _, err := s.Repo.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	counts, err := s.Repo.BidStatusCounts(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("count bids of vendor %s: %w", vendorID, err)
	}

	perf := &models.VendorPerformance{VendorID: vendorID, ByStatus: counts}
	for _, n := range counts {
		perf.TotalBids += n
	}
	if perf.TotalBids > 0 {
		perf.AwardRate = float64(counts[models.AwardedBid]) / float64(perf.TotalBids)
	}
	return perf, nil
}

func applyVendorFields(vendor *models.Vendor, req models.VendorRequest) {
	vendor.CompanyName = strings.TrimSpace(optional(req.CompanyName, vendor.CompanyName))
	vendor.ContactPerson = optional(req.ContactPerson, vendor.ContactPerson)
	vendor.Email = strings.ToLower(strings.TrimSpace(optional(req.Email, vendor.Email)))
	vendor.Phone = optional(req.Phone, vendor.Phone)
	vendor.Address = optional(req.Address, vendor.Address)
	vendor.TaxID = optional(req.TaxID, vendor.TaxID)
	vendor.Status = optional(req.Status, vendor.Status)
	if req.Rating != nil {
		vendor.Rating = req.Rating
	}
}

func validateVendor(vendor *models.Vendor) error {
	if vendor.CompanyName == "" {
		return models.ValidationFailed("companyName is required")
	}
	if _, err := mail.ParseAddress(vendor.Email); err != nil {
		return models.ValidationFailed("invalid email: %q", vendor.Email)
	}
	if !vendor.Status.Valid() {
		return models.ValidationFailed("unsupported vendor status: %q", vendor.Status)
	}
	if vendor.Rating != nil && (*vendor.Rating < 0 || *vendor.Rating > 5) {
		return models.ValidationFailed("rating must be between 0 and 5")
	}
	return nil
}
