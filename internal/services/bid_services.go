package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notify"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BidService struct {
	Repo         repository.BidRepository
	tenders      repository.TenderRepository
	vendors      repository.VendorRepository
	notifier     notify.Notifier
	log          zerolog.Logger
	now          func() time.Time
	lockTerminal bool
}

// NewBidService создаёт новый экземпляр BidService.
// При lockTerminal рассмотренное окончательно (rejected, awarded) предложение больше не пересматривается.
func NewBidService(repo repository.BidRepository, tenders repository.TenderRepository, vendors repository.VendorRepository,
	notifier notify.Notifier, log zerolog.Logger, lockTerminal bool) *BidService {
	return &BidService{
		Repo:         repo,
		tenders:      tenders,
		vendors:      vendors,
		notifier:     notifier,
		log:          log,
		now:          time.Now,
		lockTerminal: lockTerminal,
	}
}

// CreateBid создает предложение поставщика по тендеру.
func (s *BidService) CreateBid(ctx context.Context, actor models.Actor, req models.BidRequest) (*models.Bid, error) {
	if req.TenderID == "" || req.VendorID == "" {
		return nil, models.ValidationFailed("tenderId and vendorId are required")
	}
	if err := validateBidFields(req); err != nil {
		return nil, err
	}

	tender, err := s.tenders.GetTender(ctx, req.TenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != models.BiddingTender {
		return nil, models.InvalidTransition("tender %s is %s, bids are accepted only while %s",
			tender.ID, tender.Status, models.BiddingTender)
	}

	vendor, err := s.vendors.GetVendor(ctx, req.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.CreatedBy != actor.ID && !actor.IsAdmin() {
		return nil, models.Unauthorized("you do not represent vendor %s", vendor.ID)
	}
	if vendor.Status != models.ActiveVendor {
		return nil, models.Conflict("vendor %s is %s, only active vendors can bid", vendor.ID, vendor.Status)
	}

	existing, err := s.Repo.ListBids(ctx, models.BidFilter{
		TenderID: req.TenderID,
		VendorID: req.VendorID,
		Page:     models.Page{Limit: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("check existing bids: %w", err)
	}
	if existing.Total > 0 {
		return nil, models.Conflict("vendor %s has already submitted a bid for tender %s", req.VendorID, req.TenderID)
	}

	now := s.now().UTC()
	bid := &models.Bid{
		ID:           uuid.NewString(),
		TenderID:     req.TenderID,
		VendorID:     req.VendorID,
		Proposal:     strings.TrimSpace(optional(req.Proposal, "")),
		BidAmount:    req.BidAmount,
		ValidityDays: req.ValidityDays,
		Status:       models.SubmittedBid,
		SubmittedAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if bid.Proposal == "" {
		return nil, models.ValidationFailed("proposal is required")
	}
	if err := s.Repo.CreateBid(ctx, bid); err != nil {
		return nil, err
	}

	s.log.Info().Str("bid_id", bid.ID).Str("tender_id", bid.TenderID).Str("vendor_id", bid.VendorID).Msg("bid created")
	s.notifier.Notify(ctx, notify.BidReceived, map[string]interface{}{
		"bidId":       bid.ID,
		"tenderId":    tender.ID,
		"tenderTitle": tender.Title,
		"vendorId":    vendor.ID,
		"companyName": vendor.CompanyName,
		"submittedAt": bid.SubmittedAt,
	})
	return bid, nil
}

// GetBid возвращает предложение по ID.
func (s *BidService) GetBid(ctx context.Context, bidID string) (*models.Bid, error) {
	return s.Repo.GetBid(ctx, bidID)
}

// FetchBids возвращает страницу предложений.
func (s *BidService) FetchBids(ctx context.Context, filter models.BidFilter) (*models.ListResult[models.Bid], error) {
	for _, status := range filter.Status {
		if status != models.SubmittedBid && !utils.Contains(models.BidReviewStatuses, status) {
			return nil, models.ValidationFailed("unsupported bid status: %s", status)
		}
	}
	return s.Repo.ListBids(ctx, filter)
}

// EditBid изменяет поданное, но еще не рассмотренное предложение.
func (s *BidService) EditBid(ctx context.Context, actor models.Actor, bidID string, req models.BidRequest) (*models.Bid, error) {
	if err := validateBidFields(req); err != nil {
		return nil, err
	}
	bid, err := s.ownedBid(ctx, actor, bidID, true)
	if err != nil {
		return nil, err
	}
	if bid.Status != models.SubmittedBid {
		return nil, models.InvalidTransition("bid %s is %s and can no longer be edited", bidID, bid.Status)
	}

	if req.Proposal != nil {
		bid.Proposal = strings.TrimSpace(*req.Proposal)
		if bid.Proposal == "" {
			return nil, models.ValidationFailed("proposal must not be empty")
		}
	}
	if req.BidAmount != nil {
		bid.BidAmount = req.BidAmount
	}
	if req.ValidityDays != nil {
		bid.ValidityDays = req.ValidityDays
	}
	bid.UpdatedAt = s.now().UTC()

	if err := s.save(ctx, bid, models.SubmittedBid); err != nil {
		return nil, err
	}
	return bid, nil
}

// SubmitBid повторно подает предложение. Доступно только поставщику,
// пока тендер принимает предложения и срок не истек.
func (s *BidService) SubmitBid(ctx context.Context, actor models.Actor, bidID string) (*models.Bid, error) {
	bid, err := s.ownedBid(ctx, actor, bidID, false)
	if err != nil {
		return nil, err
	}

	tender, err := s.tenders.GetTender(ctx, bid.TenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != models.BiddingTender {
		return nil, models.InvalidTransition("bidding is not open for tender %s", tender.ID)
	}
	now := s.now().UTC()
	if tender.EndDate != nil && now.After(*tender.EndDate) {
		return nil, models.Conflict("bid submission deadline for tender %s has passed", tender.ID)
	}
	if bid.Status != models.SubmittedBid {
		return nil, models.InvalidTransition("bid %s is already %s", bidID, bid.Status)
	}

	bid.SubmittedAt = &now
	bid.UpdatedAt = now
	if err := s.save(ctx, bid, models.SubmittedBid); err != nil {
		return nil, err
	}
	return bid, nil
}

// ReviewBid выставляет предложению статус по итогам рассмотрения.
func (s *BidService) ReviewBid(ctx context.Context, actor models.Actor, bidID string, review models.BidReview) (*models.Bid, error) {
	if err := requireStaff(actor, "review bids"); err != nil {
		return nil, err
	}
	if !utils.Contains(models.BidReviewStatuses, review.Status) {
		return nil, models.ValidationFailed("unsupported review status: %q", review.Status)
	}

	bid, err := s.Repo.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	from := bid.Status
	if s.lockTerminal && from.Terminal() {
		return nil, models.InvalidTransition("bid %s is already %s", bidID, from)
	}

	now := s.now().UTC()
	bid.Status = review.Status
	bid.ReviewComments = review.Comments
	bid.ReviewedAt = &now
	bid.UpdatedAt = now
	if err := s.save(ctx, bid, from); err != nil {
		return nil, err
	}

	recordTransition("bid", from, review.Status)
	s.log.Info().
		Str("bid_id", bidID).
		Str("from", string(from)).
		Str("status", string(review.Status)).
		Str("reviewer_id", actor.ID).
		Msg("bid reviewed")
	return bid, nil
}

// DeleteBid удаляет поданное предложение. Доступно владельцу и администратору.
func (s *BidService) DeleteBid(ctx context.Context, actor models.Actor, bidID string) error {
	bid, err := s.ownedBid(ctx, actor, bidID, true)
	if err != nil {
		return err
	}
	if bid.Status != models.SubmittedBid {
		return models.InvalidTransition("bid %s is %s and can no longer be deleted", bidID, bid.Status)
	}
	if err := s.Repo.DeleteBid(ctx, bidID, models.SubmittedBid); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return models.InvalidTransition("bid %s is no longer %s", bidID, models.SubmittedBid)
		}
		return fmt.Errorf("delete bid %s: %w", bidID, err)
	}
	s.log.Info().Str("bid_id", bidID).Msg("bid deleted")
	return nil
}

// ownedBid загружает предложение и проверяет, что пользователь представляет поставщика.
func (s *BidService) ownedBid(ctx context.Context, actor models.Actor, bidID string, allowAdmin bool) (*models.Bid, error) {
	bid, err := s.Repo.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if allowAdmin && actor.IsAdmin() {
		return bid, nil
	}
	vendor, err := s.vendors.GetVendor(ctx, bid.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.CreatedBy != actor.ID {
		return nil, models.Unauthorized("you are not the owner of bid %s", bidID)
	}
	return bid, nil
}

func (s *BidService) save(ctx context.Context, bid *models.Bid, expect models.BidStatus) error {
	if err := s.Repo.UpdateBid(ctx, bid, expect); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return models.InvalidTransition("bid %s is no longer %s", bid.ID, expect)
		}
		return fmt.Errorf("update bid %s: %w", bid.ID, err)
	}
	return nil
}

func validateBidFields(req models.BidRequest) error {
	if req.BidAmount != nil && *req.BidAmount < 0 {
		return models.ValidationFailed("bidAmount must not be negative")
	}
	if req.ValidityDays != nil && *req.ValidityDays <= 0 {
		return models.ValidationFailed("validityDays must be positive")
	}
	return nil
}
