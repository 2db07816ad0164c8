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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type TenderService struct {
	Repo     repository.TenderRepository
	notifier notify.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewTenderService создаёт новый экземпляр TenderService.
func NewTenderService(repo repository.TenderRepository, notifier notify.Notifier, log zerolog.Logger) *TenderService {
	return &TenderService{Repo: repo, notifier: notifier, log: log, now: time.Now}
}

// CreateTender создает новый тендер в статусе draft.
func (s *TenderService) CreateTender(ctx context.Context, actor models.Actor, req models.TenderRequest) (*models.Tender, error) {
	if err := requireStaff(actor, "create tenders"); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tender := &models.Tender{
		ID:           uuid.NewString(),
		TenderNumber: strings.TrimSpace(optional(req.TenderNumber, "")),
		Status:       models.DraftTender,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if tender.TenderNumber == "" {
		tender.TenderNumber = fmt.Sprintf("TND-%d", now.UnixMilli())
	}
	applyTenderFields(tender, req)
	if err := validateTender(tender); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateTender(ctx, tender); err != nil {
		return nil, err
	}
	s.log.Info().Str("tender_id", tender.ID).Str("tender_number", tender.TenderNumber).Msg("tender created")
	return tender, nil
}

// GetTender возвращает тендер вместе с количеством предложений.
func (s *TenderService) GetTender(ctx context.Context, tenderID string) (*models.TenderDetails, error) {
	tender, err := s.Repo.GetTender(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	count, err := s.Repo.CountDependents(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("count bids of tender %s: %w", tenderID, err)
	}
	return &models.TenderDetails{Tender: tender, BidCount: count}, nil
}

// FetchTenders получает список тендеров.
func (s *TenderService) FetchTenders(ctx context.Context, filter models.TenderFilter) (*models.ListResult[models.Tender], error) {
	for _, status := range filter.Status {
		if _, ok := models.TenderTransitions[status]; !ok {
			return nil, models.ValidationFailed("unsupported tender status: %s", status)
		}
	}
	return s.Repo.ListTenders(ctx, filter)
}

// EditTender изменяет поля тендера. После выхода из draft даты начала и окончания
// менять нельзя, а завершенный тендер не редактируется вовсе.
func (s *TenderService) EditTender(ctx context.Context, actor models.Actor, tenderID string, req models.TenderRequest) (*models.Tender, error) {
	if err := requireStaff(actor, "edit tenders"); err != nil {
		return nil, err
	}
	tender, err := s.Repo.GetTender(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if len(models.TenderTransitions[tender.Status]) == 0 {
		return nil, models.InvalidTransition("tender %s is %s and cannot be edited", tenderID, tender.Status)
	}
	if tender.Status != models.DraftTender {
		if req.StartDate != nil && !sameTime(req.StartDate, tender.StartDate) ||
			req.EndDate != nil && !sameTime(req.EndDate, tender.EndDate) {
			return nil, models.InvalidTransition("tender %s dates are fixed once it leaves %s", tenderID, models.DraftTender)
		}
	}

	applyTenderFields(tender, req)
	if req.TenderNumber != nil {
		tender.TenderNumber = strings.TrimSpace(*req.TenderNumber)
	}
	if err := validateTender(tender); err != nil {
		return nil, err
	}
	tender.UpdatedAt = s.now().UTC()
	if err := s.Repo.UpdateTender(ctx, tender, tender.Status); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, models.InvalidTransition("tender %s is no longer %s", tenderID, tender.Status)
		}
		return nil, err
	}
	return tender, nil
}

// DeleteTender удаляет тендер, если по нему нет предложений.
func (s *TenderService) DeleteTender(ctx context.Context, actor models.Actor, tenderID string) error {
	if err := requireStaff(actor, "delete tenders"); err != nil {
		return err
	}
	if _, err := s.Repo.GetTender(ctx, tenderID); err != nil {
		return err
	}
	if err := checkDependents(ctx, s.Repo, "tender", tenderID); err != nil {
		return err
	}
	if err := s.Repo.DeleteTender(ctx, tenderID); err != nil {
		return err
	}
	s.log.Info().Str("tender_id", tenderID).Msg("tender deleted")
	return nil
}

// PublishTender публикует черновик тендера.
func (s *TenderService) PublishTender(ctx context.Context, actor models.Actor, tenderID string) (*models.Tender, error) {
	tender, err := s.UpdateTenderStatus(ctx, actor, tenderID, models.PublishedTender)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, notify.TenderPublished, map[string]interface{}{
		"tenderId":     tender.ID,
		"tenderNumber": tender.TenderNumber,
		"title":        tender.Title,
		"endDate":      tender.EndDate,
	})
	return tender, nil
}

// OpenBidding начинает прием предложений по опубликованному тендеру.
func (s *TenderService) OpenBidding(ctx context.Context, actor models.Actor, tenderID string) (*models.Tender, error) {
	return s.UpdateTenderStatus(ctx, actor, tenderID, models.BiddingTender)
}

// CloseTender завершает прием предложений.
func (s *TenderService) CloseTender(ctx context.Context, actor models.Actor, tenderID string) (*models.Tender, error) {
	return s.UpdateTenderStatus(ctx, actor, tenderID, models.ClosedTender)
}

// AwardTender фиксирует выбор победителя по закрытому тендеру.
func (s *TenderService) AwardTender(ctx context.Context, actor models.Actor, tenderID string) (*models.Tender, error) {
	return s.UpdateTenderStatus(ctx, actor, tenderID, models.AwardedTender)
}

// CancelTender отменяет незавершенный тендер.
func (s *TenderService) CancelTender(ctx context.Context, actor models.Actor, tenderID string) (*models.Tender, error) {
	return s.UpdateTenderStatus(ctx, actor, tenderID, models.CancelledTender)
}

// UpdateTenderStatus меняет статус тендера.
func (s *TenderService) UpdateTenderStatus(ctx context.Context, actor models.Actor, tenderID string, to models.TenderStatus) (*models.Tender, error) {
	if err := requireStaff(actor, "change tender status"); err != nil {
		return nil, err
	}
	tender, err := s.Repo.GetTender(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	from := tender.Status
	if err := checkTransition(models.TenderTransitions, "tender", from, to); err != nil {
		return nil, err
	}

	if err := s.Repo.UpdateTenderStatus(ctx, tenderID, from, to); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, models.InvalidTransition("tender %s is no longer %s", tenderID, from)
		}
		return nil, fmt.Errorf("update status of tender %s: %w", tenderID, err)
	}
	recordTransition("tender", from, to)
	s.log.Info().
		Str("tender_id", tenderID).
		Str("from", string(from)).
		Str("status", string(to)).
		Msg("tender status changed")

	tender.Status = to
	tender.UpdatedAt = s.now().UTC()
	return tender, nil
}

func applyTenderFields(tender *models.Tender, req models.TenderRequest) {
	tender.Title = strings.TrimSpace(optional(req.Title, tender.Title))
	tender.Description = optional(req.Description, tender.Description)
	if req.Budget != nil {
		tender.Budget = req.Budget
	}
	if req.StartDate != nil {
		tender.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		tender.EndDate = req.EndDate
	}
	if req.BidOpeningDate != nil {
		tender.BidOpeningDate = req.BidOpeningDate
	}
}

func validateTender(tender *models.Tender) error {
	if tender.TenderNumber == "" {
		return models.ValidationFailed("tender number must not be empty")
	}
	if tender.Title == "" {
		return models.ValidationFailed("title is required")
	}
	if tender.Budget != nil && *tender.Budget < 0 {
		return models.ValidationFailed("budget must not be negative")
	}
	if tender.StartDate != nil && tender.EndDate != nil && tender.EndDate.Before(*tender.StartDate) {
		return models.ValidationFailed("end date must not be before start date")
	}
	return nil
}
