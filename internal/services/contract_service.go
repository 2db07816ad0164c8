package services

import (
	"context"
	"encoding/json"
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

const expiringPageSize = 100

// ContractService - жизненный цикл контракта.
type ContractService struct {
	Repo      repository.ContractRepository
	workflows *WorkflowService
	notifier  notify.Notifier
	log       zerolog.Logger
	now       func() time.Time
}

// NewContractService создаёт новый экземпляр ContractService и подписывает его
// на завершение маршрутов согласования контрактов.
func NewContractService(repo repository.ContractRepository, workflows *WorkflowService, notifier notify.Notifier,
	log zerolog.Logger) *ContractService {
	s := &ContractService{
		Repo:      repo,
		workflows: workflows,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
	workflows.OnFinished(models.ContractEntity, s.applyWorkflowOutcome)
	return s
}

// CreateContract создает контракт в статусе draft. Для контракта дороже порога
// сразу создается маршрут согласования.
func (s *ContractService) CreateContract(ctx context.Context, actor models.Actor, req models.ContractRequest) (*models.Contract, error) {
	if actor.Role == models.RoleVendor {
		return nil, models.Unauthorized("vendors cannot create contracts")
	}
	if req.Status != nil && *req.Status != models.DraftContract {
		return nil, models.ValidationFailed("new contract must start in %s", models.DraftContract)
	}

	now := s.now().UTC()
	contract := &models.Contract{
		ID:             uuid.NewString(),
		ContractNumber: strings.TrimSpace(optional(req.ContractNumber, "")),
		Status:         models.DraftContract,
		Parties:        json.RawMessage("[]"),
		Currency:       models.DefaultCurrency,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if contract.ContractNumber == "" {
		contract.ContractNumber = fmt.Sprintf("CNTR-%d", now.UnixMilli())
	}
	applyContractFields(contract, req)
	if err := validateContract(contract); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateContract(ctx, contract); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("contract_id", contract.ID).
		Str("contract_number", contract.ContractNumber).
		Msg("contract created")
	s.notifier.Notify(ctx, notify.ContractCreated, map[string]interface{}{
		"contractId":     contract.ID,
		"contractNumber": contract.ContractNumber,
		"title":          contract.Title,
		"value":          contract.Value,
		"createdBy":      contract.CreatedBy,
	})

	if RequiresWorkflow(s.workflows.Policy(), models.ContractEntity, contract.Value) {
		if _, err := s.workflows.CreateWorkflow(ctx, models.ContractEntity, contract.ID, contract.Value, actor.Department); err != nil {
			s.log.Error().Err(err).
				Str("contract_id", contract.ID).
				Msg("failed to create approval workflow, contract stays in draft")
		}
	}
	return contract, nil
}

// GetContract возвращает контракт по ID.
func (s *ContractService) GetContract(ctx context.Context, contractID string) (*models.Contract, error) {
	return s.Repo.GetContract(ctx, contractID)
}

// ListContracts возвращает страницу контрактов.
func (s *ContractService) ListContracts(ctx context.Context, filter models.ContractFilter) (*models.ListResult[models.Contract], error) {
	for _, t := range filter.Type {
		if !t.Valid() {
			return nil, models.ValidationFailed("unsupported contract type: %s", t)
		}
	}
	for _, status := range filter.Status {
		if _, ok := models.ContractTransitions[status]; !ok {
			return nil, models.ValidationFailed("unsupported contract status: %s", status)
		}
	}
	return s.Repo.ListContracts(ctx, filter)
}

// UpdateContract изменяет поля черновика и, если передан статус, переводит контракт дальше.
func (s *ContractService) UpdateContract(ctx context.Context, actor models.Actor, contractID string,
	req models.ContractRequest) (*models.Contract, error) {
	contract, err := s.Repo.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.CreatedBy != actor.ID && !actor.IsStaff() {
		return nil, models.Unauthorized("you are not allowed to edit contract %s", contractID)
	}

	if hasContractFields(req) {
		if contract.Status != models.DraftContract {
			return nil, models.InvalidTransition("contract %s can only be edited in %s", contractID, models.DraftContract)
		}
		valueChanged := req.Value != nil && (contract.Value == nil || *contract.Value != *req.Value)
		applyContractFields(contract, req)
		if req.ContractNumber != nil {
			contract.ContractNumber = strings.TrimSpace(*req.ContractNumber)
		}
		if err := validateContract(contract); err != nil {
			return nil, err
		}
		contract.UpdatedAt = s.now().UTC()
		if err := s.Repo.UpdateContract(ctx, contract); err != nil {
			if errors.Is(err, repository.ErrStale) {
				return nil, models.InvalidTransition("contract %s is no longer %s", contractID, models.DraftContract)
			}
			return nil, err
		}
		// Этапы маршрута зависят от стоимости, поэтому старый маршрут больше не действует.
		if valueChanged {
			if err := s.workflows.CancelPending(ctx, models.ContractEntity, contractID); err != nil {
				return nil, err
			}
		}
	}

	if req.Status == nil || *req.Status == contract.Status {
		return contract, nil
	}
	if *req.Status == models.PendingApprovalContract {
		return s.SubmitForApproval(ctx, actor, contractID)
	}
	if err := s.transition(ctx, contract, *req.Status); err != nil {
		return nil, err
	}
	return s.Repo.GetContract(ctx, contractID)
}

// SubmitForApproval переводит черновик в pending_approval. Если у контракта
// есть стоимость и нет ожидающего маршрута, маршрут создается перед переводом.
func (s *ContractService) SubmitForApproval(ctx context.Context, actor models.Actor, contractID string) (*models.Contract, error) {
	contract, err := s.Repo.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.CreatedBy != actor.ID && !actor.IsStaff() {
		return nil, models.Unauthorized("you are not allowed to submit contract %s", contractID)
	}
	if err := checkTransition(models.ContractTransitions, "contract", contract.Status, models.PendingApprovalContract); err != nil {
		return nil, err
	}

	latest, err := s.workflows.LatestWorkflow(ctx, models.ContractEntity, contractID)
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Status != models.PendingWorkflow {
		created, err := s.workflows.CreateWorkflow(ctx, models.ContractEntity, contractID, contract.Value, actor.Department)
		if err != nil {
			return nil, err
		}
		if created == nil && RequiresWorkflow(s.workflows.Policy(), models.ContractEntity, contract.Value) {
			return nil, models.InvalidTransition("contract %s requires an approval workflow", contractID)
		}
	}

	if err := s.setStatus(ctx, contract, models.PendingApprovalContract); err != nil {
		return nil, err
	}
	return s.Repo.GetContract(ctx, contractID)
}

// DeleteContract удаляет контракт. Ожидающие маршруты предварительно отменяются.
func (s *ContractService) DeleteContract(ctx context.Context, actor models.Actor, contractID string) error {
	if err := requireStaff(actor, "delete contracts"); err != nil {
		return err
	}
	if _, err := s.Repo.GetContract(ctx, contractID); err != nil {
		return err
	}
	if err := checkDependents(ctx, s.Repo, "contract", contractID); err != nil {
		return err
	}
	if err := s.workflows.CancelPending(ctx, models.ContractEntity, contractID); err != nil {
		return err
	}
	if err := s.Repo.DeleteContract(ctx, contractID); err != nil {
		return err
	}
	s.log.Info().Str("contract_id", contractID).Msg("contract deleted")
	return nil
}

// Stats возвращает сводную статистику по контрактам.
func (s *ContractService) Stats(ctx context.Context) (*models.ContractStats, error) {
	return s.Repo.ContractStats(ctx)
}

// History возвращает контракт вместе с маршрутами согласования.
func (s *ContractService) History(ctx context.Context, contractID string) (*models.ContractHistory, error) {
	contract, err := s.Repo.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	workflows, err := s.workflows.GetEntityWorkflows(ctx, models.ContractEntity, contractID)
	if err != nil {
		return nil, err
	}
	return &models.ContractHistory{Contract: contract, Workflows: workflows}, nil
}

// NotifyExpiring отправляет contract_expiring по действующим контрактам,
// срок которых истекает в пределах window.
func (s *ContractService) NotifyExpiring(ctx context.Context, actor models.Actor, window time.Duration) ([]models.Contract, error) {
	if err := requireStaff(actor, "send expiry notices"); err != nil {
		return nil, err
	}
	if window <= 0 {
		return nil, models.ValidationFailed("expiry window must be positive")
	}
	now := s.now().UTC()
	until := now.Add(window)

	expiring := []models.Contract{}
	filter := models.ContractFilter{
		Status:     []models.ContractStatus{models.ActiveContract},
		EndsBefore: &until,
		Page:       models.Page{Limit: expiringPageSize},
	}
	for {
		page, err := s.Repo.ListContracts(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list expiring contracts: %w", err)
		}
		for _, contract := range page.Items {
			if contract.EndDate == nil || contract.EndDate.Before(now) {
				continue
			}
			expiring = append(expiring, contract)
			s.notifier.Notify(ctx, notify.ContractExpiring, map[string]interface{}{
				"contractId":     contract.ID,
				"contractNumber": contract.ContractNumber,
				"endDate":        contract.EndDate,
				"createdBy":      contract.CreatedBy,
			})
		}
		if len(page.Items) < filter.Page.Limit {
			break
		}
		filter.Page.Offset += filter.Page.Limit
	}

	s.log.Info().Int("count", len(expiring)).Dur("window", window).Msg("expiring contracts notified")
	return expiring, nil
}

// transition выполняет переход статуса, кроме перевода в pending_approval.
func (s *ContractService) transition(ctx context.Context, contract *models.Contract, to models.ContractStatus) error {
	if err := checkTransition(models.ContractTransitions, "contract", contract.Status, to); err != nil {
		return err
	}
	if to == models.ApprovedContract {
		latest, err := s.workflows.LatestWorkflow(ctx, models.ContractEntity, contract.ID)
		if err != nil {
			return err
		}
		if latest != nil && latest.Status != models.ApprovedWorkflow {
			return models.InvalidTransition("contract %s approval workflow is %s", contract.ID, latest.Status)
		}
		if latest == nil && RequiresWorkflow(s.workflows.Policy(), models.ContractEntity, contract.Value) {
			return models.InvalidTransition("contract %s has no approval workflow", contract.ID)
		}
	}
	return s.setStatus(ctx, contract, to)
}

func (s *ContractService) setStatus(ctx context.Context, contract *models.Contract, to models.ContractStatus) error {
	from := contract.Status
	if err := s.Repo.UpdateContractStatus(ctx, contract.ID, from, to); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return models.InvalidTransition("contract %s is no longer %s", contract.ID, from)
		}
		return fmt.Errorf("update status of contract %s: %w", contract.ID, err)
	}
	contract.Status = to
	recordTransition("contract", from, to)
	s.log.Info().
		Str("contract_id", contract.ID).
		Str("from", string(from)).
		Str("status", string(to)).
		Msg("contract status changed")
	return nil
}

// applyWorkflowOutcome переносит итог маршрута на контракт.
func (s *ContractService) applyWorkflowOutcome(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	contract, err := s.Repo.GetContract(ctx, workflow.EntityID)
	if models.IsKind(err, models.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	switch workflow.Status {
	case models.ApprovedWorkflow:
		if contract.Status == models.DraftContract || contract.Status == models.PendingApprovalContract {
			return s.setStatus(ctx, contract, models.ApprovedContract)
		}
	case models.RejectedWorkflow, models.CancelledWorkflow:
		if contract.Status == models.PendingApprovalContract {
			return s.setStatus(ctx, contract, models.DraftContract)
		}
	}
	return nil
}

func hasContractFields(req models.ContractRequest) bool {
	return req.ContractNumber != nil || req.Title != nil || req.Type != nil || req.Parties != nil ||
		req.StartDate != nil || req.EndDate != nil || req.Value != nil || req.Currency != nil || req.Terms != nil
}

func applyContractFields(contract *models.Contract, req models.ContractRequest) {
	contract.Title = strings.TrimSpace(optional(req.Title, contract.Title))
	contract.Type = optional(req.Type, contract.Type)
	contract.Terms = optional(req.Terms, contract.Terms)
	contract.Currency = strings.ToUpper(optional(req.Currency, contract.Currency))
	if req.Parties != nil {
		contract.Parties = *req.Parties
	}
	if req.StartDate != nil {
		contract.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		contract.EndDate = req.EndDate
	}
	if req.Value != nil {
		contract.Value = req.Value
	}
}

func validateContract(contract *models.Contract) error {
	if contract.ContractNumber == "" {
		return models.ValidationFailed("contract number must not be empty")
	}
	if contract.Title == "" {
		return models.ValidationFailed("title is required")
	}
	if !contract.Type.Valid() {
		return models.ValidationFailed("unsupported contract type: %q", contract.Type)
	}
	if len(contract.Currency) != 3 {
		return models.ValidationFailed("currency must be a three-letter code")
	}
	if contract.Value != nil && *contract.Value < 0 {
		return models.ValidationFailed("value must not be negative")
	}
	if contract.StartDate != nil && contract.EndDate != nil && contract.EndDate.Before(*contract.StartDate) {
		return models.ValidationFailed("end date must not be before start date")
	}
	var parties []json.RawMessage
	if err := json.Unmarshal(contract.Parties, &parties); err != nil {
		return models.ValidationFailed("parties must be a JSON array")
	}
	return nil
}
