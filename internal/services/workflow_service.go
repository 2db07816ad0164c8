package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/metrics"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notify"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FinishedHook вызывается после того, как маршрут перешел в конечный статус.
type FinishedHook func(ctx context.Context, workflow *models.ApprovalWorkflow) error

// WorkflowService - движок маршрутов согласования.
type WorkflowService struct {
	Repo     repository.WorkflowRepository
	resolver *ApproverResolver
	policy   models.ApprovalPolicy
	notifier notify.Notifier
	log      zerolog.Logger
	now      func() time.Time
	hooks    map[models.EntityType]FinishedHook
}

// NewWorkflowService создаёт новый экземпляр WorkflowService.
func NewWorkflowService(repo repository.WorkflowRepository, resolver *ApproverResolver, policy models.ApprovalPolicy,
	notifier notify.Notifier, log zerolog.Logger) *WorkflowService {
	return &WorkflowService{
		Repo:     repo,
		resolver: resolver,
		policy:   policy,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		hooks:    make(map[models.EntityType]FinishedHook),
	}
}

// OnFinished регистрирует реакцию жизненного цикла сущности на завершение маршрута.
func (s *WorkflowService) OnFinished(entityType models.EntityType, hook FinishedHook) {
	s.hooks[entityType] = hook
}

// Policy возвращает действующие правила согласования.
func (s *WorkflowService) Policy() models.ApprovalPolicy {
	return s.policy
}

// CreateWorkflow строит план и сохраняет маршрут со всеми этапами.
// Если план не требует согласования, возвращает nil без ошибки.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, entityType models.EntityType, entityID string,
	value *float64, department string) (*models.WorkflowDetails, error) {
	if !entityType.Valid() {
		return nil, models.ValidationFailed("unsupported entity type: %s", entityType)
	}

	plan := BuildStagePlan(s.policy, entityType, value)
	if plan.Kind == models.NoWorkflow {
		return nil, nil
	}

	now := s.now().UTC()
	workflow := &models.ApprovalWorkflow{
		ID:           uuid.NewString(),
		EntityType:   entityType,
		EntityID:     entityID,
		CurrentStage: 1,
		TotalStages:  len(plan.Stages),
		Status:       models.PendingWorkflow,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stages := make([]models.ApprovalStage, 0, len(plan.Stages))
	for _, planned := range plan.Stages {
		stages = append(stages, models.ApprovalStage{
			ID:           uuid.NewString(),
			WorkflowID:   workflow.ID,
			StageNumber:  planned.StageNumber,
			ApproverRole: planned.ApproverRole,
			ApproverID:   s.resolver.Resolve(ctx, planned.ApproverRole, department),
			Status:       models.PendingStage,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if err := s.Repo.CreateWorkflow(ctx, workflow, stages); err != nil {
		return nil, fmt.Errorf("create workflow for %s %s: %w", entityType, entityID, err)
	}

	metrics.WorkflowCreated(string(entityType), plan.Tier)
	s.log.Info().
		Str("workflow_id", workflow.ID).
		Str("entity_type", string(entityType)).
		Str("entity_id", entityID).
		Str("tier", plan.Tier).
		Int("stages", workflow.TotalStages).
		Msg("approval workflow created")

	return &models.WorkflowDetails{Workflow: workflow, Stages: stages}, nil
}

// GetWorkflow возвращает маршрут вместе с этапами.
func (s *WorkflowService) GetWorkflow(ctx context.Context, workflowID string) (*models.WorkflowDetails, error) {
	workflow, err := s.Repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	stages, err := s.Repo.GetStages(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("get stages of workflow %s: %w", workflowID, err)
	}
	return &models.WorkflowDetails{Workflow: workflow, Stages: stages}, nil
}

// GetEntityWorkflows возвращает все маршруты сущности от старых к новым.
func (s *WorkflowService) GetEntityWorkflows(ctx context.Context, entityType models.EntityType, entityID string) ([]models.WorkflowDetails, error) {
	if !entityType.Valid() {
		return nil, models.ValidationFailed("unsupported entity type: %s", entityType)
	}
	workflows, err := s.Repo.ListEntityWorkflows(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list workflows of %s %s: %w", entityType, entityID, err)
	}

	result := make([]models.WorkflowDetails, 0, len(workflows))
	for i := range workflows {
		stages, err := s.Repo.GetStages(ctx, workflows[i].ID)
		if err != nil {
			return nil, fmt.Errorf("get stages of workflow %s: %w", workflows[i].ID, err)
		}
		result = append(result, models.WorkflowDetails{Workflow: &workflows[i], Stages: stages})
	}
	return result, nil
}

// LatestWorkflow возвращает последний маршрут сущности или nil, если его нет.
func (s *WorkflowService) LatestWorkflow(ctx context.Context, entityType models.EntityType, entityID string) (*models.ApprovalWorkflow, error) {
	workflows, err := s.Repo.ListEntityWorkflows(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list workflows of %s %s: %w", entityType, entityID, err)
	}
	if len(workflows) == 0 {
		return nil, nil
	}
	return &workflows[len(workflows)-1], nil
}

// Decide применяет решение согласующего к текущему этапу маршрута.
func (s *WorkflowService) Decide(ctx context.Context, actor models.Actor, workflowID string, stageNumber int,
	req models.DecisionRequest) (*models.WorkflowDetails, error) {
	if req.Decision != models.Approve && req.Decision != models.Reject {
		return nil, models.ValidationFailed("decision must be %q or %q", models.Approve, models.Reject)
	}

	details, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	workflow := details.Workflow

	stage := findStage(details.Stages, stageNumber)
	if stage == nil {
		return nil, models.NotFound("stage %d of workflow %s not found", stageNumber, workflowID)
	}
	if workflow.Status != models.PendingWorkflow {
		return nil, models.InvalidTransition("workflow %s is already %s", workflowID, workflow.Status)
	}
	if stageNumber != workflow.CurrentStage {
		return nil, models.InvalidTransition("stage %d is not the current stage %d", stageNumber, workflow.CurrentStage)
	}
	if stage.Status != models.PendingStage {
		return nil, models.InvalidTransition("stage %d is already %s", stageNumber, stage.Status)
	}
	if !actor.IsAdmin() && (stage.ApproverID == nil || *stage.ApproverID != actor.ID) {
		return nil, models.Unauthorized("you are not the approver of stage %d", stageNumber)
	}

	decision := models.StageDecision{
		WorkflowID:   workflowID,
		ExpectStatus: models.PendingWorkflow,
		ExpectStage:  workflow.CurrentStage,
		NextStage:    workflow.CurrentStage,
		NextStatus:   models.PendingWorkflow,
		StageNumber:  stageNumber,
		DecidedAt:    s.now().UTC(),
		Comments:     req.Comments,
	}
	switch {
	case req.Decision == models.Reject:
		decision.StageStatus = models.RejectedStage
		decision.NextStatus = models.RejectedWorkflow
	case stageNumber == workflow.TotalStages:
		decision.StageStatus = models.ApprovedStage
		decision.NextStatus = models.ApprovedWorkflow
	default:
		decision.StageStatus = models.ApprovedStage
		decision.NextStage = stageNumber + 1
	}

	if err := s.Repo.ApplyDecision(ctx, decision); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, models.InvalidTransition("stage %d of workflow %s was decided concurrently", stageNumber, workflowID)
		}
		return nil, fmt.Errorf("apply decision to workflow %s: %w", workflowID, err)
	}

	metrics.Decision(string(workflow.EntityType), string(req.Decision))
	s.log.Info().
		Str("workflow_id", workflowID).
		Int("stage", stageNumber).
		Str("decision", string(req.Decision)).
		Str("actor_id", actor.ID).
		Str("status", string(decision.NextStatus)).
		Msg("approval stage decided")

	s.notifier.Notify(ctx, notify.StageDecided, map[string]interface{}{
		"workflowId":  workflowID,
		"entityType":  workflow.EntityType,
		"entityId":    workflow.EntityID,
		"stageNumber": stageNumber,
		"decision":    req.Decision,
		"decidedBy":   actor.ID,
	})

	workflow.CurrentStage = decision.NextStage
	workflow.Status = decision.NextStatus
	workflow.UpdatedAt = decision.DecidedAt
	if workflow.Status.Terminal() {
		s.finish(ctx, workflow)
	}

	return s.GetWorkflow(ctx, workflowID)
}

// Cancel отменяет ожидающий маршрут. Оставшиеся этапы помечаются skipped.
func (s *WorkflowService) Cancel(ctx context.Context, actor models.Actor, workflowID string) (*models.WorkflowDetails, error) {
	if !actor.IsStaff() {
		return nil, models.Unauthorized("only staff can cancel approval workflows")
	}
	workflow, err := s.Repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if err := s.cancel(ctx, workflow); err != nil {
		return nil, err
	}
	return s.GetWorkflow(ctx, workflowID)
}

func (s *WorkflowService) cancel(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	if workflow.Status != models.PendingWorkflow {
		return models.InvalidTransition("workflow %s is already %s", workflow.ID, workflow.Status)
	}
	if err := s.Repo.CancelWorkflow(ctx, workflow.ID); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return models.InvalidTransition("workflow %s is no longer pending", workflow.ID)
		}
		return fmt.Errorf("cancel workflow %s: %w", workflow.ID, err)
	}

	s.log.Info().Str("workflow_id", workflow.ID).Msg("approval workflow cancelled")
	workflow.Status = models.CancelledWorkflow
	s.finish(ctx, workflow)
	return nil
}

// CancelPending отменяет все ожидающие маршруты сущности.
func (s *WorkflowService) CancelPending(ctx context.Context, entityType models.EntityType, entityID string) error {
	workflows, err := s.Repo.ListEntityWorkflows(ctx, entityType, entityID)
	if err != nil {
		return fmt.Errorf("list workflows of %s %s: %w", entityType, entityID, err)
	}
	for i := range workflows {
		if workflows[i].Status != models.PendingWorkflow {
			continue
		}
		if err := s.cancel(ctx, &workflows[i]); err != nil {
			return err
		}
	}
	return nil
}

// ListPending возвращает этапы, которые ждут решения пользователя.
func (s *WorkflowService) ListPending(ctx context.Context, actor models.Actor, page models.Page) ([]models.PendingApproval, error) {
	pending, err := s.Repo.ListPendingForApprover(ctx, actor.ID, page)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals of %s: %w", actor.ID, err)
	}
	if pending == nil {
		pending = []models.PendingApproval{}
	}
	return pending, nil
}

// Reassign назначает согласующего ожидающему этапу. Доступно только администратору.
func (s *WorkflowService) Reassign(ctx context.Context, actor models.Actor, workflowID string, stageNumber int,
	req models.ReassignRequest) (*models.WorkflowDetails, error) {
	if !actor.IsAdmin() {
		return nil, models.Unauthorized("only administrators can reassign approval stages")
	}
	if req.ApproverID == "" {
		return nil, models.ValidationFailed("approverId is required")
	}

	details, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	stage := findStage(details.Stages, stageNumber)
	if stage == nil {
		return nil, models.NotFound("stage %d of workflow %s not found", stageNumber, workflowID)
	}
	if details.Workflow.Status != models.PendingWorkflow || stage.Status != models.PendingStage {
		return nil, models.InvalidTransition("stage %d of workflow %s is already decided", stageNumber, workflowID)
	}

	if err := s.Repo.ReassignStage(ctx, workflowID, stageNumber, req.ApproverID); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, models.InvalidTransition("stage %d of workflow %s is already decided", stageNumber, workflowID)
		}
		return nil, fmt.Errorf("reassign stage %d of workflow %s: %w", stageNumber, workflowID, err)
	}

	s.log.Info().
		Str("workflow_id", workflowID).
		Int("stage", stageNumber).
		Str("approver_id", req.ApproverID).
		Msg("approval stage reassigned")
	return s.GetWorkflow(ctx, workflowID)
}

// finish сообщает о завершении маршрута и передает его владельцу сущности.
// Ошибка реакции не откатывает уже примененное решение.
func (s *WorkflowService) finish(ctx context.Context, workflow *models.ApprovalWorkflow) {
	metrics.Transition("workflow", string(models.PendingWorkflow), string(workflow.Status))
	s.notifier.Notify(ctx, notify.WorkflowFinished, map[string]interface{}{
		"workflowId": workflow.ID,
		"entityType": workflow.EntityType,
		"entityId":   workflow.EntityID,
		"status":     workflow.Status,
	})

	hook, ok := s.hooks[workflow.EntityType]
	if !ok {
		return
	}
	if err := hook(ctx, workflow); err != nil {
		s.log.Error().Err(err).
			Str("workflow_id", workflow.ID).
			Str("entity_id", workflow.EntityID).
			Str("status", string(workflow.Status)).
			Msg("failed to apply workflow outcome")
	}
}

func findStage(stages []models.ApprovalStage, stageNumber int) *models.ApprovalStage {
	for i := range stages {
		if stages[i].StageNumber == stageNumber {
			return &stages[i]
		}
	}
	return nil
}
