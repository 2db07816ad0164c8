package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WorkflowRepository - интерфейс для работы с маршрутами согласования.
// Маршруты и этапы никогда не удаляются.
type WorkflowRepository interface {
	// CreateWorkflow сохраняет маршрут и все его этапы в одной транзакции.
	CreateWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow, stages []models.ApprovalStage) error
	GetWorkflow(ctx context.Context, workflowID string) (*models.ApprovalWorkflow, error)
	// ListEntityWorkflows возвращает маршруты сущности от старых к новым.
	ListEntityWorkflows(ctx context.Context, entityType models.EntityType, entityID string) ([]models.ApprovalWorkflow, error)
	GetStages(ctx context.Context, workflowID string) ([]models.ApprovalStage, error)
	// ApplyDecision атомарно применяет решение. Возвращает ErrStale, если маршрут
	// уже не в ожидаемом статусе или этапе.
	ApplyDecision(ctx context.Context, decision models.StageDecision) error
	// CancelWorkflow переводит ожидающий маршрут в cancelled, а ожидающие этапы в skipped.
	CancelWorkflow(ctx context.Context, workflowID string) error
	// ReassignStage меняет согласующего у ожидающего этапа.
	ReassignStage(ctx context.Context, workflowID string, stageNumber int, approverID string) error
	ListPendingForApprover(ctx context.Context, approverID string, page models.Page) ([]models.PendingApproval, error)
}

// PostgresWorkflowRepository - реализация WorkflowRepository для базы данных.
type PostgresWorkflowRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresWorkflowRepository создаёт новый экземпляр PostgresWorkflowRepository.
func NewPostgresWorkflowRepository(db *pgxpool.Pool) *PostgresWorkflowRepository {
	return &PostgresWorkflowRepository{DB: db}
}

const (
	workflowColumns = `id, entity_type, entity_id, current_stage, total_stages, status, created_at, updated_at`
	stageColumns    = `id, workflow_id, stage_number, approver_role, approver_id, status, approved_at, comments, created_at, updated_at`
)

// CreateWorkflow создает маршрут согласования.
func (r *PostgresWorkflowRepository) CreateWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow, stages []models.ApprovalStage) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO approval_workflows (`+workflowColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			workflow.ID,
			workflow.EntityType,
			workflow.EntityID,
			workflow.CurrentStage,
			workflow.TotalStages,
			workflow.Status,
			workflow.CreatedAt,
			workflow.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert approval workflow: %w", err)
		}

		for _, stage := range stages {
			_, err := tx.Exec(ctx, `
				INSERT INTO approval_stages (`+stageColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				stage.ID,
				stage.WorkflowID,
				stage.StageNumber,
				stage.ApproverRole,
				stage.ApproverID,
				stage.Status,
				stage.ApprovedAt,
				stage.Comments,
				stage.CreatedAt,
				stage.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert approval stage %d: %w", stage.StageNumber, err)
			}
		}
		return nil
	})
}

// GetWorkflow возвращает маршрут по ID.
func (r *PostgresWorkflowRepository) GetWorkflow(ctx context.Context, workflowID string) (*models.ApprovalWorkflow, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+workflowColumns+` FROM approval_workflows WHERE id = $1`, workflowID)
	workflow, err := scanWorkflow(row)
	if err != nil {
		return nil, notFound(err, "workflow", workflowID)
	}
	return workflow, nil
}

// ListEntityWorkflows возвращает маршруты сущности.
func (r *PostgresWorkflowRepository) ListEntityWorkflows(ctx context.Context, entityType models.EntityType, entityID string) ([]models.ApprovalWorkflow, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+workflowColumns+`
		FROM approval_workflows
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []models.ApprovalWorkflow
	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *workflow)
	}
	return workflows, rows.Err()
}

// GetStages возвращает этапы маршрута по порядку.
func (r *PostgresWorkflowRepository) GetStages(ctx context.Context, workflowID string) ([]models.ApprovalStage, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+stageColumns+`
		FROM approval_stages
		WHERE workflow_id = $1
		ORDER BY stage_number`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []models.ApprovalStage
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, *stage)
	}
	return stages, rows.Err()
}

// ApplyDecision применяет решение по этапу.
func (r *PostgresWorkflowRepository) ApplyDecision(ctx context.Context, d models.StageDecision) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE approval_workflows
			SET current_stage = $4, status = $5, updated_at = $6
			WHERE id = $1 AND status = $2 AND current_stage = $3`,
			d.WorkflowID, d.ExpectStatus, d.ExpectStage, d.NextStage, d.NextStatus, d.DecidedAt)
		if err != nil {
			return fmt.Errorf("failed to update approval workflow: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrStale
		}

		tag, err = tx.Exec(ctx, `
			UPDATE approval_stages
			SET status = $3, approved_at = $4, comments = $5, updated_at = $4
			WHERE workflow_id = $1 AND stage_number = $2 AND status = 'pending'`,
			d.WorkflowID, d.StageNumber, d.StageStatus, d.DecidedAt, d.Comments)
		if err != nil {
			return fmt.Errorf("failed to update approval stage: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrStale
		}
		return nil
	})
}

// CancelWorkflow отменяет маршрут.
func (r *PostgresWorkflowRepository) CancelWorkflow(ctx context.Context, workflowID string) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE approval_workflows
			SET status = 'cancelled', updated_at = NOW()
			WHERE id = $1 AND status = 'pending'`, workflowID)
		if err != nil {
			return fmt.Errorf("failed to cancel approval workflow: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrStale
		}

		_, err = tx.Exec(ctx, `
			UPDATE approval_stages
			SET status = 'skipped', updated_at = NOW()
			WHERE workflow_id = $1 AND status = 'pending'`, workflowID)
		if err != nil {
			return fmt.Errorf("failed to skip approval stages: %w", err)
		}
		return nil
	})
}

// ReassignStage переназначает этап.
func (r *PostgresWorkflowRepository) ReassignStage(ctx context.Context, workflowID string, stageNumber int, approverID string) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE approval_stages s
		SET approver_id = $3, updated_at = NOW()
		FROM approval_workflows w
		WHERE s.workflow_id = w.id AND w.id = $1 AND w.status = 'pending'
		  AND s.stage_number = $2 AND s.status = 'pending'`,
		workflowID, stageNumber, approverID)
	if err != nil {
		return fmt.Errorf("failed to reassign approval stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// ListPendingForApprover возвращает этапы, ожидающие решения согласующего.
func (r *PostgresWorkflowRepository) ListPendingForApprover(ctx context.Context, approverID string, page models.Page) ([]models.PendingApproval, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT w.id, w.entity_type, w.entity_id, w.current_stage, w.total_stages, w.status, w.created_at, w.updated_at,
		       s.id, s.workflow_id, s.stage_number, s.approver_role, s.approver_id, s.status, s.approved_at, s.comments, s.created_at, s.updated_at
		FROM approval_stages s
		JOIN approval_workflows w ON w.id = s.workflow_id
		WHERE s.approver_id = $1 AND s.status = 'pending'
		  AND w.status = 'pending' AND w.current_stage = s.stage_number
		ORDER BY w.created_at
		LIMIT $2 OFFSET $3`, approverID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []models.PendingApproval
	for rows.Next() {
		var p models.PendingApproval
		w, s := &p.Workflow, &p.Stage
		if err := rows.Scan(
			&w.ID, &w.EntityType, &w.EntityID, &w.CurrentStage, &w.TotalStages, &w.Status, &w.CreatedAt, &w.UpdatedAt,
			&s.ID, &s.WorkflowID, &s.StageNumber, &s.ApproverRole, &s.ApproverID, &s.Status, &s.ApprovedAt, &s.Comments, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func scanWorkflow(row rowScanner) (*models.ApprovalWorkflow, error) {
	var workflow models.ApprovalWorkflow
	err := row.Scan(
		&workflow.ID,
		&workflow.EntityType,
		&workflow.EntityID,
		&workflow.CurrentStage,
		&workflow.TotalStages,
		&workflow.Status,
		&workflow.CreatedAt,
		&workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &workflow, nil
}

func scanStage(row rowScanner) (*models.ApprovalStage, error) {
	var stage models.ApprovalStage
	err := row.Scan(
		&stage.ID,
		&stage.WorkflowID,
		&stage.StageNumber,
		&stage.ApproverRole,
		&stage.ApproverID,
		&stage.Status,
		&stage.ApprovedAt,
		&stage.Comments,
		&stage.CreatedAt,
		&stage.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &stage, nil
}
