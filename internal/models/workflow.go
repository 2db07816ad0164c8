package models

import "time"

type (
	EntityType     string // Тип согласуемой сущности
	WorkflowStatus string // Статус маршрута согласования
	StageStatus    string // Статус этапа согласования
	Decision       string // Решение согласующего
)

const (
	ContractEntity EntityType = "contract"
	TenderEntity   EntityType = "tender"

	PendingWorkflow   WorkflowStatus = "pending"
	ApprovedWorkflow  WorkflowStatus = "approved"
	RejectedWorkflow  WorkflowStatus = "rejected"
	CancelledWorkflow WorkflowStatus = "cancelled"

	PendingStage  StageStatus = "pending"
	ApprovedStage StageStatus = "approved"
	RejectedStage StageStatus = "rejected"
	SkippedStage  StageStatus = "skipped"

	Approve Decision = "approved"
	Reject  Decision = "rejected"
)

// Valid сообщает, поддерживается ли согласование для типа сущности.
func (t EntityType) Valid() bool {
	return t == ContractEntity || t == TenderEntity
}

// Terminal сообщает, завершен ли маршрут.
func (s WorkflowStatus) Terminal() bool {
	return s != PendingWorkflow
}

// ApprovalWorkflow - экземпляр маршрута согласования контракта или тендера.
type ApprovalWorkflow struct {
	ID           string         `json:"id"`
	EntityType   EntityType     `json:"entityType"`
	EntityID     string         `json:"entityId"`
	CurrentStage int            `json:"currentStage"`
	TotalStages  int            `json:"totalStages"`
	Status       WorkflowStatus `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// ApprovalStage - один этап маршрута согласования.
type ApprovalStage struct {
	ID           string      `json:"id"`
	WorkflowID   string      `json:"workflowId"`
	StageNumber  int         `json:"stageNumber"`
	ApproverRole UserRole    `json:"approverRole"`
	ApproverID   *string     `json:"approverId"`
	Status       StageStatus `json:"status"`
	ApprovedAt   *time.Time  `json:"approvedAt,omitempty"`
	Comments     *string     `json:"comments,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Unresolved сообщает, что для этапа не нашлось согласующего.
func (s ApprovalStage) Unresolved() bool {
	return s.ApproverID == nil
}

// WorkflowDetails - маршрут вместе со всеми этапами.
type WorkflowDetails struct {
	Workflow *ApprovalWorkflow `json:"workflow"`
	Stages   []ApprovalStage   `json:"stages"`
}

// StageDecision - изменение маршрута и этапа, которое репозиторий применяет атомарно.
// Применяется только если маршрут все еще находится в ExpectStatus на этапе ExpectStage.
type StageDecision struct {
	WorkflowID   string
	ExpectStatus WorkflowStatus
	ExpectStage  int

	NextStage  int
	NextStatus WorkflowStatus

	StageNumber int
	StageStatus StageStatus
	DecidedAt   time.Time
	Comments    *string
}

// DecisionRequest представляет структуру запроса на решение по этапу.
type DecisionRequest struct {
	Decision Decision `json:"decision"`
	Comments *string  `json:"comments"`
}

// ReassignRequest представляет структуру запроса на переназначение согласующего.
type ReassignRequest struct {
	ApproverID string `json:"approverId"`
}

// PendingApproval - этап, ожидающий решения конкретного согласующего.
type PendingApproval struct {
	Workflow ApprovalWorkflow `json:"workflow"`
	Stage    ApprovalStage    `json:"stage"`
}
