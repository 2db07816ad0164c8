package models

// ApprovalTier - именованный порог стоимости и роли этапов для него.
type ApprovalTier struct {
	Name  string
	Above float64
	Roles []UserRole
}

// EntityPolicy - правила согласования для одного типа сущности.
//
// TriggerAbove задает стоимость, выше которой маршрут создается автоматически.
// Tiers перебираются по порядку, выбирается первый, для которого value > Above;
// если ни один не подошел, используются BaseRoles.
type EntityPolicy struct {
	TriggerAbove float64
	Tiers        []ApprovalTier
	BaseRoles    []UserRole
}

// ApprovalPolicy - правила согласования по типам сущностей.
// Тип без записи никогда не получает маршрут.
type ApprovalPolicy map[EntityType]EntityPolicy

const (
	DefaultTriggerAbove = 100000
	DefaultMediumAbove  = 100000
	DefaultHighAbove    = 1000000
)

// DefaultApprovalPolicy возвращает правила: свыше 1 000 000 три этапа,
// свыше 100 000 два этапа, иначе один этап руководителя.
func DefaultApprovalPolicy() ApprovalPolicy {
	return NewApprovalPolicy(DefaultTriggerAbove, DefaultMediumAbove, DefaultHighAbove)
}

// NewApprovalPolicy собирает правила для контрактов из порогов.
func NewApprovalPolicy(triggerAbove, mediumAbove, highAbove float64) ApprovalPolicy {
	return ApprovalPolicy{
		ContractEntity: {
			TriggerAbove: triggerAbove,
			Tiers: []ApprovalTier{
				{Name: "high", Above: highAbove, Roles: []UserRole{RoleManager, RoleFinanceManager, RoleDirector}},
				{Name: "medium", Above: mediumAbove, Roles: []UserRole{RoleManager, RoleFinanceManager}},
			},
			BaseRoles: []UserRole{RoleManager},
		},
	}
}

// PlanKind - вариант плана согласования.
type PlanKind int

const (
	NoWorkflow     PlanKind = iota // Маршрут не нужен
	StagedWorkflow                 // Маршрут из одного или нескольких этапов
)

// PlannedStage - этап плана до назначения согласующего.
type PlannedStage struct {
	StageNumber  int
	ApproverRole UserRole
}

// StagePlan - результат построения маршрута.
type StagePlan struct {
	Kind   PlanKind
	Tier   string
	Stages []PlannedStage
}
