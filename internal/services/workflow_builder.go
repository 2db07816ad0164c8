package services

import "github.com/senyabanana/procurement-service/internal/models"

// BuildStagePlan выводит этапы согласования из типа сущности и ее стоимости.
//
// Стоимость nil или тип без правил дают NoWorkflow. Иначе выбирается первый
// уровень, порог которого меньше стоимости, а при отсутствии такого - базовые роли.
func BuildStagePlan(policy models.ApprovalPolicy, entityType models.EntityType, value *float64) models.StagePlan {
	rules, ok := policy[entityType]
	if !ok || value == nil {
		return models.StagePlan{Kind: models.NoWorkflow}
	}

	tier, roles := "base", rules.BaseRoles
	for _, t := range rules.Tiers {
		if *value > t.Above {
			tier, roles = t.Name, t.Roles
			break
		}
	}
	if len(roles) == 0 {
		return models.StagePlan{Kind: models.NoWorkflow}
	}

	stages := make([]models.PlannedStage, 0, len(roles))
	for i, role := range roles {
		stages = append(stages, models.PlannedStage{StageNumber: i + 1, ApproverRole: role})
	}
	return models.StagePlan{Kind: models.StagedWorkflow, Tier: tier, Stages: stages}
}

// RequiresWorkflow сообщает, что сущность должна пройти согласование
// до выхода из черновика.
func RequiresWorkflow(policy models.ApprovalPolicy, entityType models.EntityType, value *float64) bool {
	rules, ok := policy[entityType]
	return ok && value != nil && *value > rules.TriggerAbove
}
