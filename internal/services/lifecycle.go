package services

import (
	"context"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/metrics"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// checkTransition проверяет переход по таблице допустимых переходов.
func checkTransition[S ~string](table map[S][]S, entity string, from, to S) error {
	if !utils.Contains(table[from], to) {
		return models.InvalidTransition("%s cannot move from %s to %s", entity, from, to)
	}
	return nil
}

// recordTransition учитывает примененный переход.
func recordTransition[S ~string](entity string, from, to S) {
	metrics.Transition(entity, string(from), string(to))
}

// checkDependents запрещает удаление сущности, на которую ссылаются другие записи.
func checkDependents(ctx context.Context, checker repository.DependencyChecker, entity, id string) error {
	count, err := checker.CountDependents(ctx, id)
	if err != nil {
		return fmt.Errorf("count dependents of %s %s: %w", entity, id, err)
	}
	if count > 0 {
		return models.Conflict("%s %s has %d dependent bid(s)", entity, id, count)
	}
	return nil
}

func requireStaff(actor models.Actor, action string) error {
	if !actor.IsStaff() {
		return models.Unauthorized("only administrators and managers can %s", action)
	}
	return nil
}

func optional[T any](value *T, current T) T {
	if value == nil {
		return current
	}
	return *value
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
