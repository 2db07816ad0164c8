package services

import (
	"context"

	"github.com/senyabanana/procurement-service/internal/metrics"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/rs/zerolog"
)

// ApproverResolver подбирает согласующего по роли и отделу.
type ApproverResolver struct {
	users repository.UserRepository
	log   zerolog.Logger
}

// NewApproverResolver создает новый экземпляр ApproverResolver.
func NewApproverResolver(users repository.UserRepository, log zerolog.Logger) *ApproverResolver {
	return &ApproverResolver{users: users, log: log}
}

// Resolve возвращает ID активного пользователя с точным совпадением роли и отдела.
// Если такого нет, возвращает nil: этап создается без согласующего,
// и администратор назначает его вручную.
func (r *ApproverResolver) Resolve(ctx context.Context, role models.UserRole, department string) *string {
	user, err := r.users.FindApprover(ctx, role, department)
	if err != nil {
		r.log.Warn().Err(err).
			Str("role", string(role)).
			Str("department", department).
			Msg("approver lookup failed, stage left unresolved")
		metrics.UnresolvedApprover(string(role))
		return nil
	}
	if user == nil {
		r.log.Warn().
			Str("role", string(role)).
			Str("department", department).
			Msg("no approver matches role and department")
		metrics.UnresolvedApprover(string(role))
		return nil
	}
	id := user.ID
	return &id
}
