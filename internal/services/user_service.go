package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/auth"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const minPasswordLength = 6

// selfRegisterRoles - роли, доступные при самостоятельной регистрации.
// Остальные назначает администратор через UpdateUser.
var selfRegisterRoles = []models.UserRole{models.RoleUser, models.RoleVendor}

// UserService - регистрация, вход и управление пользователями.
type UserService struct {
	Repo   repository.UserRepository
	tokens *auth.TokenManager
	log    zerolog.Logger
	now    func() time.Time
}

// NewUserService создаёт новый экземпляр UserService.
func NewUserService(repo repository.UserRepository, tokens *auth.TokenManager, log zerolog.Logger) *UserService {
	return &UserService{Repo: repo, tokens: tokens, log: log, now: time.Now}
}

// Register создает пользователя и выдает ему токен.
// Самостоятельно можно получить только роли user и vendor.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	switch {
	case req.Username == "":
		return nil, models.ValidationFailed("username is required")
	case len(req.Password) < minPasswordLength:
		return nil, models.ValidationFailed("password must be at least %d characters", minPasswordLength)
	case !req.Role.Valid():
		return nil, models.ValidationFailed("unsupported role: %q", req.Role)
	case !utils.Contains(selfRegisterRoles, req.Role):
		return nil, models.Unauthorized("role %s is granted by an administrator", req.Role)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, models.ValidationFailed("invalid email: %q", req.Email)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Department:   req.Department,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return s.issue(user)
}

// Login проверяет пароль и выдает токен.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if models.IsKind(err, models.KindNotFound) {
		return nil, models.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, models.Unauthenticated("invalid email or password")
	}
	if !user.IsActive {
		return nil, models.Unauthorized("account is deactivated")
	}
	return s.issue(user)
}

// Authenticate проверяет токен и возвращает пользователя, от имени которого идет запрос.
func (s *UserService) Authenticate(ctx context.Context, token string) (models.Actor, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return models.Actor{}, models.Unauthenticated("invalid or expired token")
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if models.IsKind(err, models.KindNotFound) {
		return models.Actor{}, models.Unauthenticated("user no longer exists")
	}
	if err != nil {
		return models.Actor{}, err
	}
	if !user.IsActive {
		return models.Actor{}, models.Unauthenticated("account is deactivated")
	}
	return models.Actor{ID: user.ID, Role: user.Role, Department: user.Department}, nil
}

// Profile возвращает профиль текущего пользователя.
func (s *UserService) Profile(ctx context.Context, actor models.Actor) (*models.User, error) {
	return s.Repo.GetUserByID(ctx, actor.ID)
}

// UpdateProfile изменяет имя и отдел текущего пользователя.
func (s *UserService) UpdateProfile(ctx context.Context, actor models.Actor, req models.ProfileRequest) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	user.FirstName = optional(req.FirstName, user.FirstName)
	user.LastName = optional(req.LastName, user.LastName)
	user.Department = optional(req.Department, user.Department)
	user.UpdatedAt = s.now().UTC()
	if err := s.Repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers возвращает страницу пользователей. Доступно только администратору.
func (s *UserService) ListUsers(ctx context.Context, actor models.Actor, page models.Page) (*models.ListResult[models.User], error) {
	if !actor.IsAdmin() {
		return nil, models.Unauthorized("only administrators can list users")
	}
	return s.Repo.ListUsers(ctx, page)
}

// GetUser возвращает пользователя по ID. Доступно только администратору.
func (s *UserService) GetUser(ctx context.Context, actor models.Actor, userID string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.Unauthorized("only administrators can view users")
	}
	return s.Repo.GetUserByID(ctx, userID)
}

// UpdateUser меняет роль, отдел или активность пользователя. Доступно только администратору.
func (s *UserService) UpdateUser(ctx context.Context, actor models.Actor, userID string, req models.UserUpdateRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.Unauthorized("only administrators can update users")
	}
	if req.Role != nil && !req.Role.Valid() {
		return nil, models.ValidationFailed("unsupported role: %q", *req.Role)
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = optional(req.Role, user.Role)
	user.Department = optional(req.Department, user.Department)
	user.IsActive = optional(req.IsActive, user.IsActive)
	user.UpdatedAt = s.now().UTC()
	if err := s.Repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Bool("active", user.IsActive).Msg("user updated")
	return user, nil
}

func (s *UserService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}
