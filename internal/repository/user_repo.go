package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository - интерфейс для работы с пользователями.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, page models.Page) (*models.ListResult[models.User], error)
	// FindApprover возвращает активного пользователя с точным совпадением роли и отдела
	// или nil, если такого нет.
	FindApprover(ctx context.Context, role models.UserRole, department string) (*models.User, error)
}

// PostgresUserRepository - реализация UserRepository для базы данных.
type PostgresUserRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresUserRepository создаёт новый экземпляр PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

const userColumns = `id, username, email, password_hash, first_name, last_name, role, department, is_active, created_at, updated_at`

// CreateUser сохраняет нового пользователя.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Department,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt)
	if isUniqueViolation(err, "") {
		return models.Conflict("username or email already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByID возвращает пользователя по ID.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	return user, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", email)
	}
	return user, nil
}

// UpdateUser меняет профиль пользователя.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, department = $4, role = $5, is_active = $6, updated_at = $7
		WHERE id = $1`,
		user.ID, user.FirstName, user.LastName, user.Department, user.Role, user.IsActive, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound("user %s not found", user.ID)
	}
	return nil
}

// ListUsers возвращает список пользователей.
func (r *PostgresUserRepository) ListUsers(ctx context.Context, page models.Page) (*models.ListResult[models.User], error) {
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &models.ListResult[models.User]{Total: total}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *user)
	}
	return result, rows.Err()
}

// FindApprover ищет согласующего по роли и отделу.
func (r *PostgresUserRepository) FindApprover(ctx context.Context, role models.UserRole, department string) (*models.User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = $1 AND department = $2 AND is_active
		ORDER BY created_at
		LIMIT 1`, role, department)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Department,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
