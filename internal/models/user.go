package models

import "time"

// UserRole - роль пользователя в системе закупок.
type UserRole string

const (
	RoleAdmin          UserRole = "admin"
	RoleManager        UserRole = "manager"
	RoleFinanceManager UserRole = "finance_manager"
	RoleDirector       UserRole = "director"
	RoleUser           UserRole = "user"
	RoleVendor         UserRole = "vendor"
)

// User представляет модель сотрудника или представителя поставщика.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         UserRole  `json:"role"`
	Department   string    `json:"department"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RegisterRequest представляет структуру запроса на регистрацию.
type RegisterRequest struct {
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Role       UserRole `json:"role"`
	Department string   `json:"department"`
}

// LoginRequest представляет структуру запроса на вход.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileRequest представляет структуру запроса на изменение профиля.
type ProfileRequest struct {
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Department *string `json:"department"`
}

// AuthResponse возвращается после регистрации и входа.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Actor - пользователь, от имени которого выполняется операция.
type Actor struct {
	ID         string
	Role       UserRole
	Department string
}

// IsAdmin сообщает, является ли пользователь администратором.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsStaff сообщает, может ли пользователь рассматривать предложения.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

// UserUpdateRequest представляет изменение пользователя администратором.
type UserUpdateRequest struct {
	Role       *UserRole `json:"role"`
	Department *string   `json:"department"`
	IsActive   *bool     `json:"isActive"`
}

// Valid сообщает, является ли роль известной.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleFinanceManager, RoleDirector, RoleUser, RoleVendor:
		return true
	}
	return false
}
