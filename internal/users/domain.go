package users

import (
	"time"

	core "github.com/naguara/naguara-pos/internal/shared"
)

// User represents a user account for management. The hash never leaves the package.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateRequest carries a new account.
type CreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=40"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin cajero almacen"`
}

// UpdateRequest changes the mutable profile fields.
type UpdateRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Role     string `json:"role" validate:"required,oneof=admin cajero almacen"`
	IsActive *bool  `json:"is_active"`
}

// PasswordRequest resets a password.
type PasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

var (
	ErrNotFound          = core.NewError(core.ErrNotFound, "usuario no encontrado")
	ErrDuplicateUsername = core.NewError(core.ErrConflict, "el nombre de usuario ya existe")
	ErrSelfDeactivation  = core.NewError(core.ErrBusinessRule, "no puede desactivar su propia cuenta")
	ErrInvalidRole       = core.Validation("rol inválido")
	ErrInvalidUsername   = core.Validation("el usuario solo admite letras, números, punto y guion")
	ErrWeakPassword      = core.Validation("la contraseña debe tener al menos 8 caracteres")
)
