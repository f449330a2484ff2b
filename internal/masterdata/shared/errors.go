package shared

import core "github.com/naguara/naguara-pos/internal/shared"

var (
	ErrNotFound   = core.NewError(core.ErrNotFound, "registro no encontrado")
	ErrDuplicate  = core.NewError(core.ErrConflict, "registro duplicado")
	ErrInUse      = core.NewError(core.ErrConflict, "el registro está en uso y no puede eliminarse")
	ErrInvalidID  = core.Validation("id inválido")
	ErrValidation = core.ErrValidation
)

// Required builds a validation error for a missing field.
func Required(field string) error {
	return core.Validation(field + " es obligatorio")
}
