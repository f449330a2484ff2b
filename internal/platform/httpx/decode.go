package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/naguara/naguara-pos/internal/shared"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validator exposes the shared validator for handlers that validate query structs.
func Validator() *validator.Validate {
	return validate
}

// DecodeJSON decodes the request body into target and validates it.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return shared.Validation("el cuerpo debe contener un único objeto JSON")
	}
	return ValidateStruct(target)
}

// ValidateStruct runs validator tags and flattens the result into a validation error.
func ValidateStruct(target any) error {
	err := validate.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fieldMessage(fe))
	}
	return shared.Validation(strings.Join(parts, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " es obligatorio"
	case "oneof":
		return fmt.Sprintf("%s debe ser uno de [%s]", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s debe ser al menos %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s debe ser como máximo %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s debe ser mayor que %s", field, fe.Param())
	case "email":
		return field + " debe ser un correo válido"
	default:
		return fmt.Sprintf("%s no cumple %s", field, fe.Tag())
	}
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return shared.Validation("el cuerpo de la solicitud está vacío")
	case errors.As(err, &syntaxErr):
		return shared.Validation(fmt.Sprintf("JSON mal formado en la posición %d", syntaxErr.Offset))
	case errors.As(err, &typeErr):
		return shared.Validation(fmt.Sprintf("%s tiene un tipo inválido", typeErr.Field))
	case errors.As(err, &maxErr):
		return shared.Validation("el cuerpo de la solicitud es demasiado grande")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return shared.Validation("campo desconocido " + strings.TrimPrefix(err.Error(), "json: unknown field "))
	default:
		return shared.Validation("JSON mal formado: " + err.Error())
	}
}

// ErrInvalidID indicates a malformed path id.
var ErrInvalidID = shared.Validation("id inválido")

// IDParam parses a positive int64 path parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
