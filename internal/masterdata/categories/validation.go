package categories

import (
	"strings"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

func (s *Service) validate(f CategoryForm) (CategoryForm, error) {
	f.Name = core.Clean(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	if f.Name == "" {
		return f, shared.Required("el nombre")
	}
	return f, nil
}
