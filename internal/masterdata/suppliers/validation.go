package suppliers

import (
	"regexp"
	"strings"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

var rifPattern = regexp.MustCompile(`^([VEJPG])-?(\d{8})-?(\d)$`)

// NormalizeRIF formats a Venezuelan tax id as X-12345678-9.
func NormalizeRIF(raw string) (string, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	m := rifPattern.FindStringSubmatch(s)
	if m == nil {
		return "", ErrInvalidRIF
	}
	return m[1] + "-" + m[2] + "-" + m[3], nil
}

func (s *Service) validate(f SupplierForm) (Supplier, error) {
	sup := Supplier{
		Name:     core.Clean(f.Name),
		Email:    strings.ToLower(strings.TrimSpace(f.Email)),
		Address:  core.Clean(f.Address),
		IsActive: f.IsActive == nil || *f.IsActive,
	}
	if sup.Name == "" {
		return Supplier{}, shared.Required("el nombre")
	}
	if strings.TrimSpace(f.RIF) != "" {
		rif, err := NormalizeRIF(f.RIF)
		if err != nil {
			return Supplier{}, err
		}
		sup.RIF = &rif
	}
	if strings.TrimSpace(f.Phone) != "" {
		phone, err := core.NormalizePhone(f.Phone)
		if err != nil {
			return Supplier{}, err
		}
		sup.Phone = phone
	}
	return sup, nil
}
