package customers

import (
	"regexp"
	"strings"

	core "github.com/naguara/naguara-pos/internal/shared"
)

var cedulaPattern = regexp.MustCompile(`^([VEJPG])?-?(\d{5,9})$`)

// NormalizeCedula formats an identity document as V-12345678. The prefix
// defaults to V when omitted.
func NormalizeCedula(raw string) (string, error) {
	s := strings.ToUpper(strings.NewReplacer(" ", "", ".", "").Replace(strings.TrimSpace(raw)))
	m := cedulaPattern.FindStringSubmatch(s)
	if m == nil {
		return "", ErrInvalidCedula
	}
	prefix := m[1]
	if prefix == "" {
		prefix = "V"
	}
	return prefix + "-" + m[2], nil
}

func normalize(req CustomerRequest) (Customer, error) {
	cedula, err := NormalizeCedula(req.Cedula)
	if err != nil {
		return Customer{}, err
	}
	c := Customer{
		Cedula:  cedula,
		Name:    core.PersonName(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Address: core.Clean(req.Address),
	}
	if c.Name == "" {
		return Customer{}, core.Validation("el nombre es obligatorio")
	}
	if strings.TrimSpace(req.Phone) != "" {
		if c.Phone, err = core.NormalizePhone(req.Phone); err != nil {
			return Customer{}, err
		}
	}
	return c, nil
}
