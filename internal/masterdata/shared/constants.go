package shared

const (
	// DefaultPage is the first page.
	DefaultPage = 1
	// DefaultLimit is the page size when none is requested.
	DefaultLimit = 20

	// SortAsc sorts ascending.
	SortAsc = "asc"
	// SortDesc sorts descending.
	SortDesc = "desc"
)

// Units of measure accepted for products.
const (
	UnitKg      = "kg"
	UnitPiece   = "unidad"
	UnitPackage = "paquete"
)

// ValidUnit reports whether u is a known unit of measure.
func ValidUnit(u string) bool {
	switch u {
	case UnitKg, UnitPiece, UnitPackage:
		return true
	}
	return false
}
