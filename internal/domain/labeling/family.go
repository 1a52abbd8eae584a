package labeling

import "strings"

// PrinterFamily represents the class of output device a label format targets
type PrinterFamily string

const (
	FamilySheet   PrinterFamily = "SHEET"   // Hoja A4, impresora láser/inkjet
	FamilyThermal PrinterFamily = "THERMAL" // Rollo térmico continuo
	FamilyLabel   PrinterFamily = "LABEL"   // Rollo de etiquetas con separación
)

// IsValid checks if the PrinterFamily is a valid value
func (f PrinterFamily) IsValid() bool {
	switch f {
	case FamilySheet, FamilyThermal, FamilyLabel:
		return true
	}
	return false
}

// String returns the string representation of PrinterFamily
func (f PrinterFamily) String() string {
	return string(f)
}

// DisplayName returns the Spanish display name shown in the format picker
func (f PrinterFamily) DisplayName() string {
	switch f {
	case FamilySheet:
		return "Hoja A4"
	case FamilyThermal:
		return "Térmica continua"
	case FamilyLabel:
		return "Rollo de etiquetas"
	default:
		return string(f)
	}
}

// IsContinuous returns true for roll-fed families that print one label per page
func (f PrinterFamily) IsContinuous() bool {
	return f == FamilyThermal || f == FamilyLabel
}

// ParsePrinterFamily accepts the canonical names and the short aliases used by the
// format picker. The second return value is false when nothing matched.
func ParsePrinterFamily(s string) (PrinterFamily, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sheet", "a4", "hoja":
		return FamilySheet, true
	case "thermal", "continuous", "termica":
		return FamilyThermal, true
	case "label", "roll", "etiquetas":
		return FamilyLabel, true
	}
	return "", false
}

// AllPrinterFamilies returns all valid PrinterFamily values
func AllPrinterFamilies() []PrinterFamily {
	return []PrinterFamily{FamilySheet, FamilyThermal, FamilyLabel}
}
