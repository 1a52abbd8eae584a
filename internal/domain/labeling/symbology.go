package labeling

// Symbology is a barcode encoding
type Symbology string

const (
	SymbologyEAN13    Symbology = "EAN13"
	SymbologyEAN8     Symbology = "EAN8"
	SymbologyUPC      Symbology = "UPC"
	SymbologyCode128C Symbology = "CODE128C"
	SymbologyCode128  Symbology = "CODE128"
)

// String returns the string representation of Symbology
func (s Symbology) String() string {
	return string(s)
}

// DetectSymbology picks the encoding from the shape of the code:
// 13 digits EAN-13, 8 digits EAN-8, 12 digits UPC-A, other digit runs
// Code 128 set C, anything else Code 128.
func DetectSymbology(code string) Symbology {
	if !isDigits(code) {
		return SymbologyCode128
	}
	switch len(code) {
	case 13:
		return SymbologyEAN13
	case 8:
		return SymbologyEAN8
	case 12:
		return SymbologyUPC
	default:
		return SymbologyCode128C
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
