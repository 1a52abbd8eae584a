package labeling

// Correction is the per-index drift compensation in millimeters. X compounds per
// column and Y per row on sheet printers.
type Correction struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// CalibrationTable maps family and format to corrections.
// Lookup order: format-specific, then family default, then zero.
type CalibrationTable struct {
	defaults map[PrinterFamily]Correction
	formats  map[PrinterFamily]map[string]Correction
}

// NewCalibrationTable creates an empty table
func NewCalibrationTable() *CalibrationTable {
	return &CalibrationTable{
		defaults: make(map[PrinterFamily]Correction),
		formats:  make(map[PrinterFamily]map[string]Correction),
	}
}

// SetFamilyDefault sets the correction used when a format has no entry
func (t *CalibrationTable) SetFamilyDefault(family PrinterFamily, c Correction) {
	t.defaults[family] = c
}

// SetFormat sets the correction for one format of a family
func (t *CalibrationTable) SetFormat(family PrinterFamily, formatID string, c Correction) {
	byID, ok := t.formats[family]
	if !ok {
		byID = make(map[string]Correction)
		t.formats[family] = byID
	}
	byID[formatID] = c
}

// Lookup returns the correction for a family/format pair
func (t *CalibrationTable) Lookup(family PrinterFamily, formatID string) Correction {
	if t == nil {
		return Correction{}
	}
	if c, ok := t.formats[family][formatID]; ok {
		return c
	}
	if c, ok := t.defaults[family]; ok {
		return c
	}
	return Correction{}
}
