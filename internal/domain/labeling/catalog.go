package labeling

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed formats.yaml
var embeddedFormats []byte

// familyRecord is one family section of formats.yaml
type familyRecord struct {
	Calibration struct {
		Default Correction            `yaml:"default"`
		Formats map[string]Correction `yaml:"formats"`
	} `yaml:"calibration"`
	Formats []formatRecord `yaml:"formats"`
}

// Catalog is the read-only table of label formats and calibration data
type Catalog struct {
	formats     map[PrinterFamily][]LabelFormat
	calibration *CalibrationTable
}

var defaultCatalog = MustLoadCatalog(embeddedFormats)

// DefaultCatalog returns the catalog compiled into the binary
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// LoadCatalog parses a catalog document. Every valid family must list at least one format.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc map[PrinterFamily]familyRecord
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse format catalog: %w", err)
	}

	c := &Catalog{
		formats:     make(map[PrinterFamily][]LabelFormat),
		calibration: NewCalibrationTable(),
	}
	for family, rec := range doc {
		if !family.IsValid() {
			return nil, fmt.Errorf("unknown printer family in catalog: %q", family)
		}
		seen := make(map[string]bool, len(rec.Formats))
		for _, fr := range rec.Formats {
			if fr.ID == "" {
				return nil, fmt.Errorf("format without id in family %s", family)
			}
			if seen[fr.ID] {
				return nil, fmt.Errorf("duplicate format %q in family %s", fr.ID, family)
			}
			if fr.Width <= 0 || fr.Height <= 0 {
				return nil, fmt.Errorf("format %s/%s must have positive dimensions", family, fr.ID)
			}
			seen[fr.ID] = true
			c.formats[family] = append(c.formats[family], fr.toFormat(family))
		}
		c.calibration.SetFamilyDefault(family, rec.Calibration.Default)
		for id, corr := range rec.Calibration.Formats {
			c.calibration.SetFormat(family, id, corr)
		}
	}
	for _, family := range AllPrinterFamilies() {
		if len(c.formats[family]) == 0 {
			return nil, fmt.Errorf("printer family %s has no formats", family)
		}
	}
	return c, nil
}

// MustLoadCatalog is LoadCatalog for data known at build time
func MustLoadCatalog(data []byte) *Catalog {
	c, err := LoadCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Formats returns the formats of a family in catalog order
func (c *Catalog) Formats(family PrinterFamily) []LabelFormat {
	src := c.formats[family]
	out := make([]LabelFormat, len(src))
	copy(out, src)
	return out
}

// Lookup finds a format by family and id
func (c *Catalog) Lookup(family PrinterFamily, id string) (LabelFormat, bool) {
	for _, f := range c.formats[family] {
		if f.ID == id {
			return f, true
		}
	}
	return LabelFormat{}, false
}

// Resolve returns the fully defaulted format for a selection. Unknown ids fall back
// to the family's first format, and an unknown family falls back to sheets.
func (c *Catalog) Resolve(family PrinterFamily, id string) LabelFormat {
	if !family.IsValid() {
		family = FamilySheet
	}
	if f, ok := c.Lookup(family, id); ok {
		return f
	}
	return c.formats[family][0]
}

// Calibration returns the calibration table of the catalog
func (c *Catalog) Calibration() *CalibrationTable {
	return c.calibration
}
