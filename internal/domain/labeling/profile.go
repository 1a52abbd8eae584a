package labeling

// A4 sheet dimensions in millimeters
const (
	sheetWidthMM  = 210.0
	sheetHeightMM = 297.0

	sheetDPI      = 300
	continuousDPI = 203
)

// Orientation represents the page orientation
type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// MediaType describes how the printer is fed
type MediaType string

const (
	MediaSheet      MediaType = "sheet"
	MediaContinuous MediaType = "continuous"
	MediaLabelGap   MediaType = "label-gap"
)

// PrinterProfile is the page geometry a family imposes on a format.
// It is derived, never stored.
type PrinterProfile struct {
	Family       PrinterFamily `json:"printer_family"`
	DPI          int           `json:"dpi"`
	PageWidthMM  float64       `json:"page_width_mm"`
	PageHeightMM float64       `json:"page_height_mm"`
	Orientation  Orientation   `json:"orientation"`
	MediaType    MediaType     `json:"media_type"`
}

// ProfileFor derives the printer profile for a format printed on the given family
func ProfileFor(f LabelFormat, family PrinterFamily) PrinterProfile {
	p := PrinterProfile{Family: family}

	switch family {
	case FamilyThermal, FamilyLabel:
		p.DPI = continuousDPI
		p.PageWidthMM = f.PageWidthMM
		if p.PageWidthMM <= 0 {
			p.PageWidthMM = f.WidthMM
		}
		p.PageHeightMM = f.PageHeightMM
		if p.PageHeightMM <= 0 {
			p.PageHeightMM = f.HeightMM
		}
		p.MediaType = MediaContinuous
		if family == FamilyLabel {
			p.MediaType = MediaLabelGap
		}
	default:
		p.Family = FamilySheet
		p.DPI = sheetDPI
		p.PageWidthMM = sheetWidthMM
		p.PageHeightMM = sheetHeightMM
		p.MediaType = MediaSheet
	}

	p.Orientation = OrientationPortrait
	if p.PageWidthMM > p.PageHeightMM {
		p.Orientation = OrientationLandscape
	}
	return p
}

// MMToPixels converts a length to device pixels at the profile resolution
func (p PrinterProfile) MMToPixels(mm float64) float64 {
	return mm / 25.4 * float64(p.DPI)
}
