package labeling

// Cell is one label slot. Index is the label's ordinal within the job.
type Cell struct {
	Page  int `json:"page"`
	Row   int `json:"row"`
	Col   int `json:"col"`
	Index int `json:"index"`
}

// PageLayout lists the cells emitted on one page, in row-major order
type PageLayout struct {
	Index int    `json:"index"`
	Cells []Cell `json:"cells"`
}

// PageCount returns ceil(quantity / perPage), zero for an empty job
func PageCount(quantity, perPage int) int {
	if quantity <= 0 {
		return 0
	}
	if perPage < 1 {
		perPage = 1
	}
	return (quantity + perPage - 1) / perPage
}

// Plan enumerates the pages and cells for quantity labels of a format.
// Roll printers get one page per label; sheets fill rows then columns and stop
// at the last label.
func Plan(f LabelFormat, family PrinterFamily, quantity int) []PageLayout {
	if quantity <= 0 {
		return nil
	}

	if family.IsContinuous() {
		pages := make([]PageLayout, quantity)
		for i := range pages {
			pages[i] = PageLayout{Index: i, Cells: []Cell{{Page: i, Index: i}}}
		}
		return pages
	}

	perPage := f.PerPage
	if perPage < 1 {
		perPage = f.Columns * f.Rows
	}
	pageCount := PageCount(quantity, perPage)
	pages := make([]PageLayout, 0, pageCount)
	for page := 0; page < pageCount; page++ {
		layout := PageLayout{Index: page}
	rows:
		for row := 0; row < f.Rows; row++ {
			for col := 0; col < f.Columns; col++ {
				slot := row*f.Columns + col
				if slot >= perPage {
					break rows
				}
				idx := page*perPage + slot
				if idx >= quantity {
					break rows
				}
				layout.Cells = append(layout.Cells, Cell{Page: page, Row: row, Col: col, Index: idx})
			}
		}
		pages = append(pages, layout)
	}
	return pages
}
