package labeling

import (
	"testing"

	"github.com/erp/labels/internal/domain/catalog"
	"github.com/erp/labels/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCount(t *testing.T) {
	perPage := 30
	for qty := 1; qty <= perPage; qty++ {
		assert.Equal(t, 1, PageCount(qty, perPage), "quantity %d", qty)
	}
	assert.Equal(t, 2, PageCount(perPage+1, perPage))
	assert.Equal(t, 3, PageCount(65, perPage))
	assert.Equal(t, 0, PageCount(0, perPage))
	assert.Equal(t, 4, PageCount(4, 0))
}

func TestPlan_SheetPartialLastPage(t *testing.T) {
	f := DefaultCatalog().Resolve(FamilySheet, "3x10")
	require.Equal(t, 30, f.PerPage)

	pages := Plan(f, FamilySheet, 65)
	require.Len(t, pages, 3)
	assert.Len(t, pages[0].Cells, 30)
	assert.Len(t, pages[1].Cells, 30)

	last := pages[2]
	assert.Equal(t, 2, last.Index)
	require.Len(t, last.Cells, 5)
	expected := [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}}
	for i, cell := range last.Cells {
		assert.Equal(t, expected[i][0], cell.Row)
		assert.Equal(t, expected[i][1], cell.Col)
		assert.Equal(t, 60+i, cell.Index)
		assert.Equal(t, 2, cell.Page)
	}
}

func TestPlan_SheetRowMajor(t *testing.T) {
	f := LabelFormat{Columns: 2, Rows: 2, PerPage: 4}
	pages := Plan(f, FamilySheet, 3)
	require.Len(t, pages, 1)
	assert.Equal(t, []Cell{
		{Page: 0, Row: 0, Col: 0, Index: 0},
		{Page: 0, Row: 0, Col: 1, Index: 1},
		{Page: 0, Row: 1, Col: 0, Index: 2},
	}, pages[0].Cells)
}

func TestPlan_SheetPerPageBelowGrid(t *testing.T) {
	f := LabelFormat{Columns: 3, Rows: 3, PerPage: 7}
	pages := Plan(f, FamilySheet, 9)
	require.Len(t, pages, 2)
	assert.Len(t, pages[0].Cells, 7)
	assert.Len(t, pages[1].Cells, 2)
	assert.Equal(t, 7, pages[1].Cells[0].Index)
}

func TestPlan_Continuous(t *testing.T) {
	f := DefaultCatalog().Resolve(FamilyThermal, "58x40")
	pages := Plan(f, FamilyThermal, 4)
	require.Len(t, pages, 4)
	for i, p := range pages {
		assert.Equal(t, i, p.Index)
		require.Len(t, p.Cells, 1)
		assert.Equal(t, Cell{Page: i, Index: i}, p.Cells[0])
	}
}

func TestPlan_Empty(t *testing.T) {
	assert.Nil(t, Plan(LabelFormat{Columns: 1, Rows: 1, PerPage: 1}, FamilySheet, 0))
}

func TestJobState_Transitions(t *testing.T) {
	tests := []struct {
		from, to JobState
		allowed  bool
	}{
		{JobStateIdle, JobStateLayout, true},
		{JobStateIdle, JobStateFailed, true},
		{JobStateIdle, JobStateDone, false},
		{JobStateLayout, JobStateRasterize, true},
		{JobStateLayout, JobStateDone, true},
		{JobStateLayout, JobStateIdle, false},
		{JobStateRasterize, JobStateDone, true},
		{JobStateRasterize, JobStateFailed, true},
		{JobStateRasterize, JobStateLayout, false},
		{JobStateDone, JobStateIdle, true},
		{JobStateDone, JobStateLayout, false},
		{JobStateFailed, JobStateIdle, true},
		{JobState("BOGUS"), JobStateIdle, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, JobStateLayout.IsBusy())
	assert.True(t, JobStateRasterize.IsBusy())
	assert.False(t, JobStateIdle.IsBusy())
	assert.True(t, JobStateFailed.IsTerminal())
	assert.False(t, JobState("BOGUS").IsValid())
}

func testProduct() catalog.Product {
	return catalog.Product{
		ID:            "p-1",
		Name:          "Café molido 250g",
		Code:          "8412345678905",
		Price:         decimal.RequireFromString("4.95"),
		StockQuantity: 12,
	}
}

func TestNewLabelJob(t *testing.T) {
	c := DefaultCatalog()
	sheet := c.Resolve(FamilySheet, "3x10")

	t.Run("valid job", func(t *testing.T) {
		job, err := NewLabelJob(testProduct(), sheet, FamilySheet, 65, AllFields, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, job.PageCount())
		assert.Equal(t, AllFields, job.Fields)
		assert.Equal(t, "Etiquetas_Café_molido_250g.pdf", job.Filename())
		assert.Equal(t, FamilySheet, job.Profile().Family)
		assert.Len(t, job.Plan(), 3)
	})

	t.Run("zero fields means all", func(t *testing.T) {
		job, err := NewLabelJob(testProduct(), sheet, FamilySheet, 1, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, AllFields, job.Fields)
	})

	t.Run("small format override applied", func(t *testing.T) {
		small := c.Resolve(FamilyLabel, "25x13")
		job, err := NewLabelJob(testProduct(), small, FamilyLabel, 2, AllFields, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"code", "barcode"}, job.Fields.Names())
		assert.Equal(t, 2, job.PageCount())
	})

	t.Run("quantity below one", func(t *testing.T) {
		_, err := NewLabelJob(testProduct(), sheet, FamilySheet, 0, AllFields, 0)
		assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))
	})

	t.Run("quantity above limit", func(t *testing.T) {
		_, err := NewLabelJob(testProduct(), sheet, FamilySheet, 11, AllFields, 10)
		assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))
	})

	t.Run("family mismatch", func(t *testing.T) {
		_, err := NewLabelJob(testProduct(), sheet, FamilyThermal, 1, AllFields, 0)
		assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))
	})

	t.Run("invalid family", func(t *testing.T) {
		_, err := NewLabelJob(testProduct(), sheet, PrinterFamily("LASER"), 1, AllFields, 0)
		assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))
	})

	t.Run("empty code with barcode requested", func(t *testing.T) {
		p := testProduct()
		p.Code = "  "
		_, err := NewLabelJob(p, sheet, FamilySheet, 1, AllFields, 0)
		assert.Equal(t, shared.CodeInvalidBarcodePayload, shared.CodeOf(err))
	})

	t.Run("empty code is fine when only name and price print", func(t *testing.T) {
		p := testProduct()
		p.Code = ""
		job, err := NewLabelJob(p, sheet, FamilySheet, 1, NewFieldSet(FieldName, FieldPrice), 0)
		require.NoError(t, err)
		assert.False(t, job.Fields.Has(FieldBarcode))
	})

	t.Run("negative price", func(t *testing.T) {
		p := testProduct()
		p.Price = decimal.NewFromInt(-1)
		_, err := NewLabelJob(p, sheet, FamilySheet, 1, AllFields, 0)
		assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))
	})
}

func TestPrinterFamily(t *testing.T) {
	tests := []struct {
		input    string
		expected PrinterFamily
		ok       bool
	}{
		{"SHEET", FamilySheet, true},
		{"a4", FamilySheet, true},
		{"Thermal", FamilyThermal, true},
		{"continuous", FamilyThermal, true},
		{"roll", FamilyLabel, true},
		{" label ", FamilyLabel, true},
		{"laser", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParsePrinterFamily(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}

	assert.True(t, FamilyLabel.IsContinuous())
	assert.False(t, FamilySheet.IsContinuous())
	assert.Equal(t, "Hoja A4", FamilySheet.DisplayName())
	assert.Len(t, AllPrinterFamilies(), 3)
}
