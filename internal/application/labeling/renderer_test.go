package labeling_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/labels/internal/application/labeling"
	domain "github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/infrastructure/markup"
)

func TestLabelRenderer_Render(t *testing.T) {
	formats := domain.DefaultCatalog()
	r := labeling.NewLabelRenderer(nil)
	cell := domain.Cell{Page: 0, Row: 1, Col: 2, Index: 5}
	pos := domain.Point{X: 12.5, Y: 40}

	t.Run("sheet label with every field", func(t *testing.T) {
		f := formats.Resolve(domain.FamilySheet, "3x10")
		node, task := r.Render(*coffee(), f, domain.FamilySheet, domain.AllFields, cell, pos)

		class, _ := markup.Attr(node, "class")
		assert.Equal(t, "label", class)
		index, _ := markup.Attr(node, "data-index")
		assert.Equal(t, "5", index)
		style, _ := markup.Attr(node, "style")
		assert.Contains(t, style, "left:12.5mm")
		assert.Contains(t, style, "top:40mm")

		text := markup.TextContent(node)
		assert.Contains(t, text, "Café molido 250g")
		assert.Contains(t, text, "4,95")
		assert.Contains(t, text, "8412345678905")

		require.NotNil(t, task)
		assert.Equal(t, "8412345678905", task.Code)
		assert.False(t, task.ShowText, "the code line is printed separately")
		assert.False(t, task.Continuous)
		assert.Greater(t, task.WidthMM, 0.0)
		assert.GreaterOrEqual(t, task.HeightMM, (f.ContentHeightMM())*0.3-1e-9)

		slot := markup.FindByID(node, task.ID)
		require.NotNil(t, slot)
		marker, ok := markup.Attr(slot, labeling.BarcodeTaskAttr)
		assert.True(t, ok)
		assert.Equal(t, task.ID, marker)
	})

	t.Run("small format prints only code and barcode", func(t *testing.T) {
		f := formats.Resolve(domain.FamilyLabel, "25x13")
		node, task := r.Render(*coffee(), f, domain.FamilyLabel, domain.AllFields, cell, pos)

		class, _ := markup.Attr(node, "class")
		assert.Equal(t, "label label-small", class)
		text := markup.TextContent(node)
		assert.NotContains(t, text, "Café")
		assert.NotContains(t, text, "4,95")
		require.NotNil(t, task)
		assert.True(t, task.Continuous)
		assert.Equal(t, f.BarcodeVerticalShift, task.ShiftMM)
	})

	t.Run("no barcode task without the barcode field", func(t *testing.T) {
		f := formats.Resolve(domain.FamilySheet, "3x10")
		node, task := r.Render(*coffee(), f, domain.FamilySheet,
			domain.NewFieldSet(domain.FieldName, domain.FieldPrice), cell, pos)
		assert.Nil(t, task)
		assert.NotContains(t, markup.TextContent(node), "8412345678905")
	})

	t.Run("barcode carries the text when the code line is hidden", func(t *testing.T) {
		f := formats.Resolve(domain.FamilyThermal, "58x40")
		_, task := r.Render(*coffee(), f, domain.FamilyThermal,
			domain.NewFieldSet(domain.FieldName, domain.FieldBarcode), cell, pos)
		require.NotNil(t, task)
		assert.True(t, task.ShowText)
		assert.True(t, task.Continuous)
	})

	t.Run("task ids are unique per label", func(t *testing.T) {
		f := formats.Resolve(domain.FamilySheet, "3x10")
		_, a := r.Render(*coffee(), f, domain.FamilySheet, domain.AllFields, cell, pos)
		_, b := r.Render(*coffee(), f, domain.FamilySheet, domain.AllFields, cell, pos)
		assert.NotEqual(t, a.ID, b.ID)
	})
}
