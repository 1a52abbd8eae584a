package labeling_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/labels/internal/application/labeling"
)

func TestPriceFormatter(t *testing.T) {
	t.Run("spanish euros by default", func(t *testing.T) {
		f, err := labeling.NewPriceFormatter("", "")
		require.NoError(t, err)

		got := f.Format(decimal.RequireFromString("4.95"))
		assert.Contains(t, got, "4,95")
		assert.Contains(t, got, "€")
	})

	t.Run("rounds to the currency precision", func(t *testing.T) {
		f, err := labeling.NewPriceFormatter("EUR", "es")
		require.NoError(t, err)
		assert.Contains(t, f.Format(decimal.RequireFromString("2.499")), "2,50")
		assert.Contains(t, f.Format(decimal.Zero), "0,00")
	})

	t.Run("currencies without minor units", func(t *testing.T) {
		f, err := labeling.NewPriceFormatter("JPY", "ja")
		require.NoError(t, err)
		assert.NotContains(t, f.Format(decimal.RequireFromString("1200.4")), ".")
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := labeling.NewPriceFormatter("EURO", "es")
		assert.Error(t, err)
		_, err = labeling.NewPriceFormatter("EUR", "not a tag!")
		assert.Error(t, err)
	})
}
