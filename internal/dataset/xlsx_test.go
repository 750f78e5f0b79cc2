package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"Amount", "Country", "Class"},
		{12.5, "PT", 0},
		{"NaN", "ES", 1},
		{3, "PT", 0},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(path))
}

func TestLoadXLSXFirstSheet(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cards.xlsx")
	writeWorkbook(t, p)

	d, err := Load(p, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Amount", "Country", "Class"}, d.Names())
	assert.Equal(t, 3, d.Rows())

	amt, err := d.Column("Amount")
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, amt.Kind())
	assert.Equal(t, 1, amt.MissingCount())

	country, _ := d.Column("Country")
	assert.Equal(t, KindCategorical, country.Kind())
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cards.xlsx")
	writeWorkbook(t, p)

	d, err := LoadXLSX(p, "other", 0, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, d.NumCols())

	_, err = LoadXLSX(p, "nope", 0, DefaultLoadOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Sheet1, Other")

	_, err = LoadXLSX(p, "", 5, DefaultLoadOptions())
	require.Error(t, err)
}
