package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"p2pulse/internal/files"
)

func TestExcelWriterWorkbook(t *testing.T) {
	layout := files.Layout{Root: t.TempDir()}
	res := sampleResult()
	tables := BuildTables(res)

	w := NewExcelWriter(layout, []string{TableAssetStats, TablePriceStats}, testLogger())
	require.NoError(t, w.WriteWorkbook(res, tables))

	path := layout.WorkbookPath("2023", "completed")
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Equal(t, []string{"Overview", TableAssetStats, TablePriceStats}, sheets)

	v, err := f.GetCellValue("Overview", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Period", v)
	v, err = f.GetCellValue("Overview", "B1")
	require.NoError(t, err)
	assert.Equal(t, "2023", v)

	v, err = f.GetCellValue(TableAssetStats, "A1")
	require.NoError(t, err)
	assert.Equal(t, "asset", v)
	v, err = f.GetCellValue(TableAssetStats, "E2")
	require.NoError(t, err)
	assert.Equal(t, "7700.00", v)
}

func TestExcelWriterEmptyIncludeListIncludesAll(t *testing.T) {
	layout := files.Layout{Root: t.TempDir()}
	res := sampleResult()
	tables := BuildTables(res)

	w := NewExcelWriter(layout, nil, testLogger())
	require.NoError(t, w.WriteWorkbook(res, tables))

	f, err := excelize.OpenFile(layout.WorkbookPath("2023", "completed"))
	require.NoError(t, err)
	defer f.Close()

	assert.Len(t, f.GetSheetList(), len(tables)+1)
}
