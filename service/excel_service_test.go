package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yusuke2309/pdf-estimate-ocr/dto"
)

func TestWriteInvoices(t *testing.T) {
	svc := NewExcelService("", t.TempDir())

	invoices := []*dto.Invoice{
		{Fields: map[string]string{"1月値": "12345"}},
		{Fields: map[string]string{"12月値": "99999"}},
		nil,
	}

	path, err := svc.WriteInvoices(invoices, "テスト株式会社", "東京都港区1-2-3", "1234567890123")
	require.NoError(t, err)
	assert.Equal(t, path, svc.LastPath())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)

	corpName, _ := f.GetCellValue(sheet, "B1")
	assert.Equal(t, "テスト株式会社", corpName)

	address, _ := f.GetCellValue(sheet, "B2")
	assert.Equal(t, "東京都港区1-2-3", address)

	corpNumber, _ := f.GetCellValue(sheet, "B4")
	assert.Equal(t, "1234567890123", corpNumber)

	jan, _ := f.GetCellValue(sheet, "B6")
	assert.Equal(t, "12345", jan)

	dec, _ := f.GetCellValue(sheet, "B17")
	assert.Equal(t, "99999", dec)

	// Built without a template, the sheet carries its own month labels.
	label, _ := f.GetCellValue(sheet, "A6")
	assert.Equal(t, "1月", label)
}

func TestWriteInvoicesEmptyMonthsLeftBlank(t *testing.T) {
	svc := NewExcelService("", t.TempDir())

	path, err := svc.WriteInvoices([]*dto.Invoice{{Fields: map[string]string{"3月値": "45678"}}}, "会社", "", "")
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	mar, _ := f.GetCellValue(sheet, "B8")
	assert.Equal(t, "45678", mar)

	feb, _ := f.GetCellValue(sheet, "B7")
	assert.Empty(t, feb)
}

func TestUpdateMetadata(t *testing.T) {
	svc := NewExcelService("", t.TempDir())

	_, err := svc.WriteInvoices([]*dto.Invoice{{Fields: map[string]string{}}}, "会社", "", "")
	require.NoError(t, err)

	err = svc.UpdateMetadata("大阪市北区4-5-6", "9876543210987")
	require.NoError(t, err)

	f, err := excelize.OpenFile(svc.LastPath())
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	address, _ := f.GetCellValue(sheet, "B2")
	assert.Equal(t, "大阪市北区4-5-6", address)

	corpNumber, _ := f.GetCellValue(sheet, "B4")
	assert.Equal(t, "9876543210987", corpNumber)
}

func TestUpdateMetadataWithoutWorkbook(t *testing.T) {
	svc := NewExcelService("", t.TempDir())
	assert.Error(t, svc.UpdateMetadata("addr", "num"))
}

func TestWriteInvoicesUniqueFilenames(t *testing.T) {
	svc := NewExcelService("", t.TempDir())

	first, err := svc.WriteInvoices(nil, "会社", "", "")
	require.NoError(t, err)
	second, err := svc.WriteInvoices(nil, "会社", "", "")
	require.NoError(t, err)

	assert.NotEqual(t, filepath.Base(first), filepath.Base(second))
}

func TestSanitizeWorkbookName(t *testing.T) {
	assert.Equal(t, "〇〇株式会社", SanitizeWorkbookName("〇〇株式会社"))
	assert.Equal(t, "ab", SanitizeWorkbookName(`a\/:*?"<>|b`))
	assert.Equal(t, "output", SanitizeWorkbookName(""))
	assert.Equal(t, "output", SanitizeWorkbookName(`\/:`))
}
