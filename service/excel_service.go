package service

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yusuke2309/pdf-estimate-ocr/dto"
)

// Estimate template layout: corp name B1, address B2, registration
// number B4, monthly readings B6..B17 (row 5+month).
const (
	corpNameCell   = "B1"
	addressCell    = "B2"
	corpNumberCell = "B4"
	monthBaseRow   = 5
)

// ExcelService writes extracted readings into the estimate workbook.
// It remembers the last written path so the download endpoint can serve
// it without any shared package state.
type ExcelService struct {
	templatePath string
	outputDir    string

	mu       sync.Mutex
	lastPath string
}

func NewExcelService(templatePath, outputDir string) *ExcelService {
	return &ExcelService{
		templatePath: templatePath,
		outputDir:    outputDir,
	}
}

// WriteInvoices merges all invoices into one workbook and saves it
// under a fresh name in the output dir. Later invoices win when two
// fill the same month.
func (s *ExcelService) WriteInvoices(invoices []*dto.Invoice, corpName, address, corpNumber string) (string, error) {
	f, err := s.openWorkbook()
	if err != nil {
		return "", err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)

	if err := f.SetCellValue(sheet, corpNameCell, corpName); err != nil {
		return "", fmt.Errorf("failed to write corp name: %w", err)
	}
	if address != "" {
		f.SetCellValue(sheet, addressCell, address)
	}
	if corpNumber != "" {
		f.SetCellValue(sheet, corpNumberCell, corpNumber)
	}

	for _, invoice := range invoices {
		if invoice == nil {
			continue
		}
		for month := 1; month <= 12; month++ {
			value, ok := invoice.Fields[dto.MonthFieldKey(month)]
			if !ok || value == "" {
				continue
			}

			cell := fmt.Sprintf("B%d", monthBaseRow+month)
			if n, err := strconv.Atoi(value); err == nil {
				f.SetCellValue(sheet, cell, n)
			} else {
				f.SetCellValue(sheet, cell, value)
			}
		}
	}

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(s.outputDir, buildWorkbookFilename(corpName))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	s.mu.Lock()
	s.lastPath = path
	s.mu.Unlock()

	log.Printf("Workbook written: %s", path)
	return path, nil
}

// UpdateMetadata rewrites the address and registration number cells of
// the last written workbook. Used by the download endpoint when the
// user edited those fields after processing.
func (s *ExcelService) UpdateMetadata(address, corpNumber string) error {
	path := s.LastPath()
	if path == "" {
		return fmt.Errorf("no workbook has been generated yet")
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if address != "" {
		f.SetCellValue(sheet, addressCell, address)
	}
	if corpNumber != "" {
		f.SetCellValue(sheet, corpNumberCell, corpNumber)
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// LastPath returns the most recently written workbook path, or "".
func (s *ExcelService) LastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPath
}

// openWorkbook loads the configured template, or builds a bare estimate
// sheet with month labels when none is configured.
func (s *ExcelService) openWorkbook() (*excelize.File, error) {
	if s.templatePath != "" {
		f, err := excelize.OpenFile(s.templatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open template %s: %w", s.templatePath, err)
		}
		return f, nil
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for month := 1; month <= 12; month++ {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", monthBaseRow+month), fmt.Sprintf("%d月", month))
	}
	return f, nil
}

// SanitizeWorkbookName strips filesystem-hostile characters from a corp
// name so it can be used as a download filename.
func SanitizeWorkbookName(corpName string) string {
	cleaned := strings.TrimSpace(corpName)
	for _, ch := range `\/:*?"<>|` {
		cleaned = strings.ReplaceAll(cleaned, string(ch), "")
	}
	if cleaned == "" {
		return "output"
	}
	return cleaned
}

func buildWorkbookFilename(corpName string) string {
	return fmt.Sprintf("%s_%s.xlsx", SanitizeWorkbookName(corpName), uuid.NewString()[:8])
}
