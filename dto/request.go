package dto

import (
	"encoding/json"
	"mime/multipart"
)

// MonthMapping is one entry of the filename→month list the browser
// posts alongside the files in single mode.
type MonthMapping struct {
	Filename      string `json:"filename"`
	SelectedMonth int    `json:"selectedMonth"`
}

// ParseMonthMappings decodes the month_mappings form field into a
// filename→month lookup.
func ParseMonthMappings(raw string) (map[string]int, error) {
	if raw == "" {
		return map[string]int{}, nil
	}

	var mappings []MonthMapping
	if err := json.Unmarshal([]byte(raw), &mappings); err != nil {
		return nil, err
	}

	monthMap := make(map[string]int, len(mappings))
	for _, m := range mappings {
		monthMap[m.Filename] = m.SelectedMonth
	}
	return monthMap, nil
}

// ProcessRequest represents the multipart payload of POST /api/process.
type ProcessRequest struct {
	CorpName      string
	Address       string
	CorpNumber    string
	Mode          Mode
	StartMonth    int
	MonthOrder    MonthOrder
	MonthMappings string
	Files         []*multipart.FileHeader
}

// Validate performs basic validation on the request
func (r *ProcessRequest) Validate() error {
	if r.CorpName == "" {
		return ErrCorpNameRequired
	}
	if r.Mode != ModeSingle && r.Mode != ModeMulti {
		return ErrInvalidMode
	}
	if r.Mode == ModeMulti && (r.StartMonth < 1 || r.StartMonth > 12) {
		return ErrStartMonthRequired
	}
	if len(r.Files) == 0 {
		return ErrNoFiles
	}
	return nil
}

// GenerateExcelRequest rebuilds a workbook from fields extracted by an
// earlier OCR pass.
type GenerateExcelRequest struct {
	CorpName     string        `json:"corp_name" binding:"required"`
	InvoicesData []InvoiceData `json:"invoices_data" binding:"required"`
}

type InvoiceData struct {
	Fields map[string]string `json:"fields"`
}

// DetectMonthsRequest asks the server which billing month each filename
// implies.
type DetectMonthsRequest struct {
	Filenames []string `json:"filenames" binding:"required"`
}
