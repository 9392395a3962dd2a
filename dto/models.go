package dto

import "fmt"

type Mode string

const (
	// ModeSingle: one PDF covers one billing month.
	ModeSingle Mode = "single"
	// ModeMulti: one PDF carries 12, 24 or 36 pages of monthly statements.
	ModeMulti Mode = "multi"
)

type MonthOrder string

const (
	OrderAscending  MonthOrder = "ascending"
	OrderDescending MonthOrder = "descending"
)

// Per-file processing states shown in the results table. Kept in
// Japanese: they are part of the UI contract, not log output.
const (
	StatusCompleted = "完了"
	StatusNoKWh     = "kWh未検出"
	StatusError     = "エラー"
)

// Invoice holds what was extracted from one uploaded PDF.
//
// Fields is keyed "1月値".."12月値" with kWh readings as decimal strings,
// matching the cells the Excel template expects. Single mode fills at
// most one key; multi mode up to twelve.
type Invoice struct {
	Fields        map[string]string `json:"fields"`
	RawText       string            `json:"raw_text"`
	OCRConfidence float64           `json:"ocr_confidence"`
}

// MonthFieldKey returns the Fields key for a calendar month.
func MonthFieldKey(month int) string {
	return fmt.Sprintf("%d月値", month)
}
