package dto

import "errors"

// Custom errors
var (
	ErrCorpNameRequired   = errors.New("corp_name is required")
	ErrInvalidMode        = errors.New("mode must be \"single\" or \"multi\"")
	ErrStartMonthRequired = errors.New("multi mode requires a start_month between 1 and 12")
	ErrNoFiles            = errors.New("at least one PDF file is required")
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// FileResult is one row of the results table: the outcome of processing
// a single uploaded PDF.
type FileResult struct {
	Filename      string            `json:"filename"`
	Status        string            `json:"status"`
	Fields        map[string]string `json:"fields,omitempty"`
	Kwh           string            `json:"kwh,omitempty"`
	OCRText       string            `json:"ocr_text,omitempty"`
	OCRConfidence float64           `json:"ocr_confidence"`
	Error         string            `json:"error,omitempty"`
}

// ProcessResponse is the final response of POST /api/process.
type ProcessResponse struct {
	Success   bool         `json:"success"`
	Results   []FileResult `json:"results"`
	ExcelPath string       `json:"excel_path"`
}

// OCRSingleResponse is the response of POST /api/ocr_single.
type OCRSingleResponse struct {
	Success  bool              `json:"success"`
	Filename string            `json:"filename"`
	Fields   map[string]string `json:"fields"`
	RawText  string            `json:"raw_text"`
	Error    string            `json:"error,omitempty"`
}

// GenerateExcelResponse is the response of POST /api/generate_excel.
type GenerateExcelResponse struct {
	Success   bool   `json:"success"`
	ExcelPath string `json:"excel_path"`
}

// DetectMonthsResponse maps each requested filename to its detected
// month, or null when no heuristic matched.
type DetectMonthsResponse struct {
	Months map[string]*int `json:"months"`
}
