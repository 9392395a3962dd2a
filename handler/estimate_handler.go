package handler

import (
	"context"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yusuke2309/pdf-estimate-ocr/dto"
	"github.com/yusuke2309/pdf-estimate-ocr/service"
	"github.com/yusuke2309/pdf-estimate-ocr/utils"
)

type EstimateHandler struct {
	ocrService   *service.OcrService
	excelService *service.ExcelService
}

func NewEstimateHandler(ocrService *service.OcrService, excelService *service.ExcelService) *EstimateHandler {
	return &EstimateHandler{
		ocrService:   ocrService,
		excelService: excelService,
	}
}

// ProcessPDFs handles POST /api/process: OCR every uploaded invoice and
// write the extracted readings into the estimate workbook. A failing
// file becomes an error row; it never aborts the batch.
func (h *EstimateHandler) ProcessPDFs(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Failed to parse multipart form", err)
		return
	}

	req := &dto.ProcessRequest{
		CorpName:      c.PostForm("corp_name"),
		Address:       c.PostForm("address"),
		CorpNumber:    c.PostForm("corp_number"),
		Mode:          dto.Mode(c.PostForm("mode")),
		MonthOrder:    monthOrderOrDefault(c.PostForm("month_order")),
		MonthMappings: c.PostForm("month_mappings"),
		Files:         form.File["files"],
	}
	if raw := c.PostForm("start_month"); raw != "" {
		req.StartMonth, _ = strconv.Atoi(raw)
	}

	if err := req.Validate(); err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	monthMap, err := dto.ParseMonthMappings(req.MonthMappings)
	if err != nil {
		// The table still renders without the mapping; every file just
		// defaults to January.
		log.Printf("Failed to parse month mappings, ignoring: %v", err)
		monthMap = map[string]int{}
	}

	log.Printf("Processing %d files: corp=%s, mode=%s", len(req.Files), req.CorpName, req.Mode)

	results := make([]dto.FileResult, 0, len(req.Files))
	invoices := make([]*dto.Invoice, 0, len(req.Files))

	for _, fileHeader := range req.Files {
		result, invoice := h.processFile(c.Request.Context(), fileHeader, req, monthMap)
		results = append(results, result)
		if invoice != nil {
			invoices = append(invoices, invoice)
		}
	}

	excelPath, err := h.excelService.WriteInvoices(invoices, req.CorpName, req.Address, req.CorpNumber)
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to write workbook", err)
		return
	}

	c.JSON(http.StatusOK, dto.ProcessResponse{
		Success:   true,
		Results:   results,
		ExcelPath: excelPath,
	})
}

// processFile runs OCR on one upload and builds its results-table row.
func (h *EstimateHandler) processFile(ctx context.Context, fileHeader *multipart.FileHeader, req *dto.ProcessRequest, monthMap map[string]int) (dto.FileResult, *dto.Invoice) {
	content, err := readUpload(fileHeader)
	if err != nil {
		log.Printf("Failed to read %s: %v", fileHeader.Filename, err)
		return dto.FileResult{Filename: fileHeader.Filename, Status: dto.StatusError, Error: err.Error()}, nil
	}

	invoice, err := h.ocrService.AnalyzeInvoice(ctx, content, req.Mode, req.StartMonth, req.MonthOrder)
	if err != nil {
		log.Printf("Failed to process %s: %v", fileHeader.Filename, err)
		return dto.FileResult{Filename: fileHeader.Filename, Status: dto.StatusError, Error: err.Error()}, nil
	}

	if req.Mode == dto.ModeMulti {
		return dto.FileResult{
			Filename:      fileHeader.Filename,
			Status:        dto.StatusCompleted,
			Fields:        invoice.Fields,
			OCRConfidence: invoice.OCRConfidence,
		}, invoice
	}

	// Single mode: the reading goes to the month the user picked for
	// this file, defaulting to January.
	selectedMonth := monthMap[fileHeader.Filename]
	if selectedMonth < 1 || selectedMonth > 12 {
		selectedMonth = 1
	}

	kwh := utils.ExtractKWh(invoice.RawText)
	status := dto.StatusCompleted
	if kwh != "" {
		invoice.Fields[dto.MonthFieldKey(selectedMonth)] = kwh
		log.Printf("%s: %s = %s kWh (confidence %.2f)", fileHeader.Filename, dto.MonthFieldKey(selectedMonth), kwh, invoice.OCRConfidence)
	} else {
		status = dto.StatusNoKWh
		log.Printf("%s: no kWh reading found", fileHeader.Filename)
	}

	return dto.FileResult{
		Filename:      fileHeader.Filename,
		Status:        status,
		Fields:        invoice.Fields,
		Kwh:           kwh,
		OCRText:       invoice.RawText,
		OCRConfidence: invoice.OCRConfidence,
	}, invoice
}

// DownloadExcel handles GET /api/download: stream the last workbook,
// refreshing the address and registration number cells when given.
func (h *EstimateHandler) DownloadExcel(c *gin.Context) {
	path := h.excelService.LastPath()
	if path == "" {
		h.sendError(c, http.StatusNotFound, "No workbook has been generated yet", nil)
		return
	}
	if _, err := os.Stat(path); err != nil {
		h.sendError(c, http.StatusNotFound, "Workbook file is missing", err)
		return
	}

	address := c.Query("address")
	corpNumber := c.Query("corp_number")
	if address != "" || corpNumber != "" {
		if err := h.excelService.UpdateMetadata(address, corpNumber); err != nil {
			// Serve the workbook as-is; stale metadata beats no file.
			log.Printf("Failed to update workbook metadata: %v", err)
		}
	}

	filename := service.SanitizeWorkbookName(c.Query("corp_name")) + ".xlsx"
	c.FileAttachment(path, filename)
}

// OCRSingle handles POST /api/ocr_single: process one PDF and return
// its fields without touching the workbook.
func (h *EstimateHandler) OCRSingle(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "file is required", err)
		return
	}

	mode := dto.Mode(c.PostForm("mode"))
	if mode != dto.ModeSingle && mode != dto.ModeMulti {
		h.sendError(c, http.StatusBadRequest, dto.ErrInvalidMode.Error(), dto.ErrInvalidMode)
		return
	}

	selectedMonth, _ := strconv.Atoi(c.PostForm("selected_month"))
	startMonth, _ := strconv.Atoi(c.PostForm("start_month"))

	content, err := readUpload(fileHeader)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Failed to read file", err)
		return
	}

	invoice, err := h.ocrService.AnalyzeInvoice(c.Request.Context(), content, mode, startMonth, monthOrderOrDefault(c.PostForm("month_order")))
	if err != nil {
		log.Printf("Failed to process %s: %v", fileHeader.Filename, err)
		c.JSON(http.StatusInternalServerError, dto.OCRSingleResponse{
			Success:  false,
			Filename: fileHeader.Filename,
			Error:    err.Error(),
		})
		return
	}

	if mode == dto.ModeSingle && selectedMonth >= 1 && selectedMonth <= 12 {
		if kwh := utils.ExtractKWh(invoice.RawText); kwh != "" {
			invoice.Fields[dto.MonthFieldKey(selectedMonth)] = kwh
		}
	}

	c.JSON(http.StatusOK, dto.OCRSingleResponse{
		Success:  true,
		Filename: fileHeader.Filename,
		Fields:   invoice.Fields,
		RawText:  invoice.RawText,
	})
}

// GenerateExcel handles POST /api/generate_excel: rebuild the workbook
// from fields extracted in an earlier pass.
func (h *EstimateHandler) GenerateExcel(c *gin.Context) {
	var req dto.GenerateExcelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	invoices := make([]*dto.Invoice, 0, len(req.InvoicesData))
	for _, data := range req.InvoicesData {
		invoices = append(invoices, &dto.Invoice{Fields: data.Fields})
	}

	excelPath, err := h.excelService.WriteInvoices(invoices, req.CorpName, "", "")
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to write workbook", err)
		return
	}

	c.JSON(http.StatusOK, dto.GenerateExcelResponse{
		Success:   true,
		ExcelPath: excelPath,
	})
}

// sendError sends a structured error response
func (h *EstimateHandler) sendError(c *gin.Context, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
		log.Printf("Error: %s - %v", message, err)
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   "PROCESSING_FAILED",
		Message: errorMsg,
		Code:    statusCode,
	})
}

func monthOrderOrDefault(raw string) dto.MonthOrder {
	if dto.MonthOrder(raw) == dto.OrderDescending {
		return dto.OrderDescending
	}
	return dto.OrderAscending
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
