package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/yusuke2309/pdf-estimate-ocr/client"
	"github.com/yusuke2309/pdf-estimate-ocr/dto"
	"github.com/yusuke2309/pdf-estimate-ocr/utils"
)

// A document shorter than this after OCR is treated as a failed read
// and the next engine in the chain is tried.
const minUsableTextLen = 50

// DocumentAnalyzer is the cloud OCR engine. Nil means no cloud endpoint
// is configured and the service goes straight to local extraction.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, pdfData []byte) (*client.AnalysisResult, error)
}

// OcrService turns an uploaded invoice PDF into an Invoice. Engines are
// tried in order: cloud document intelligence, the PDF's embedded text
// layer, local tesseract OCR over the rasterized pages.
type OcrService struct {
	analyzer     DocumentAnalyzer
	tesseract    *client.TesseractClient
	pdfProcessor PDFProcessor
}

func NewOcrService(analyzer DocumentAnalyzer, tesseract *client.TesseractClient, pdfProcessor PDFProcessor) *OcrService {
	return &OcrService{
		analyzer:     analyzer,
		tesseract:    tesseract,
		pdfProcessor: pdfProcessor,
	}
}

// AnalyzeInvoice processes one PDF.
//
// Single mode returns the raw text and confidence; the caller assigns
// the kWh reading to the month the user selected. Multi mode expects
// 12, 24 or 36 pages, groups them per month starting at startMonth and
// fills Fields with one kWh reading per month.
func (s *OcrService) AnalyzeInvoice(ctx context.Context, content []byte, mode dto.Mode, startMonth int, monthOrder dto.MonthOrder) (*dto.Invoice, error) {
	if mode == dto.ModeMulti {
		if startMonth < 1 || startMonth > 12 {
			return nil, dto.ErrStartMonthRequired
		}
		return s.analyzeMulti(ctx, content, startMonth, monthOrder)
	}
	return s.analyzeSingle(ctx, content)
}

func (s *OcrService) analyzeSingle(ctx context.Context, content []byte) (*dto.Invoice, error) {
	result, err := s.analyze(ctx, content)
	if err != nil {
		return nil, err
	}

	log.Printf("Single mode analysis done: %d chars, confidence=%.2f", len(result.Content), result.Confidence)

	return &dto.Invoice{
		Fields:        map[string]string{},
		RawText:       result.Content,
		OCRConfidence: result.Confidence,
	}, nil
}

func (s *OcrService) analyzeMulti(ctx context.Context, content []byte, startMonth int, monthOrder dto.MonthOrder) (*dto.Invoice, error) {
	// Reject a wrong page count before any OCR work is spent on it.
	numPages, err := s.pdfProcessor.PageCount(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF page count: %w", err)
	}
	if numPages != 12 && numPages != 24 && numPages != 36 {
		return nil, fmt.Errorf("multi-month PDFs must have 12, 24 or 36 pages, got %d", numPages)
	}

	result, err := s.analyze(ctx, content)
	if err != nil {
		return nil, err
	}
	if len(result.PageTexts) != numPages {
		return nil, fmt.Errorf("OCR returned %d pages for a %d-page PDF", len(result.PageTexts), numPages)
	}

	pagesPerMonth := numPages / 12
	fields := make(map[string]string)
	currentMonth := startMonth

	for i := 0; i < 12; i++ {
		start := i * pagesPerMonth
		monthText := strings.Join(result.PageTexts[start:start+pagesPerMonth], "\n")

		if kwh := utils.ExtractKWh(monthText); kwh != "" {
			fields[dto.MonthFieldKey(currentMonth)] = kwh
		}

		if monthOrder == dto.OrderDescending {
			currentMonth = utils.PrevMonth(currentMonth)
		} else {
			currentMonth = utils.NextMonth(currentMonth)
		}
	}

	log.Printf("Multi mode analysis done: %d pages, %d months with readings", numPages, len(fields))

	return &dto.Invoice{
		Fields:        fields,
		RawText:       strings.Join(result.PageTexts, "\n"),
		OCRConfidence: result.Confidence,
	}, nil
}

// analyze runs the engine chain and returns the first usable result.
func (s *OcrService) analyze(ctx context.Context, content []byte) (*client.AnalysisResult, error) {
	if s.analyzer != nil {
		result, err := s.analyzer.Analyze(ctx, content)
		if err == nil && usable(result.Content) {
			return result, nil
		}
		if err != nil {
			log.Printf("Cloud OCR failed, falling back to local extraction: %v", err)
		} else {
			log.Printf("Cloud OCR returned only %d chars, falling back to local extraction", len(strings.TrimSpace(result.Content)))
		}
	}

	return s.analyzeLocal(ctx, content)
}

// analyzeLocal reads the embedded text layer first; scanned PDFs with
// no text layer go through tesseract page by page.
func (s *OcrService) analyzeLocal(ctx context.Context, content []byte) (*client.AnalysisResult, error) {
	pageTexts, err := s.pdfProcessor.ExtractPageTexts(content)
	if err == nil {
		joined := strings.Join(pageTexts, "\n")
		if usable(joined) {
			// An embedded text layer is exact, not an OCR guess.
			return &client.AnalysisResult{
				Content:    joined,
				PageTexts:  pageTexts,
				Confidence: 1.0,
			}, nil
		}
	} else {
		log.Printf("Text layer extraction failed: %v", err)
	}

	if s.tesseract == nil {
		return nil, fmt.Errorf("no text could be extracted from the PDF and local OCR is unavailable")
	}

	images, err := s.pdfProcessor.ExtractImages(content)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize PDF for local OCR: %w", err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no text layer and no page images found in PDF")
	}

	ocrPages := make([]string, 0, len(images))
	var totalConfidence float64
	var pagesWithText int

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, confidence, err := s.tesseract.ExtractTextFromImage(img)
		if err != nil {
			log.Printf("Local OCR failed on page %d: %v", i+1, err)
			ocrPages = append(ocrPages, "")
			continue
		}
		ocrPages = append(ocrPages, text)
		totalConfidence += confidence
		pagesWithText++
	}

	joined := strings.Join(ocrPages, "\n")
	if !usable(joined) {
		return nil, fmt.Errorf("no text could be extracted from the PDF; it may be empty or unreadable")
	}

	confidence := 0.0
	if pagesWithText > 0 {
		confidence = totalConfidence / float64(pagesWithText)
	}

	return &client.AnalysisResult{
		Content:    joined,
		PageTexts:  ocrPages,
		Confidence: confidence,
	}, nil
}

func usable(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= minUsableTextLen
}
