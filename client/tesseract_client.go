package client

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"

	"github.com/otiai10/gosseract/v2"
)

// TesseractClient runs local OCR over rasterized invoice pages. It is
// the offline fallback when no cloud endpoint is configured or the
// cloud analysis comes back unusable.
type TesseractClient struct {
	dataPath string
}

func NewTesseractClient(dataPath string) *TesseractClient {
	return &TesseractClient{
		dataPath: dataPath,
	}
}

// ExtractTextFromImage extracts text from one page image along with the
// average word confidence, rescaled from tesseract's 0-100 range to the
// 0-1 range the cloud engine reports.
func (tc *TesseractClient) ExtractTextFromImage(img image.Image) (string, float64, error) {
	tempFile, err := saveTempImage(img)
	if err != nil {
		return "", 0, fmt.Errorf("failed to save temp image: %w", err)
	}
	defer os.Remove(tempFile)

	return tc.extractText(tempFile)
}

func (tc *TesseractClient) extractText(filePath string) (string, float64, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if tc.dataPath != "" {
		client.SetTessdataPrefix(tc.dataPath)
	}

	// Utility invoices mix Japanese labels with latin units and digits.
	if err := client.SetLanguage("jpn", "eng"); err != nil {
		return "", 0, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImage(filePath); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("failed to extract text: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Confidence is best effort; the text alone is still useful.
		return text, 0, nil
	}

	var totalConf float64
	var count int
	for _, box := range boxes {
		totalConf += box.Confidence
		count++
	}

	avgConf := 0.0
	if count > 0 {
		avgConf = totalConf / float64(count) / 100.0
	}

	return text, avgConf, nil
}

// saveTempImage saves an image.Image to a temporary PNG file
func saveTempImage(img image.Image) (string, error) {
	tempFile, err := os.CreateTemp("", "invoice-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	if err := png.Encode(tempFile, img); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return tempFile.Name(), nil
}

// Close performs cleanup
func (tc *TesseractClient) Close() {
	log.Println("Tesseract client closed")
}
