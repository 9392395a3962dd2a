package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const analyzeAPIVersion = "2023-07-31"

// AnalysisResult is the engine-neutral OCR output. Both the cloud
// pipeline and the local fallback produce it.
type AnalysisResult struct {
	// Content is the full extracted text of the document.
	Content string
	// PageTexts holds the text of each page in order.
	PageTexts []string
	// Confidence is the average word confidence in [0,1].
	Confidence float64
}

// AzureDocIntelClient calls the Azure Document Intelligence REST API:
// submit the PDF, then poll the returned operation until the analysis
// completes. Invoices are analyzed with the prebuilt invoice model and
// the ja-JP locale.
type AzureDocIntelClient struct {
	endpoint     string
	key          string
	modelID      string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewAzureDocIntelClient(endpoint, key, modelID string, pollInterval, pollTimeout time.Duration) *AzureDocIntelClient {
	return &AzureDocIntelClient{
		endpoint:     strings.TrimRight(endpoint, "/"),
		key:          key,
		modelID:      modelID,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

type analyzeOperation struct {
	Status        string              `json:"status"`
	AnalyzeResult *azureAnalyzeResult `json:"analyzeResult"`
	Error         *azureError         `json:"error"`
}

type azureAnalyzeResult struct {
	Content string `json:"content"`
	Pages   []struct {
		Spans []struct {
			Offset int `json:"offset"`
			Length int `json:"length"`
		} `json:"spans"`
		Words []struct {
			Content    string  `json:"content"`
			Confidence float64 `json:"confidence"`
		} `json:"words"`
	} `json:"pages"`
}

type azureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Analyze runs the PDF through the document model and returns the
// extracted text per page along with the average word confidence.
func (c *AzureDocIntelClient) Analyze(ctx context.Context, pdfData []byte) (*AnalysisResult, error) {
	operationURL, err := c.submit(ctx, pdfData)
	if err != nil {
		return nil, err
	}

	result, err := c.poll(ctx, operationURL)
	if err != nil {
		return nil, err
	}

	return buildAnalysisResult(result), nil
}

func (c *AzureDocIntelClient) submit(ctx context.Context, pdfData []byte) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s&locale=ja-JP",
		c.endpoint, c.modelID, analyzeAPIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(pdfData))
	if err != nil {
		return "", fmt.Errorf("failed to build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call document intelligence API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("analyze submission returned status %d: %s", resp.StatusCode, string(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("analyze submission returned no Operation-Location header")
	}

	log.Printf("Document analysis submitted: model=%s, size=%d bytes", c.modelID, len(pdfData))
	return operationURL, nil
}

func (c *AzureDocIntelClient) poll(ctx context.Context, operationURL string) (*azureAnalyzeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		op, err := c.fetchOperation(ctx, operationURL)
		if err != nil {
			return nil, err
		}

		switch op.Status {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return nil, fmt.Errorf("analysis succeeded but returned no result")
			}
			return op.AnalyzeResult, nil
		case "failed":
			if op.Error != nil {
				return nil, fmt.Errorf("analysis failed: %s - %s", op.Error.Code, op.Error.Message)
			}
			return nil, fmt.Errorf("analysis failed without error detail")
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("analysis did not complete within %s: %w", c.pollTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *AzureDocIntelClient) fetchOperation(ctx context.Context, operationURL string) (*analyzeOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll analysis operation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("poll returned status %d: %s", resp.StatusCode, string(body))
	}

	var op analyzeOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("failed to decode poll response: %w", err)
	}
	return &op, nil
}

// buildAnalysisResult slices per-page texts out of the full content via
// the page spans and averages word confidences. Span offsets count
// characters, not bytes, so the content is indexed as runes.
func buildAnalysisResult(result *azureAnalyzeResult) *AnalysisResult {
	content := []rune(result.Content)

	pageTexts := make([]string, 0, len(result.Pages))
	var totalConfidence float64
	var wordCount int

	for _, page := range result.Pages {
		text := ""
		if len(page.Spans) > 0 {
			// One span per page in practice; the first is enough.
			span := page.Spans[0]
			start := span.Offset
			end := span.Offset + span.Length
			if start >= 0 && end <= len(content) && start <= end {
				text = string(content[start:end])
			}
		}
		pageTexts = append(pageTexts, text)

		for _, word := range page.Words {
			totalConfidence += word.Confidence
			wordCount++
		}
	}

	confidence := 0.0
	if wordCount > 0 {
		confidence = totalConfidence / float64(wordCount)
	}

	return &AnalysisResult{
		Content:    result.Content,
		PageTexts:  pageTexts,
		Confidence: confidence,
	}
}
