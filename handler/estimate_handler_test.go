package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusuke2309/pdf-estimate-ocr/dto"
	"github.com/yusuke2309/pdf-estimate-ocr/service"
)

func estimateRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ocrService := service.NewOcrService(nil, nil, service.NewPDFProcessor())
	excelService := service.NewExcelService("", t.TempDir())
	h := NewEstimateHandler(ocrService, excelService)

	router := gin.New()
	router.POST("/api/process", h.ProcessPDFs)
	router.GET("/api/download", h.DownloadExcel)
	router.POST("/api/ocr_single", h.OCRSingle)
	router.POST("/api/generate_excel", h.GenerateExcel)
	return router
}

// ocrSingleBody builds a multipart body with the single "file" part the
// ocr_single endpoint expects. An empty filename omits the part.
func ocrSingleBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for filename, content := range files {
		part, err := writer.CreateFormFile("files", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestProcessPDFsMissingCorpName(t *testing.T) {
	router := estimateRouter(t)

	body, contentType := multipartBody(t,
		map[string]string{"mode": "single"},
		map[string][]byte{"a.pdf": []byte("%PDF-1.4")},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCorpNameRequired.Error(), resp.Message)
}

func TestProcessPDFsNoFiles(t *testing.T) {
	router := estimateRouter(t)

	body, contentType := multipartBody(t,
		map[string]string{"corp_name": "会社", "mode": "single"},
		nil,
	)

	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessPDFsUnreadableFileBecomesErrorRow(t *testing.T) {
	router := estimateRouter(t)

	body, contentType := multipartBody(t,
		map[string]string{
			"corp_name":      "会社",
			"mode":           "single",
			"month_mappings": `[{"filename":"broken.pdf","selectedMonth":4}]`,
		},
		map[string][]byte{"broken.pdf": []byte("this is not a pdf")},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, dto.StatusError, resp.Results[0].Status)
	assert.NotEmpty(t, resp.Results[0].Error)
	assert.NotEmpty(t, resp.ExcelPath)
}

func TestOCRSingleMissingFile(t *testing.T) {
	router := estimateRouter(t)

	body, contentType := ocrSingleBody(t, map[string]string{"mode": "single"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/ocr_single", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PROCESSING_FAILED", resp.Error)
}

func TestOCRSingleInvalidMode(t *testing.T) {
	router := estimateRouter(t)

	body, contentType := ocrSingleBody(t,
		map[string]string{"mode": "batch"},
		"a.pdf", []byte("%PDF-1.4"),
	)
	req := httptest.NewRequest(http.MethodPost, "/api/ocr_single", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrInvalidMode.Error(), resp.Message)
}

func TestOCRSingleUnreadablePDF(t *testing.T) {
	router := estimateRouter(t)

	body, contentType := ocrSingleBody(t,
		map[string]string{"mode": "single", "selected_month": "2"},
		"broken.pdf", []byte("this is not a pdf"),
	)
	req := httptest.NewRequest(http.MethodPost, "/api/ocr_single", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.OCRSingleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "broken.pdf", resp.Filename)
	assert.NotEmpty(t, resp.Error)
}

func TestDownloadWithoutWorkbook(t *testing.T) {
	router := estimateRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/download", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateExcelAndDownload(t *testing.T) {
	router := estimateRouter(t)

	payload := `{"corp_name":"テスト株式会社","invoices_data":[{"fields":{"5月値":"34567"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate_excel", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.GenerateExcelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ExcelPath)

	req = httptest.NewRequest(http.MethodGet, "/api/download?corp_name=テスト株式会社", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
}

func TestGenerateExcelMissingCorpName(t *testing.T) {
	router := estimateRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generate_excel", strings.NewReader(`{"invoices_data":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
