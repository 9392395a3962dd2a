package main

import (
	"io/fs"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yusuke2309/pdf-estimate-ocr/client"
	"github.com/yusuke2309/pdf-estimate-ocr/config"
	"github.com/yusuke2309/pdf-estimate-ocr/handler"
	"github.com/yusuke2309/pdf-estimate-ocr/service"
	"github.com/yusuke2309/pdf-estimate-ocr/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	// Initialize OCR engines
	var analyzer service.DocumentAnalyzer
	if cfg.CloudOCREnabled() {
		analyzer = client.NewAzureDocIntelClient(cfg.AzureEndpoint, cfg.AzureKey, cfg.ModelID, cfg.PollInterval, cfg.PollTimeout)
		log.Printf("Cloud OCR enabled: model=%s", cfg.ModelID)
	} else {
		log.Println("AZURE_FORMREC_ENDPOINT / AZURE_FORMREC_KEY not set, running on local extraction only")
	}

	tesseractClient := client.NewTesseractClient(cfg.TesseractDataPath)
	defer tesseractClient.Close()

	// Initialize PDF processor
	pdfProcessor := service.NewPDFProcessor()

	// Initialize service layer
	ocrService := service.NewOcrService(analyzer, tesseractClient, pdfProcessor)
	excelService := service.NewExcelService(cfg.TemplatePath, cfg.OutputDir)

	// Initialize handler layer
	estimateHandler := handler.NewEstimateHandler(ocrService, excelService)
	monthHandler := handler.NewMonthHandler()

	// Setup Gin router
	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxFileSize

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "PDF Estimate OCR",
		})
	})

	// API routes
	api := router.Group("/api")
	{
		api.POST("/process", estimateHandler.ProcessPDFs)
		api.GET("/download", estimateHandler.DownloadExcel)
		api.POST("/ocr_single", estimateHandler.OCRSingle)
		api.POST("/generate_excel", estimateHandler.GenerateExcel)
		api.POST("/detect_months", monthHandler.DetectMonths)
	}

	// Embedded browser UI
	staticFS, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		log.Fatalf("Failed to load embedded frontend: %v", err)
	}
	router.StaticFS("/static", http.FS(staticFS))
	router.GET("/", func(c *gin.Context) {
		index, err := web.StaticFS.ReadFile("static/index.html")
		if err != nil {
			c.String(http.StatusInternalServerError, "index.html not found")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})

	// Start server
	log.Printf("Starting PDF Estimate OCR Service on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
