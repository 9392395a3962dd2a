package config

import (
	"os"
	"time"
)

type Config struct {
	ServerPort string

	// Azure Document Intelligence. Leaving the endpoint or key empty
	// disables the cloud engine and the service runs on local
	// extraction only.
	AzureEndpoint string
	AzureKey      string
	ModelID       string
	PollInterval  time.Duration
	PollTimeout   time.Duration

	TesseractDataPath string

	// Excel output. TemplatePath may be empty: a bare estimate sheet is
	// generated instead.
	TemplatePath string
	OutputDir    string

	MaxFileSize int64
}

func LoadConfig() *Config {
	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		AzureEndpoint:     getEnv("AZURE_FORMREC_ENDPOINT", ""),
		AzureKey:          getEnv("AZURE_FORMREC_KEY", ""),
		ModelID:           getEnv("FORM_RECOGNIZER_MODEL_ID", "prebuilt-invoice"),
		PollInterval:      getEnvDuration("OCR_POLL_INTERVAL", 2*time.Second),
		PollTimeout:       getEnvDuration("OCR_POLL_TIMEOUT", 2*time.Minute),
		TesseractDataPath: getEnv("TESSDATA_PREFIX", ""),
		TemplatePath:      getEnv("EXCEL_TEMPLATE_PATH", ""),
		OutputDir:         getEnv("OUTPUT_DIR", "./output"),
		MaxFileSize:       32 << 20, // 32 MB
	}
}

// CloudOCREnabled reports whether the Azure engine is configured.
func (c *Config) CloudOCREnabled() bool {
	return c.AzureEndpoint != "" && c.AzureKey != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
