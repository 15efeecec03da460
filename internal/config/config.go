package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"cees-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey  string        `envconfig:"OPENAI_API_KEY"`
	OpenAITimeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	ChatModel     string        `envconfig:"CHAT_MODEL" default:"gpt-4-turbo-preview"`
	TitleModel    string        `envconfig:"TITLE_MODEL" default:"gpt-3.5-turbo"`

	MaxFileSize      int64  `envconfig:"MAX_FILE_SIZE" default:"10485760"`
	AllowedFileTypes string `envconfig:"ALLOWED_FILE_TYPES" default:"pdf,doc,docx,txt,md"`

	ChunkSize     int `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap  int `envconfig:"CHUNK_OVERLAP" default:"50"`
	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"5"`

	ProcessingWorkers   int `envconfig:"PROCESSING_WORKERS" default:"2"`
	ProcessingQueueSize int `envconfig:"PROCESSING_QUEUE_SIZE" default:"64"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CEES", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// AllowedExtensions returns the configured extension allow-list, lowercased
// and without surrounding whitespace.
func (c *Config) AllowedExtensions() []string {
	parts := strings.Split(c.AllowedFileTypes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
