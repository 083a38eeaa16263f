package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// AppEnv is the running environment (development/production).
	AppEnv string
	// ServerPort is the HTTP port to listen on.
	ServerPort string
	// Database connection parameters for the single logical connection.
	DBDriver   string // "postgres" or "mysql"
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	// Pool bounds passed to the driver.
	DBPoolMin int
	DBPoolMax int
	// ConnectAttempts is the total retry budget for establishing the connection.
	ConnectAttempts int
	// ConnectRetryDelay is the fixed pause between failed attempts.
	ConnectRetryDelay time.Duration
	// LargeResultThreshold is the row count above which results are staged.
	LargeResultThreshold int
	// StagedResultTTL is the cache lifetime of a staged result.
	StagedResultTTL time.Duration
	// CacheType selects the staged-result cache: "redis" or "memory".
	CacheType string
	// Redis settings for the staged-result cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// StorageType determines where exports land: "local" or "s3".
	StorageType string
	// LocalStoragePath is the directory for local exports.
	LocalStoragePath string
	// AWSRegion is the AWS region for S3 uploads.
	AWSRegion string
	// S3Bucket is the target S3 bucket name.
	S3Bucket string
	// S3Endpoint is an optional custom endpoint (for non-AWS S3 providers like MinIO).
	S3Endpoint string
	// S3PathStyle enables path-style addressing (required for some S3 providers).
	S3PathStyle bool
	// SMTP settings for export notifications.
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	// WorkerCount is the number of concurrent export jobs allowed.
	WorkerCount int
	// MaxUploadConcurrency restricts concurrent storage uploads across jobs.
	MaxUploadConcurrency int64
	// ExportTimeout is the maximum duration for one export job.
	ExportTimeout time.Duration
	// APISecret is the shared secret for HMAC request signing and bearer tokens.
	APISecret string
	// AllowedOrigins is a list of CORS allowed domains.
	AllowedOrigins []string
}

func Load() *Config {
	return &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		DBDriver:             getEnv("DB_DRIVER", "postgres"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBName:               getEnv("DB_NAME", ""),
		DBUser:               getEnv("DB_USER", "postgres"),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBSSLMode:            getEnv("DB_SSLMODE", "disable"),
		DBPoolMin:            getEnvInt("DB_POOL_MIN", 1),
		DBPoolMax:            getEnvInt("DB_POOL_MAX", 5),
		ConnectAttempts:      getEnvInt("CONNECT_ATTEMPTS", 3),
		ConnectRetryDelay:    getEnvDuration("CONNECT_RETRY_DELAY", 5*time.Second),
		LargeResultThreshold: getEnvInt("LARGE_RESULT_THRESHOLD", 1000),
		StagedResultTTL:      getEnvDuration("STAGED_RESULT_TTL", time.Hour),
		CacheType:            getEnv("CACHE_TYPE", "redis"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		StorageType:          getEnv("STORAGE_TYPE", "local"),
		LocalStoragePath:     getEnv("LOCAL_STORAGE_PATH", "./exports"),
		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3PathStyle:          getEnvBool("S3_PATH_STYLE", false),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASS", ""),
		SMTPFrom:             getEnv("SMTP_FROM", "noreply@example.com"),
		WorkerCount:          getEnvInt("WORKER_COUNT", 3),
		MaxUploadConcurrency: int64(getEnvInt("MAX_UPLOAD_CONCURRENCY", 2)),
		ExportTimeout:        getEnvDuration("EXPORT_TIMEOUT", 10*time.Minute),
		APISecret:            getEnv("API_SECRET", ""),
		AllowedOrigins:       getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		var result []string
		start := 0
		for i := 0; i < len(value); i++ {
			if value[i] == ',' {
				result = append(result, value[start:i])
				start = i + 1
			}
		}
		result = append(result, value[start:])
		return result
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
