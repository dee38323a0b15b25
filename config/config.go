package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 支持的数据库驱动
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// 支持的音频存储后端
const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 支持的时长探测方式
const (
	ProberMP3     = "mp3"
	ProberFFprobe = "ffprobe"
)

// DefaultPBKDF2Iterations is the iteration count used for newly hashed passwords.
const DefaultPBKDF2Iterations = 350000

// Config stores the application configuration.
type Config struct {
	HTTPAddr string
	WebDir   string // Optional directory with the built front end

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string // SQLite file path
	DBLogSQL   bool

	JWTKey      string
	JWTIssuer   string
	JWTAudience string
	TokenTTL    time.Duration

	PBKDF2Iterations int

	StorageBackend string
	AudioDir       string // Root for the local audio store

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Redis配置，为空时登录限流退化为进程内限流
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	SignInRateLimit  int
	SignInRateWindow time.Duration

	AudioProber string
	FFprobePath string

	MaxUploadBytes int64
	UploadTimeout  time.Duration

	CORSOrigins []string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		WebDir:   getEnv("WEB_DIR", filepath.Join("web", "build")),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", DriverMySQL)),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:     getEnv("DB_NAME", "tunebox"),
		DBPath:     getEnv("DB_PATH", filepath.Join(dataDir, "tunebox.db")),
		DBLogSQL:   getEnvBool("DB_LOG_SQL", false),

		JWTKey:      os.Getenv("JWT_KEY"),
		JWTIssuer:   getEnv("JWT_ISSUER", "TuneBox"),
		JWTAudience: getEnv("JWT_AUDIENCE", "TuneBoxClient"),
		TokenTTL:    getEnvDuration("JWT_TTL", 6*time.Hour),

		PBKDF2Iterations: getEnvInt("PBKDF2_ITERATIONS", DefaultPBKDF2Iterations),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
		AudioDir:       getEnv("AUDIO_DIR", filepath.Join(dataDir, "audio", "mp3")),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "tunebox"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SignInRateLimit:  getEnvInt("SIGNIN_RATE_LIMIT", 10),
		SignInRateWindow: getEnvDuration("SIGNIN_RATE_WINDOW", time.Minute),

		AudioProber: strings.ToLower(getEnv("AUDIO_PROBER", ProberMP3)),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 100)) << 20,
		UploadTimeout:  getEnvDuration("UPLOAD_TIMEOUT", 5*time.Minute),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3434")),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
	}
}

// RedisEnabled reports whether a Redis server was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// RedisAddr returns host:port of the configured Redis server.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTKey == "" {
		errs = append(errs, errors.New("JWT_KEY must be set"))
	} else if len(c.JWTKey) < 32 {
		errs = append(errs, errors.New("JWT_KEY must be at least 32 bytes"))
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	switch c.StorageBackend {
	case StorageLocal, StorageMinio:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	switch c.AudioProber {
	case ProberMP3, ProberFFprobe:
	default:
		errs = append(errs, fmt.Errorf("unknown AUDIO_PROBER %q", c.AudioProber))
	}
	if c.PBKDF2Iterations < 100000 {
		errs = append(errs, fmt.Errorf("PBKDF2_ITERATIONS must be at least 100000, got %d", c.PBKDF2Iterations))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	return errors.Join(errs...)
}
