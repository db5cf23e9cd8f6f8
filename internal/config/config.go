// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL, used as the allowed CORS origin.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	// Empty picks debug in development and info otherwise.
	LogLevel string

	// AutoMigrate runs the embedded schema migrations at startup.
	AutoMigrate bool

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Media holds the product media pipeline settings.
	Media MediaConfig
}

// DatabaseConfig holds MariaDB connection parameters. If DATABASE_URL is
// set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built with the driver's
// Config.FormatDSN() to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	// Empty disables Redis entirely.
	URL string
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// Size is a pixel bounding box for resize-to-fit operations. A zero Size
// means "no resize".
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether the box disables resizing.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// String formats the box as "WxH".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ImageSizes holds the resize boxes per derivative.
type ImageSizes struct {
	Thumbnail Size
	WebP      Size
	Original  Size
}

// ImageQuality holds the encoder quality per derivative (1..100).
type ImageQuality struct {
	Thumbnail int
	WebP      int
	Original  int
}

// Policy is an accept/reject rule for one media kind.
type Policy struct {
	MaxBytes     int64
	AllowedMimes []string
}

// Allows reports whether the MIME type is in the allowed set.
func (p Policy) Allows(mime string) bool {
	for _, m := range p.AllowedMimes {
		if m == mime {
			return true
		}
	}
	return false
}

// MediaConfig holds product media pipeline settings.
type MediaConfig struct {
	// StorageRoot is the base directory every stored path is relative to.
	StorageRoot string

	// PublicURLPrefix is prepended to storage-relative paths in emitted URLs.
	PublicURLPrefix string

	Sizes   ImageSizes
	Quality ImageQuality

	ImagePolicy    Policy
	DocumentPolicy Policy

	// MaxImagePixels caps width*height declared by an image header. Checked
	// before decoding, so a small compressed file cannot claim a huge frame.
	MaxImagePixels int64

	// PreserveOriginal keeps the archival original derivative on disk.
	PreserveOriginal bool

	// ScanRepair enables the legacy read-time directory scan that re-derives
	// derivative URLs from the timestamp token.
	ScanRepair bool

	// URLCacheTTL bounds how long scanned URL maps stay in Redis.
	URLCacheTTL time.Duration

	// JanitorInterval is the orphan sweep period. Zero disables the janitor.
	JanitorInterval time.Duration

	// JanitorGrace is the minimum file age before the janitor may remove it.
	JanitorGrace time.Duration
}

// Fixed upload policies. Deployments may override only the byte limits.
const (
	DefaultImageMaxBytes    int64 = 5 * 1024 * 1024
	DefaultDocumentMaxBytes int64 = 25 * 1024 * 1024
	DefaultImageMaxPixels   int64 = 40_000_000
)

// ImageMimes lists the accepted image MIME types.
var ImageMimes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// DocumentMimes lists the accepted document MIME types.
var DocumentMimes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
	"text/csv",
}

// DefaultMedia returns the media settings used when no env override is set.
func DefaultMedia() MediaConfig {
	return MediaConfig{
		StorageRoot:     "./media",
		PublicURLPrefix: "/media/",
		Sizes: ImageSizes{
			Thumbnail: Size{Width: 150, Height: 150},
			WebP:      Size{Width: 800, Height: 600},
		},
		Quality: ImageQuality{
			Thumbnail: 75,
			WebP:      85,
			Original:  100,
		},
		ImagePolicy:      Policy{MaxBytes: DefaultImageMaxBytes, AllowedMimes: ImageMimes},
		DocumentPolicy:   Policy{MaxBytes: DefaultDocumentMaxBytes, AllowedMimes: DocumentMimes},
		MaxImagePixels:   DefaultImageMaxPixels,
		PreserveOriginal: true,
		URLCacheTTL:      10 * time.Minute,
		JanitorGrace:     time.Hour,
	}
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error for values that cannot be honored.
func Load() (*Config, error) {
	media := DefaultMedia()
	media.StorageRoot = getEnv("MEDIA_ROOT", media.StorageRoot)
	media.PublicURLPrefix = getEnv("MEDIA_URL", media.PublicURLPrefix)
	media.Sizes.Thumbnail = getEnvSize("MEDIA_THUMBNAIL_SIZE", media.Sizes.Thumbnail)
	media.Sizes.WebP = getEnvSize("MEDIA_WEBP_SIZE", media.Sizes.WebP)
	media.Quality.Thumbnail = getEnvInt("MEDIA_THUMBNAIL_QUALITY", media.Quality.Thumbnail)
	media.Quality.WebP = getEnvInt("MEDIA_WEBP_QUALITY", media.Quality.WebP)
	media.Quality.Original = getEnvInt("MEDIA_ORIGINAL_QUALITY", media.Quality.Original)
	media.ImagePolicy.MaxBytes = getEnvInt64("MEDIA_IMAGE_MAX_BYTES", media.ImagePolicy.MaxBytes)
	media.DocumentPolicy.MaxBytes = getEnvInt64("MEDIA_DOCUMENT_MAX_BYTES", media.DocumentPolicy.MaxBytes)
	media.MaxImagePixels = getEnvInt64("MEDIA_IMAGE_MAX_PIXELS", media.MaxImagePixels)
	media.PreserveOriginal = getEnvBool("MEDIA_PRESERVE_ORIGINAL", media.PreserveOriginal)
	media.ScanRepair = getEnvBool("MEDIA_URL_SCAN_REPAIR", media.ScanRepair)
	media.URLCacheTTL = getEnvDuration("MEDIA_URL_CACHE_TTL", media.URLCacheTTL)
	media.JanitorInterval = getEnvDuration("MEDIA_JANITOR_INTERVAL", media.JanitorInterval)
	media.JanitorGrace = getEnvDuration("MEDIA_JANITOR_GRACE", media.JanitorGrace)

	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:    getEnv("LOG_LEVEL", ""),
		AutoMigrate: getEnvBool("MIGRATIONS_AUTO", true),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "pandora"),
			Password:        getEnv("DB_PASSWORD", "pandora"),
			Name:            getEnv("DB_NAME", "pandora"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},

		Media: media,
	}

	if err := cfg.Media.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects media settings the pipeline cannot honor.
func (m MediaConfig) Validate() error {
	for name, q := range map[string]int{
		"MEDIA_THUMBNAIL_QUALITY": m.Quality.Thumbnail,
		"MEDIA_WEBP_QUALITY":      m.Quality.WebP,
		"MEDIA_ORIGINAL_QUALITY":  m.Quality.Original,
	} {
		if q < 1 || q > 100 {
			return fmt.Errorf("%s must be between 1 and 100, got %d", name, q)
		}
	}
	if m.ImagePolicy.MaxBytes <= 0 {
		return fmt.Errorf("MEDIA_IMAGE_MAX_BYTES must be positive")
	}
	if m.DocumentPolicy.MaxBytes <= 0 {
		return fmt.Errorf("MEDIA_DOCUMENT_MAX_BYTES must be positive")
	}
	if m.MaxImagePixels <= 0 {
		return fmt.Errorf("MEDIA_IMAGE_MAX_PIXELS must be positive")
	}
	if m.StorageRoot == "" {
		return fmt.Errorf("MEDIA_ROOT must not be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true", "1", "false", ...) or returns the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "10m") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvSize reads a "WxH" env var or returns the default.
func getEnvSize(key string, defaultVal Size) Size {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	if s, err := ParseSize(val); err == nil {
		return s
	}
	return defaultVal
}

// ParseSize parses "WxH" into a Size. "none" and "" yield the zero Size.
func ParseSize(val string) (Size, error) {
	val = strings.TrimSpace(strings.ToLower(val))
	if val == "" || val == "none" {
		return Size{}, nil
	}
	w, h, ok := strings.Cut(val, "x")
	if !ok {
		return Size{}, fmt.Errorf("invalid size %q", val)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return Size{}, fmt.Errorf("invalid width in %q", val)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return Size{}, fmt.Errorf("invalid height in %q", val)
	}
	return Size{Width: width, Height: height}, nil
}
