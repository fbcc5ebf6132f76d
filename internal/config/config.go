package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr        string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// ImageSize is a derived-rendition spec
type ImageSize struct {
	Width  int
	Height int
}

// ImageSizes holds the optional derived-size specs for uploaded images
type ImageSizes struct {
	Thumbnail *ImageSize
	Medium    *ImageSize
	Large     *ImageSize
}

// Any reports whether at least one derived size is configured
func (s ImageSizes) Any() bool {
	return s.Thumbnail != nil || s.Medium != nil || s.Large != nil
}

// UploadConfig holds the upload policy. PublicDir is the storage root;
// UploadDir and DocsDir are keys within it, and artifact URLs are the
// storage keys with a leading slash.
type UploadConfig struct {
	PublicDir          string
	UploadDir          string
	DocsDir            string
	MaxFileSize        int64
	Quality            int
	ImageTypes         []string
	DocTypes           []string
	GenerateThumbnails bool
	ImageSizes         ImageSizes
	EnableMetadata     bool
	EnableProgress     bool
	ProgressTTL        time.Duration // 0 disables the progress reaper
}

// AuthConfig holds authentication gate configuration
type AuthConfig struct {
	Enabled      bool
	APIKey       string
	BearerSecret string
}

// RateLimitConfig holds sliding-window rate limit configuration
type RateLimitConfig struct {
	Enabled     bool
	Window      time.Duration
	MaxRequests int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Enabled bool
	Level   string
}

// Default returns the configuration used when no flags or environment
// variables override it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Upload: UploadConfig{
			PublicDir:      "public",
			UploadDir:      "uploads",
			DocsDir:        "docs",
			MaxFileSize:    10 * 1024 * 1024,
			Quality:        80,
			ImageTypes:     []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/webp"},
			DocTypes:       []string{"application/pdf"},
			EnableProgress: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			Window:      15 * time.Minute,
			MaxRequests: 100,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	def := Default()

	httpAddr := flag.String("http", def.Server.HTTPAddr, "HTTP server address")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins")
	publicDir := flag.String("public-dir", def.Upload.PublicDir, "Storage root directory")
	uploadDir := flag.String("upload-dir", def.Upload.UploadDir, "Image upload directory within the storage root")
	docsDir := flag.String("docs-dir", def.Upload.DocsDir, "Document directory within the storage root")
	maxFileSize := flag.Int64("max-file-size", def.Upload.MaxFileSize, "Maximum upload size in bytes")
	quality := flag.Int("quality", def.Upload.Quality, "Output image quality (1-100)")
	imageTypes := flag.String("image-types", strings.Join(def.Upload.ImageTypes, ","), "Accepted image MIME types")
	docTypes := flag.String("doc-types", strings.Join(def.Upload.DocTypes, ","), "Accepted document MIME types")
	thumbnails := flag.Bool("thumbnails", false, "Generate derived image renditions")
	thumbSize := flag.String("thumbnail-size", "", "Thumbnail size as WxH, e.g. 150x150")
	mediumSize := flag.String("medium-size", "", "Medium size as WxH")
	largeSize := flag.String("large-size", "", "Large size as WxH")
	metadata := flag.Bool("metadata", false, "Extract content hash and image dimensions")
	progress := flag.Bool("progress", def.Upload.EnableProgress, "Track per-upload progress")
	progressTTL := flag.Duration("progress-ttl", 0, "Evict finished progress entries after this duration (0 keeps them)")
	rateWindow := flag.Duration("rate-window", def.RateLimit.Window, "Rate limit sliding window")
	rateMax := flag.Int("rate-max", def.RateLimit.MaxRequests, "Maximum requests per window per client")
	logLevel := flag.String("log-level", def.Logging.Level, "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg := Default()
	cfg.Server.HTTPAddr = *httpAddr
	cfg.Server.CORSOrigins = splitList(*corsOrigins)
	cfg.Upload.PublicDir = *publicDir
	cfg.Upload.UploadDir = *uploadDir
	cfg.Upload.DocsDir = *docsDir
	cfg.Upload.MaxFileSize = *maxFileSize
	cfg.Upload.Quality = *quality
	cfg.Upload.ImageTypes = splitList(*imageTypes)
	cfg.Upload.DocTypes = splitList(*docTypes)
	cfg.Upload.GenerateThumbnails = *thumbnails
	cfg.Upload.ImageSizes = ImageSizes{
		Thumbnail: parseSize(*thumbSize),
		Medium:    parseSize(*mediumSize),
		Large:     parseSize(*largeSize),
	}
	cfg.Upload.EnableMetadata = *metadata
	cfg.Upload.EnableProgress = *progress
	cfg.Upload.ProgressTTL = *progressTTL
	cfg.RateLimit.Window = *rateWindow
	cfg.RateLimit.MaxRequests = *rateMax
	cfg.Logging.Level = *logLevel

	applyEnvOverrides(cfg)

	cfg.Auth = loadAuthConfig()
	return cfg
}

// Validate enforces the policy invariants
func (c *Config) Validate() error {
	if len(c.Upload.ImageTypes) == 0 {
		return fmt.Errorf("at least one accepted image MIME type is required")
	}
	if len(c.Upload.DocTypes) == 0 {
		return fmt.Errorf("at least one accepted document MIME type is required")
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	if c.Upload.Quality < 1 || c.Upload.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
		if c.RateLimit.MaxRequests <= 0 {
			return fmt.Errorf("rate limit quota must be positive")
		}
	}
	return nil
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		Enabled:      os.Getenv("AUTH_ENABLED") == "true" || os.Getenv("AUTH_ENABLED") == "1",
		APIKey:       os.Getenv("AUTH_API_KEY"),
		BearerSecret: os.Getenv("AUTH_BEARER_SECRET"),
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("PUBLIC_DIR"); v != "" {
		cfg.Upload.PublicDir = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Upload.UploadDir = v
	}
	if v := os.Getenv("DOCS_DIR"); v != "" {
		cfg.Upload.DocsDir = v
	}
	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Upload.MaxFileSize = n
		}
	}
	if v := os.Getenv("QUALITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Upload.Quality = n
		}
	}
	if v := os.Getenv("IMAGE_TYPES"); v != "" {
		cfg.Upload.ImageTypes = splitList(v)
	}
	if v := os.Getenv("DOC_TYPES"); v != "" {
		cfg.Upload.DocTypes = splitList(v)
	}
	if v := os.Getenv("GENERATE_THUMBNAILS"); v == "true" || v == "1" {
		cfg.Upload.GenerateThumbnails = true
	}
	if v := os.Getenv("THUMBNAIL_SIZE"); v != "" {
		cfg.Upload.ImageSizes.Thumbnail = parseSize(v)
	}
	if v := os.Getenv("MEDIUM_SIZE"); v != "" {
		cfg.Upload.ImageSizes.Medium = parseSize(v)
	}
	if v := os.Getenv("LARGE_SIZE"); v != "" {
		cfg.Upload.ImageSizes.Large = parseSize(v)
	}
	if v := os.Getenv("ENABLE_METADATA"); v == "true" || v == "1" {
		cfg.Upload.EnableMetadata = true
	}
	if v := os.Getenv("ENABLE_PROGRESS"); v != "" {
		cfg.Upload.EnableProgress = v == "true" || v == "1"
	}
	if v := os.Getenv("PROGRESS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Upload.ProgressTTL = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		cfg.RateLimit.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RateLimit.Window = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.MaxRequests = n
		}
	}
	if v := os.Getenv("ENABLE_LOGGING"); v != "" {
		cfg.Logging.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseSize parses "WxH" into an ImageSize, returning nil on malformed input
func parseSize(s string) *ImageSize {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil
	}
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return nil
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return nil
	}
	return &ImageSize{Width: w, Height: h}
}
