package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/iskanderovv/filemaster/internal/models"
)

// Extractor computes descriptive metadata for stored artifacts
type Extractor struct{}

// NewExtractor creates a metadata extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract computes a SHA-256 content hash and, for images, the pixel
// dimensions of the original payload. Dimension extraction failures are
// ignored; the hash is always present.
func (e *Extractor) Extract(data []byte, storedName, originalName, mimeType string) *models.FileMetadata {
	sum := sha256.Sum256(data)

	meta := &models.FileMetadata{
		Filename:     storedName,
		OriginalName: originalName,
		Size:         int64(len(data)),
		MimeType:     mimeType,
		Hash:         hex.EncodeToString(sum[:]),
		UploadedAt:   time.Now().UTC(),
	}

	if strings.HasPrefix(mimeType, "image/") {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			meta.Dimensions = &models.Dimensions{Width: cfg.Width, Height: cfg.Height}
		}
	}

	return meta
}
