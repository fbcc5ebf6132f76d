package media

import (
	"bytes"
	"fmt"
	"image"
	"path"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/iskanderovv/filemaster/internal/config"
	"github.com/iskanderovv/filemaster/internal/logging"
	"github.com/iskanderovv/filemaster/internal/storage"
)

// Canonical output format for every image rendition. The upstream tool
// this replaces emitted WebP; there is no pure-Go WebP encoder, so
// renditions are re-encoded as JPEG at the configured quality.
const (
	OutputExt  = ".jpg"
	OutputType = "image/jpeg"
)

// Renditions holds the URLs of all outputs produced for one image.
// Original is always set; the rest follow the configured size specs.
type Renditions struct {
	Original  string
	Thumbnail string
	Medium    string
	Large     string
}

// Optimizer re-encodes uploaded images and generates derived renditions.
// Output filenames are fresh opaque identifiers, never the client name.
type Optimizer struct {
	store  storage.Store
	cfg    config.UploadConfig
	logger *logging.Logger
}

// NewOptimizer creates an image optimizer writing through the given store
func NewOptimizer(store storage.Store, cfg config.UploadConfig, logger *logging.Logger) *Optimizer {
	return &Optimizer{store: store, cfg: cfg, logger: logger}
}

// ProcessImage decodes one uploaded image and writes the canonical
// rendition plus any configured derived sizes. The thumbnail is cropped
// to cover its spec; medium and large fit within theirs without upscaling.
func (o *Optimizer) ProcessImage(data []byte) (*Renditions, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	baseID := uuid.New().String()
	out := &Renditions{}

	out.Original, err = o.write(baseID+OutputExt, img)
	if err != nil {
		return nil, err
	}

	if !o.cfg.GenerateThumbnails || !o.cfg.ImageSizes.Any() {
		return out, nil
	}

	if spec := o.cfg.ImageSizes.Thumbnail; spec != nil {
		thumb := imaging.Fill(img, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)
		out.Thumbnail, err = o.write(baseID+"_thumb"+OutputExt, thumb)
		if err != nil {
			return nil, err
		}
	}
	if spec := o.cfg.ImageSizes.Medium; spec != nil {
		medium := imaging.Fit(img, spec.Width, spec.Height, imaging.Lanczos)
		out.Medium, err = o.write(baseID+"_medium"+OutputExt, medium)
		if err != nil {
			return nil, err
		}
	}
	if spec := o.cfg.ImageSizes.Large; spec != nil {
		large := imaging.Fit(img, spec.Width, spec.Height, imaging.Lanczos)
		out.Large, err = o.write(baseID+"_large"+OutputExt, large)
		if err != nil {
			return nil, err
		}
	}

	o.logger.Debug("generated image renditions", logging.WithField("base", baseID))
	return out, nil
}

// write encodes img as JPEG and stores it under the upload directory,
// returning the public URL of the result
func (o *Optimizer) write(name string, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(o.cfg.Quality)); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	key := path.Join(o.cfg.UploadDir, name)
	if _, err := o.store.WriteFile(key, &buf); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return "/" + key, nil
}
