package uploads

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iskanderovv/filemaster/internal/auth"
	"github.com/iskanderovv/filemaster/internal/config"
	"github.com/iskanderovv/filemaster/internal/logging"
	"github.com/iskanderovv/filemaster/internal/media"
	"github.com/iskanderovv/filemaster/internal/models"
	"github.com/iskanderovv/filemaster/internal/progress"
	"github.com/iskanderovv/filemaster/internal/ratelimit"
	"github.com/iskanderovv/filemaster/internal/storage"
)

// ImageProcessor produces stored renditions from raw image bytes.
type ImageProcessor interface {
	ProcessImage(data []byte) (*media.Renditions, error)
}

// RateLimitedError carries the instant a denied client may retry.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return "rate limit exceeded"
}

// Service orchestrates the upload pipeline: admission, validation,
// dispatch to the image or document path, and progress bookkeeping.
type Service struct {
	cfg      config.UploadConfig
	store    storage.Store
	gate     *auth.Gate
	limiter  *ratelimit.SlidingWindow
	tracker  *progress.Tracker
	images   ImageProcessor
	metadata *media.Extractor
	parser   FormParser
	logger   *logging.Logger
}

// NewService creates the upload orchestrator. limiter may be nil when
// rate limiting is disabled.
func NewService(
	cfg config.UploadConfig,
	store storage.Store,
	gate *auth.Gate,
	limiter *ratelimit.SlidingWindow,
	tracker *progress.Tracker,
	images ImageProcessor,
	metadata *media.Extractor,
	logger *logging.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		gate:     gate,
		limiter:  limiter,
		tracker:  tracker,
		images:   images,
		metadata: metadata,
		parser:   NewMultipartParser(cfg.MaxFileSize),
		logger:   logger,
	}
}

// Tracker exposes the progress registry for the polling endpoint
func (s *Service) Tracker() *progress.Tracker {
	return s.tracker
}

// UploadFiles admits the request, parses its file parts and runs each
// through the pipeline. Any part failing aborts the whole batch; partial
// writes from earlier parts are not rolled back.
func (s *Service) UploadFiles(r *http.Request) ([]models.UploadResult, error) {
	if d := s.gate.Check(r); !d.Allowed {
		return nil, NewError(KindAuth, d.Reason)
	}

	if s.limiter != nil {
		d := s.limiter.Admit(ratelimit.KeyFromRequest(r), time.Now())
		if !d.Allowed {
			return nil, WrapError(KindRateLimit, "Too many requests, please try again later",
				&RateLimitedError{ResetAt: d.ResetAt})
		}
	}

	if err := s.store.EnsureDir(s.cfg.UploadDir); err != nil {
		return nil, WrapError(KindPipeline, "Failed to prepare upload directory", err)
	}
	if err := s.store.EnsureDir(s.cfg.DocsDir); err != nil {
		return nil, WrapError(KindPipeline, "Failed to prepare docs directory", err)
	}

	parts, err := s.parser.Parse(r)
	if err != nil {
		return nil, err
	}

	results := make([]models.UploadResult, 0, len(parts))
	for _, part := range parts {
		result, err := s.processPart(part)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	s.logger.Info("upload batch completed", logging.WithField("files", len(results)))
	return results, nil
}

func (s *Service) processPart(part FilePart) (models.UploadResult, error) {
	uploadID := uuid.New().String()
	sanitized := SanitizeFilename(part.OriginalName)

	if s.cfg.EnableProgress {
		s.tracker.Create(uploadID, sanitized, part.Size)
	}

	fail := func(err error) (models.UploadResult, error) {
		if s.cfg.EnableProgress {
			s.tracker.SetStatus(uploadID, progress.StatusError, err.Error())
		}
		return models.UploadResult{}, err
	}

	if err := ValidateFile(part.Size, part.MimeType, s.cfg); err != nil {
		return fail(err)
	}

	var result models.UploadResult
	switch {
	case IsImageType(part.MimeType, s.cfg):
		if s.cfg.EnableProgress {
			s.tracker.SetStatus(uploadID, progress.StatusProcessing, "")
		}
		renditions, err := s.images.ProcessImage(part.Data)
		if err != nil {
			return fail(WrapError(KindPipeline, "Failed to process image", err))
		}
		result = models.UploadResult{
			URL:          renditions.Original,
			Size:         part.Size,
			Type:         media.OutputType,
			OriginalName: sanitized,
		}
		if renditions.Thumbnail != "" || renditions.Medium != "" || renditions.Large != "" {
			result.Thumbnails = &models.Thumbnails{
				Thumbnail: renditions.Thumbnail,
				Medium:    renditions.Medium,
				Large:     renditions.Large,
			}
		}

	case IsPDFType(part.MimeType):
		if s.cfg.EnableProgress {
			s.tracker.SetStatus(uploadID, progress.StatusProcessing, "")
		}
		key := path.Join(s.cfg.DocsDir, uploadID+".pdf")
		if _, err := s.store.WriteFile(key, bytes.NewReader(part.Data)); err != nil {
			return fail(WrapError(KindPipeline, "Failed to store document", err))
		}
		result = models.UploadResult{
			URL:          "/" + key,
			Size:         part.Size,
			Type:         part.MimeType,
			OriginalName: sanitized,
		}

	default:
		// ValidateFile admitted a type neither pipeline handles; the
		// configured type sets are out of sync with the dispatch table.
		return fail(NewError(KindPipeline, fmt.Sprintf("No pipeline for accepted type %s", part.MimeType)))
	}

	if s.cfg.EnableMetadata {
		meta := s.metadata.Extract(part.Data, path.Base(result.URL), sanitized, result.Type)
		result.Metadata = meta
		result.Hash = meta.Hash
	}

	if s.cfg.EnableProgress {
		s.tracker.UpdateBytes(uploadID, part.Size)
		s.tracker.SetStatus(uploadID, progress.StatusCompleted, "")
		result.UploadID = uploadID
	}

	s.logger.Debug("file processed",
		logging.WithFields(map[string]interface{}{"name": sanitized, "type": result.Type, "url": result.URL}))
	return result, nil
}

// Delete removes a stored file by its public path. For images with
// generated renditions the derived variants are removed best-effort.
func (s *Service) Delete(filePath string) error {
	if filePath == "" {
		return NewError(KindInvalidInput, "File path is required")
	}
	if !strings.HasPrefix(filePath, "/") {
		return NewError(KindInvalidInput, "Invalid file path")
	}

	key := strings.TrimPrefix(filePath, "/")
	if !s.store.Exists(key) {
		return NewError(KindNotFound, "File not found")
	}
	if err := s.store.Remove(key); err != nil {
		return WrapError(KindPipeline, "Failed to delete file", err)
	}

	if s.cfg.GenerateThumbnails {
		base := strings.TrimSuffix(key, path.Ext(key))
		for _, suffix := range []string{"_thumb", "_medium", "_large"} {
			variant := base + suffix + media.OutputExt
			if !s.store.Exists(variant) {
				continue
			}
			if err := s.store.Remove(variant); err != nil {
				s.logger.Warn("failed to delete rendition", logging.WithField("key", variant))
			}
		}
	}

	s.logger.Info("file deleted", logging.WithField("path", filePath))
	return nil
}

// Update replaces an existing file: the old one is deleted best-effort,
// then the request body is processed as a fresh upload.
func (s *Service) Update(r *http.Request, oldFilePath string) ([]models.UploadResult, error) {
	if oldFilePath != "" {
		if err := s.Delete(oldFilePath); err != nil {
			s.logger.Warn("failed to delete previous file",
				logging.WithFields(map[string]interface{}{"path": oldFilePath, "error": err.Error()}))
		}
	}
	return s.UploadFiles(r)
}
