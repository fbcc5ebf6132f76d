package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/iskanderovv/filemaster/internal/logging"
	"github.com/iskanderovv/filemaster/internal/models"
	"github.com/iskanderovv/filemaster/internal/uploads"
)

// envelope is the response shape shared by every file endpoint
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// FileAPI serves upload, delete and update requests.
type FileAPI struct {
	svc    *uploads.Service
	logger *logging.Logger
}

func NewFileAPI(svc *uploads.Service, logger *logging.Logger) *FileAPI {
	return &FileAPI{svc: svc, logger: logger}
}

// RegisterRoutes registers file routes.
func (api *FileAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/files", corsMiddleware(api.handleFiles))
}

func (api *FileAPI) handleFiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		api.handleUpload(w, r)
	case http.MethodPut:
		api.handleUpdate(w, r)
	case http.MethodDelete:
		api.handleDelete(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (api *FileAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	results, err := api.svc.UploadFiles(r)
	if err != nil {
		api.writeError(w, err)
		return
	}
	api.writeResults(w, results, "Files uploaded successfully")
}

func (api *FileAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	oldFilePath := r.URL.Query().Get("oldFilePath")
	results, err := api.svc.Update(r, oldFilePath)
	if err != nil {
		api.writeError(w, err)
		return
	}
	api.writeResults(w, results, "File updated successfully")
}

func (api *FileAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FilePath string `json:"filePath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FilePath == "" {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Error:   "File path is required",
		})
		return
	}

	if err := api.svc.Delete(body.FilePath); err != nil {
		api.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "File deleted successfully",
	})
}

// writeResults unwraps a single-file batch to a bare object; multi-file
// batches keep the array. Clients depend on this asymmetry.
func (api *FileAPI) writeResults(w http.ResponseWriter, results []models.UploadResult, message string) {
	var data interface{} = results
	if len(results) == 1 {
		data = results[0]
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

func statusForKind(kind uploads.Kind) int {
	switch kind {
	case uploads.KindAuth:
		return http.StatusUnauthorized
	case uploads.KindRateLimit:
		return http.StatusTooManyRequests
	case uploads.KindValidation, uploads.KindInvalidInput:
		return http.StatusBadRequest
	case uploads.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (api *FileAPI) writeError(w http.ResponseWriter, err error) {
	kind := uploads.KindOf(err)
	status := statusForKind(kind)

	var limited *uploads.RateLimitedError
	if errors.As(err, &limited) && !limited.ResetAt.IsZero() {
		secs := int(math.Ceil(time.Until(limited.ResetAt).Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	if status >= http.StatusInternalServerError {
		api.logger.Error("request failed", logging.WithField("error", err.Error()))
	} else {
		api.logger.Warn("request rejected",
			logging.WithFields(map[string]interface{}{"kind": string(kind), "error": err.Error()}))
	}

	writeJSON(w, status, envelope{
		Success: false,
		Error:   uploads.MessageOf(err),
	})
}
