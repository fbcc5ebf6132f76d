package httpapi

import (
	"net/http"

	"github.com/iskanderovv/filemaster/internal/logging"
	"github.com/iskanderovv/filemaster/internal/progress"
)

// ProgressAPI serves upload progress polling.
type ProgressAPI struct {
	tracker *progress.Tracker
	logger  *logging.Logger
}

func NewProgressAPI(tracker *progress.Tracker, logger *logging.Logger) *ProgressAPI {
	return &ProgressAPI{tracker: tracker, logger: logger}
}

// RegisterRoutes registers progress routes.
func (api *ProgressAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/files/progress", corsMiddleware(api.handleProgress))
}

func (api *ProgressAPI) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("uploadId")
	if id == "" {
		writeJSON(w, http.StatusOK, api.tracker.All())
		return
	}

	entry, ok := api.tracker.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "Upload not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
