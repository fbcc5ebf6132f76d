package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/iskanderovv/filemaster/internal/auth"
	"github.com/iskanderovv/filemaster/internal/config"
	"github.com/iskanderovv/filemaster/internal/media"
	"github.com/iskanderovv/filemaster/internal/progress"
	"github.com/iskanderovv/filemaster/internal/ratelimit"
	"github.com/iskanderovv/filemaster/internal/storage"
	"github.com/iskanderovv/filemaster/internal/testutil"
	"github.com/iskanderovv/filemaster/internal/uploads"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 13), G: uint8(y * 17), B: 99, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, method string, files map[string][]byte, mime string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
		hdr.Set("Content-Type", mime)
		pw, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("creating part: %v", err)
		}
		pw.Write(data)
	}
	mw.Close()
	r := httptest.NewRequest(method, "/api/files", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

type apiOptions struct {
	gateCfg auth.Config
	limiter *ratelimit.SlidingWindow
}

func newTestAPI(t *testing.T, opts apiOptions) *FileAPI {
	t.Helper()
	cfg := config.Default().Upload
	cfg.PublicDir = t.TempDir()

	store, err := storage.NewFilesystem(cfg.PublicDir)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	logger := testutil.NullLogger()
	svc := uploads.NewService(
		cfg,
		store,
		auth.NewGate(opts.gateCfg, logger),
		opts.limiter,
		progress.NewTracker(),
		media.NewOptimizer(store, cfg, logger),
		media.NewExtractor(),
		logger,
	)
	return NewFileAPI(svc, logger)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return env
}

func TestHandleFiles_MethodNotAllowed(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	w := httptest.NewRecorder()
	api.handleFiles(w, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleUpload_SingleFileBareObject(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	w := httptest.NewRecorder()
	api.handleFiles(w, uploadRequest(t, http.MethodPost, map[string][]byte{"a.jpg": testJPEG(t)}, "image/jpeg"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Error("success should be true")
	}
	if _, ok := env.Data.(map[string]interface{}); !ok {
		t.Errorf("single-file data should be a bare object, got %T", env.Data)
	}
}

func TestHandleUpload_MultiFileArray(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	w := httptest.NewRecorder()
	api.handleFiles(w, uploadRequest(t, http.MethodPost,
		map[string][]byte{"a.jpg": testJPEG(t), "b.jpg": testJPEG(t)}, "image/jpeg"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	env := decodeEnvelope(t, w)
	list, ok := env.Data.([]interface{})
	if !ok {
		t.Fatalf("multi-file data should be an array, got %T", env.Data)
	}
	if len(list) != 2 {
		t.Errorf("got %d entries, want 2", len(list))
	}
}

func TestHandleUpload_UnsupportedType(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	w := httptest.NewRecorder()
	api.handleFiles(w, uploadRequest(t, http.MethodPost, map[string][]byte{"x.sh": []byte("echo hi")}, "text/x-shellscript"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	env := decodeEnvelope(t, w)
	if env.Success {
		t.Error("success should be false")
	}
	if !strings.Contains(env.Error, "Unsupported file type") {
		t.Errorf("error = %q, want it to mention the unsupported type", env.Error)
	}
}

func TestHandleUpload_AuthDenied(t *testing.T) {
	api := newTestAPI(t, apiOptions{gateCfg: auth.Config{Enabled: true, APIKey: "secret"}})
	w := httptest.NewRecorder()
	api.handleFiles(w, uploadRequest(t, http.MethodPost, map[string][]byte{"a.jpg": testJPEG(t)}, "image/jpeg"))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleUpload_RateLimited(t *testing.T) {
	api := newTestAPI(t, apiOptions{limiter: ratelimit.NewSlidingWindow(time.Minute, 1)})

	first := uploadRequest(t, http.MethodPost, map[string][]byte{"a.jpg": testJPEG(t)}, "image/jpeg")
	first.RemoteAddr = "10.1.1.1:5000"
	api.handleFiles(httptest.NewRecorder(), first)

	second := uploadRequest(t, http.MethodPost, map[string][]byte{"b.jpg": testJPEG(t)}, "image/jpeg")
	second.RemoteAddr = "10.1.1.1:5000"
	w := httptest.NewRecorder()
	api.handleFiles(w, second)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}
}

func TestHandleDelete_MissingBody(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	w := httptest.NewRecorder()
	api.handleFiles(w, httptest.NewRequest(http.MethodDelete, "/api/files", strings.NewReader("{}")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	env := decodeEnvelope(t, w)
	if env.Error != "File path is required" {
		t.Errorf("error = %q, want %q", env.Error, "File path is required")
	}
}

func TestHandleDelete_NotFound(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	w := httptest.NewRecorder()
	body := strings.NewReader(`{"filePath": "/uploads/missing.jpg"}`)
	api.handleFiles(w, httptest.NewRequest(http.MethodDelete, "/api/files", body))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleDelete_Success(t *testing.T) {
	api := newTestAPI(t, apiOptions{})

	w := httptest.NewRecorder()
	api.handleFiles(w, uploadRequest(t, http.MethodPost, map[string][]byte{"a.jpg": testJPEG(t)}, "image/jpeg"))
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]interface{})
	url := data["url"].(string)

	w = httptest.NewRecorder()
	body := strings.NewReader(fmt.Sprintf(`{"filePath": %q}`, url))
	api.handleFiles(w, httptest.NewRequest(http.MethodDelete, "/api/files", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}
	env = decodeEnvelope(t, w)
	if !env.Success {
		t.Error("success should be true")
	}
}

func TestHandleUpdate_UploadsEvenWhenOldMissing(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	r := uploadRequest(t, http.MethodPut, map[string][]byte{"a.jpg": testJPEG(t)}, "image/jpeg")
	r.URL.RawQuery = "oldFilePath=/uploads/gone.jpg"

	w := httptest.NewRecorder()
	api.handleFiles(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestHandleProgress(t *testing.T) {
	tracker := progress.NewTracker()
	tracker.Create("known-id", "a.jpg", 100)
	api := NewProgressAPI(tracker, testutil.NullLogger())

	w := httptest.NewRecorder()
	api.handleProgress(w, httptest.NewRequest(http.MethodGet, "/api/files/progress?uploadId=known-id", nil))
	if w.Code != http.StatusOK {
		t.Errorf("known id: status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	api.handleProgress(w, httptest.NewRequest(http.MethodGet, "/api/files/progress?uploadId=nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want %d", w.Code, http.StatusNotFound)
	}
	var errBody map[string]string
	if err := json.NewDecoder(w.Body).Decode(&errBody); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if errBody["error"] != "Upload not found" {
		t.Errorf("error = %q, want %q", errBody["error"], "Upload not found")
	}

	w = httptest.NewRecorder()
	api.handleProgress(w, httptest.NewRequest(http.MethodGet, "/api/files/progress", nil))
	if w.Code != http.StatusOK {
		t.Errorf("list: status = %d, want %d", w.Code, http.StatusOK)
	}
	var all []progress.Entry
	if err := json.NewDecoder(w.Body).Decode(&all); err != nil {
		t.Fatalf("decoding list body: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d entries, want 1", len(all))
	}
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind uploads.Kind
		want int
	}{
		{uploads.KindAuth, http.StatusUnauthorized},
		{uploads.KindRateLimit, http.StatusTooManyRequests},
		{uploads.KindValidation, http.StatusBadRequest},
		{uploads.KindInvalidInput, http.StatusBadRequest},
		{uploads.KindNotFound, http.StatusNotFound},
		{uploads.KindPipeline, http.StatusInternalServerError},
		{uploads.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForKind(tt.kind); got != tt.want {
			t.Errorf("statusForKind(%q) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	s := New(nil, config.ServerConfig{CORSOrigins: []string{"https://example.com"}}, testutil.NullLogger())

	called := false
	handler := s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) { called = true })

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodOptions, "/api/files", nil))
	if w.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusOK)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Allow-Origin = %q, want configured origin", got)
	}

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	if !called {
		t.Error("non-preflight request should reach the handler")
	}
}
