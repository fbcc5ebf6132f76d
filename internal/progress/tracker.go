package progress

import (
	"math"
	"sync"
	"time"
)

// Status is the lifecycle state of one tracked upload
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether the status is a final state
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Entry tracks one upload's lifecycle for external polling
type Entry struct {
	UploadID     string    `json:"uploadId"`
	Filename     string    `json:"filename"`
	TotalSize    int64     `json:"totalSize"`
	UploadedSize int64     `json:"uploadedSize"`
	Percentage   int       `json:"percentage"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"-"`
}

// Tracker is a keyed registry of upload progress entries. One instance is
// shared per running service; it is injected rather than held as a global.
// Entries are kept until removed explicitly unless a reaper is started.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]Entry)}
}

// Create inserts a new entry in status uploading, replacing any prior
// entry with the same id
func (t *Tracker) Create(id, filename string, totalSize int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = Entry{
		UploadID:  id,
		Filename:  filename,
		TotalSize: totalSize,
		Status:    StatusUploading,
		UpdatedAt: time.Now(),
	}
}

// UpdateBytes records received bytes and recomputes the percentage.
// Unknown ids are ignored.
func (t *Tracker) UpdateBytes(id string, uploadedSize int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return
	}
	e.UploadedSize = uploadedSize
	if e.TotalSize > 0 {
		e.Percentage = int(math.Round(float64(uploadedSize) / float64(e.TotalSize) * 100))
	}
	e.UpdatedAt = time.Now()
	t.entries[id] = e
}

// SetStatus transitions an entry, attaching an error message for the
// error state. Unknown ids are ignored.
func (t *Tracker) SetStatus(id string, status Status, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return
	}
	e.Status = status
	if errMsg != "" {
		e.Error = errMsg
	}
	e.UpdatedAt = time.Now()
	t.entries[id] = e
}

// Get returns a snapshot of one entry
func (t *Tracker) Get(id string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	return e, ok
}

// All returns snapshots of every tracked entry in unspecified order
func (t *Tracker) All() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	return out
}

// Remove deletes an entry; unknown ids are ignored
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// StartReaper evicts terminal entries older than ttl every interval until
// stop is closed. Without it the registry grows until callers Remove
// entries themselves.
func (t *Tracker) StartReaper(interval, ttl time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.reap(ttl)
			case <-stop:
				return
			}
		}
	}()
}

func (t *Tracker) reap(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, e := range t.entries {
		if e.Status.Terminal() && e.UpdatedAt.Before(cutoff) {
			delete(t.entries, id)
		}
	}
}
