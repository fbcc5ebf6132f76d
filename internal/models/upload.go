package models

import "time"

// Thumbnails holds URLs of the derived renditions generated for an image
type Thumbnails struct {
	Thumbnail string `json:"thumbnail,omitempty"`
	Medium    string `json:"medium,omitempty"`
	Large     string `json:"large,omitempty"`
}

// Dimensions holds pixel dimensions of an image
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FileMetadata describes a stored artifact beyond its URL
type FileMetadata struct {
	Filename     string      `json:"filename"`
	OriginalName string      `json:"originalName"`
	Size         int64       `json:"size"`
	MimeType     string      `json:"mimeType"`
	Hash         string      `json:"hash"`
	UploadedAt   time.Time   `json:"uploadedAt"`
	Dimensions   *Dimensions `json:"dimensions,omitempty"`
}

// UploadResult is the stored-artifact descriptor returned for each
// successfully processed file
type UploadResult struct {
	URL          string        `json:"url"`
	Size         int64         `json:"size"`
	Type         string        `json:"type"`
	OriginalName string        `json:"originalName"`
	Hash         string        `json:"hash,omitempty"`
	Metadata     *FileMetadata `json:"metadata,omitempty"`
	Thumbnails   *Thumbnails   `json:"thumbnails,omitempty"`
	UploadID     string        `json:"uploadId,omitempty"`
}
