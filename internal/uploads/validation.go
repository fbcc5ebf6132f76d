package uploads

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/iskanderovv/filemaster/internal/config"
)

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	dotRuns     = regexp.MustCompile(`\.{2,}`)
)

// SanitizeFilename maps an untrusted client filename to a safe one:
// everything outside [A-Za-z0-9.-] becomes "_", runs of two or more dots
// are removed, and leading/trailing dots are stripped. Path separators
// are not in the whitelist, so traversal sequences cannot survive.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = dotRuns.ReplaceAllString(name, "")
	return strings.Trim(name, ".")
}

// ValidateFile checks one file descriptor against the upload policy.
// Size is checked before type so an oversized file of an unsupported
// type reports the size limit.
func ValidateFile(size int64, mimeType string, cfg config.UploadConfig) error {
	if size > cfg.MaxFileSize {
		return NewError(KindValidation, fmt.Sprintf(
			"File size exceeds maximum allowed size of %dMB", cfg.MaxFileSize/(1024*1024)))
	}

	if !IsImageType(mimeType, cfg) && !isDocType(mimeType, cfg) {
		supported := append(append([]string{}, cfg.ImageTypes...), cfg.DocTypes...)
		return NewError(KindValidation, fmt.Sprintf(
			"Unsupported file type: %s. Supported types: %s", mimeType, strings.Join(supported, ", ")))
	}

	return nil
}

// IsImageType reports whether mimeType is an accepted image type
func IsImageType(mimeType string, cfg config.UploadConfig) bool {
	for _, t := range cfg.ImageTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// IsPDFType reports whether mimeType is the accepted document type
func IsPDFType(mimeType string) bool {
	return mimeType == "application/pdf"
}

func isDocType(mimeType string, cfg config.UploadConfig) bool {
	for _, t := range cfg.DocTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}
