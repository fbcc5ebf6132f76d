package uploads

import (
	"fmt"
	"io"
	"net/http"
)

// FilePart is one file lifted out of a multipart request body.
type FilePart struct {
	OriginalName string
	Size         int64
	MimeType     string
	Data         []byte
}

// FormParser extracts file parts from an incoming request.
type FormParser interface {
	Parse(r *http.Request) ([]FilePart, error)
}

// multipartMemory is how much of the parsed form is held in memory
// before parts spill to temporary files. It is a buffering threshold,
// not a size limit.
const multipartMemory = 32 << 20

// MultipartParser reads files from the "file" form field. A request may
// carry one part or several under the same field name. The size limit is
// per file, never on the batch as a whole.
type MultipartParser struct {
	maxFileSize int64
}

func NewMultipartParser(maxFileSize int64) *MultipartParser {
	return &MultipartParser{maxFileSize: maxFileSize}
}

func (p *MultipartParser) Parse(r *http.Request) ([]FilePart, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, WrapError(KindInvalidInput, "Invalid upload payload", err)
		}
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		return nil, NewError(KindInvalidInput, "No file uploaded")
	}

	parts := make([]FilePart, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, WrapError(KindInvalidInput, fmt.Sprintf("Failed to open uploaded file %q", header.Filename), err)
		}
		// Read one byte past the per-file limit at most; an oversize part
		// surfaces as a size-validation failure, not a parse error.
		data, err := io.ReadAll(io.LimitReader(file, p.maxFileSize+1))
		file.Close()
		if err != nil {
			return nil, WrapError(KindInvalidInput, fmt.Sprintf("Failed to read uploaded file %q", header.Filename), err)
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}

		parts = append(parts, FilePart{
			OriginalName: header.Filename,
			Size:         int64(len(data)),
			MimeType:     mimeType,
			Data:         data,
		})
	}
	return parts, nil
}
