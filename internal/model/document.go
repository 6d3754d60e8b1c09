package model

import (
	"path/filepath"
	"strings"
)

// FileKind is the declared format of an uploaded document.
type FileKind string

const (
	KindPDF  FileKind = "pdf"
	KindPNG  FileKind = "png"
	KindJPEG FileKind = "jpeg"
	KindTIFF FileKind = "tiff"
	KindBMP  FileKind = "bmp"
)

// ExtractionStatus tracks the lifecycle of a document's text extraction.
type ExtractionStatus string

const (
	ExtractionPending ExtractionStatus = "pending"
	ExtractionDone    ExtractionStatus = "done"
	ExtractionFailed  ExtractionStatus = "failed"
)

// DocumentRecord is one uploaded document within a session. The extracted
// text is shared by value across sessions holding identical content; the
// cache owns the canonical copy.
type DocumentRecord struct {
	Filename   string           `json:"filename"`
	Kind       FileKind         `json:"kind"`
	Size       int64            `json:"size"`
	ContentKey string           `json:"content_key"`
	Text       string           `json:"-"`
	Method     string           `json:"extraction_method,omitempty"`
	Status     ExtractionStatus `json:"extraction_status"`
	Error      string           `json:"error,omitempty"`
}

// KindFromFilename maps a filename extension to a FileKind.
// Returns false for unsupported extensions.
func KindFromFilename(name string) (FileKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF, true
	case ".png":
		return KindPNG, true
	case ".jpg", ".jpeg":
		return KindJPEG, true
	case ".tiff", ".tif":
		return KindTIFF, true
	case ".bmp":
		return KindBMP, true
	default:
		return "", false
	}
}

// IsImage reports whether the kind has no text layer and goes straight to OCR.
func (k FileKind) IsImage() bool {
	return k == KindPNG || k == KindJPEG || k == KindTIFF || k == KindBMP
}
