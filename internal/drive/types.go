package drive

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Google-native MIME types that require export conversion.
const (
	MimeFolder       = "application/vnd.google-apps.folder"
	MimeShortcut     = "application/vnd.google-apps.shortcut"
	MimeDocument     = "application/vnd.google-apps.document"
	MimeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	MimePresentation = "application/vnd.google-apps.presentation"
	MimeDrawing      = "application/vnd.google-apps.drawing"

	googleAppsPrefix = "application/vnd.google-apps."
)

// SizeUnknown marks a file whose byte size the API did not report.
// Google-native documents have no stored byte size until exported.
const SizeUnknown = -1

// FileRecord is normalized metadata for one remotely stored file.
// Immutable once produced by the listing walker.
type FileRecord struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64 // SizeUnknown for native documents
	CanDownload bool
}

// IsFolder reports whether the record describes a folder container.
func (f *FileRecord) IsFolder() bool {
	return f.MimeType == MimeFolder
}

// IsShortcut reports whether the record is a shortcut — a pointer with no
// content stream of its own.
func (f *FileRecord) IsShortcut() bool {
	return f.MimeType == MimeShortcut
}

// IsNativeDoc reports whether the file is a Google-native document that
// must be exported rather than downloaded.
func (f *FileRecord) IsNativeDoc() bool {
	return strings.HasPrefix(f.MimeType, googleAppsPrefix) &&
		f.MimeType != MimeFolder && f.MimeType != MimeShortcut
}

// fileResponse mirrors the Drive API file resource JSON. Unexported —
// callers only ever see FileRecord via toRecord() normalization.
type fileResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MimeType     string          `json:"mimeType"`
	Size         json.RawMessage `json:"size"` // string-encoded int64, absent for native docs
	Capabilities *struct {
		CanDownload *bool `json:"canDownload"`
	} `json:"capabilities"`
}

type listFilesResponse struct {
	Files         []fileResponse `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

// toRecord normalizes a Drive API file resource into a FileRecord.
// The API encodes size as a JSON string; a missing size means the file
// has no stored byte representation (native docs).
func (f *fileResponse) toRecord() FileRecord {
	rec := FileRecord{
		ID:          f.ID,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        SizeUnknown,
		CanDownload: true,
	}

	if len(f.Size) > 0 {
		var sizeStr string
		if err := json.Unmarshal(f.Size, &sizeStr); err == nil {
			if n, parseErr := strconv.ParseInt(sizeStr, 10, 64); parseErr == nil {
				rec.Size = n
			}
		}
	}

	if f.Capabilities != nil && f.Capabilities.CanDownload != nil {
		rec.CanDownload = *f.Capabilities.CanDownload
	}

	return rec
}
