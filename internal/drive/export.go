package drive

// Export target MIME types (Office Open XML interchange formats and PDF).
const (
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimePDF  = "application/pdf"
)

// exportTargets maps Google-native document types to their export
// interchange format. An explicit table, not runtime type inspection:
// adding a new native type means adding a row here.
var exportTargets = map[string]string{
	MimeDocument:     mimeDocx,
	MimeSpreadsheet:  mimeXlsx,
	MimePresentation: mimePptx,
	MimeDrawing:      mimePDF,
}

// exportExtensions maps export target MIME types to filename extensions
// appended to archive entry names.
var exportExtensions = map[string]string{
	mimeDocx: "docx",
	mimeXlsx: "xlsx",
	mimePptx: "pptx",
	mimePDF:  "pdf",
}

// ExportTarget returns the export MIME type for a Google-native document.
// Native types without an explicit mapping fall back to PDF, matching the
// provider's universal export format. Returns ok=false for non-native files.
func ExportTarget(mimeType string) (string, bool) {
	rec := FileRecord{MimeType: mimeType}
	if !rec.IsNativeDoc() {
		return "", false
	}

	if target, ok := exportTargets[mimeType]; ok {
		return target, true
	}

	return mimePDF, true
}

// ExportExtension returns the filename extension for an export target MIME
// type, defaulting to "pdf" for unknown targets.
func ExportExtension(targetMime string) string {
	if ext, ok := exportExtensions[targetMime]; ok {
		return ext
	}

	return "pdf"
}
