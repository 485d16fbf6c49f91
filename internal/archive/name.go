package archive

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// invalidNameChars are characters replaced in archive entry names. They
// are either path separators or reserved on common filesystems, and a
// backup archive should extract cleanly anywhere.
const invalidNameChars = `<>:"/\|?*`

// SafeName sanitizes a remote display name into a usable archive entry
// name: NFC-normalized (providers return mixed normalization forms for
// the same visual name), invalid characters replaced with underscores,
// control characters stripped. An empty result becomes "unnamed".
func SafeName(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			// Control characters are dropped outright.
		case strings.ContainsRune(invalidNameChars, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return "unnamed"
	}

	return cleaned
}

// EnsureExtension appends "." + ext unless the name already ends with it
// (case-insensitive). Used for export-converted entries so "Notes" becomes
// "Notes.docx" but "Notes.docx" stays unchanged.
func EnsureExtension(name, ext string) string {
	if ext == "" {
		return name
	}

	if strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(ext)) {
		return name
	}

	return name + "." + ext
}
