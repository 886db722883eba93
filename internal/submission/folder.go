package submission

import (
	"path"
	"strings"
	"time"
	"unicode"
)

const folderTimeLayout = "20060102-150405"

// FolderName is "{applicant}-{idNumber}-{yyyyMMdd-HHmmss}".
func FolderName(fullName, idNumber string, at time.Time) string {
	return sanitize(fullName, "client") + "-" + sanitize(idNumber, "unknown") + "-" + at.Format(folderTimeLayout)
}

// sanitize keeps letters and digits (Hebrew included) and turns runs of
// anything else into a single dash.
func sanitize(s, fallback string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return fallback
	}
	return out
}

// fileName makes a user-supplied file name safe as the last key segment.
func fileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	ext := path.Ext(name)
	base := sanitize(strings.TrimSuffix(name, ext), "file")
	return base + sanitizeExt(ext)
}

func sanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	clean := sanitize(strings.TrimPrefix(ext, "."), "")
	if clean == "" {
		return ""
	}
	return "." + strings.ToLower(clean)
}
