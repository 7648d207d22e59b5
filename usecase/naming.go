package usecase

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const maxFileNameRunes = 120

var unsafeFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+`)
var repeatedSpace = regexp.MustCompile(`\s+`)

// SanitizeFileName strips characters that are unsafe in file names and trims the result.
func SanitizeFileName(name string) string {
	cleaned := unsafeFileChars.ReplaceAllString(name, " ")
	cleaned = repeatedSpace.ReplaceAllString(cleaned, " ")
	cleaned = strings.Trim(cleaned, " .")
	if runes := []rune(cleaned); len(runes) > maxFileNameRunes {
		cleaned = strings.TrimSpace(string(runes[:maxFileNameRunes]))
	}
	return cleaned
}

// ResolveUploadName picks the remote file name: the sanitized title when
// given, else the channel name with a timestamp. ext comes from the staged file.
func ResolveUploadName(title, channelName, ext string, now time.Time) string {
	if ext == "" {
		ext = ".mp4"
	}
	if titleExt := filepath.Ext(title); videoExtensions[strings.ToLower(titleExt)] {
		title = strings.TrimSuffix(title, titleExt)
	}
	base := SanitizeFileName(title)
	if base == "" {
		channel := SanitizeFileName(channelName)
		if channel == "" {
			channel = "video"
		}
		base = channel + "_" + now.Format("20060102_150405")
	}
	return base + ext
}
