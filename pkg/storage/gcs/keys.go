package gcs

import (
	"fmt"
	"path"
	"strings"
)

const (
	uploadPrefix = "uploads"
	outputPrefix = "outputs"
)

// UploadKey returns the object key for a user-submitted original image.
func UploadKey(jobID, filename string) string {
	filename = sanitizeFilename(filename)
	return fmt.Sprintf("%s/%s-%s", uploadPrefix, jobID, filename)
}

// OutputKey returns the object key where the colorized result is written.
func OutputKey(jobID string) string {
	return fmt.Sprintf("%s/%s-colorized.jpg", outputPrefix, jobID)
}

// sanitizeFilename strips directory components and characters that would
// break the flat key layout.
func sanitizeFilename(filename string) string {
	filename = path.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return "upload"
	}
	replacer := strings.NewReplacer(" ", "_", "#", "", "?", "", "&", "")
	return replacer.Replace(filename)
}
