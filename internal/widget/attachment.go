package widget

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageBytes caps image attachments.
const MaxImageBytes = 10 * 1024 * 1024

// PendingImage is an image chosen by the visitor but not yet uploaded.
type PendingImage struct {
	Filename    string
	ContentType string
	Data        []byte
	Label       string
}

// LoadImageFile reads a file from disk and guesses its content type from the
// extension, then from the bytes.
func LoadImageFile(path string) (filename, contentType string, data []byte, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return "", "", nil, fmt.Errorf("widget: read attachment: %w", err)
	}
	filename = filepath.Base(path)
	contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return filename, contentType, data, nil
}

// previewLabel names the preview chip of a pending image.
func previewLabel(filename string) string {
	lower := strings.ToLower(filename)
	if strings.Contains(lower, "screen") || strings.Contains(lower, "shot") {
		return "Screenshot"
	}
	return "Image"
}
