package storage

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// UploadPolicy constrains attachment uploads offered for signing
type UploadPolicy struct {
	MaxFileMB  *float64 `json:"maxFileMB,omitempty"`
	MimeTypes  []string `json:"mime,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
}

// DefaultUploadPolicy returns the policy applied when none is configured.
// Attachments in chat messages are documents and images, not archives.
func DefaultUploadPolicy() *UploadPolicy {
	maxMB := 25.0
	return &UploadPolicy{
		MaxFileMB: &maxMB,
		MimeTypes: []string{"image/*", "text/*", "application/pdf", "application/json"},
	}
}

// ValidateFile validates a file against the policy
func (p *UploadPolicy) ValidateFile(fileName, contentType string, fileSizeBytes int64) error {
	if p == nil {
		return nil
	}

	if p.MaxFileMB != nil {
		maxBytes := int64(*p.MaxFileMB * 1024 * 1024)
		if fileSizeBytes > maxBytes {
			return fmt.Errorf("file size %d bytes exceeds maximum %d bytes (%.2f MB)",
				fileSizeBytes, maxBytes, *p.MaxFileMB)
		}
	}

	if len(p.MimeTypes) > 0 {
		if !p.matchesMimeType(contentType) {
			return fmt.Errorf("content type %s is not allowed. Allowed types: %v",
				contentType, p.MimeTypes)
		}
	}

	if len(p.Extensions) > 0 {
		if !p.matchesExtension(fileName) {
			return fmt.Errorf("file extension is not allowed. Allowed extensions: %v",
				p.Extensions)
		}
	}

	return nil
}

func (p *UploadPolicy) matchesMimeType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	for _, allowed := range p.MimeTypes {
		if strings.HasSuffix(allowed, "/*") {
			prefix := strings.TrimSuffix(allowed, "/*")
			if strings.HasPrefix(mediaType, prefix+"/") {
				return true
			}
		} else if mediaType == allowed {
			return true
		}
	}
	return false
}

func (p *UploadPolicy) matchesExtension(fileName string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" {
		return false
	}

	for _, allowed := range p.Extensions {
		if ext == strings.ToLower(strings.TrimPrefix(allowed, ".")) {
			return true
		}
	}
	return false
}
