package storage

import (
	"fmt"
)

// UploadMetadata describes an uploaded attachment. The ID is the key that
// message bodies reference when they link to an attachment.
type UploadMetadata struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	MIME   string `json:"mime"`
	SHA256 string `json:"sha256,omitempty"`
}

// NormalizeUploadMetadata normalizes upload metadata from a map
func NormalizeUploadMetadata(file map[string]interface{}) UploadMetadata {
	meta := UploadMetadata{}

	if id, ok := file["id"].(string); ok {
		meta.ID = id
	}
	if name, ok := file["name"].(string); ok {
		meta.Name = name
	}
	if url, ok := file["url"].(string); ok {
		meta.URL = url
	}
	if size, ok := file["size"].(float64); ok {
		meta.Size = int64(size)
	} else if size, ok := file["size"].(int64); ok {
		meta.Size = size
	} else if size, ok := file["size"].(int); ok {
		meta.Size = int64(size)
	}
	if mime, ok := file["mime"].(string); ok {
		meta.MIME = mime
	} else if contentType, ok := file["contentType"].(string); ok {
		meta.MIME = contentType
	}
	if sha256, ok := file["sha256"].(string); ok {
		meta.SHA256 = sha256
	}

	return meta
}

// ValidateUploadMetadata validates that upload metadata has required fields
func ValidateUploadMetadata(meta UploadMetadata) error {
	if meta.ID == "" {
		return fmt.Errorf("upload id is required")
	}
	if meta.Name == "" {
		return fmt.Errorf("file name is required")
	}
	if meta.Size < 0 {
		return fmt.Errorf("file size must be non-negative")
	}
	return nil
}

// ToMap converts UploadMetadata to a map for storage
func (m UploadMetadata) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"id":   m.ID,
		"name": m.Name,
		"url":  m.URL,
		"size": m.Size,
		"mime": m.MIME,
	}
	if m.SHA256 != "" {
		result["sha256"] = m.SHA256
	}
	return result
}

// NormalizeUploads normalizes a slice of upload metadata maps
func NormalizeUploads(files []map[string]interface{}) ([]UploadMetadata, error) {
	normalized := make([]UploadMetadata, 0, len(files))
	for _, file := range files {
		meta := NormalizeUploadMetadata(file)
		if err := ValidateUploadMetadata(meta); err != nil {
			return nil, fmt.Errorf("invalid upload metadata: %w", err)
		}
		normalized = append(normalized, meta)
	}
	return normalized, nil
}
