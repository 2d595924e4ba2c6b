package api

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"pubhub/internal/auth"
	"pubhub/internal/db"
	"pubhub/internal/ident"
	"pubhub/internal/storage"

	"github.com/oklog/ulid/v2"
)

// signFile hands out upload/download URLs for one attachment and mirrors
// it as a files entity so conversation bodies can link to it by id.
func (d Dependencies) signFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	contentType := r.URL.Query().Get("contentType")
	fileSizeStr := r.URL.Query().Get("size")

	if name == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "name parameter required", d.Log)
		return
	}

	bucket := auth.GetBucket(r.Context())
	if bucket == "" {
		WriteError(w, http.StatusUnauthorized, "no_bucket", "Bucket could not be resolved from credentials", d.Log)
		return
	}

	policy := storage.DefaultUploadPolicy()
	var fileSize int64
	if fileSizeStr != "" {
		var err error
		fileSize, err = strconv.ParseInt(fileSizeStr, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_size", "Invalid file size parameter", d.Log)
			return
		}
	}
	if err := policy.ValidateFile(name, contentType, fileSize); err != nil {
		WriteError(w, http.StatusBadRequest, "policy_violation", err.Error(), d.Log)
		return
	}

	// Initialize storage (local filesystem for now)
	baseDir := os.Getenv("STORAGE_BASE_DIR")
	if baseDir == "" {
		baseDir = "./storage"
	}
	baseURL := os.Getenv("STORAGE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	stor, err := storage.NewLocalStorage(baseDir, baseURL)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "storage_init_failed", "Storage initialization failed", d.Log)
		return
	}

	uploadID := ulid.Make().String()
	objectName := storage.ObjectName(bucket, uploadID, name)

	putURL, err := stor.PresignPut(r.Context(), objectName, contentType, 15*time.Minute)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "url_generation_failed", "Failed to generate presigned URL", d.Log)
		return
	}

	getURL, err := stor.PresignGet(r.Context(), objectName, 24*time.Hour)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "url_generation_failed", "Failed to generate presigned URL", d.Log)
		return
	}

	entityID := ident.ConstructPath("files", bucket, uploadID, name)
	if _, err := d.DB.Queries.UpsertEntity(r.Context(), db.Entity{
		ID:     entityID,
		Kind:   "files",
		Name:   name,
		Bucket: bucket,
	}); err != nil {
		WriteError(w, http.StatusInternalServerError, "entity_create_failed", "Failed to register upload", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     ident.EncodePath(entityID),
		"putUrl": putURL,
		"getUrl": getURL,
	})
}
