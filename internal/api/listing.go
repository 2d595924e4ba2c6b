package api

import (
	"encoding/json"
	"net/http"

	"pubhub/internal/auth"
	"pubhub/internal/ident"
	"pubhub/internal/model"
	"pubhub/internal/service"

	"github.com/go-chi/chi/v5"
)

// getListing returns one section of the resource browser: derived
// folders plus leaf entities of one kind. Defaults to the caller's own
// bucket; the public bucket is readable by anyone.
func (d Dependencies) getListing(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.KindOf(r.URL.Query().Get("kind"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_request", "kind must be one of conversations, prompts, files, applications", d.Log)
		return
	}

	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		bucket = auth.GetBucket(r.Context())
	}
	if bucket == "" {
		WriteError(w, http.StatusUnauthorized, "no_bucket", "Bucket could not be resolved from credentials", d.Log)
		return
	}
	if bucket != ident.PublicBucket && bucket != auth.GetBucket(r.Context()) {
		WriteError(w, http.StatusForbidden, "forbidden", "Cannot list another user's bucket", d.Log)
		return
	}

	entitySvc := service.NewEntityService(d.DB.Queries)
	listing, err := entitySvc.GetListing(r.Context(), service.ListingParams{
		Kind:         kind,
		Bucket:       bucket,
		SectionPath:  ident.DecodePath(r.URL.Query().Get("section")),
		SearchTerm:   r.URL.Query().Get("search"),
		IncludeEmpty: r.URL.Query().Get("includeEmpty") == "true",
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "listing_failed", err.Error(), d.Log)
		return
	}

	for i := range listing.Folders {
		listing.Folders[i].ID = ident.EncodePath(listing.Folders[i].ID)
		listing.Folders[i].FolderID = ident.EncodePath(listing.Folders[i].FolderID)
	}
	for i := range listing.Entities {
		listing.Entities[i].ID = ident.EncodePath(listing.Entities[i].ID)
		listing.Entities[i].FolderID = ident.EncodePath(listing.Entities[i].FolderID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listing)
}

func (d Dependencies) getEntity(w http.ResponseWriter, r *http.Request) {
	id := ident.DecodePath(chi.URLParam(r, "id"))

	entitySvc := service.NewEntityService(d.DB.Queries)
	entity, err := entitySvc.GetEntity(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Entity not found", d.Log)
		return
	}

	bucket := auth.GetBucket(r.Context())
	if entity.Bucket != ident.PublicBucket && entity.Bucket != bucket {
		WriteError(w, http.StatusForbidden, "forbidden", "Cannot read another user's entity", d.Log)
		return
	}

	entity.ID = ident.EncodePath(entity.ID)
	entity.FolderID = ident.EncodePath(entity.FolderID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entity)
}
