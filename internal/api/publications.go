package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"pubhub/internal/auth"
	"pubhub/internal/ident"
	"pubhub/internal/model"
	"pubhub/internal/schema"
	"pubhub/internal/service"
)

func (d Dependencies) publicationService() *service.PublicationService {
	entitySvc := service.NewEntityService(d.DB.Queries)
	pubSvc := service.NewPublicationService(d.DB.Queries, entitySvc, d.Bus, d.Log)
	if d.JobClient != nil {
		pubSvc.SetJobClient(d.JobClient)
	}
	return pubSvc
}

func (d Dependencies) reviewService() *service.ReviewService {
	return service.NewReviewService(d.DB.Queries, d.publicationService(), d.Bus, d.Log)
}

func (d Dependencies) publish(w http.ResponseWriter, r *http.Request) {
	d.createPublication(w, r, false)
}

func (d Dependencies) unpublish(w http.ResponseWriter, r *http.Request) {
	d.createPublication(w, r, true)
}

func (d Dependencies) createPublication(w http.ResponseWriter, r *http.Request, unpublish bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body", d.Log)
		return
	}

	schemaComp := schema.NewCompilerWithCache(64)
	if err := schemaComp.ValidateJSON(schema.PublishRequestSchema, body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), d.Log)
		return
	}

	var input service.PublishInput
	if err := json.Unmarshal(body, &input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	// Identifier segments arrive percent-encoded; everything behind this
	// boundary works on decoded ids.
	for i, id := range input.EntityIDs {
		input.EntityIDs[i] = ident.DecodePath(id)
	}
	for i, id := range input.FolderIDs {
		input.FolderIDs[i] = ident.DecodePath(id)
	}
	input.TargetFolder = ident.DecodePath(input.TargetFolder)

	input.CreatedBy = auth.GetUserID(r.Context())
	input.Bucket = auth.GetBucket(r.Context())
	if input.Bucket == "" {
		WriteError(w, http.StatusUnauthorized, "no_bucket", "Bucket could not be resolved from credentials", d.Log)
		return
	}

	pubSvc := d.publicationService()

	var pub *model.Publication
	if unpublish {
		pub, err = pubSvc.Unpublish(r.Context(), input)
	} else {
		pub, err = pubSvc.Publish(r.Context(), input)
	}
	if err != nil {
		WriteError(w, http.StatusBadRequest, "publish_failed", err.Error(), d.Log)
		return
	}

	encoded := *pub
	encoded.Resources = encodeResources(pub.Resources)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(encoded)
}

func (d Dependencies) listPublications(w http.ResponseWriter, r *http.Request) {
	var status *model.PublicationStatus
	if s := r.URL.Query().Get("status"); s != "" {
		v := model.PublicationStatus(s)
		status = &v
	}

	var types []model.BackendResourceType
	if t := r.URL.Query().Get("resourceTypes"); t != "" {
		for _, v := range strings.Split(t, ",") {
			types = append(types, model.BackendResourceType(v))
		}
	}

	pubs, err := d.publicationService().List(r.Context(), status, types)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"publications": pubs})
}

func (d Dependencies) getPublication(w http.ResponseWriter, r *http.Request) {
	detail, err := d.publicationService().Get(r.Context(), publicationURL(r))
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Publication not found", d.Log)
		return
	}

	detail.Resources = encodeResources(detail.Resources)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

func (d Dependencies) approvePublication(w http.ResponseWriter, r *http.Request) {
	if !auth.IsReviewer(r.Context()) {
		WriteError(w, http.StatusForbidden, "forbidden", "Reviewer role required", d.Log)
		return
	}

	err := d.publicationService().Approve(r.Context(), publicationURL(r), auth.GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEntities):
			WriteError(w, http.StatusConflict, "invalid_entities", err.Error(), d.Log)
		case errors.Is(err, service.ErrReviewIncomplete):
			WriteError(w, http.StatusConflict, "review_incomplete", err.Error(), d.Log)
		case errors.Is(err, service.ErrPublicationClosed):
			WriteError(w, http.StatusConflict, "already_closed", err.Error(), d.Log)
		default:
			WriteError(w, http.StatusInternalServerError, "approve_failed", err.Error(), d.Log)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": string(model.StatusApproved)})
}

func (d Dependencies) rejectPublication(w http.ResponseWriter, r *http.Request) {
	if !auth.IsReviewer(r.Context()) {
		WriteError(w, http.StatusForbidden, "forbidden", "Reviewer role required", d.Log)
		return
	}

	err := d.publicationService().Reject(r.Context(), publicationURL(r), auth.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrPublicationClosed) {
			WriteError(w, http.StatusConflict, "already_closed", err.Error(), d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "reject_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": string(model.StatusRejected)})
}

func encodeResources(resources []model.PublicationResource) []model.PublicationResource {
	encoded := make([]model.PublicationResource, len(resources))
	for i, r := range resources {
		r.SourceURL = ident.EncodePath(r.SourceURL)
		r.TargetURL = ident.EncodePath(r.TargetURL)
		r.ReviewURL = ident.EncodePath(r.ReviewURL)
		encoded[i] = r
	}
	return encoded
}
