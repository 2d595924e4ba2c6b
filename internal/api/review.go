package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"pubhub/internal/auth"
	"pubhub/internal/ident"
	"pubhub/internal/service"
)

func (d Dependencies) openReview(w http.ResponseWriter, r *http.Request) {
	if !auth.IsReviewer(r.Context()) {
		WriteError(w, http.StatusForbidden, "forbidden", "Reviewer role required", d.Log)
		return
	}

	session, err := d.reviewService().Open(r.Context(), publicationURL(r))
	if err != nil {
		if errors.Is(err, service.ErrPublicationClosed) {
			WriteError(w, http.StatusConflict, "already_closed", err.Error(), d.Log)
			return
		}
		WriteError(w, http.StatusNotFound, "open_failed", err.Error(), d.Log)
		return
	}

	for i := range session.Records {
		session.Records[i].ReviewURL = ident.EncodePath(session.Records[i].ReviewURL)
	}
	for i := range session.InvalidEntities {
		session.InvalidEntities[i] = ident.EncodePath(session.InvalidEntities[i])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

func (d Dependencies) nextReviewStop(w http.ResponseWriter, r *http.Request) {
	stop, state, err := d.reviewService().Next(r.Context(), publicationURL(r))
	if err != nil {
		WriteError(w, http.StatusNotFound, "next_failed", err.Error(), d.Log)
		return
	}

	resp := map[string]interface{}{"state": string(state)}
	if stop != nil {
		folders := make([]string, len(stop.FoldersToOpen))
		for i, f := range stop.FoldersToOpen {
			folders[i] = ident.EncodePath(f)
		}
		resp["stop"] = map[string]interface{}{
			"reviewUrl":       ident.EncodePath(stop.ReviewURL),
			"kind":            string(stop.Kind),
			"foldersToOpen":   folders,
			"openPromptPanel": stop.OpenPromptPanel,
			"previewMode":     stop.PreviewMode,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type visitRequest struct {
	PublicationURL string `json:"publicationUrl"`
	ReviewURL      string `json:"reviewUrl"`
}

func (d Dependencies) visitResource(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.PublicationURL == "" || req.ReviewURL == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "publicationUrl and reviewUrl required", d.Log)
		return
	}

	changed, err := d.reviewService().MarkVisited(r.Context(), req.PublicationURL, ident.DecodePath(req.ReviewURL))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "visit_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"reviewed": true, "changed": changed})
}
