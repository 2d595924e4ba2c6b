package api

import (
	"encoding/json"
	"net/http"

	"pubhub/internal/ident"
)

// rulesAtPath returns the rule records governing one target publish
// path: the rules at the path itself plus inherited ancestor rules,
// grouped by the path each set is attached to.
func (d Dependencies) rulesAtPath(w http.ResponseWriter, r *http.Request) {
	path := ident.DecodePath(r.URL.Query().Get("path"))

	byPath, err := d.publicationService().RulesAt(r.Context(), path)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "rules_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"rules": byPath})
}
