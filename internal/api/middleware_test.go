package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pubhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusConflict, "already_closed", "publication is already approved or rejected", zap.NewNop())

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "already_closed", resp.Error)
	assert.Equal(t, "publication is already approved or rejected", resp.Message)
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/publications", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestEncodeResources(t *testing.T) {
	resources := []model.PublicationResource{
		{
			SourceURL: "conversations/alice/my notes/chat один",
			TargetURL: "conversations/public/docs/chat один",
			ReviewURL: "conversations/alice/my notes/chat один",
			Action:    model.ActionAdd,
		},
	}

	encoded := encodeResources(resources)
	require.Len(t, encoded, 1)
	assert.Equal(t, "conversations/public/docs/chat%20%D0%BE%D0%B4%D0%B8%D0%BD", encoded[0].TargetURL)
	// Separators survive; only segment contents are escaped
	assert.Contains(t, encoded[0].SourceURL, "/")
	// Input is untouched
	assert.Equal(t, "conversations/public/docs/chat один", resources[0].TargetURL)
}
