package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathParam(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		prefix string
		want   string
	}{
		{"plain id", "/api/papers/paper_1", "/api/papers/", "paper_1"},
		{"id with subpath", "/api/papers/paper_1/annotations", "/api/papers/", "paper_1"},
		{"deep subpath", "/api/viewer/sess_1/page/3/overlays", "/api/viewer/", "sess_1"},
		{"trailing slash", "/api/papers/paper_1/", "/api/papers/", "paper_1"},
		{"no id", "/api/papers/", "/api/papers/", ""},
		{"prefix mismatch", "/api/other/x", "/api/papers/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.path, nil)
			assert.Equal(t, tt.want, PathParam(r, tt.prefix))
		})
	}
}

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 50, 0},
		{"explicit", "limit=10&offset=5", 10, 5},
		{"limit capped", "limit=1000", 200, 0},
		{"garbage ignored", "limit=abc&offset=-3", 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/papers?"+tt.query, nil)
			limit, offset := GetPaginationParams(r)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestWriteErrorShape(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, "Paper not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Paper not found", body["error"])
}

func TestRequireMethod(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/viewer/open", nil)

	assert.False(t, RequireMethod(w, r, "POST"))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/api/viewer/open", nil)
	assert.True(t, RequireMethod(w, r, "POST"))
}

func TestDecodeJSONRejectsBadBody(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/viewer/open", nil)
	r.Body = http.NoBody

	var dst struct{ URL string }
	assert.False(t, DecodeJSON(w, r, &dst))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
