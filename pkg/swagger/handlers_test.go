package swagger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *mux.Router {
	router := mux.NewRouter()
	NewSwaggerHandlers("/api/v1/openapi.yaml").RegisterRoutes(router)
	return router
}

func TestRegisterRoutes(t *testing.T) {
	router := newRouter()

	tests := []struct {
		name        string
		path        string
		contentType string
	}{
		{"yaml document", "/openapi.yaml", "application/x-yaml"},
		{"json document", "/openapi.json", "application/json"},
		{"swagger ui", "/docs", "text/html; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
		})
	}
}

func TestServeOpenAPISpec(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, openapiSpec, w.Body.Bytes())
}

func TestServeOpenAPISpecJSON(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		OpenAPI string                            `json:"openapi"`
		Paths   map[string]map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)

	for _, path := range []string{
		"/auth/signup",
		"/auth/token",
		"/users",
		"/users/me",
		"/users/{username}",
		"/categories",
		"/categories/{slug}",
		"/genres",
		"/genres/{slug}",
		"/titles",
		"/titles/{title_id}",
		"/titles/{title_id}/reviews",
		"/titles/{title_id}/reviews/{review_id}",
		"/titles/{title_id}/reviews/{review_id}/comments",
		"/titles/{title_id}/reviews/{review_id}/comments/{comment_id}",
	} {
		assert.Contains(t, doc.Paths, path)
	}
	assert.NotContains(t, doc.Paths["/titles/{title_id}"], "put")
}

func TestServeSwaggerUI(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))

	body := w.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "SwaggerUIBundle")
	assert.Contains(t, body, `openapi.yaml"`)
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/openapi.yaml", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
