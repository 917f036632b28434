package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"blogfront/app/repositories"
	"blogfront/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRoutes(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		expectedHeader string
	}{
		{"GET home", "GET", "/", http.StatusOK, "text/html; charset=utf-8"},
		{"GET post", "GET", "/post/hello-world", http.StatusOK, "text/html; charset=utf-8"},
		{"GET tag", "GET", "/tag/go", http.StatusOK, "text/html; charset=utf-8"},
		{"GET contacts", "GET", "/contacts", http.StatusOK, "text/html; charset=utf-8"},
		{"GET api home", "GET", "/api/", http.StatusOK, "application/json"},
		{"GET api post", "GET", "/api/post/hello-world", http.StatusOK, "application/json"},
		{"GET api tag", "GET", "/api/tag/go", http.StatusOK, "application/json"},
		{"GET api contacts", "GET", "/api/contacts", http.StatusOK, "application/json"},
		{"Unknown post", "GET", "/post/missing", http.StatusNotFound, "text/plain; charset=utf-8"},
		{"Unknown api post", "GET", "/api/post/missing", http.StatusNotFound, "application/json"},
		{"Unknown api route", "GET", "/api/posts", http.StatusNotFound, "application/json"},
		{"Health", "GET", "/healthz", http.StatusOK, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedHeader, w.Header().Get("Content-Type"))
		})
	}
}

func TestRouteTemplates(t *testing.T) {
	router := setupTestRouter(t)

	var templates []string
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			templates = append(templates, tmpl)
		}
		return nil
	})
	require.NoError(t, err)

	for _, want := range []string{
		"/", "/post/{slug}", "/tag/{tag_title}", "/contacts",
		"/api/", "/api/post/{slug}", "/api/tag/{tag_title}", "/api/contacts",
		"/metrics", "/healthz", "/static/",
	} {
		assert.Contains(t, templates, want)
	}
}

func TestSetupMissingViews(t *testing.T) {
	pages, err := services.NewPageService(repositories.NewQueries(setupTestStore(t), nil), nil, services.DefaultPageLimits(), nil)
	require.NoError(t, err)

	_, err = Setup(pages, Options{ViewsPath: t.TempDir()})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	viewsDir, _ := setupTestTemplates(t)
	pages, err := services.NewPageService(repositories.NewQueries(setupTestStore(t), nil), nil, services.DefaultPageLimits(), nil)
	require.NoError(t, err)

	router, err := Setup(pages, Options{
		ViewsPath: viewsDir,
		Health:    func(context.Context) error { return errors.New("store unreachable") },
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","error":"store unreachable"}`, w.Body.String())
}
