package routes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"blogfront/app/repositories"
	"blogfront/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

// setupTestTemplates writes a minimal views tree and a static dir, returning
// their paths.
func setupTestTemplates(t *testing.T) (viewsDir, staticDir string) {
	tmpDir := t.TempDir()
	viewsDir = filepath.Join(tmpDir, "app", "views")
	staticDir = filepath.Join(tmpDir, "static")

	// Create directories
	for _, dir := range []string{filepath.Join(viewsDir, "shared"), staticDir} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}

	// Create template files
	templates := map[string]string{
		"layout.html":          `{{define "layout"}}<!DOCTYPE html><html><body>{{template "content" .}}</body></html>{{end}}`,
		"shared/partials.html": `{{define "card"}}<h2>{{.Title}}</h2>{{end}}`,
		"index.html":           `{{define "content"}}<div class="posts">{{range .PagePosts}}{{template "card" .}}{{end}}</div>{{end}}`,
		"post-details.html":    `{{define "content"}}<h1>{{.Post.Title}}</h1><p>{{.Post.Text}}</p>{{end}}`,
		"posts-list.html":      `{{define "content"}}<h1>{{.Tag}}</h1>{{range .Posts}}{{template "card" .}}{{end}}{{end}}`,
		"contacts.html":        `{{define "content"}}<h1>Contacts</h1>{{end}}`,
	}
	for name, content := range templates {
		require.NoError(t, os.WriteFile(filepath.Join(viewsDir, name), []byte(content), 0644))
	}

	// Create static test file
	cssContent := "body { background: #f0f0f0; }"
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "style.css"), []byte(cssContent), 0644))

	return viewsDir, staticDir
}

func setupTestStore(t *testing.T) *repositories.BadgerStore {
	store, err := repositories.OpenBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ds, err := repositories.LoadDataset("../repositories/testdata/blog.yaml")
	require.NoError(t, err)
	require.NoError(t, store.Import(context.Background(), ds))
	return store
}

func setupTestRouter(t *testing.T) *mux.Router {
	viewsDir, staticDir := setupTestTemplates(t)
	store := setupTestStore(t)

	pages, err := services.NewPageService(
		repositories.NewQueries(store, nil),
		services.NewSerializer("/media/"),
		services.DefaultPageLimits(),
		nil,
	)
	require.NoError(t, err)

	router, err := Setup(pages, Options{ViewsPath: viewsDir, StaticDir: staticDir, Health: store.Ping})
	require.NoError(t, err)
	return router
}
