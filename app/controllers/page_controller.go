package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"blogfront/app/render"
	"blogfront/app/repositories"
	"blogfront/app/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PageController serves the public blog pages as HTML or, for /api requests,
// as JSON.
type PageController struct {
	pages     *services.PageService
	templates map[string]*template.Template
	logger    *zap.Logger
}

// NewPageController creates a PageController rendering templates from viewsPath.
func NewPageController(pages *services.PageService, viewsPath string, logger *zap.Logger) (*PageController, error) {
	templates, err := loadTemplates(viewsPath)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageController{pages: pages, templates: templates, logger: logger}, nil
}

// loadTemplates parses every page together with the shared layout and partials.
func loadTemplates(viewsPath string) (map[string]*template.Template, error) {
	shared := []string{
		filepath.Join(viewsPath, "layout.html"),
		filepath.Join(viewsPath, "shared", "partials.html"),
	}
	pages := []string{
		services.HomeTemplate,
		services.PostDetailTemplate,
		services.TagFilterTemplate,
		services.ContactsTemplate,
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		files := append(append([]string{}, shared...), filepath.Join(viewsPath, name))
		t, err := template.New(name).Funcs(render.Funcs()).ParseFiles(files...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = t
	}
	return templates, nil
}

// Index serves the homepage
func (pc *PageController) Index(w http.ResponseWriter, r *http.Request) {
	pc.serve(w, r, pc.pages.Home)
}

// PostDetail serves the page of a single post
func (pc *PageController) PostDetail(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	pc.serve(w, r, func(ctx context.Context) (*services.Page, error) {
		return pc.pages.PostDetail(ctx, slug)
	})
}

// TagFilter serves the listing of posts carrying a tag
func (pc *PageController) TagFilter(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["tag_title"]
	pc.serve(w, r, func(ctx context.Context) (*services.Page, error) {
		return pc.pages.TagFilter(ctx, title)
	})
}

// Contacts serves the contacts page
func (pc *PageController) Contacts(w http.ResponseWriter, r *http.Request) {
	pc.serve(w, r, pc.pages.Contacts)
}

func (pc *PageController) serve(w http.ResponseWriter, r *http.Request, assemble func(context.Context) (*services.Page, error)) {
	page, err := assemble(r.Context())
	if err != nil {
		pc.handleError(w, r, err)
		return
	}

	if isAPIRequest(r) {
		pc.sendJSON(w, page.Context)
		return
	}

	t, ok := pc.templates[page.Template]
	if !ok {
		pc.handleError(w, r, fmt.Errorf("template %s not loaded", page.Template))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page.Context); err != nil {
		pc.handleError(w, r, fmt.Errorf("render %s: %w", page.Template, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (pc *PageController) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repositories.ErrNotFound) {
		pc.sendError(w, r, "Not found", http.StatusNotFound)
		return
	}
	pc.logger.Error("page failed", zap.String("path", r.URL.Path), zap.Error(err))
	pc.sendError(w, r, "Internal Server Error", http.StatusInternalServerError)
}

// Helper methods for consistent response handling

func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api") {
		return true
	}
	for _, accept := range r.Header.Values("Accept") {
		for _, part := range strings.Split(accept, ",") {
			mediaType, _, err := mime.ParseMediaType(part)
			if err == nil && mediaType == "application/json" {
				return true
			}
		}
	}
	return false
}

func (pc *PageController) sendJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		pc.logger.Warn("encode response", zap.Error(err))
	}
}

func (pc *PageController) sendError(w http.ResponseWriter, r *http.Request, message string, status int) {
	if isAPIRequest(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": message})
		return
	}
	http.Error(w, message, status)
}
