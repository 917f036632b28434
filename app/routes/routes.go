package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"blogfront/app/controllers"
	"blogfront/app/middleware"
	"blogfront/app/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configures the router
type Options struct {
	ViewsPath string
	StaticDir string
	Logger    *zap.Logger
	// Health reports whether the store is reachable; nil means always healthy.
	Health func(ctx context.Context) error
}

// Setup defines the application's routes and returns a router.
func Setup(pages *services.PageService, opts Options) (*mux.Router, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageController, err := controllers.NewPageController(pages, opts.ViewsPath, logger)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.Metrics)

	router.NotFoundHandler = http.HandlerFunc(notFound)

	// Operational endpoints
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/healthz", healthz(opts.Health)).Methods("GET")

	// Serve static files
	if opts.StaticDir != "" {
		router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	// API routes with JSON content type
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)
	registerPages(api, pageController)

	// Web routes
	registerPages(router, pageController)

	return router, nil
}

func registerPages(r *mux.Router, pc *controllers.PageController) {
	r.HandleFunc("/", pc.Index).Methods("GET")
	r.HandleFunc("/post/{slug}", pc.PostDetail).Methods("GET")
	r.HandleFunc("/tag/{tag_title}", pc.TagFilter).Methods("GET")
	r.HandleFunc("/contacts", pc.Contacts).Methods("GET")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
		return
	}
	http.NotFound(w, r)
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
