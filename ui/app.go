package ui

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"basketboard/adapters/excel"
	"basketboard/internal/dashboard"
	"basketboard/internal/errors"
	"basketboard/internal/session"
)

//go:embed templates/* docs/*
var embeddedFiles embed.FS

// Downloader fetches the backend's own results export for proxying.
type Downloader interface {
	DownloadResults(ctx context.Context) ([]byte, error)
}

// App is the dashboard web application.
type App struct {
	router     *chi.Mux
	templates  *template.Template
	port       string
	sessions   *session.Store
	controller *dashboard.Controller
	downloader Downloader
	workbook   *excel.WorkbookWriter
}

// Config holds UI application configuration.
type Config struct {
	Port string
}

// NewApp creates the dashboard application.
func NewApp(config Config, sessions *session.Store, controller *dashboard.Controller, downloader Downloader) (*App, error) {
	funcMap := template.FuncMap{
		"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"f2":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:     chi.NewRouter(),
		templates:  templates,
		port:       config.Port,
		sessions:   sessions,
		controller: controller,
		downloader: downloader,
		workbook:   excel.NewWorkbookWriter(),
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	// Public pages
	a.router.Get("/login", a.handleLoginPage)
	a.router.Post("/login", a.handleLogin)
	a.router.Get("/register", a.handleRegisterPage)
	a.router.Post("/register", a.handleRegister)
	a.router.Post("/logout", a.handleLogout)

	// Everything else requires a session
	a.router.Group(func(r chi.Router) {
		r.Use(a.requireSession)

		r.Get("/", a.handleDashboard)
		r.Get("/docs", a.handleDocs)

		r.Post("/api/upload", a.handleUpload)
		r.Get("/api/stats", a.handleStats)
		r.Post("/api/tab", a.handleSetTab)

		r.Post("/api/analysis/segmentation", a.handleRunSegmentation)
		r.Get("/api/analysis/segmentation", a.handleSegmentationView)
		r.Post("/api/analysis/rules", a.handleRunRuleMining)
		r.Get("/api/analysis/rules", a.handleRulesView)

		r.Post("/api/clusters/{clusterID}/category", a.handleSetClusterCategory)
		r.Get("/api/label-sync", a.handleLabelSyncStatus)
		r.Post("/api/recommend", a.handleRecommend)

		r.Get("/export/clusters.csv", a.handleExportClustersCSV)
		r.Get("/export/rules.csv", a.handleExportRulesCSV)
		r.Get("/export/results.xlsx", a.handleExportWorkbook)
		r.Get("/export/backend", a.handleDownloadBackendResults)
	})
}

// Router exposes the handler for tests and embedding.
func (a *App) Router() http.Handler {
	return a.router
}

// Start runs the HTTP server.
func (a *App) Start() error {
	addr := ":" + a.port
	log.Printf("[UI] Starting BasketBoard on http://localhost%s", addr)
	return http.ListenAndServe(addr, a.router)
}

func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		log.Printf("[UI] Template error for %s: %v", templateName, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (a *App) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[UI] Failed to encode response: %v", err)
	}
}

// writeError maps domain error codes onto HTTP statuses. Session expiry
// additionally tells the client where to go next.
func (a *App) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeValidationError:
		status = http.StatusBadRequest
	case errors.CodeAuthError, errors.CodeSessionExpired:
		status = http.StatusUnauthorized
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeNetworkError:
		status = http.StatusBadGateway
	case errors.CodeServerError:
		if s := errors.GetStatus(err); s >= 400 {
			status = s
		} else {
			status = http.StatusBadGateway
		}
	}

	body := map[string]interface{}{"error": err.Error(), "code": code}
	if errors.IsSessionExpired(err) {
		body["redirect"] = "/login"
	}
	a.writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, out interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return errors.ValidationError("invalid request body")
	}
	return nil
}
