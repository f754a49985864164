package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"basketboard/adapters/backend"
	"basketboard/domain/segmentation"
	"basketboard/internal/dashboard"
	"basketboard/internal/errors"
)

// maxUploadBytes caps the multipart memory buffer; larger files spill to disk.
const maxUploadBytes = 64 << 20

type dashboardPageData struct {
	Username         string
	Overview         *dashboard.Overview
	ActiveTab        dashboard.AnalysisKind
	CategoryOptions  []string
	LabelSyncWarning bool
}

func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := a.controller.LoadOverview(r.Context())
	if err != nil {
		if errors.IsSessionExpired(err) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		// Render the shell anyway; the stats card shows its own error state.
		log.Printf("[UI] Dashboard overview unavailable: %v", err)
		overview = &dashboard.Overview{}
	}

	username := ""
	if sess := a.sessions.Current(); sess != nil {
		username = sess.Username
	}

	a.renderTemplate(w, "dashboard.html", dashboardPageData{
		Username:         username,
		Overview:         overview,
		ActiveTab:        a.controller.ActiveTab(),
		CategoryOptions:  segmentation.CategoryOptions,
		LabelSyncWarning: a.controller.LabelSyncWarning(),
	})
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.controller.RefreshStats(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, stats)
}

func (a *App) handleSetTab(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tab string `json:"tab"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	a.controller.SetActiveTab(dashboard.AnalysisKind(req.Tab))
	a.writeJSON(w, http.StatusOK, map[string]interface{}{"active_tab": a.controller.ActiveTab()})
}

func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.writeError(w, errors.ValidationError("invalid upload request"))
		return
	}

	var files []backend.UploadFile
	if r.MultipartForm != nil {
		for _, headers := range r.MultipartForm.File {
			for _, header := range headers {
				f, err := header.Open()
				if err != nil {
					a.writeError(w, errors.ValidationError(fmt.Sprintf("failed to read %s", header.Filename)))
					return
				}
				data, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					a.writeError(w, errors.ValidationError(fmt.Sprintf("failed to read %s", header.Filename)))
					return
				}
				files = append(files, backend.UploadFile{
					Name:        header.Filename,
					ContentType: header.Header.Get("Content-Type"),
					Data:        data,
				})
			}
		}
	}

	result, err := a.controller.Upload(r.Context(), files)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *App) handleRunSegmentation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NClusters int `json:"n_clusters"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	view, err := a.controller.RunSegmentation(r.Context(), req.NClusters)
	if err != nil {
		if stderrors.Is(err, dashboard.ErrStaleResult) {
			a.writeJSON(w, http.StatusOK, map[string]interface{}{"superseded": true})
			return
		}
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *App) handleSegmentationView(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.controller.SegmentationView())
}

func (a *App) handleRunRuleMining(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MinSupport    float64 `json:"min_support"`
		MinConfidence float64 `json:"min_confidence"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	view, err := a.controller.RunRuleMining(r.Context(), req.MinSupport, req.MinConfidence)
	if err != nil {
		if stderrors.Is(err, dashboard.ErrStaleResult) {
			a.writeJSON(w, http.StatusOK, map[string]interface{}{"superseded": true})
			return
		}
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *App) handleRulesView(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.controller.RulesView())
}

func (a *App) handleSetClusterCategory(w http.ResponseWriter, r *http.Request) {
	clusterID, err := strconv.Atoi(chi.URLParam(r, "clusterID"))
	if err != nil {
		a.writeError(w, errors.ValidationError("invalid cluster id"))
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	if err := a.controller.SetClusterCategory(clusterID, req.Category); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{"cluster_id": clusterID, "category": req.Category})
}

func (a *App) handleLabelSyncStatus(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{"warning": a.controller.LabelSyncWarning()})
}

func (a *App) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cart []string `json:"cart"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	result, err := a.controller.Recommend(r.Context(), req.Cart)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *App) handleExportClustersCSV(w http.ResponseWriter, r *http.Request) {
	result := a.controller.SegmentationResult()
	if result == nil || result.IsEmpty() {
		a.writeError(w, errors.NotFound("segmentation result"))
		return
	}

	data, err := result.ExportCSV()
	if err != nil {
		a.writeError(w, err)
		return
	}
	serveAttachment(w, "kmeans_clusters.csv", "text/csv", data)
}

func (a *App) handleExportRulesCSV(w http.ResponseWriter, r *http.Request) {
	view := a.controller.RulesView()
	if !view.HasData {
		a.writeError(w, errors.NotFound("association rules"))
		return
	}

	data, err := view.ExportCSV()
	if err != nil {
		a.writeError(w, err)
		return
	}
	serveAttachment(w, "association_rules.csv", "text/csv", data)
}

func (a *App) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	seg := a.controller.SegmentationResult()
	mined := a.controller.RulesResult()
	if (seg == nil || seg.IsEmpty()) && (mined == nil || mined.IsEmpty()) {
		a.writeError(w, errors.NotFound("analysis results"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="analysis_results.xlsx"`)
	if err := a.workbook.Write(w, seg, mined); err != nil {
		log.Printf("[UI] Workbook export failed: %v", err)
	}
}

func (a *App) handleDownloadBackendResults(w http.ResponseWriter, r *http.Request) {
	data, err := a.downloader.DownloadResults(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	serveAttachment(w, "backend_results.csv", "text/csv", data)
}

func serveAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		log.Printf("[UI] Failed to stream %s: %v", filename, err)
	}
}
