package dashboard

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"basketboard/adapters/backend"
	"basketboard/domain/core"
	"basketboard/domain/rules"
	"basketboard/domain/segmentation"
	"basketboard/internal/errors"
)

// AnalysisKind names the two result-producing analyses.
type AnalysisKind string

const (
	KindSegmentation AnalysisKind = "kmeans"
	KindRules        AnalysisKind = "marketbasket"
)

// Bounds accepted for a segmentation run.
const (
	MinClusters = 2
	MaxClusters = 8
)

// ErrStaleResult marks a response superseded by a newer run of the same
// kind. Callers should drop it without surfacing an error to the user.
var ErrStaleResult = stderrors.New("analysis result superseded by a newer run")

// Service is the slice of the backend client the controller drives.
type Service interface {
	DashboardStats(ctx context.Context) (*backend.DashboardStats, error)
	Upload(ctx context.Context, files []backend.UploadFile) (*backend.UploadResult, error)
	RunSegmentation(ctx context.Context, nClusters int) (*segmentation.Result, error)
	RunRuleMining(ctx context.Context, minSupport, minConfidence float64) (*rules.Result, error)
	SetClusterLabels(ctx context.Context, labels map[int]string) error
	Recommend(ctx context.Context, cart []string) (*backend.RecommendResult, error)
}

// Run is one recorded analysis invocation.
type Run struct {
	ID        core.RunID
	Kind      AnalysisKind
	Params    string // JSON-encoded parameters
	Summary   string
	CreatedAt time.Time
}

// RunHistory persists completed runs. Optional; a nil history disables it.
type RunHistory interface {
	Record(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// Overview is everything the dashboard landing view needs.
type Overview struct {
	Stats      *backend.DashboardStats
	RecentRuns []Run
}

// Controller composes upload, the two analysis triggers and the
// view-model builders. Result entities are owned here for the duration of
// one run and replaced wholesale by the next; only a cluster's category
// is ever mutated in place.
//
// Each analysis kind carries a monotonic sequence number: a result is
// applied only if no newer trigger of the same kind has been issued,
// so racing runs can never interleave a stale view.
type Controller struct {
	mu      sync.Mutex
	service Service
	history RunHistory

	activeTab  AnalysisKind
	stats      *backend.DashboardStats
	segResult  *segmentation.Result
	ruleResult *rules.Result

	seq      map[AnalysisKind]uint64
	inFlight map[AnalysisKind]int

	labelSyncWarning bool
	labelRetryDelay  time.Duration
	onLabelPush      func(error) // test hook
}

// NewController creates a dashboard controller. history may be nil.
func NewController(service Service, history RunHistory) *Controller {
	return &Controller{
		service:         service,
		history:         history,
		activeTab:       KindSegmentation,
		seq:             make(map[AnalysisKind]uint64),
		inFlight:        make(map[AnalysisKind]int),
		labelRetryDelay: 2 * time.Second,
	}
}

// ActiveTab returns the analysis tab currently shown.
func (c *Controller) ActiveTab() AnalysisKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeTab
}

// SetActiveTab switches the visible analysis tab.
func (c *Controller) SetActiveTab(kind AnalysisKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if kind == KindSegmentation || kind == KindRules {
		c.activeTab = kind
	}
}

// InFlight reports whether a run of the given kind is outstanding, so the
// UI can disable its trigger control.
func (c *Controller) InFlight(kind AnalysisKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[kind] > 0
}

// RefreshStats refetches the dashboard snapshot. Called after login and
// after each successful upload.
func (c *Controller) RefreshStats(ctx context.Context) (*backend.DashboardStats, error) {
	stats, err := c.service.DashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	return stats, nil
}

// Stats returns the latest known snapshot, nil before the first fetch.
func (c *Controller) Stats() *backend.DashboardStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LoadOverview gathers the stats snapshot and recent run history
// concurrently. A missing history backend yields stats only.
func (c *Controller) LoadOverview(ctx context.Context) (*Overview, error) {
	overview := &Overview{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := c.RefreshStats(gctx)
		if err != nil {
			return err
		}
		overview.Stats = stats
		return nil
	})
	if c.history != nil {
		g.Go(func() error {
			runs, err := c.history.Recent(gctx, 10)
			if err != nil {
				// History is decorative; losing it must not break the page.
				log.Printf("[Controller] Run history unavailable: %v", err)
				return nil
			}
			overview.RecentRuns = runs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}

// Upload validates locally, submits the files, and refetches stats on
// success. Only CSV files are accepted; rejection happens before any
// network call.
func (c *Controller) Upload(ctx context.Context, files []backend.UploadFile) (*backend.UploadResult, error) {
	if len(files) == 0 {
		return nil, errors.ValidationError("Please choose at least one CSV file")
	}
	for _, f := range files {
		if !isCSV(f) {
			return nil, errors.ValidationError(fmt.Sprintf("%s is not a CSV file", f.Name))
		}
	}

	result, err := c.service.Upload(ctx, files)
	if err != nil {
		return nil, err
	}

	if _, err := c.RefreshStats(ctx); err != nil {
		log.Printf("[Controller] Stats refresh after upload failed: %v", err)
	}
	return result, nil
}

func isCSV(f backend.UploadFile) bool {
	if strings.HasPrefix(f.ContentType, "text/csv") || f.ContentType == "application/csv" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(f.Name), ".csv")
}

// RunSegmentation triggers a K-Means run and, if it is still the newest
// request of its kind when the response lands, replaces the stored result.
func (c *Controller) RunSegmentation(ctx context.Context, nClusters int) (segmentation.View, error) {
	if nClusters < MinClusters || nClusters > MaxClusters {
		return segmentation.View{}, errors.ValidationError(
			fmt.Sprintf("cluster count must be between %d and %d", MinClusters, MaxClusters))
	}

	seq := c.begin(KindSegmentation)
	result, err := c.service.RunSegmentation(ctx, nClusters)
	c.end(KindSegmentation)
	if err != nil {
		return segmentation.View{}, err
	}

	c.mu.Lock()
	if seq != c.seq[KindSegmentation] {
		c.mu.Unlock()
		log.Printf("[Controller] Discarding stale segmentation result (seq %d)", seq)
		return segmentation.View{}, ErrStaleResult
	}
	c.segResult = result
	c.activeTab = KindSegmentation
	c.mu.Unlock()

	c.recordRun(KindSegmentation,
		map[string]interface{}{"n_clusters": nClusters},
		fmt.Sprintf("%d clusters, %d points", len(result.Clusters), len(result.VisualizationData)))

	return segmentation.BuildView(*result), nil
}

// RunRuleMining triggers an association-rule run; same staleness rules as
// segmentation.
func (c *Controller) RunRuleMining(ctx context.Context, minSupport, minConfidence float64) (rules.View, error) {
	if minSupport < 0 || minSupport > 1 || minConfidence < 0 || minConfidence > 1 {
		return rules.View{}, errors.ValidationError("support and confidence thresholds must be within [0,1]")
	}

	seq := c.begin(KindRules)
	result, err := c.service.RunRuleMining(ctx, minSupport, minConfidence)
	c.end(KindRules)
	if err != nil {
		return rules.View{}, err
	}

	c.mu.Lock()
	if seq != c.seq[KindRules] {
		c.mu.Unlock()
		log.Printf("[Controller] Discarding stale rule-mining result (seq %d)", seq)
		return rules.View{}, ErrStaleResult
	}
	c.ruleResult = result
	c.activeTab = KindRules
	c.mu.Unlock()

	c.recordRun(KindRules,
		map[string]interface{}{"min_support": minSupport, "min_confidence": minConfidence},
		fmt.Sprintf("%d rules", len(result.AssociationRules)))

	return rules.BuildView(*result), nil
}

func (c *Controller) begin(kind AnalysisKind) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq[kind]++
	c.inFlight[kind]++
	return c.seq[kind]
}

func (c *Controller) end(kind AnalysisKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight[kind]--
}

// SegmentationView rebuilds the view-model from the stored result.
func (c *Controller) SegmentationView() segmentation.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.segResult == nil {
		return segmentation.View{}
	}
	return segmentation.BuildView(*c.segResult)
}

// RulesView rebuilds the view-model from the stored result.
func (c *Controller) RulesView() rules.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ruleResult == nil {
		return rules.View{}
	}
	return rules.BuildView(*c.ruleResult)
}

// SegmentationResult returns a copy of the stored result for exports.
func (c *Controller) SegmentationResult() *segmentation.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.segResult == nil {
		return nil
	}
	copied := *c.segResult
	return &copied
}

// RulesResult returns a copy of the stored result for exports.
func (c *Controller) RulesResult() *rules.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ruleResult == nil {
		return nil
	}
	copied := *c.ruleResult
	return &copied
}

// SetClusterCategory applies the label locally, then syncs the complete
// label map to the backend in the background. The local edit is never
// rolled back; a failed sync raises a non-blocking warning instead of
// silently diverging.
func (c *Controller) SetClusterCategory(clusterID int, category string) error {
	c.mu.Lock()
	if c.segResult == nil {
		c.mu.Unlock()
		return errors.NotFound("segmentation result")
	}
	c.segResult.SetCategory(clusterID, category)
	labels := c.segResult.LabelMap()
	c.mu.Unlock()

	go c.pushLabels(labels)
	return nil
}

// pushLabels is the best-effort label sync: one retry, then a warning.
func (c *Controller) pushLabels(labels map[int]string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := c.service.SetClusterLabels(ctx, labels)
	if err != nil {
		log.Printf("[Controller] Label push failed, retrying once: %v", err)
		time.Sleep(c.labelRetryDelay)
		err = c.service.SetClusterLabels(ctx, labels)
	}

	c.mu.Lock()
	c.labelSyncWarning = err != nil
	c.mu.Unlock()

	if err != nil {
		log.Printf("[Controller] Label push failed after retry: %v", err)
	}
	if c.onLabelPush != nil {
		c.onLabelPush(err)
	}
}

// LabelSyncWarning reports whether the last label push failed, so the UI
// can show a warning badge.
func (c *Controller) LabelSyncWarning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.labelSyncWarning
}

// Recommend validates the cart locally and asks the backend for related
// products.
func (c *Controller) Recommend(ctx context.Context, cart []string) (*backend.RecommendResult, error) {
	cleaned := make([]string, 0, len(cart))
	for _, item := range cart {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.ValidationError("Please enter at least one item in your cart")
	}
	return c.service.Recommend(ctx, cleaned)
}

func (c *Controller) recordRun(kind AnalysisKind, params map[string]interface{}, summary string) {
	if c.history == nil {
		return
	}
	raw, _ := json.Marshal(params)
	run := Run{
		ID:        core.RunID(core.NewID()),
		Kind:      kind,
		Params:    string(raw),
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.history.Record(ctx, run); err != nil {
		log.Printf("[Controller] Failed to record %s run: %v", kind, err)
	}
}
