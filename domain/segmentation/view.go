package segmentation

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Categories a user may assign to a cluster. "Others" carries no offset.
var CategoryOptions = []string{
	"High Value",
	"Budget Shoppers",
	"Occasional Buyers",
	"Frequent Buyers",
	"Young Adults",
	"Seniors",
	"Families",
	"Others",
}

// categoryOffsets nudges same-position points apart when their cluster
// shares a label. The chart output depends on these exact values; an
// unrecognized or empty category leaves the point untouched.
var categoryOffsets = map[string][2]float64{
	"High Value":        {2, 2},
	"Budget Shoppers":   {-2, 0},
	"Occasional Buyers": {0, -2},
	"Frequent Buyers":   {0, 2},
	"Young Adults":      {3, -1},
	"Seniors":           {-3, 1},
	"Families":          {1, -3},
}

// AdjustPoint applies the category-dependent coordinate offset to a point.
func AdjustPoint(p Point, category string) Point {
	offset, ok := categoryOffsets[category]
	if !ok {
		return p
	}
	p.X += offset[0]
	p.Y += offset[1]
	return p
}

// ScatterPoint is one chart-ready coordinate with its hover metadata.
type ScatterPoint struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	CustomerName string  `json:"customer_name,omitempty"`
	Age          *int    `json:"age,omitempty"`
}

// Series is one scatter dataset: a populated cluster, or the centroids.
type Series struct {
	Label     string         `json:"label"`
	ClusterID int            `json:"cluster_id"`
	Centroids bool           `json:"centroids,omitempty"`
	Points    []ScatterPoint `json:"points"`
}

// ClusterRow is one row of the cluster statistics table, display-formatted.
type ClusterRow struct {
	ClusterID            int      `json:"cluster_id"`
	Category             string   `json:"category"`
	TotalCustomers       int      `json:"total_customers"`
	AvgPurchaseFrequency string   `json:"avg_purchase_frequency"`
	AvgAge               string   `json:"avg_age"`
	TopProducts          []string `json:"top_products"`
}

// View is the segmentation view-model: one series per populated cluster,
// a trailing centroids series, and the statistics table.
type View struct {
	Series  []Series     `json:"series"`
	Table   []ClusterRow `json:"table"`
	HasData bool         `json:"has_data"`
}

// BuildView groups visualization points by cluster id, applies the
// category offsets, and derives the centroid series and table rows.
func BuildView(result Result) View {
	if result.IsEmpty() {
		return View{}
	}

	categories := result.categoryLookup()

	grouped := make(map[int][]ScatterPoint)
	var clusterIDs []int
	for _, p := range result.VisualizationData {
		adjusted := AdjustPoint(p, categories[p.Cluster])
		if _, seen := grouped[p.Cluster]; !seen {
			clusterIDs = append(clusterIDs, p.Cluster)
		}
		grouped[p.Cluster] = append(grouped[p.Cluster], ScatterPoint{
			X:            adjusted.X,
			Y:            adjusted.Y,
			CustomerName: p.CustomerName,
			Age:          p.Age,
		})
	}
	sort.Ints(clusterIDs)

	series := make([]Series, 0, len(clusterIDs)+1)
	for _, id := range clusterIDs {
		label := categories[id]
		if label == "" {
			label = fmt.Sprintf("Cluster %d", id)
		}
		series = append(series, Series{
			Label:     label,
			ClusterID: id,
			Points:    grouped[id],
		})
	}

	// Centroids get their own series; missing coordinates default to 0.
	centroids := make([]ScatterPoint, len(result.Clusters))
	for i, c := range result.Clusters {
		centroids[i] = ScatterPoint{X: centroidCoord(c.Centroid, 0), Y: centroidCoord(c.Centroid, 1)}
	}
	series = append(series, Series{
		Label:     "Centroids",
		ClusterID: -1,
		Centroids: true,
		Points:    centroids,
	})

	table := make([]ClusterRow, len(result.Clusters))
	for i, c := range result.Clusters {
		table[i] = ClusterRow{
			ClusterID:            c.ClusterID,
			Category:             categoryOrFallback(c.Category),
			TotalCustomers:       c.TotalCustomers,
			AvgPurchaseFrequency: formatMetric(c.AvgPurchaseFrequency, 2),
			AvgAge:               formatMetric(c.AvgAge, 1),
			TopProducts:          c.MostPurchasedProducts,
		}
	}

	return View{Series: series, Table: table, HasData: true}
}

func centroidCoord(centroid []float64, i int) float64 {
	if i < len(centroid) {
		return centroid[i]
	}
	return 0
}

func categoryOrFallback(category string) string {
	if category == "" {
		return "Uncategorized"
	}
	return category
}

// formatMetric renders a backend metric to fixed precision, "N/A" when
// the backend sent nothing numeric.
func formatMetric(value *float64, decimals int) string {
	if value == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*value, 'f', decimals, 64)
}

// ExportCSV serializes one row per cluster, in cluster array order, with
// the product list joined by "; ".
func (r Result) ExportCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Cluster ID", "Category", "Total Customers", "Avg Purchase Frequency", "Avg Age", "Top Products"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, c := range r.Clusters {
		row := []string{
			strconv.Itoa(c.ClusterID),
			categoryOrFallback(c.Category),
			strconv.Itoa(c.TotalCustomers),
			formatMetric(c.AvgPurchaseFrequency, 2),
			formatMetric(c.AvgAge, 1),
			strings.Join(c.MostPurchasedProducts, "; "),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
