package segmentation

// Cluster is one customer segment as returned by the clustering backend.
// The metric fields are pointers so a missing or null value renders as
// "N/A" instead of a fabricated zero.
type Cluster struct {
	ClusterID             int       `json:"cluster_id"`
	Category              string    `json:"category,omitempty"`
	TotalCustomers        int       `json:"total_customers"`
	AvgPurchaseFrequency  *float64  `json:"avg_purchase_frequency"`
	AvgAge                *float64  `json:"avg_age"`
	MostPurchasedProducts []string  `json:"most_purchased_products"`
	Centroid              []float64 `json:"centroid"`
}

// Point is one customer in the reduced 2-D feature space. Cluster refers
// to a Cluster.ClusterID in the same result.
type Point struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Cluster      int     `json:"cluster"`
	CustomerName string  `json:"customer_name,omitempty"`
	Age          *int    `json:"age,omitempty"`
}

// Result is the raw payload of a kmeans-analysis run.
type Result struct {
	Clusters          []Cluster `json:"clusters"`
	VisualizationData []Point   `json:"visualization_data"`
}

// IsEmpty reports whether the run produced nothing to draw.
func (r Result) IsEmpty() bool {
	return len(r.Clusters) == 0 && len(r.VisualizationData) == 0
}

// SetCategory assigns a category label to one cluster. The label is a
// post-hoc user annotation; re-running the analysis does not recompute it.
func (r *Result) SetCategory(clusterID int, category string) {
	for i := range r.Clusters {
		if r.Clusters[i].ClusterID == clusterID {
			r.Clusters[i].Category = category
			return
		}
	}
}

// LabelMap derives the complete {cluster_id: category} mapping for all
// clusters, the shape the backend label-setting endpoint expects.
func (r Result) LabelMap() map[int]string {
	labels := make(map[int]string, len(r.Clusters))
	for _, c := range r.Clusters {
		labels[c.ClusterID] = c.Category
	}
	return labels
}

// categoryLookup returns cluster_id -> category for offset application.
func (r Result) categoryLookup() map[int]string {
	lookup := make(map[int]string, len(r.Clusters))
	for _, c := range r.Clusters {
		if c.Category != "" {
			lookup[c.ClusterID] = c.Category
		}
	}
	return lookup
}
