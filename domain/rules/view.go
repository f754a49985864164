package rules

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"
)

// BarSeries is one dataset of a bar chart, in render order.
type BarSeries struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
	Axis   string    `json:"axis,omitempty"`
}

// ChartData is a chart-ready series bundle: one label per rule plus the
// datasets drawn against those labels.
type ChartData struct {
	Labels []string    `json:"labels"`
	Series []BarSeries `json:"series"`
}

// Card is the display form of a single rule.
type Card struct {
	Rule          string `json:"rule"`
	ConfidencePct string `json:"confidence"`
	SupportPct    string `json:"support"`
	Lift          string `json:"lift"`
}

// Stats are the aggregate figures shown next to the rule list.
type Stats struct {
	TotalRules             int     `json:"total_rules"`
	AvgConfidencePct       float64 `json:"avg_confidence_pct"`
	MaxLift                float64 `json:"max_lift"`
	MostFrequentAntecedent string  `json:"most_frequent_antecedent"`
}

// View is the full rule-mining view-model: everything derived from one
// analysis result, all in lift-descending order.
type View struct {
	Rules            []Rule    `json:"rules"`
	ConfidenceChart  ChartData `json:"confidence_chart"`
	SupportLiftChart ChartData `json:"support_lift_chart"`
	Cards            []Card    `json:"cards"`
	Stats            Stats     `json:"stats"`
	HasData          bool      `json:"has_data"`
}

// BuildView derives the chart series, rule cards and aggregate stats from
// a raw mining result. Rules are sorted by lift descending before any
// derivation; ties keep their incoming order.
func BuildView(result Result) View {
	if result.IsEmpty() {
		return View{}
	}

	sorted := make([]Rule, len(result.AssociationRules))
	copy(sorted, result.AssociationRules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Lift > sorted[j].Lift
	})

	labels := make([]string, len(sorted))
	confidences := make([]float64, len(sorted))
	supports := make([]float64, len(sorted))
	lifts := make([]float64, len(sorted))
	cards := make([]Card, len(sorted))

	for i, r := range sorted {
		labels[i] = fmt.Sprintf("%s → %s", r.Antecedent.Join("+"), r.Consequent.Join("+"))
		confidences[i] = r.Confidence * 100
		supports[i] = r.Support * 100
		lifts[i] = r.Lift
		cards[i] = Card{
			Rule:          fmt.Sprintf("%s → %s", r.Antecedent.Join(" + "), r.Consequent.Join(" + ")),
			ConfidencePct: fmt.Sprintf("%.1f%%", r.Confidence*100),
			SupportPct:    fmt.Sprintf("%.1f%%", r.Support*100),
			Lift:          fmt.Sprintf("%.2f", r.Lift),
		}
	}

	return View{
		Rules: sorted,
		ConfidenceChart: ChartData{
			Labels: labels,
			Series: []BarSeries{
				{Label: "Confidence (%)", Values: confidences},
			},
		},
		SupportLiftChart: ChartData{
			Labels: labels,
			Series: []BarSeries{
				{Label: "Support (%)", Values: supports, Axis: "y1"},
				{Label: "Lift", Values: lifts, Axis: "y2"},
			},
		},
		Cards:   cards,
		Stats:   buildStats(result.TotalRules, sorted, confidences, lifts),
		HasData: true,
	}
}

// buildStats computes the aggregate cards. The server-reported total is
// preferred; the local rule count is the fallback.
func buildStats(reportedTotal int, sorted []Rule, confidences, lifts []float64) Stats {
	total := reportedTotal
	if total == 0 {
		total = len(sorted)
	}

	avgConfidence, _ := stats.Mean(confidences)
	maxLift, _ := stats.Max(lifts)

	return Stats{
		TotalRules:             total,
		AvgConfidencePct:       avgConfidence,
		MaxLift:                maxLift,
		MostFrequentAntecedent: mostFrequentAntecedent(sorted),
	}
}

// mostFrequentAntecedent returns the single item appearing in the most
// rules' antecedent sets. Ties go to the item first encountered while
// scanning rules in sorted order.
func mostFrequentAntecedent(sorted []Rule) string {
	counts := make(map[string]int)
	var order []string
	for _, r := range sorted {
		for _, item := range r.Antecedent {
			if _, seen := counts[item]; !seen {
				order = append(order, item)
			}
			counts[item]++
		}
	}

	best := ""
	bestCount := 0
	for _, item := range order {
		if counts[item] > bestCount {
			best = item
			bestCount = counts[item]
		}
	}
	return best
}

// ExportCSV serializes the view's rules, one row each, antecedent and
// consequent items joined by " + ", percentages with one decimal and lift
// with two.
func (v View) ExportCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Antecedent", "Consequent", "Confidence", "Support", "Lift"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range v.Rules {
		row := []string{
			r.Antecedent.Join(" + "),
			r.Consequent.Join(" + "),
			fmt.Sprintf("%.1f%%", r.Confidence*100),
			fmt.Sprintf("%.1f%%", r.Support*100),
			fmt.Sprintf("%.2f", r.Lift),
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
