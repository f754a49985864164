package rules

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestBuildView_SortedByLiftStable(t *testing.T) {
	result := Result{
		AssociationRules: []Rule{
			{Antecedent: ItemList{"A"}, Consequent: ItemList{"X"}, Lift: 2},
			{Antecedent: ItemList{"B"}, Consequent: ItemList{"X"}, Lift: 5},
			{Antecedent: ItemList{"C"}, Consequent: ItemList{"X"}, Lift: 5},
		},
	}

	view := BuildView(result)

	gotLifts := []float64{view.Rules[0].Lift, view.Rules[1].Lift, view.Rules[2].Lift}
	wantLifts := []float64{5, 5, 2}
	if !reflect.DeepEqual(gotLifts, wantLifts) {
		t.Fatalf("lifts = %v, want %v", gotLifts, wantLifts)
	}

	// Equal-lift rules keep their incoming relative order.
	if view.Rules[0].Antecedent[0] != "B" || view.Rules[1].Antecedent[0] != "C" {
		t.Errorf("tie order broken: %v then %v",
			view.Rules[0].Antecedent, view.Rules[1].Antecedent)
	}
}

func TestBuildView_DoesNotMutateInput(t *testing.T) {
	input := []Rule{
		{Antecedent: ItemList{"A"}, Lift: 1},
		{Antecedent: ItemList{"B"}, Lift: 9},
	}
	BuildView(Result{AssociationRules: input})

	if input[0].Antecedent[0] != "A" || input[1].Antecedent[0] != "B" {
		t.Error("BuildView reordered the caller's slice")
	}
}

func TestItemList_ScalarNormalization(t *testing.T) {
	scalar := []byte(`{"antecedent": "Milk", "consequent": "Bread", "lift": 1.2}`)
	array := []byte(`{"antecedent": ["Milk"], "consequent": ["Bread"], "lift": 1.2}`)

	var fromScalar, fromArray Rule
	if err := json.Unmarshal(scalar, &fromScalar); err != nil {
		t.Fatalf("scalar form failed to decode: %v", err)
	}
	if err := json.Unmarshal(array, &fromArray); err != nil {
		t.Fatalf("array form failed to decode: %v", err)
	}

	if !reflect.DeepEqual(fromScalar, fromArray) {
		t.Fatalf("scalar and one-element array differ: %+v vs %+v", fromScalar, fromArray)
	}

	// Downstream views must be byte-identical too.
	viewScalar := BuildView(Result{AssociationRules: []Rule{fromScalar}})
	viewArray := BuildView(Result{AssociationRules: []Rule{fromArray}})
	if !reflect.DeepEqual(viewScalar, viewArray) {
		t.Error("views built from scalar and array forms differ")
	}
}

func TestRule_MissingMetricsDefaultToZero(t *testing.T) {
	var rule Rule
	if err := json.Unmarshal([]byte(`{"antecedent": ["A"], "consequent": ["B"]}`), &rule); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rule.Support != 0 || rule.Confidence != 0 || rule.Lift != 0 {
		t.Errorf("missing metrics should decode as 0, got %+v", rule)
	}
}

func TestBuildView_EmptyGuard(t *testing.T) {
	tests := []struct {
		name   string
		result Result
	}{
		{"empty slice", Result{AssociationRules: []Rule{}}},
		{"absent field", Result{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := BuildView(tt.result)
			if view.HasData {
				t.Error("empty result must not report data")
			}
			if len(view.Cards) != 0 || len(view.ConfidenceChart.Series) != 0 || len(view.SupportLiftChart.Series) != 0 {
				t.Error("empty result must yield no series or cards")
			}
		})
	}
}

func TestBuildView_Charts(t *testing.T) {
	result := Result{
		AssociationRules: []Rule{
			{Antecedent: ItemList{"Milk", "Eggs"}, Consequent: ItemList{"Bread"}, Support: 0.1, Confidence: 0.5, Lift: 2},
			{Antecedent: ItemList{"Tea"}, Consequent: ItemList{"Honey"}, Support: 0.04, Confidence: 0.8, Lift: 3},
		},
	}

	view := BuildView(result)

	if view.ConfidenceChart.Labels[0] != "Tea → Honey" {
		t.Errorf("chart labels must follow lift order, got %q", view.ConfidenceChart.Labels[0])
	}
	if view.ConfidenceChart.Series[0].Values[0] != 80 {
		t.Errorf("confidence must be a percentage, got %v", view.ConfidenceChart.Series[0].Values[0])
	}

	supportLift := view.SupportLiftChart
	if len(supportLift.Series) != 2 {
		t.Fatalf("expected dual-axis series, got %d", len(supportLift.Series))
	}
	if supportLift.Series[0].Axis != "y1" || supportLift.Series[1].Axis != "y2" {
		t.Errorf("support/lift series must declare their axes: %+v", supportLift.Series)
	}
	if supportLift.Series[0].Values[1] != 10 {
		t.Errorf("support percentage wrong: %v", supportLift.Series[0].Values)
	}

	if view.Cards[0].Rule != "Tea → Honey" || view.Cards[0].ConfidencePct != "80.0%" {
		t.Errorf("unexpected card: %+v", view.Cards[0])
	}
}

func TestBuildView_Stats(t *testing.T) {
	result := Result{
		TotalRules: 99, // server-reported count wins
		AssociationRules: []Rule{
			{Antecedent: ItemList{"A", "B"}, Consequent: ItemList{"X"}, Confidence: 0.4, Lift: 1},
			{Antecedent: ItemList{"B"}, Consequent: ItemList{"Y"}, Confidence: 0.6, Lift: 4},
			{Antecedent: ItemList{"C"}, Consequent: ItemList{"Z"}, Confidence: 0.8, Lift: 4},
		},
	}

	stats := BuildView(result).Stats

	if stats.TotalRules != 99 {
		t.Errorf("TotalRules = %d, want server-reported 99", stats.TotalRules)
	}
	if math.Abs(stats.AvgConfidencePct-60.0) > 1e-9 {
		t.Errorf("AvgConfidencePct = %v, want 60", stats.AvgConfidencePct)
	}
	if stats.MaxLift != 4 {
		t.Errorf("MaxLift = %v, want 4", stats.MaxLift)
	}
	// B appears in two antecedents; A and C in one each.
	if stats.MostFrequentAntecedent != "B" {
		t.Errorf("MostFrequentAntecedent = %q, want B", stats.MostFrequentAntecedent)
	}
}

func TestBuildView_StatsFallbackTotalAndTies(t *testing.T) {
	result := Result{
		AssociationRules: []Rule{
			{Antecedent: ItemList{"B"}, Consequent: ItemList{"Y"}, Lift: 4},
			{Antecedent: ItemList{"A"}, Consequent: ItemList{"X"}, Lift: 1},
		},
	}

	stats := BuildView(result).Stats
	if stats.TotalRules != 2 {
		t.Errorf("TotalRules should fall back to rule count, got %d", stats.TotalRules)
	}
	// Tie: both items appear once; the one first encountered in lift-sorted
	// scan order wins, and rule B sorts first.
	if stats.MostFrequentAntecedent != "B" {
		t.Errorf("tie should go to first encountered in sorted order, got %q", stats.MostFrequentAntecedent)
	}
}

func TestExportCSV(t *testing.T) {
	result := Result{
		AssociationRules: []Rule{
			{Antecedent: ItemList{"Milk", "Eggs"}, Consequent: ItemList{"Bread"}, Support: 0.123, Confidence: 0.456, Lift: 2.345},
		},
	}

	raw, err := BuildView(result).ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV failed to parse: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(records))
	}
	row := records[1]
	want := []string{"Milk + Eggs", "Bread", "45.6%", "12.3%", "2.35"}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("row = %v, want %v", row, want)
	}
}
