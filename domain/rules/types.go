package rules

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ItemList is a product item-set. The backend usually sends a JSON array,
// but occasionally a bare string; decoding normalizes the scalar form into
// a one-element list so downstream code never branches on shape.
type ItemList []string

// UnmarshalJSON accepts either ["Milk","Bread"] or "Milk".
func (l *ItemList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = items
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = ItemList{single}
		return nil
	}

	return fmt.Errorf("item list must be a string or array of strings: %s", string(data))
}

// Join renders the item-set for display, e.g. "Milk + Bread".
func (l ItemList) Join(sep string) string {
	return strings.Join(l, sep)
}

// Rule is one association rule as returned by the mining backend.
// Missing metrics decode to 0 rather than failing the whole result.
type Rule struct {
	Antecedent ItemList `json:"antecedent"`
	Consequent ItemList `json:"consequent"`
	Support    float64  `json:"support"`
	Confidence float64  `json:"confidence"`
	Lift       float64  `json:"lift"`
}

// Result is the raw payload of a market-basket-analysis run.
type Result struct {
	AssociationRules []Rule `json:"association_rules"`
	TotalRules       int    `json:"total_rules"`
}

// IsEmpty reports whether the run produced no rules. Callers must render
// an explicit no-data state instead of an empty chart.
func (r Result) IsEmpty() bool {
	return len(r.AssociationRules) == 0
}
