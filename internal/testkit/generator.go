package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// TransactionGeneratorConfig configures the synthetic transaction generator.
type TransactionGeneratorConfig struct {
	CustomerCount         int       `json:"customer_count"`
	AvgBasketsPerCustomer float64   `json:"avg_baskets_per_customer"`
	AvgItemsPerBasket     float64   `json:"avg_items_per_basket"`
	AffinityProbability   float64   `json:"affinity_probability"`
	StartDate             time.Time `json:"start_date"`
	EndDate               time.Time `json:"end_date"`
	Seed                  int64     `json:"seed"`
}

// DefaultTransactionConfig returns defaults that yield data dense enough
// for both K-Means segmentation and apriori-style rule mining.
func DefaultTransactionConfig() TransactionGeneratorConfig {
	return TransactionGeneratorConfig{
		CustomerCount:         500,
		AvgBasketsPerCustomer: 4.0,
		AvgItemsPerBasket:     3.5,
		AffinityProbability:   0.65,
		StartDate:             time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC),
		Seed:                  42,
	}
}

type product struct {
	name     string
	category string
	price    float64
}

// catalog is a small fixed product set. Affinity pairs below reference it
// by name so mined rules come out non-trivial.
var catalog = []product{
	{"Milk", "Dairy", 2.49},
	{"Bread", "Bakery", 1.99},
	{"Eggs", "Dairy", 3.29},
	{"Butter", "Dairy", 4.19},
	{"Cheese", "Dairy", 5.49},
	{"Apples", "Produce", 3.99},
	{"Bananas", "Produce", 1.29},
	{"Chicken", "Meat", 7.99},
	{"Beef", "Meat", 11.49},
	{"Pasta", "Pantry", 1.79},
	{"Tomato Sauce", "Pantry", 2.29},
	{"Rice", "Pantry", 3.49},
	{"Cereal", "Breakfast", 4.59},
	{"Coffee", "Beverages", 8.99},
	{"Tea", "Beverages", 5.99},
	{"Orange Juice", "Beverages", 4.29},
	{"Yogurt", "Dairy", 3.79},
	{"Chips", "Snacks", 2.99},
	{"Salsa", "Snacks", 3.59},
	{"Diapers", "Baby", 24.99},
}

// affinities are item pairs bought together more often than chance.
var affinities = map[string][]string{
	"Milk":    {"Bread", "Eggs", "Cereal"},
	"Pasta":   {"Tomato Sauce"},
	"Chips":   {"Salsa"},
	"Coffee":  {"Milk"},
	"Diapers": {"Milk"},
	"Bread":   {"Butter"},
}

// TransactionGenerator produces a reproducible synthetic transaction CSV.
type TransactionGenerator struct {
	config TransactionGeneratorConfig
	rng    *rand.Rand
	age    distuv.Normal
}

// NewTransactionGenerator creates a generator seeded from the config.
func NewTransactionGenerator(config TransactionGeneratorConfig) *TransactionGenerator {
	return &TransactionGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		age:    distuv.Normal{Mu: 38, Sigma: 13},
	}
}

// Header is the column layout the generated CSV uses.
func Header() []string {
	return []string{"transaction_id", "customer_id", "customer_name", "age", "product", "category", "quantity", "price", "date"}
}

// WriteCSV streams the full synthetic dataset to w.
func (g *TransactionGenerator) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	txID := 0
	for c := 0; c < g.config.CustomerCount; c++ {
		customerID := fmt.Sprintf("C%04d", c+1)
		customerName := fmt.Sprintf("Customer %04d", c+1)
		age := g.sampleAge()

		baskets := g.sampleCount(g.config.AvgBasketsPerCustomer, 1.5, 1)
		for b := 0; b < baskets; b++ {
			txID++
			when := g.randomDate()
			for _, item := range g.basket() {
				record := []string{
					fmt.Sprintf("T%06d", txID),
					customerID,
					customerName,
					strconv.Itoa(age),
					item.name,
					item.category,
					strconv.Itoa(1 + g.rng.Intn(3)),
					strconv.FormatFloat(item.price, 'f', 2, 64),
					when.Format("2006-01-02"),
				}
				if err := writer.Write(record); err != nil {
					return fmt.Errorf("failed to write transaction row: %w", err)
				}
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// basket draws a basket honouring the affinity pairs: once an anchor item
// is drawn, its partners join with AffinityProbability.
func (g *TransactionGenerator) basket() []product {
	size := g.sampleCount(g.config.AvgItemsPerBasket, 1.2, 1)
	if size > len(catalog) {
		size = len(catalog)
	}

	picked := make(map[string]product, size)
	for len(picked) < size {
		item := catalog[g.rng.Intn(len(catalog))]
		picked[item.name] = item

		for _, partner := range affinities[item.name] {
			if g.rng.Float64() < g.config.AffinityProbability {
				if p, ok := findProduct(partner); ok {
					picked[p.name] = p
				}
			}
		}
	}

	// Emit in catalog order; map iteration order would vary between runs
	// and break seeded reproducibility.
	basket := make([]product, 0, len(picked))
	for _, item := range catalog {
		if _, ok := picked[item.name]; ok {
			basket = append(basket, item)
		}
	}
	return basket
}

func findProduct(name string) (product, bool) {
	for _, p := range catalog {
		if p.name == name {
			return p, true
		}
	}
	return product{}, false
}

// sampleAge draws from the age distribution via its quantile function so
// the generator stays deterministic under the seeded rng.
func (g *TransactionGenerator) sampleAge() int {
	age := int(math.Round(g.age.Quantile(g.rng.Float64())))
	if age < 18 {
		age = 18
	}
	if age > 85 {
		age = 85
	}
	return age
}

func (g *TransactionGenerator) sampleCount(mean, sigma float64, min int) int {
	dist := distuv.Normal{Mu: mean, Sigma: sigma}
	n := int(math.Round(dist.Quantile(g.rng.Float64())))
	if n < min {
		n = min
	}
	return n
}

func (g *TransactionGenerator) randomDate() time.Time {
	span := g.config.EndDate.Sub(g.config.StartDate)
	if span <= 0 {
		return g.config.StartDate
	}
	return g.config.StartDate.Add(time.Duration(g.rng.Int63n(int64(span))))
}
