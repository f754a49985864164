package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"basketboard/internal/testkit"
)

func main() {
	out := flag.String("out", "sample_transactions.csv", "output file path")
	customers := flag.Int("customers", 500, "number of customers")
	baskets := flag.Float64("baskets", 4.0, "average baskets per customer")
	items := flag.Float64("items", 3.5, "average items per basket")
	seed := flag.Int64("seed", 42, "RNG seed (deterministic)")
	start := flag.String("start", "2025-01-01", "start date (YYYY-MM-DD)")
	end := flag.String("end", "2025-06-30", "end date (YYYY-MM-DD)")
	flag.Parse()

	if *customers <= 0 {
		fmt.Fprintln(os.Stderr, "customers must be > 0")
		os.Exit(2)
	}

	startDate, err := time.ParseInLocation("2006-01-02", *start, time.UTC)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -start (expected YYYY-MM-DD):", err)
		os.Exit(2)
	}
	endDate, err := time.ParseInLocation("2006-01-02", *end, time.UTC)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -end (expected YYYY-MM-DD):", err)
		os.Exit(2)
	}
	if !endDate.After(startDate) {
		fmt.Fprintln(os.Stderr, "-end must be after -start")
		os.Exit(2)
	}

	cfg := testkit.DefaultTransactionConfig()
	cfg.CustomerCount = *customers
	cfg.AvgBasketsPerCustomer = *baskets
	cfg.AvgItemsPerBasket = *items
	cfg.Seed = *seed
	cfg.StartDate = startDate
	cfg.EndDate = endDate

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error creating output file:", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := testkit.NewTransactionGenerator(cfg).WriteCSV(f); err != nil {
		fmt.Fprintln(os.Stderr, "error generating transactions:", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote synthetic transactions for %d customers to %s\n", *customers, *out)
}
