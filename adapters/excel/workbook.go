package excel

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"basketboard/domain/rules"
	"basketboard/domain/segmentation"
)

const (
	clustersSheet = "Clusters"
	rulesSheet    = "Association Rules"
)

// WorkbookWriter renders analysis results into a single .xlsx workbook,
// one sheet per analysis. Nil results skip their sheet.
type WorkbookWriter struct{}

// NewWorkbookWriter creates a workbook writer.
func NewWorkbookWriter() *WorkbookWriter {
	return &WorkbookWriter{}
}

// Write streams the workbook to w. At least one result must be present.
func (wb *WorkbookWriter) Write(w io.Writer, seg *segmentation.Result, mined *rules.Result) error {
	f, err := wb.build(seg, mined)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (wb *WorkbookWriter) build(seg *segmentation.Result, mined *rules.Result) (*excelize.File, error) {
	hasSeg := seg != nil && !seg.IsEmpty()
	hasRules := mined != nil && !mined.IsEmpty()
	if !hasSeg && !hasRules {
		return nil, fmt.Errorf("no analysis results to export")
	}

	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if hasSeg {
		if err := wb.writeClusters(f, headerStyle, seg); err != nil {
			return nil, err
		}
	}
	if hasRules {
		if err := wb.writeRules(f, headerStyle, mined); err != nil {
			return nil, err
		}
	}

	// Drop the default sheet excelize seeds every new file with.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

func (wb *WorkbookWriter) writeClusters(f *excelize.File, headerStyle int, seg *segmentation.Result) error {
	if _, err := f.NewSheet(clustersSheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", clustersSheet, err)
	}

	header := []interface{}{"Cluster ID", "Category", "Total Customers", "Avg Purchase Frequency", "Avg Age", "Top Products"}
	if err := f.SetSheetRow(clustersSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write cluster header: %w", err)
	}
	if err := f.SetCellStyle(clustersSheet, "A1", "F1", headerStyle); err != nil {
		return fmt.Errorf("failed to style cluster header: %w", err)
	}

	for i, cluster := range seg.Clusters {
		category := cluster.Category
		if category == "" {
			category = "Uncategorized"
		}
		row := []interface{}{
			cluster.ClusterID,
			category,
			cluster.TotalCustomers,
			metricCell(cluster.AvgPurchaseFrequency, 2),
			metricCell(cluster.AvgAge, 1),
			strings.Join(cluster.MostPurchasedProducts, "; "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(clustersSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write cluster row %d: %w", i, err)
		}
	}
	return nil
}

func (wb *WorkbookWriter) writeRules(f *excelize.File, headerStyle int, mined *rules.Result) error {
	if _, err := f.NewSheet(rulesSheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", rulesSheet, err)
	}

	header := []interface{}{"Antecedent", "Consequent", "Confidence", "Support", "Lift"}
	if err := f.SetSheetRow(rulesSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write rule header: %w", err)
	}
	if err := f.SetCellStyle(rulesSheet, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("failed to style rule header: %w", err)
	}

	for i, rule := range mined.AssociationRules {
		row := []interface{}{
			rule.Antecedent.Join(" + "),
			rule.Consequent.Join(" + "),
			fmt.Sprintf("%.1f%%", rule.Confidence*100),
			fmt.Sprintf("%.1f%%", rule.Support*100),
			fmt.Sprintf("%.2f", rule.Lift),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(rulesSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write rule row %d: %w", i, err)
		}
	}
	return nil
}

// metricCell keeps numeric metrics as numbers so spreadsheet formulas work,
// falling back to N/A when the backend omitted the value.
func metricCell(value *float64, decimals int) interface{} {
	if value == nil {
		return "N/A"
	}
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(*value, 'f', decimals, 64), 64)
	return rounded
}
