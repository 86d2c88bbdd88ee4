package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"kas/internal/core"
)

func TestYearRecap(t *testing.T) {
	stats := make([]core.MonthlyBucket, 12)
	for i := range stats {
		stats[i].Month = i + 1
	}
	stats[0].Income = 150000
	stats[0].Expense = 40000
	stats[5].Income = 20000

	var buf bytes.Buffer
	if err := YearRecap(&buf, 2025, stats); err != nil {
		t.Fatalf("YearRecap failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	defer f.Close()

	sheet := "Rekap 2025"
	got, err := f.GetCellValue(sheet, "B2")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if got != "150000" {
		t.Errorf("january income cell = %q, want 150000", got)
	}

	total, err := f.GetCellValue(sheet, "B14")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if total != "170000" {
		t.Errorf("total income cell = %q, want 170000", total)
	}

	net, _ := f.GetCellValue(sheet, "D14")
	if net != "130000" {
		t.Errorf("net total cell = %q, want 130000", net)
	}
}

func TestYearRecapRejectsBadBucket(t *testing.T) {
	var buf bytes.Buffer
	err := YearRecap(&buf, 2025, []core.MonthlyBucket{{Month: 13}})
	if err == nil {
		t.Error("expected error for out-of-range month")
	}
}
