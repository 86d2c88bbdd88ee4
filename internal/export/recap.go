// Package export renders treasurer reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"kas/internal/core"
)

var monthNames = []string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// YearRecap writes a one-sheet workbook with a row per month plus a totals
// row: income, expense and net columns.
func YearRecap(w io.Writer, year int, stats []core.MonthlyBucket) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("Rekap %d", year)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Bulan", "Pemasukan", "Pengeluaran", "Selisih"}
	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	var totalIncome, totalExpense core.Money
	for _, b := range stats {
		if b.Month < 1 || b.Month > 12 {
			return fmt.Errorf("bucket month %d out of range", b.Month)
		}
		row := b.Month + 1
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), monthNames[b.Month-1])
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), int64(b.Income))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), int64(b.Expense))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), int64(b.Income-b.Expense))
		totalIncome += b.Income
		totalExpense += b.Expense
	}

	totalRow := 14
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", totalRow), "Total")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", totalRow), int64(totalIncome))
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", totalRow), int64(totalExpense))
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", totalRow), int64(totalIncome-totalExpense))

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "D", 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
