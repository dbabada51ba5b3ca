// Package export renders workload buckets as spreadsheets and YAML documents.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"study-planner/internal/calendar"
	"study-planner/internal/workload"
)

const sheetName = "Workload"

// Row is one bucket of a workload view, flattened for output.
type Row struct {
	Label      string  `yaml:"label"`
	Date       string  `yaml:"date,omitempty"`
	Week       int     `yaml:"week,omitempty"`
	Overdue    float64 `yaml:"overdue"`
	Incomplete float64 `yaml:"incomplete"`
	Completed  float64 `yaml:"completed"`
	Total      float64 `yaml:"total"`
}

func DayRows(buckets []workload.DayBucket) []Row {
	rows := make([]Row, len(buckets))
	for i, b := range buckets {
		rows[i] = newRow(b.Label, b.Hours)
		rows[i].Date = b.Date.Format(calendar.DateLayout)
	}
	return rows
}

func WeekRows(buckets []workload.WeekBucket) []Row {
	rows := make([]Row, len(buckets))
	for i, b := range buckets {
		rows[i] = newRow(b.Label, b.Hours)
		rows[i].Week = b.WeekNumber
	}
	return rows
}

func newRow(label string, h workload.Hours) Row {
	return Row{
		Label:      label,
		Overdue:    h.Overdue,
		Incomplete: h.Incomplete,
		Completed:  h.Completed,
		Total:      h.Total(),
	}
}

// WriteXLSX writes a single-sheet workbook: title, header, one line per row
// and a totals line.
func WriteXLSX(w io.Writer, title string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	f.SetColWidth(sheetName, "A", "A", 16)
	f.SetColWidth(sheetName, "B", "E", 14)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}

	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", "E1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	for i, h := range []string{"Period", "Overdue", "Incomplete", "Completed", "Total"} {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "E2", headerStyle)

	var sum Row
	row := 3
	for _, r := range rows {
		writeRow(f, row, r)
		sum.Overdue += r.Overdue
		sum.Incomplete += r.Incomplete
		sum.Completed += r.Completed
		sum.Total += r.Total
		row++
	}
	sum.Label = "Total"
	writeRow(f, row, sum)
	f.SetCellStyle(sheetName, cell("A", row), cell("E", row), totalStyle)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, r Row) {
	f.SetCellValue(sheetName, cell("A", row), r.Label)
	f.SetCellValue(sheetName, cell("B", row), r.Overdue)
	f.SetCellValue(sheetName, cell("C", row), r.Incomplete)
	f.SetCellValue(sheetName, cell("D", row), r.Completed)
	f.SetCellValue(sheetName, cell("E", row), r.Total)
}

type document struct {
	Buckets []Row            `yaml:"buckets"`
	Summary workload.Summary `yaml:"summary"`
}

// WriteYAML writes the rows followed by the summary totals.
func WriteYAML(w io.Writer, rows []Row, summary workload.Summary) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Buckets: rows, Summary: summary}); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
