package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names in XLSX are at most 31 characters and may not contain these.
const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")",
)

// WriteXLSX renders doc as a workbook, one worksheet per Sheet.
func WriteXLSX(w io.Writer, doc *Document) error {
	f := excelize.NewFile()
	defer f.Close()

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return err
	}
	headingStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	if err != nil {
		return err
	}
	columnStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"3B82F6"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	firstColStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	used := make(map[string]bool)
	for i, sheet := range doc.Sheets {
		name := uniqueSheetName(sheet.Name, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}

		sw := sheetWriter{f: f, name: name, row: 1}
		if err := sw.text(doc.Title, titleStyle); err != nil {
			return err
		}
		for _, line := range doc.Header {
			if err := sw.text(line, 0); err != nil {
				return err
			}
		}
		sw.row++

		for _, b := range sheet.Blocks {
			if b.Heading != "" {
				if err := sw.text(b.Heading, headingStyle); err != nil {
					return err
				}
			}
			for _, line := range b.Lines {
				if err := sw.text(line, 0); err != nil {
					return err
				}
			}
			if b.Table != nil {
				if err := sw.table(b.Table, columnStyle, firstColStyle); err != nil {
					return err
				}
			}
			sw.row++
		}

		if err := f.SetColWidth(name, "A", "A", 24); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

// sheetWriter appends rows to one worksheet.
type sheetWriter struct {
	f    *excelize.File
	name string
	row  int
}

func (sw *sheetWriter) cell(col int) string {
	name, _ := excelize.CoordinatesToCellName(col, sw.row)
	return name
}

func (sw *sheetWriter) text(s string, style int) error {
	cell := sw.cell(1)
	if err := sw.f.SetCellValue(sw.name, cell, s); err != nil {
		return err
	}
	if style != 0 {
		if err := sw.f.SetCellStyle(sw.name, cell, cell, style); err != nil {
			return err
		}
	}
	sw.row++
	return nil
}

func (sw *sheetWriter) table(t *Table, columnStyle, firstColStyle int) error {
	for i, c := range t.Columns {
		if err := sw.f.SetCellValue(sw.name, sw.cell(i+1), c); err != nil {
			return err
		}
	}
	if len(t.Columns) > 0 {
		if err := sw.f.SetCellStyle(sw.name, sw.cell(1), sw.cell(len(t.Columns)), columnStyle); err != nil {
			return err
		}
	}
	sw.row++

	for _, r := range t.Rows {
		for i, v := range r {
			if err := sw.f.SetCellValue(sw.name, sw.cell(i+1), v); err != nil {
				return err
			}
		}
		if err := sw.f.SetCellStyle(sw.name, sw.cell(1), sw.cell(1), firstColStyle); err != nil {
			return err
		}
		sw.row++
	}
	return nil
}

// uniqueSheetName makes name legal for XLSX and distinct from earlier sheets.
func uniqueSheetName(name string, used map[string]bool) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(name))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Sheet"
	}
	base = truncate(base, maxSheetName)

	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
