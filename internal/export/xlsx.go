package export

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/resumex/internal/extract"
)

// Named pairs a record with the document it came from.
type Named struct {
	Source string
	Record extract.Record
}

const (
	summarySheet = "Resumes"
	sourceCol    = "source"
)

// column names a record field, moving a field called "source" aside so it
// cannot overwrite the source document column.
func column(name string) string {
	if name == sourceCol {
		return "record." + name
	}
	return name
}

// XLSX writes a workbook with one summary row per record and one sheet per
// collection, each entry a row tagged with its source document.
func XLSX(w io.Writer, docs ...Named) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	var summaryCols []string
	collections := map[string][]map[string]any{}
	var collectionOrder []string
	summaryRows := make([]map[string]any, 0, len(docs))

	for _, d := range docs {
		row := map[string]any{}
		for _, key := range sortedKeys(d.Record) {
			switch v := d.Record[key].(type) {
			case map[string]any:
				for _, field := range sortedKeys(v) {
					row[key+"."+field] = v[field]
				}
			case []any:
				if _, seen := collections[key]; !seen {
					collectionOrder = append(collectionOrder, key)
					collections[key] = nil
				}
				for _, entry := range v {
					if m, ok := entry.(map[string]any); ok {
						e := map[string]any{}
						for k, val := range m {
							e[column(k)] = val
						}
						e[sourceCol] = d.Source
						collections[key] = append(collections[key], e)
					}
				}
			default:
				row[column(key)] = v
			}
		}
		for _, col := range sortedKeys(row) {
			if !slices.Contains(summaryCols, col) {
				summaryCols = append(summaryCols, col)
			}
		}
		row[sourceCol] = d.Source
		summaryRows = append(summaryRows, row)
	}

	if err := writeSheet(f, summarySheet, append([]string{sourceCol}, summaryCols...), summaryRows); err != nil {
		return err
	}
	used := map[string]bool{strings.ToLower(summarySheet): true}
	for _, key := range collectionOrder {
		sheet := sheetName(key, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("xlsx sheet %s: %w", sheet, err)
		}
		rows := collections[key]
		cols := []string{sourceCol}
		for _, r := range rows {
			for _, k := range sortedKeys(r) {
				if !slices.Contains(cols, k) {
					cols = append(cols, k)
				}
			}
		}
		if err := writeSheet(f, sheet, cols, rows); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, cols []string, rows []map[string]any) error {
	for i, h := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	for r, row := range rows {
		for c, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, cellValue(row[col])); err != nil {
				return fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
		}
	}
	if len(cols) > 0 {
		last, _ := excelize.ColumnNumberToName(len(cols))
		_ = f.SetColWidth(sheet, "A", last, 24)
	}
	return nil
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, "\n")
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "\n")
	}
	return fmt.Sprint(v)
}

// sheetName turns a record key into a valid sheet name that no name in used
// already claims. Excel compares sheet names case-insensitively.
func sheetName(key string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, key)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	name = truncateRunes(name, maxSheetName)

	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf("_%d", i)
		candidate = truncateRunes(name, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

const maxSheetName = 31

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
