package spreadsheet

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// CellValue is a scalar cell payload decoded from JSON: nil, bool, int64,
// float64 or string. Integral JSON numbers stay integers.
type CellValue struct {
	V any
}

func (c *CellValue) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil, bool, string:
		c.V = v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			c.V = i
			return nil
		}
		f, err := v.Float64()
		if err != nil {
			return mcperr.Newf(mcperr.Validation, "invalid number %s", v.String())
		}
		c.V = f
	default:
		return mcperr.New(mcperr.Validation, "cell values must be strings, numbers, booleans or null")
	}
	return nil
}

func (c CellValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.V)
}

// IsFormula reports whether the value is a formula string.
func (c CellValue) IsFormula() bool {
	s, ok := c.V.(string)
	return ok && strings.HasPrefix(s, "=")
}

// String renders the value as CSV text. Null becomes an empty field.
func (c CellValue) String() string {
	if f, ok := c.V.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return cast.ToString(c.V)
}

// writeCell stores v at cell. Formula strings are kept verbatim (minus the
// leading marker, which excelize does not store); everything else replaces
// any previous formula.
func writeCell(f *excelize.File, sheet, cell string, v CellValue) error {
	if v.IsFormula() {
		if err := f.SetCellDefault(sheet, cell, ""); err != nil {
			return err
		}
		return f.SetCellFormula(sheet, cell, strings.TrimPrefix(v.V.(string), "="))
	}
	switch val := v.V.(type) {
	case nil:
		return f.SetCellDefault(sheet, cell, "")
	case string:
		return f.SetCellStr(sheet, cell, val)
	case int64:
		return f.SetCellInt(sheet, cell, val)
	case float64:
		return f.SetCellFloat(sheet, cell, val, -1, 64)
	case bool:
		return f.SetCellBool(sheet, cell, val)
	default:
		return f.SetCellValue(sheet, cell, val)
	}
}

// writeRow stores vals left to right starting at column 1 of row.
func writeRow(f *excelize.File, sheet string, row int, vals []CellValue) error {
	for i, v := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := writeCell(f, sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

// readCell returns the stored content of cell: "=" + formula text for
// formulas, otherwise a typed scalar. raw is the cell's raw value as already
// read by the row iterator.
func readCell(f *excelize.File, sheet, cell, raw string) (any, error) {
	formula, err := f.GetCellFormula(sheet, cell)
	if err != nil {
		return nil, err
	}
	if formula != "" {
		return "=" + strings.TrimPrefix(formula, "="), nil
	}
	if raw == "" {
		return nil, nil
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return nil, err
	}
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		return parseNumber(raw), nil
	default:
		return raw, nil
	}
}

// parseNumber keeps integral values as int64 and falls back to the raw text
// when the content is not numeric.
func parseNumber(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	fl, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	if fl == math.Trunc(fl) && math.Abs(fl) < 1<<53 {
		return int64(fl)
	}
	return fl
}

// readRow converts one row of raw values into typed cells, padded to width.
func readRow(f *excelize.File, sheet string, rowNum int, raw []string, width int) ([]any, error) {
	out := make([]any, width)
	for c := 0; c < width; c++ {
		cell, err := excelize.CoordinatesToCellName(c+1, rowNum)
		if err != nil {
			return nil, err
		}
		var v string
		if c < len(raw) {
			v = raw[c]
		}
		if out[c], err = readCell(f, sheet, cell, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// usedRows counts rows up to the last one holding a value or formula.
func usedRows(f *excelize.File, sheet string) (int, int, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, 0, sheetError(sheet, err)
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	return len(rows), width, nil
}

// clearRows removes every populated row from sheet, last first.
func clearRows(f *excelize.File, sheet string) error {
	n, _, err := usedRows(f, sheet)
	if err != nil {
		return err
	}
	for r := n; r >= 1; r-- {
		if err := f.RemoveRow(sheet, r); err != nil {
			return err
		}
	}
	return nil
}

// csvRecord stringifies vals for the CSV writer.
func csvRecord(vals []CellValue) []string {
	rec := make([]string, len(vals))
	for i, v := range vals {
		rec[i] = v.String()
	}
	return rec
}
