package spreadsheet

import (
	"context"
	"strings"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// SetColumnFormat sets a column's width. Without a positive width the
// workbook is saved unchanged.
func (s *Service) SetColumnFormat(ctx context.Context, in SetColumnFormatInput) (ColumnFormatResult, error) {
	col := strings.ToUpper(strings.TrimSpace(in.Column))
	err := s.editCell(ctx, OpSetColumnFormat, in.Filename, in.Sheet, func(f *excelize.File, sheet string) error {
		if in.Width == nil || *in.Width == 0 {
			return nil
		}
		return f.SetColWidth(sheet, col, col, *in.Width)
	})
	if err != nil {
		return ColumnFormatResult{}, err
	}
	return ColumnFormatResult{Success: true, Column: in.Column}, nil
}

// SetRowFormat sets a row's height. Without a positive height the workbook is
// saved unchanged.
func (s *Service) SetRowFormat(ctx context.Context, in SetRowFormatInput) (RowFormatResult, error) {
	err := s.editCell(ctx, OpSetRowFormat, in.Filename, in.Sheet, func(f *excelize.File, sheet string) error {
		if in.Height == nil || *in.Height == 0 {
			return nil
		}
		return f.SetRowHeight(sheet, in.Row, *in.Height)
	})
	if err != nil {
		return RowFormatResult{}, err
	}
	return RowFormatResult{Success: true, Row: in.Row}, nil
}

// FormatCells applies font and fill styling to every cell of a range.
func (s *Service) FormatCells(ctx context.Context, in FormatCellsInput) (FormatCellsResult, error) {
	argb, err := NormalizeColor(in.BgColor)
	if err != nil {
		return FormatCellsResult{}, err
	}
	var size float64
	if in.FontSize != nil {
		size = *in.FontSize
	}
	st := styleChange{fill: argb}
	if in.Bold || in.Italic || size > 0 {
		st.font = &excelize.Font{Bold: in.Bold, Italic: in.Italic, Size: size}
	}
	err = s.editCell(ctx, OpFormatCells, in.Filename, in.Sheet, func(f *excelize.File, sheet string) error {
		return restyle(f, sheet, in.CellRange, st)
	})
	if err != nil {
		return FormatCellsResult{}, err
	}
	return FormatCellsResult{Success: true, Range: in.CellRange}, nil
}

// SetCellFormat applies font and fill styling to one cell.
func (s *Service) SetCellFormat(ctx context.Context, in SetCellFormatInput) (CellFormatResult, error) {
	argb, err := NormalizeColor(in.BgColor)
	if err != nil {
		return CellFormatResult{}, err
	}
	st := styleChange{fill: argb}
	if in.Bold || in.Italic {
		st.font = &excelize.Font{Bold: in.Bold, Italic: in.Italic}
	}
	err = s.editCell(ctx, OpSetCellFormat, in.Filename, in.Sheet, func(f *excelize.File, sheet string) error {
		return restyle(f, sheet, in.Cell, st)
	})
	if err != nil {
		return CellFormatResult{}, err
	}
	return CellFormatResult{Success: true, Cell: in.Cell}, nil
}

// styleChange replaces the font and/or the solid fill of a cell's style. Nil
// font and empty fill leave those parts alone.
type styleChange struct {
	font *excelize.Font
	fill string // ARGB
}

func (c styleChange) empty() bool { return c.font == nil && c.fill == "" }

func (c styleChange) apply(st *excelize.Style) {
	if c.font != nil {
		font := *c.font
		st.Font = &font
	}
	if c.fill != "" {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fillColor(c.fill)}}
	}
}

// restyle merges change into the existing style of every cell in ref. Cells
// sharing a style share the derived style too.
func restyle(f *excelize.File, sheet, ref string, change styleChange) error {
	if change.empty() {
		return nil
	}
	c1, r1, c2, r2, err := rangeBounds(ref)
	if err != nil {
		return err
	}
	derived := map[int]int{}
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			cell, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return err
			}
			old, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				return err
			}
			id, ok := derived[old]
			if !ok {
				st, err := f.GetStyle(old)
				if err != nil {
					return err
				}
				change.apply(st)
				if id, err = f.NewStyle(st); err != nil {
					return err
				}
				derived[old] = id
			}
			if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// rangeBounds returns the normalized corners of an A1 range or single cell.
func rangeBounds(ref string) (c1, r1, c2, r2 int, err error) {
	parts := strings.Split(normalizeCell(ref), ":")
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	if len(parts) != 2 {
		return 0, 0, 0, 0, mcperr.Newf(mcperr.Validation, "invalid range %q", ref)
	}
	if c1, r1, err = excelize.CellNameToCoordinates(parts[0]); err != nil {
		return 0, 0, 0, 0, mcperr.Wrap(mcperr.Validation, err, "invalid range "+ref)
	}
	if c2, r2, err = excelize.CellNameToCoordinates(parts[1]); err != nil {
		return 0, 0, 0, 0, mcperr.Wrap(mcperr.Validation, err, "invalid range "+ref)
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	return c1, r1, c2, r2, nil
}
