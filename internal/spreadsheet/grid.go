package spreadsheet

import (
	"context"
	"os"

	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
	"github.com/xuri/excelize/v2"
)

// target is a resolved file inside the base directory.
type target struct {
	path   string
	rel    string
	format workbooks.Format
}

// open resolves an existing file and determines its format.
func (s *Service) open(name string) (target, error) {
	p, err := s.resolver.Resolve(name, true)
	if err != nil {
		return target{}, err
	}
	format, err := workbooks.FormatFromPath(p)
	if err != nil {
		return target{}, err
	}
	rel, err := s.resolver.Rel(p)
	if err != nil {
		return target{}, mcperr.Wrap(mcperr.IOFailed, err, "relative path")
	}
	return target{path: p, rel: rel, format: format}, nil
}

// ReadSpreadsheet returns the cell grid of a sheet or CSV file. max_rows caps
// the rows returned; when rows remain, next_cursor resumes after the page.
func (s *Service) ReadSpreadsheet(ctx context.Context, in ReadSpreadsheetInput) (ReadSpreadsheetResult, error) {
	t, err := s.open(in.Filename)
	if err != nil {
		return ReadSpreadsheetResult{}, err
	}
	info, err := os.Stat(t.path)
	if err != nil {
		return ReadSpreadsheetResult{}, mcperr.Wrap(mcperr.IOFailed, err, "stat "+in.Filename)
	}
	mtime := info.ModTime()

	win := pagination.Window{Limit: in.MaxRows}
	var cur *pagination.Cursor
	if in.Cursor != "" {
		c, err := pagination.Decode(in.Cursor)
		if err != nil {
			return ReadSpreadsheetResult{}, mcperr.Wrap(mcperr.CursorInvalid, err, "decode cursor")
		}
		cur, win = &c, pagination.Resume(c, in.MaxRows)
	}
	verify := func(sheet string) error {
		if cur == nil {
			return nil
		}
		if err := cur.Verify(t.rel, sheet, mtime); err != nil {
			return mcperr.Wrap(mcperr.CursorInvalid, err, "read from the start again")
		}
		return nil
	}

	var (
		sheet string
		rows  [][]any
		total int
	)
	switch t.format {
	case workbooks.FormatCSV:
		if err := verify(""); err != nil {
			return ReadSpreadsheetResult{}, err
		}
		records, err := s.books.ReadCSV(ctx, t.path)
		if err != nil {
			return ReadSpreadsheetResult{}, err
		}
		total = len(records)
		start, end := win.Bounds(total)
		rows = make([][]any, 0, end-start)
		for _, rec := range records[start:end] {
			row := make([]any, len(rec))
			for i, v := range rec {
				row[i] = v
			}
			rows = append(rows, row)
		}
	default:
		err = s.books.WithRead(ctx, t.path, func(f *excelize.File) error {
			var err error
			if sheet, err = in.Sheet.Resolve(f); err != nil {
				return err
			}
			if err := verify(sheet); err != nil {
				return err
			}
			rows, total, err = readRows(f, sheet, win)
			return err
		})
		if err != nil {
			return ReadSpreadsheetResult{}, err
		}
	}

	res := ReadSpreadsheetResult{Success: true, Data: rows, SheetName: sheet, Rows: len(rows)}
	if len(rows) > 0 {
		res.Columns = len(rows[0])
	}
	if res.NextCursor, err = win.Next(t.rel, sheet, mtime, total); err != nil {
		return ReadSpreadsheetResult{}, mcperr.Wrap(mcperr.IOFailed, err, "encode cursor")
	}
	return res, nil
}

// readRows returns the rows of sheet inside win and the total used row count.
func readRows(f *excelize.File, sheet string, win pagination.Window) ([][]any, int, error) {
	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, 0, sheetError(sheet, err)
	}
	width := 0
	for _, r := range grid {
		width = max(width, len(r))
	}
	start, end := win.Bounds(len(grid))
	out := make([][]any, 0, end-start)
	for r := start; r < end; r++ {
		row, err := readRow(f, sheet, r+1, grid[r], width)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	return out, len(grid), nil
}

// WriteSpreadsheet writes a 2-D block of values. Without append the target
// sheet (or CSV file) is cleared first; with append rows go after the last
// used row. A named sheet that does not exist is created.
func (s *Service) WriteSpreadsheet(ctx context.Context, in WriteSpreadsheetInput) (WriteSpreadsheetResult, error) {
	t, err := s.open(in.Filename)
	if err != nil {
		return WriteSpreadsheetResult{}, err
	}

	if t.format == workbooks.FormatCSV {
		records := make([][]string, len(in.Data))
		for i, row := range in.Data {
			records[i] = csvRecord(row)
		}
		if in.Append {
			err = s.books.AppendCSV(ctx, t.path, records)
		} else {
			err = s.books.WriteCSV(ctx, t.path, records)
		}
		if err != nil {
			return WriteSpreadsheetResult{}, err
		}
		return WriteSpreadsheetResult{Success: true, RowsWritten: len(in.Data)}, nil
	}

	var sheet string
	err = s.books.WithWrite(ctx, t.path, func(f *excelize.File) error {
		if sheet, err = s.sheetForWrite(f, in.Sheet); err != nil {
			return err
		}
		if !in.Append {
			if err := clearRows(f, sheet); err != nil {
				return err
			}
		}
		used, _, err := usedRows(f, sheet)
		if err != nil {
			return err
		}
		for i, row := range in.Data {
			if err := writeRow(f, sheet, used+i+1, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return WriteSpreadsheetResult{}, err
	}
	return WriteSpreadsheetResult{Success: true, RowsWritten: len(in.Data), Sheet: sheet}, nil
}

// sheetForWrite resolves sel, creating a named sheet when it is missing.
func (s *Service) sheetForWrite(f *excelize.File, sel SheetSelector) (string, error) {
	if sel.IsActive() {
		return sel.Resolve(f)
	}
	if name, ok := lookupSheet(f, sel.Name); ok {
		return name, nil
	}
	if _, err := f.NewSheet(sel.Name); err != nil {
		return "", mcperr.Wrap(mcperr.Validation, err, "invalid sheet name "+sel.Name)
	}
	return sel.Name, nil
}

// AppendRow adds one row after the last used row. For workbooks the new row
// number is reported.
func (s *Service) AppendRow(ctx context.Context, in AppendRowInput) (AppendRowResult, error) {
	t, err := s.open(in.Filename)
	if err != nil {
		return AppendRowResult{}, err
	}
	if t.format == workbooks.FormatCSV {
		if err := s.books.AppendCSV(ctx, t.path, [][]string{csvRecord(in.RowData)}); err != nil {
			return AppendRowResult{}, err
		}
		return AppendRowResult{Success: true}, nil
	}

	var rowNum int
	err = s.books.WithWrite(ctx, t.path, func(f *excelize.File) error {
		sheet, err := in.Sheet.Resolve(f)
		if err != nil {
			return err
		}
		used, _, err := usedRows(f, sheet)
		if err != nil {
			return err
		}
		rowNum = used + 1
		return writeRow(f, sheet, rowNum, in.RowData)
	})
	if err != nil {
		return AppendRowResult{}, err
	}
	return AppendRowResult{Success: true, RowNumber: rowNum}, nil
}

// ListSheets describes every sheet of a workbook.
func (s *Service) ListSheets(ctx context.Context, in ListSheetsInput) (ListSheetsResult, error) {
	t, err := s.openWorkbook(in.Filename, OpListSheets)
	if err != nil {
		return ListSheetsResult{}, err
	}

	res := ListSheetsResult{Success: true, Sheets: []SheetInfo{}}
	err = s.books.WithRead(ctx, t.path, func(f *excelize.File) error {
		if res.ActiveSheet, err = Active().Resolve(f); err != nil {
			return err
		}
		for i, name := range f.GetSheetList() {
			rows, cols, err := usedRows(f, name)
			if err != nil {
				return err
			}
			info := SheetInfo{Name: name, Index: i, Rows: rows, Columns: cols}
			panes, err := f.GetPanes(name)
			if err != nil {
				return err
			}
			if panes.Freeze {
				info.FrozenCell = panes.TopLeftCell
			}
			res.Sheets = append(res.Sheets, info)
		}
		return nil
	})
	if err != nil {
		return ListSheetsResult{}, err
	}
	return res, nil
}
