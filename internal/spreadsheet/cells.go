package spreadsheet

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// openWorkbook resolves name and requires the .xlsx format.
func (s *Service) openWorkbook(name string, op Operation) (target, error) {
	t, err := s.open(name)
	if err != nil {
		return target{}, err
	}
	if t.format != workbooks.FormatXLSX {
		return target{}, mcperr.Newf(mcperr.UnsupportedFormat, "%s requires an .xlsx workbook", op)
	}
	return t, nil
}

// editCell resolves the selected sheet of an existing workbook and runs fn
// under a write scope.
func (s *Service) editCell(ctx context.Context, op Operation, name string, sel SheetSelector, fn func(f *excelize.File, sheet string) error) error {
	t, err := s.openWorkbook(name, op)
	if err != nil {
		return err
	}
	return s.books.WithWrite(ctx, t.path, func(f *excelize.File) error {
		sheet, err := sel.Resolve(f)
		if err != nil {
			return err
		}
		return fn(f, sheet)
	})
}

// SetFormula stores formula verbatim in a cell. It is never evaluated.
func (s *Service) SetFormula(ctx context.Context, in SetFormulaInput) (SetFormulaResult, error) {
	cell := normalizeCell(in.Cell)
	err := s.editCell(ctx, OpSetFormula, in.Filename, in.Sheet, func(f *excelize.File, sheet string) error {
		return writeCell(f, sheet, cell, CellValue{V: in.Formula})
	})
	if err != nil {
		return SetFormulaResult{}, err
	}
	return SetFormulaResult{Success: true, Cell: in.Cell, Formula: in.Formula}, nil
}

// GetFormula returns a cell's formula text, or its value when it holds none.
func (s *Service) GetFormula(ctx context.Context, in GetFormulaInput) (GetFormulaResult, error) {
	t, err := s.openWorkbook(in.Filename, OpGetFormula)
	if err != nil {
		return GetFormulaResult{}, err
	}
	cell := normalizeCell(in.Cell)
	var val any
	err = s.books.WithRead(ctx, t.path, func(f *excelize.File) error {
		sheet, err := in.Sheet.Resolve(f)
		if err != nil {
			return err
		}
		raw, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
		if err != nil {
			return err
		}
		val, err = readCell(f, sheet, cell, raw)
		return err
	})
	if err != nil {
		return GetFormulaResult{}, err
	}
	return GetFormulaResult{Success: true, Cell: in.Cell, FormulaOrValue: val}, nil
}

// UpdateCell replaces the content of a single cell.
func (s *Service) UpdateCell(ctx context.Context, in UpdateCellInput) (UpdateCellResult, error) {
	cell := normalizeCell(in.Cell)
	err := s.editCell(ctx, OpUpdateCell, in.Filename, in.Sheet, func(f *excelize.File, sheet string) error {
		return writeCell(f, sheet, cell, in.Value)
	})
	if err != nil {
		return UpdateCellResult{}, err
	}
	return UpdateCellResult{Success: true, Cell: in.Cell, Value: in.Value}, nil
}

// RenameSheet renames a worksheet. A missing source sheet or a name already
// used by another sheet is reported as a failure object.
func (s *Service) RenameSheet(ctx context.Context, in RenameSheetInput) (any, error) {
	t, err := s.openWorkbook(in.Filename, OpRenameSheet)
	if err != nil {
		return nil, err
	}
	newName := strings.TrimSpace(in.NewSheet)
	err = s.books.WithWrite(ctx, t.path, func(f *excelize.File) error {
		oldName, ok := lookupSheet(f, in.OldSheet)
		if !ok {
			return reject("Sheet " + in.OldSheet + " not found")
		}
		if existing, ok := lookupSheet(f, newName); ok && existing != oldName {
			return reject("Sheet " + newName + " already exists")
		}
		if err := f.SetSheetName(oldName, newName); err != nil {
			return mcperr.Wrap(mcperr.Validation, err, "invalid sheet name "+newName)
		}
		return nil
	})
	if failure, ok := asFailure(err); ok {
		return failure, nil
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("file", t.rel).Str("from", in.OldSheet).Str("to", newName).Msg("renamed sheet")
	return RenameSheetResult{Success: true, File: filepath.Base(t.path), Sheet: newName}, nil
}

// normalizeCell upper-cases an A1 reference and strips absolute markers.
func normalizeCell(cell string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(cell), "$", ""))
}
