package spreadsheet

import (
	"context"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// FreezePanes freezes the rows above and the columns left of cell: "A2"
// freezes the header row, "B1" the first column, "B2" both. "A1" clears any
// frozen panes.
func (s *Service) FreezePanes(ctx context.Context, in FreezePanesInput) (any, error) {
	cell := normalizeCell(in.Cell)
	panes, err := freezeAt(cell)
	if err != nil {
		return nil, err
	}
	if err := s.setPanes(ctx, OpFreezePanes, in.Filename, in.Sheet, panes); err != nil {
		if failure, ok := asFailure(err); ok {
			return failure, nil
		}
		return nil, err
	}
	return FreezePanesResult{Success: true, Sheet: in.Sheet, FreezeCell: in.Cell, Message: "Frozen panes at " + in.Cell}, nil
}

// UnfreezePanes removes frozen panes from a sheet.
func (s *Service) UnfreezePanes(ctx context.Context, in UnfreezePanesInput) (any, error) {
	if err := s.setPanes(ctx, OpUnfreezePanes, in.Filename, in.Sheet, &excelize.Panes{}); err != nil {
		if failure, ok := asFailure(err); ok {
			return failure, nil
		}
		return nil, err
	}
	return UnfreezePanesResult{Success: true, Sheet: in.Sheet, Message: "Unfrozen panes"}, nil
}

// setPanes applies panes to a named sheet. A missing sheet is a rejection.
func (s *Service) setPanes(ctx context.Context, op Operation, name, sheet string, panes *excelize.Panes) error {
	t, err := s.openWorkbook(name, op)
	if err != nil {
		return err
	}
	return s.books.WithWrite(ctx, t.path, func(f *excelize.File) error {
		canonical, ok := lookupSheet(f, sheet)
		if !ok {
			return reject("Sheet " + sheet + " not found")
		}
		return f.SetPanes(canonical, panes)
	})
}

// freezeAt builds the frozen pane layout whose top-left scrolling cell is
// cell.
func freezeAt(cell string) (*excelize.Panes, error) {
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.Validation, err, "invalid cell "+cell)
	}
	p := &excelize.Panes{XSplit: col - 1, YSplit: row - 1}
	switch {
	case p.XSplit == 0 && p.YSplit == 0:
		return &excelize.Panes{}, nil
	case p.XSplit > 0 && p.YSplit > 0:
		p.ActivePane = "bottomRight"
	case p.YSplit > 0:
		p.ActivePane = "bottomLeft"
	default:
		p.ActivePane = "topRight"
	}
	p.Freeze = true
	p.TopLeftCell = cell
	return p, nil
}
