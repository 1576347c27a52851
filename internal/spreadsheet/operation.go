package spreadsheet

// Operation is the closed set of tools the dispatcher understands.
type Operation int

const (
	OpUnknown Operation = iota
	OpListFiles
	OpListSheets
	OpCreateSpreadsheet
	OpRenameFile
	OpRenameSheet
	OpReadSpreadsheet
	OpWriteSpreadsheet
	OpAppendRow
	OpSetFormula
	OpGetFormula
	OpUpdateCell
	OpDeleteSpreadsheet
	OpSetColumnFormat
	OpSetRowFormat
	OpFormatCells
	OpSetCellFormat
	OpCreateChart
	OpFreezePanes
	OpUnfreezePanes

	opCount
)

var operationNames = [opCount]string{
	OpUnknown:           "unknown",
	OpListFiles:         "list_files",
	OpListSheets:        "list_sheets",
	OpCreateSpreadsheet: "create_spreadsheet",
	OpRenameFile:        "rename_file",
	OpRenameSheet:       "rename_sheet",
	OpReadSpreadsheet:   "read_spreadsheet",
	OpWriteSpreadsheet:  "write_spreadsheet",
	OpAppendRow:         "append_row",
	OpSetFormula:        "set_formula",
	OpGetFormula:        "get_formula",
	OpUpdateCell:        "update_cell",
	OpDeleteSpreadsheet: "delete_spreadsheet",
	OpSetColumnFormat:   "set_column_format",
	OpSetRowFormat:      "set_row_format",
	OpFormatCells:       "format_cells",
	OpSetCellFormat:     "set_cell_format",
	OpCreateChart:       "create_chart",
	OpFreezePanes:       "freeze_panes",
	OpUnfreezePanes:     "unfreeze_panes",
}

var operationsByName = func() map[string]Operation {
	m := make(map[string]Operation, opCount)
	for op := OpUnknown + 1; op < opCount; op++ {
		m[operationNames[op]] = op
	}
	return m
}()

// ParseOperation maps a tool name onto an Operation. Unrecognized names yield
// OpUnknown.
func ParseOperation(name string) Operation {
	if op, ok := operationsByName[name]; ok {
		return op
	}
	return OpUnknown
}

// Operations lists every known operation in declaration order.
func Operations() []Operation {
	ops := make([]Operation, 0, opCount-1)
	for op := OpUnknown + 1; op < opCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

func (o Operation) String() string {
	if o < 0 || o >= opCount {
		return operationNames[OpUnknown]
	}
	return operationNames[o]
}

// Mutating reports whether the operation changes files on disk.
func (o Operation) Mutating() bool {
	switch o {
	case OpListFiles, OpListSheets, OpReadSpreadsheet, OpGetFormula, OpUnknown:
		return false
	default:
		return true
	}
}
