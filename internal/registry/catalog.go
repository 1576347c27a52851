package registry

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/spreadsheet"
)

const (
	fileDesc   = "Name of the file"
	sheetDesc  = "Sheet name"
	colorDesc  = "Background color hex (e.g., '#00FF00' or 'FF00FF00')"
	freezeDesc = "Freeze rows and/or columns at a specific cell position. Use 'A2' to freeze top row, 'B1' to freeze first column, 'B2' to freeze both."
)

// integer narrows a number property to JSON Schema "integer".
func integer() mcp.PropertyOption {
	return func(schema map[string]any) { schema["type"] = "integer" }
}

// untyped drops the type so any JSON value is accepted.
func untyped() mcp.PropertyOption {
	return func(schema map[string]any) { delete(schema, "type") }
}

// hints annotates a tool from its operation: readers are read-only, writers
// are flagged destructive when they can discard existing content.
func hints(op spreadsheet.Operation, destructive, idempotent bool) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithReadOnlyHintAnnotation(!op.Mutating()),
		mcp.WithDestructiveHintAnnotation(destructive),
		mcp.WithIdempotentHintAnnotation(idempotent),
		mcp.WithOpenWorldHintAnnotation(false),
	}
}

func tool(op spreadsheet.Operation, description string, destructive, idempotent bool, opts ...mcp.ToolOption) mcp.Tool {
	all := append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	all = append(all, hints(op, destructive, idempotent)...)
	return mcp.NewTool(op.String(), all...)
}

// Catalog returns the definition of every spreadsheet tool, in the order
// operations are declared.
func Catalog() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(spreadsheet.Operations()))
	for _, op := range spreadsheet.Operations() {
		tools = append(tools, define(op))
	}
	return tools
}

func define(op spreadsheet.Operation) mcp.Tool {
	switch op {
	case spreadsheet.OpListFiles:
		return tool(op, "List all spreadsheet files in the base directory", false, true,
			mcp.WithString("pattern", mcp.DefaultString(config.DefaultListPattern), mcp.Description("Glob pattern to filter files (default: '*'); '**' matches across subdirectories")),
		)
	case spreadsheet.OpListSheets:
		return tool(op, "List the sheets of a workbook with their used dimensions and frozen panes", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
		)
	case spreadsheet.OpCreateSpreadsheet:
		return tool(op, "Create a new spreadsheet file", false, false,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("format", mcp.DefaultString(config.DefaultFormat), mcp.Enum("xlsx", "csv"), mcp.Description("File format (xlsx or csv)")),
			mcp.WithArray("headers", mcp.Items(map[string]any{"type": "string"}), mcp.Description("Optional header row")),
			mcp.WithString("sheet_name", mcp.DefaultString(config.DefaultSheetName), mcp.Description("Name of the first sheet")),
		)
	case spreadsheet.OpRenameFile:
		return tool(op, "Rename a file", false, false,
			mcp.WithString("old_filename", mcp.Required(), mcp.Description("Current filename")),
			mcp.WithString("new_filename", mcp.Required(), mcp.Description("New filename")),
		)
	case spreadsheet.OpRenameSheet:
		return tool(op, "Rename a sheet", false, false,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("old_sheet", mcp.Required(), mcp.Description("Current sheet name")),
			mcp.WithString("new_sheet", mcp.Required(), mcp.Description("New sheet name")),
		)
	case spreadsheet.OpReadSpreadsheet:
		return tool(op, "Read data from a spreadsheet", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Description("Sheet name (optional)")),
			mcp.WithNumber("max_rows", integer(), mcp.Min(0), mcp.Description("Maximum rows to read")),
			mcp.WithString("cursor", mcp.Description("Opaque next_cursor from a previous read to continue after its last row")),
		)
	case spreadsheet.OpWriteSpreadsheet:
		return tool(op, "Write data to a spreadsheet", true, false,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithArray("data", mcp.Required(), mcp.Description("2D array of data")),
			mcp.WithString("sheet", mcp.Description("Sheet name (optional)")),
			mcp.WithBoolean("append", mcp.DefaultBool(false), mcp.Description("Append instead of overwrite")),
		)
	case spreadsheet.OpAppendRow:
		return tool(op, "Append a single row to a spreadsheet", false, false,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithArray("row_data", mcp.Required(), mcp.Description("Row data as array")),
			mcp.WithString("sheet", mcp.Description("Sheet name (optional)")),
		)
	case spreadsheet.OpSetFormula:
		return tool(op, "Set a formula in a cell", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
			mcp.WithString("cell", mcp.Required(), mcp.Description("Cell reference")),
			mcp.WithString("formula", mcp.Required(), mcp.Description("Excel formula")),
		)
	case spreadsheet.OpGetFormula:
		return tool(op, "Get formula from a cell", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
			mcp.WithString("cell", mcp.Required(), mcp.Description("Cell reference")),
		)
	case spreadsheet.OpUpdateCell:
		return tool(op, "Update a single cell value", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
			mcp.WithString("cell", mcp.Required(), mcp.Description("Cell reference (e.g., 'A1')")),
			mcp.WithString("value", mcp.Required(), untyped(), mcp.Description("Value to set")),
		)
	case spreadsheet.OpDeleteSpreadsheet:
		return tool(op, "Delete a spreadsheet file", true, false,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
		)
	case spreadsheet.OpSetColumnFormat:
		return tool(op, "Format a column", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
			mcp.WithString("column", mcp.Required(), mcp.Description("Column letter (e.g., 'A')")),
			mcp.WithNumber("width", mcp.Description("Column width")),
		)
	case spreadsheet.OpSetRowFormat:
		return tool(op, "Format a row", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
			mcp.WithNumber("row", mcp.Required(), integer(), mcp.Min(1), mcp.Description("Row number")),
			mcp.WithNumber("height", mcp.Description("Row height")),
		)
	case spreadsheet.OpFormatCells:
		return tool(op, "Format a range of cells", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
			mcp.WithString("cell_range", mcp.Required(), mcp.Description("Cell range (e.g., 'A1:B10')")),
			mcp.WithBoolean("bold", mcp.DefaultBool(false)),
			mcp.WithBoolean("italic", mcp.DefaultBool(false)),
			mcp.WithString("bg_color", mcp.Description(colorDesc)),
			mcp.WithNumber("font_size", integer(), mcp.Description("Font size")),
		)
	case spreadsheet.OpSetCellFormat:
		return tool(op, "Format a single cell", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
			mcp.WithString("cell", mcp.Required(), mcp.Description("Cell reference")),
			mcp.WithBoolean("bold", mcp.DefaultBool(false)),
			mcp.WithBoolean("italic", mcp.DefaultBool(false)),
			mcp.WithString("bg_color", mcp.Description(colorDesc)),
		)
	case spreadsheet.OpCreateChart:
		return tool(op, "Create a chart in the spreadsheet", false, false,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
			mcp.WithString("chart_type", mcp.Required(), mcp.Description("Chart type (bar or pie)")),
			mcp.WithString("data_range", mcp.Required(), mcp.Description("Data range (e.g., 'A1:B10')")),
			mcp.WithString("title", mcp.DefaultString(config.DefaultChartTitle), mcp.Description("Chart title")),
			mcp.WithString("position", mcp.DefaultString(config.DefaultChartAnchor), mcp.Description("Anchor cell for the chart's top-left corner")),
		)
	case spreadsheet.OpFreezePanes:
		return tool(op, freezeDesc, false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
			mcp.WithString("cell", mcp.Required(), mcp.Description("Cell reference where to freeze (e.g., 'A2' for top row, 'B1' for first column, 'B2' for both)")),
		)
	case spreadsheet.OpUnfreezePanes:
		return tool(op, "Remove frozen panes from a sheet", false, true,
			mcp.WithString("filename", mcp.Required(), mcp.Description(fileDesc)),
			mcp.WithString("sheet", mcp.Required(), mcp.Description(sheetDesc)),
		)
	}
	return mcp.NewTool(op.String())
}
