package spreadsheet

import "errors"

// --- Inputs ---

type ListFilesInput struct {
	Pattern string `json:"pattern"`
}

type ListSheetsInput struct {
	Filename string `json:"filename" validate:"required"`
}

type CreateSpreadsheetInput struct {
	Filename  string   `json:"filename" validate:"required"`
	Format    string   `json:"format" validate:"format"`
	Headers   []string `json:"headers"`
	SheetName string   `json:"sheet_name"`
}

type RenameFileInput struct {
	OldFilename string `json:"old_filename" validate:"required"`
	NewFilename string `json:"new_filename" validate:"required"`
}

type RenameSheetInput struct {
	Filename string `json:"filename" validate:"required"`
	OldSheet string `json:"old_sheet" validate:"required"`
	NewSheet string `json:"new_sheet" validate:"required"`
}

type ReadSpreadsheetInput struct {
	Filename string        `json:"filename" validate:"required"`
	Sheet    SheetSelector `json:"sheet"`
	MaxRows  int           `json:"max_rows" validate:"gte=0"`
	Cursor   string        `json:"cursor" validate:"omitempty,cursor"`
}

type WriteSpreadsheetInput struct {
	Filename string        `json:"filename" validate:"required"`
	Data     [][]CellValue `json:"data" validate:"required"`
	Sheet    SheetSelector `json:"sheet"`
	Append   bool          `json:"append"`
}

type AppendRowInput struct {
	Filename string        `json:"filename" validate:"required"`
	RowData  []CellValue   `json:"row_data" validate:"required"`
	Sheet    SheetSelector `json:"sheet"`
}

type SetFormulaInput struct {
	Filename string        `json:"filename" validate:"required"`
	Sheet    SheetSelector `json:"sheet"`
	Cell     string        `json:"cell" validate:"required,a1cell"`
	Formula  string        `json:"formula" validate:"required"`
}

type GetFormulaInput struct {
	Filename string        `json:"filename" validate:"required"`
	Sheet    SheetSelector `json:"sheet"`
	Cell     string        `json:"cell" validate:"required,a1cell"`
}

type UpdateCellInput struct {
	Filename string        `json:"filename" validate:"required"`
	Sheet    SheetSelector `json:"sheet"`
	Cell     string        `json:"cell" validate:"required,a1cell"`
	Value    CellValue     `json:"value"`
}

type DeleteSpreadsheetInput struct {
	Filename string `json:"filename" validate:"required"`
}

type SetColumnFormatInput struct {
	Filename string        `json:"filename" validate:"required"`
	Sheet    SheetSelector `json:"sheet"`
	Column   string        `json:"column" validate:"required,colname"`
	Width    *float64      `json:"width" validate:"omitempty,gte=0,lte=255"`
}

type SetRowFormatInput struct {
	Filename string        `json:"filename" validate:"required"`
	Sheet    SheetSelector `json:"sheet"`
	Row      int           `json:"row" validate:"required,gte=1,lte=1048576"`
	Height   *float64      `json:"height" validate:"omitempty,gte=0,lte=409"`
}

type FormatCellsInput struct {
	Filename  string        `json:"filename" validate:"required"`
	Sheet     SheetSelector `json:"sheet"`
	CellRange string        `json:"cell_range" validate:"required,a1range"`
	Bold      bool          `json:"bold"`
	Italic    bool          `json:"italic"`
	BgColor   string        `json:"bg_color"`
	FontSize  *float64      `json:"font_size" validate:"omitempty,gt=0,lte=409"`
}

type SetCellFormatInput struct {
	Filename string        `json:"filename" validate:"required"`
	Sheet    SheetSelector `json:"sheet"`
	Cell     string        `json:"cell" validate:"required,a1cell"`
	Bold     bool          `json:"bold"`
	Italic   bool          `json:"italic"`
	BgColor  string        `json:"bg_color"`
}

type CreateChartInput struct {
	Filename  string        `json:"filename" validate:"required"`
	Sheet     SheetSelector `json:"sheet"`
	ChartType string        `json:"chart_type" validate:"required"`
	DataRange string        `json:"data_range" validate:"required,sheetrange"`
	Title     string        `json:"title"`
	Position  string        `json:"position" validate:"omitempty,a1cell"`
}

type FreezePanesInput struct {
	Filename string `json:"filename" validate:"required"`
	Sheet    string `json:"sheet" validate:"required"`
	Cell     string `json:"cell" validate:"required,a1cell"`
}

type UnfreezePanesInput struct {
	Filename string `json:"filename" validate:"required"`
	Sheet    string `json:"sheet" validate:"required"`
}

// --- Results ---

// Failure is the business-rule rejection object. It is a successful
// response, not a protocol error.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(msg string) Failure {
	return Failure{Success: false, Error: msg}
}

// rejection aborts a workbook edit without saving. The operation turns it
// into a Failure object.
type rejection struct{ msg string }

func (r *rejection) Error() string { return r.msg }

func reject(msg string) error { return &rejection{msg: msg} }

// asFailure reports whether err is a rejection and returns its Failure.
func asFailure(err error) (Failure, bool) {
	var r *rejection
	if errors.As(err, &r) {
		return fail(r.msg), true
	}
	return Failure{}, false
}

type FileInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

type ListFilesResult struct {
	Success bool       `json:"success"`
	Files   []FileInfo `json:"files"`
	Count   int        `json:"count"`
}

type SheetInfo struct {
	Name       string `json:"name"`
	Index      int    `json:"index"`
	Rows       int    `json:"rows"`
	Columns    int    `json:"columns"`
	FrozenCell string `json:"frozen_cell,omitempty"`
}

type ListSheetsResult struct {
	Success     bool        `json:"success"`
	Sheets      []SheetInfo `json:"sheets"`
	ActiveSheet string      `json:"active_sheet"`
}

type CreateXLSXResult struct {
	Success           bool    `json:"success"`
	Filename          string  `json:"filename"`
	Path              string  `json:"path"`
	SheetName         string  `json:"sheet_name"`
	OriginalSheetName *string `json:"original_sheet_name"`
}

type CreateCSVResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type RenameFileResult struct {
	Success bool   `json:"success"`
	Old     string `json:"old"`
	New     string `json:"new"`
}

type RenameSheetResult struct {
	Success bool   `json:"success"`
	File    string `json:"file"`
	Sheet   string `json:"sheet"`
}

type ReadSpreadsheetResult struct {
	Success    bool    `json:"success"`
	Data       [][]any `json:"data"`
	SheetName  string  `json:"sheet_name,omitempty"`
	Rows       int     `json:"rows"`
	Columns    int     `json:"columns"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

type WriteSpreadsheetResult struct {
	Success     bool   `json:"success"`
	RowsWritten int    `json:"rows_written"`
	Sheet       string `json:"sheet,omitempty"`
}

type AppendRowResult struct {
	Success   bool `json:"success"`
	RowNumber int  `json:"row_number,omitempty"`
}

type SetFormulaResult struct {
	Success bool   `json:"success"`
	Cell    string `json:"cell"`
	Formula string `json:"formula"`
}

type GetFormulaResult struct {
	Success        bool   `json:"success"`
	Cell           string `json:"cell"`
	FormulaOrValue any    `json:"formula_or_value"`
}

type UpdateCellResult struct {
	Success bool      `json:"success"`
	Cell    string    `json:"cell"`
	Value   CellValue `json:"value"`
}

type DeleteSpreadsheetResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
}

type ColumnFormatResult struct {
	Success bool   `json:"success"`
	Column  string `json:"column"`
}

type RowFormatResult struct {
	Success bool `json:"success"`
	Row     int  `json:"row"`
}

type FormatCellsResult struct {
	Success bool   `json:"success"`
	Range   string `json:"range"`
}

type CellFormatResult struct {
	Success bool   `json:"success"`
	Cell    string `json:"cell"`
}

type CreateChartResult struct {
	Success   bool   `json:"success"`
	ChartType string `json:"chart_type"`
}

type FreezePanesResult struct {
	Success    bool   `json:"success"`
	Sheet      string `json:"sheet"`
	FreezeCell string `json:"freeze_cell"`
	Message    string `json:"message"`
}

type UnfreezePanesResult struct {
	Success bool   `json:"success"`
	Sheet   string `json:"sheet"`
	Message string `json:"message"`
}
