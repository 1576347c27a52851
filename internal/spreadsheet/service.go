package spreadsheet

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/security"
	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/vinodismyname/mcpsheets/pkg/validation"
)

// Service executes spreadsheet operations inside the sandboxed base
// directory. Each call loads what it needs, applies one change or query, and
// releases every handle before returning.
type Service struct {
	resolver *security.Resolver
	books    *workbooks.Manager
	readOnly bool
	log      zerolog.Logger
}

// NewService wires the operation layer. cfg supplies the read-only switch;
// the resolver and manager are built by the caller from the same config.
func NewService(cfg config.Config, resolver *security.Resolver, books *workbooks.Manager, log zerolog.Logger) *Service {
	return &Service{
		resolver: resolver,
		books:    books,
		readOnly: cfg.ReadOnly,
		log:      log.With().Str("component", "spreadsheet").Logger(),
	}
}

// ReadOnly reports whether mutating operations are rejected.
func (s *Service) ReadOnly() bool { return s.readOnly }

// Handle is the mcp-go tool handler for every spreadsheet tool. The result is
// serialized to JSON and returned as a single text content block.
func (s *Service) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.IOFailed, err, "encode result")
	}
	return mcp.NewToolResultText(string(b)), nil
}

// Call runs the tool named in req and returns its plain result object.
func (s *Service) Call(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	op := ParseOperation(req.Params.Name)
	if op == OpUnknown {
		return nil, mcperr.Newf(mcperr.UnknownTool, "Unknown tool: %s", req.Params.Name)
	}
	return s.Dispatch(ctx, op, req)
}

// Dispatch decodes the arguments for op and runs it.
func (s *Service) Dispatch(ctx context.Context, op Operation, req mcp.CallToolRequest) (any, error) {
	if s.readOnly && op.Mutating() {
		return nil, mcperr.Newf(mcperr.ReadOnly, "%s is disabled in read-only mode", op)
	}
	switch op {
	case OpListFiles:
		return run(ctx, req, ListFilesInput{Pattern: config.DefaultListPattern}, s.ListFiles)
	case OpListSheets:
		return run(ctx, req, ListSheetsInput{}, s.ListSheets)
	case OpCreateSpreadsheet:
		return run(ctx, req, CreateSpreadsheetInput{Format: config.DefaultFormat, SheetName: config.DefaultSheetName}, s.CreateSpreadsheet)
	case OpRenameFile:
		return run(ctx, req, RenameFileInput{}, s.RenameFile)
	case OpRenameSheet:
		return run(ctx, req, RenameSheetInput{}, s.RenameSheet)
	case OpReadSpreadsheet:
		return run(ctx, req, ReadSpreadsheetInput{}, s.ReadSpreadsheet)
	case OpWriteSpreadsheet:
		return run(ctx, req, WriteSpreadsheetInput{}, s.WriteSpreadsheet)
	case OpAppendRow:
		return run(ctx, req, AppendRowInput{}, s.AppendRow)
	case OpSetFormula:
		return run(ctx, req, SetFormulaInput{}, s.SetFormula)
	case OpGetFormula:
		return run(ctx, req, GetFormulaInput{}, s.GetFormula)
	case OpUpdateCell:
		return run(ctx, req, UpdateCellInput{}, s.UpdateCell)
	case OpDeleteSpreadsheet:
		return run(ctx, req, DeleteSpreadsheetInput{}, s.DeleteSpreadsheet)
	case OpSetColumnFormat:
		return run(ctx, req, SetColumnFormatInput{}, s.SetColumnFormat)
	case OpSetRowFormat:
		return run(ctx, req, SetRowFormatInput{}, s.SetRowFormat)
	case OpFormatCells:
		return run(ctx, req, FormatCellsInput{}, s.FormatCells)
	case OpSetCellFormat:
		return run(ctx, req, SetCellFormatInput{}, s.SetCellFormat)
	case OpCreateChart:
		return run(ctx, req, CreateChartInput{Title: config.DefaultChartTitle, Position: config.DefaultChartAnchor}, s.CreateChart)
	case OpFreezePanes:
		return run(ctx, req, FreezePanesInput{}, s.FreezePanes)
	case OpUnfreezePanes:
		return run(ctx, req, UnfreezePanesInput{}, s.UnfreezePanes)
	case OpUnknown:
	}
	return nil, mcperr.Newf(mcperr.UnknownTool, "Unknown tool: %s", op)
}

// run binds the request arguments over the defaults in in, validates them and
// invokes fn.
func run[In any, Out any](ctx context.Context, req mcp.CallToolRequest, in In, fn func(context.Context, In) (Out, error)) (any, error) {
	if err := req.BindArguments(&in); err != nil {
		var coded *mcperr.Error
		if errors.As(err, &coded) {
			return nil, coded
		}
		return nil, mcperr.Wrap(mcperr.Validation, err, "invalid arguments")
	}
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fn(ctx, in)
}
