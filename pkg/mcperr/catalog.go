package mcperr

import (
	"errors"
	"fmt"
	"strings"
)

// Code defines a canonical error code used across tools.
type Code string

const (
	// Security
	PathTraversal Code = "PATH_TRAVERSAL"
	ReadOnly      Code = "READ_ONLY"

	// Validation & Input
	Validation    Code = "VALIDATION"
	UnknownTool   Code = "UNKNOWN_TOOL"
	InvalidColor  Code = "INVALID_COLOR"
	CursorInvalid Code = "CURSOR_INVALID"

	// Files & Sheets
	NotFound      Code = "NOT_FOUND"
	AlreadyExists Code = "ALREADY_EXISTS"

	// Formats
	UnsupportedFormat    Code = "UNSUPPORTED_FORMAT"
	UnsupportedChartType Code = "UNSUPPORTED_CHART_TYPE"

	// IO
	IOFailed Code = "IO_FAILED"
	Timeout  Code = "TIMEOUT"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	PathTraversal: {Code: PathTraversal, Message: "Path traversal not allowed", Retryable: false, NextSteps: []string{"Use a filename relative to the base directory", "Remove '..' segments and absolute prefixes"}},
	ReadOnly:      {Code: ReadOnly, Message: "server is running in read-only mode", Retryable: false, NextSteps: []string{"Use read tools only or restart without --read-only"}},

	Validation:    {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry"}},
	UnknownTool:   {Code: UnknownTool, Message: "unknown tool", Retryable: false, NextSteps: []string{"Call tools/list to discover tool names"}},
	InvalidColor:  {Code: InvalidColor, Message: "Invalid color format. Use #RRGGBB or AARRGGBB", Retryable: true, NextSteps: []string{"Pass 6 hex digits (#00FF00) or 8 hex digits (FF00FF00)"}},
	CursorInvalid: {Code: CursorInvalid, Message: "cursor is invalid for current file", Retryable: true, NextSteps: []string{"Restart reading without a cursor"}},

	NotFound:      {Code: NotFound, Message: "not found", Retryable: true, NextSteps: []string{"Call list_files or list_sheets to verify names", "Check case and spacing"}},
	AlreadyExists: {Code: AlreadyExists, Message: "already exists", Retryable: true, NextSteps: []string{"Choose a different name or delete the existing file first"}},

	UnsupportedFormat:    {Code: UnsupportedFormat, Message: "Unsupported format. Use 'xlsx' or 'csv'", Retryable: false, NextSteps: []string{"Use a .xlsx or .csv file"}},
	UnsupportedChartType: {Code: UnsupportedChartType, Message: "Unsupported chart type", Retryable: true, NextSteps: []string{"Use chart_type 'bar' or 'pie'"}},

	IOFailed: {Code: IOFailed, Message: "file operation failed", Retryable: true, NextSteps: []string{"Verify permissions and that the file is a valid workbook"}},
	Timeout:  {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Narrow the operation or raise the timeout"}},
}

// Error is a coded failure raised by an operation. The dispatcher turns it
// into a JSON-RPC error envelope whose message is Error().
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error returns the human message. The code travels in the envelope data.
func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		if entry, ok := catalog[e.Code]; ok {
			msg = entry.Message
		} else {
			msg = string(e.Code)
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code, so sentinels such as
// ErrNotFound work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrPathTraversal        = &Error{Code: PathTraversal}
	ErrNotFound             = &Error{Code: NotFound}
	ErrAlreadyExists        = &Error{Code: AlreadyExists}
	ErrUnsupportedFormat    = &Error{Code: UnsupportedFormat}
	ErrUnsupportedChartType = &Error{Code: UnsupportedChartType}
	ErrInvalidColor         = &Error{Code: InvalidColor}
	ErrValidation           = &Error{Code: Validation}
	ErrUnknownTool          = &Error{Code: UnknownTool}
	ErrReadOnly             = &Error{Code: ReadOnly}
	ErrCursorInvalid        = &Error{Code: CursorInvalid}
	ErrTimeout              = &Error{Code: Timeout}
)

// New returns a coded error with a message override.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf formats the message for the code.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a coded error.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Details is the structured payload attached to JSON-RPC error responses.
type Details struct {
	Code      Code     `json:"code"`
	Retryable bool     `json:"retryable"`
	NextSteps []string `json:"nextSteps,omitempty"`
}

// CodeOf extracts the code of err, defaulting to IOFailed for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return IOFailed
}

// DetailsOf returns catalog guidance for err.
func DetailsOf(err error) Details {
	code := CodeOf(err)
	entry, ok := catalog[code]
	if !ok {
		return Details{Code: code}
	}
	return Details{Code: code, Retryable: entry.Retryable, NextSteps: entry.NextSteps}
}

// IsInvalidSheet reports whether err is excelize's "sheet X does not exist".
// Coded errors never match, so an existing NOT_FOUND for a file is left alone.
func IsInvalidSheet(err error) bool {
	var e *Error
	if err == nil || errors.As(err, &e) {
		return false
	}
	low := strings.ToLower(err.Error())
	return strings.HasPrefix(low, "sheet ") && (strings.HasSuffix(low, " does not exist") || strings.HasSuffix(low, " doesn't exist"))
}
