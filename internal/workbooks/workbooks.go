package workbooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// Format identifies how a file on disk is loaded.
type Format int

const (
	FormatXLSX Format = iota + 1
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string { return "." + f.String() }

// ParseFormat maps a user-supplied format name onto a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return 0, mcperr.Newf(mcperr.UnsupportedFormat, "Unsupported format: %s. Use 'xlsx' or 'csv'", name)
	}
}

// FormatFromPath picks the loader from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return 0, mcperr.New(mcperr.UnsupportedFormat, "Unsupported format")
	}
}

// WorkbookGate coordinates capacity for open workbook handles (backed by runtime.Controller).
type WorkbookGate interface {
	AcquireWorkbook(ctx context.Context) error
	ReleaseWorkbook()
}

// Manager scopes every workbook to a single call: it opens, hands the file to
// a callback, persists when asked to, and always closes before returning.
// No document outlives the call that loaded it.
type Manager struct {
	gate WorkbookGate
}

// NewManager constructs a Manager. Gate can be nil for tests.
func NewManager(gate WorkbookGate) *Manager {
	return &Manager{gate: gate}
}

// WithRead opens the workbook at path and runs fn against it.
func (m *Manager) WithRead(ctx context.Context, path string, fn func(*excelize.File) error) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	f, err := open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return fn(f)
}

// WithWrite opens the workbook, runs fn, and saves atomically when fn
// succeeds. If fn or the save fails, the file on disk is left as it was.
func (m *Manager) WithWrite(ctx context.Context, path string, fn func(*excelize.File) error) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	f, err := open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := fn(f); err != nil {
		return err
	}
	return saveAtomic(ctx, f, path)
}

// Create builds a fresh workbook, lets fn shape it, and saves it to path.
// The single default sheet is named "Sheet1" until fn renames it.
func (m *Manager) Create(ctx context.Context, path string, fn func(*excelize.File) error) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if fn != nil {
		if err := fn(f); err != nil {
			return err
		}
	}
	return saveAtomic(ctx, f, path)
}

func open(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, mcperr.Newf(mcperr.NotFound, "File not found: %s", filepath.Base(path))
		}
		return nil, mcperr.Wrap(mcperr.IOFailed, err, "open workbook")
	}
	return f, nil
}

// saveAtomic serializes f into a sibling temp file and renames it over path.
func saveAtomic(ctx context.Context, f *excelize.File, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(path, func(w *os.File) error {
		return f.Write(w)
	})
}

// writeAtomic creates `.<name>.<uuid>.tmp` next to path, lets write fill it,
// syncs, and renames it into place. The temp file is removed on any failure.
func writeAtomic(path string, write func(*os.File) error) (err error) {
	dir, name := filepath.Split(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", name, uuid.NewString()))

	w, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return mcperr.Wrap(mcperr.IOFailed, err, "create temp file")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err = write(w); err != nil {
		_ = w.Close()
		return mcperr.Wrap(mcperr.IOFailed, err, "write "+name)
	}
	if err = w.Sync(); err != nil {
		_ = w.Close()
		return mcperr.Wrap(mcperr.IOFailed, err, "sync "+name)
	}
	if err = w.Close(); err != nil {
		return mcperr.Wrap(mcperr.IOFailed, err, "close "+name)
	}
	if err = os.Rename(tmp, path); err != nil {
		return mcperr.Wrap(mcperr.IOFailed, err, "rename into "+name)
	}
	return nil
}

func (m *Manager) acquire(ctx context.Context) error {
	if m.gate == nil {
		return nil
	}
	return m.gate.AcquireWorkbook(ctx)
}

func (m *Manager) release() {
	if m.gate == nil {
		return
	}
	m.gate.ReleaseWorkbook()
}
