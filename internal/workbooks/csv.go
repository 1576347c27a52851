package workbooks

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// ReadCSV loads every record of the CSV file at path. Records may differ in
// length.
func (m *Manager) ReadCSV(ctx context.Context, path string) ([][]string, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, mcperr.Newf(mcperr.NotFound, "File not found: %s", filepath.Base(path))
		}
		return nil, mcperr.Wrap(mcperr.IOFailed, err, "open csv")
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, mcperr.Wrap(mcperr.IOFailed, err, "parse csv")
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteCSV replaces the file at path with rows.
func (m *Manager) WriteCSV(ctx context.Context, path string, rows [][]string) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(path, func(w *os.File) error {
		return encodeCSV(w, rows)
	})
}

// AppendCSV adds rows after the existing content of path. The combined file
// is written atomically, so a failed append leaves the original intact.
func (m *Manager) AppendCSV(ctx context.Context, path string, rows [][]string) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	existing, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mcperr.Newf(mcperr.NotFound, "File not found: %s", filepath.Base(path))
		}
		return mcperr.Wrap(mcperr.IOFailed, err, "read csv")
	}
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		existing = append(existing, '\r', '\n')
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(path, func(w *os.File) error {
		if _, err := w.Write(existing); err != nil {
			return err
		}
		return encodeCSV(w, rows)
	})
}

func encodeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	// Match the line terminator spreadsheet tools emit.
	cw.UseCRLF = true
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
