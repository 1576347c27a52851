package workbooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// fakeGate implements WorkbookGate for tests with counters.
type fakeGate struct {
	acquireErr error
	acquires   atomic.Int64
	releases   atomic.Int64
}

func (g *fakeGate) AcquireWorkbook(ctx context.Context) error {
	g.acquires.Add(1)
	return g.acquireErr
}
func (g *fakeGate) ReleaseWorkbook() { g.releases.Add(1) }

func tempEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var tmp []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			tmp = append(tmp, e.Name())
		}
	}
	return tmp
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("a/b/Report.XLSX")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)

	f, err = FormatFromPath("data.csv")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)

	_, err = FormatFromPath("notes.txt")
	require.ErrorIs(t, err, mcperr.ErrUnsupportedFormat)

	_, err = ParseFormat("ods")
	require.ErrorIs(t, err, mcperr.ErrUnsupportedFormat)
	require.Equal(t, ".csv", FormatCSV.Ext())
}

func TestCreateThenRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")
	gate := &fakeGate{}
	m := NewManager(gate)
	ctx := context.Background()

	err := m.Create(ctx, path, func(f *excelize.File) error {
		return f.SetCellValue("Sheet1", "A1", "hello")
	})
	require.NoError(t, err)
	require.Empty(t, tempEntries(t, dir))

	var got string
	err = m.WithRead(ctx, path, func(f *excelize.File) error {
		var err error
		got, err = f.GetCellValue("Sheet1", "A1")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "hello", got)
	require.Equal(t, int64(2), gate.acquires.Load())
	require.Equal(t, int64(2), gate.releases.Load())
}

func TestWithWrite_FailureLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")
	m := NewManager(nil)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, path, nil))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = m.WithWrite(ctx, path, func(f *excelize.File) error {
		if err := f.SetCellValue("Sheet1", "A1", "changed"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Empty(t, tempEntries(t, dir))
}

func TestWithWrite_Persists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")
	m := NewManager(nil)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, path, nil))

	require.NoError(t, m.WithWrite(ctx, path, func(f *excelize.File) error {
		return f.SetCellFormula("Sheet1", "B2", "=SUM(A1:A3)")
	}))

	require.NoError(t, m.WithRead(ctx, path, func(f *excelize.File) error {
		formula, err := f.GetCellFormula("Sheet1", "B2")
		require.NoError(t, err)
		require.Equal(t, "SUM(A1:A3)", strings.TrimPrefix(formula, "="))
		return nil
	}))
	require.Empty(t, tempEntries(t, dir))
}

func TestWithRead_Missing(t *testing.T) {
	m := NewManager(nil)
	err := m.WithRead(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), func(*excelize.File) error {
		t.Fatal("callback should not run")
		return nil
	})
	require.ErrorIs(t, err, mcperr.ErrNotFound)
}

func TestGateErrorStopsOpen(t *testing.T) {
	gate := &fakeGate{acquireErr: context.DeadlineExceeded}
	m := NewManager(gate)
	err := m.Create(context.Background(), filepath.Join(t.TempDir(), "x.xlsx"), nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, int64(0), gate.releases.Load())
}

func TestCSVWriteAppendRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	m := NewManager(nil)
	ctx := context.Background()

	require.NoError(t, m.WriteCSV(ctx, path, [][]string{{"name", "qty"}, {"apple", "3"}}))
	require.NoError(t, m.AppendCSV(ctx, path, [][]string{{"pear", "1,5"}}))

	rows, err := m.ReadCSV(ctx, path)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"name", "qty"}, {"apple", "3"}, {"pear", "1,5"}}, rows)

	require.NoError(t, m.WriteCSV(ctx, path, [][]string{{"only"}}))
	rows, err = m.ReadCSV(ctx, path)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"only"}}, rows)
	require.Empty(t, tempEntries(t, dir))
}

func TestCSVEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	m := NewManager(nil)
	ctx := context.Background()

	require.NoError(t, m.WriteCSV(ctx, path, nil))
	rows, err := m.ReadCSV(ctx, path)
	require.NoError(t, err)
	require.Empty(t, rows)

	_, err = m.ReadCSV(ctx, filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, mcperr.ErrNotFound)
	err = m.AppendCSV(ctx, filepath.Join(dir, "missing.csv"), [][]string{{"x"}})
	require.ErrorIs(t, err, mcperr.ErrNotFound)
}

func TestAppendCSV_AddsMissingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b"), 0o644))

	m := NewManager(nil)
	require.NoError(t, m.AppendCSV(context.Background(), path, [][]string{{"c", "d"}}))
	rows, err := m.ReadCSV(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, rows)
}
