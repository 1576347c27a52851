package spreadsheet

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// ListFiles enumerates .xlsx and .csv files under the base directory whose
// base-relative path matches the glob pattern. Patterns without a '/' only
// look at the top level; "**" crosses directories.
func (s *Service) ListFiles(ctx context.Context, in ListFilesInput) (ListFilesResult, error) {
	pattern := strings.TrimSpace(in.Pattern)
	if pattern == "" {
		pattern = config.DefaultListPattern
	}
	if filepath.IsAbs(pattern) || strings.HasPrefix(pattern, "/") {
		return ListFilesResult{}, mcperr.ErrPathTraversal
	}
	for _, seg := range strings.Split(filepath.ToSlash(pattern), "/") {
		if seg == ".." {
			return ListFilesResult{}, mcperr.ErrPathTraversal
		}
	}

	matchers, err := compilePattern(filepath.ToSlash(pattern))
	if err != nil {
		return ListFilesResult{}, err
	}
	recursive := strings.Contains(pattern, "/") || strings.Contains(pattern, "**")

	base := s.resolver.Base()
	files := []FileInfo{}
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != base && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".xlsx" && ext != ".csv" {
			return nil
		}
		rel, err := s.resolver.Rel(p)
		if err != nil {
			return err
		}
		if !matchAny(matchers, rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, FileInfo{Name: d.Name(), Path: rel, Size: info.Size(), Type: ext})
		return nil
	})
	if err != nil {
		return ListFilesResult{}, mcperr.Wrap(mcperr.IOFailed, err, "list files")
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return ListFilesResult{Success: true, Files: files, Count: len(files)}, nil
}

// compilePattern builds the glob matchers for pattern. A leading "**/" also
// matches files at the top level.
func compilePattern(pattern string) ([]glob.Glob, error) {
	patterns := []string{pattern}
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok && rest != "" {
		patterns = append(patterns, rest)
	}
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, mcperr.Wrap(mcperr.Validation, err, "invalid pattern "+pattern)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(gs []glob.Glob, s string) bool {
	for _, g := range gs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// CreateSpreadsheet creates a new workbook or CSV file. An existing target is
// reported as a failure object and left untouched.
func (s *Service) CreateSpreadsheet(ctx context.Context, in CreateSpreadsheetInput) (any, error) {
	format, err := workbooks.ParseFormat(in.Format)
	if err != nil {
		return nil, err
	}
	filename := strings.TrimSpace(in.Filename)
	if !strings.HasSuffix(strings.ToLower(filename), format.Ext()) {
		filename += format.Ext()
	}
	target, err := s.resolver.Resolve(filename, false)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(target); err == nil {
		return fail("File " + filename + " already exists"), nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, mcperr.Wrap(mcperr.IOFailed, err, "stat "+filename)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, mcperr.Wrap(mcperr.IOFailed, err, "create directory")
	}

	if format == workbooks.FormatCSV {
		var rows [][]string
		if len(in.Headers) > 0 {
			rows = [][]string{in.Headers}
		}
		if err := s.books.WriteCSV(ctx, target, rows); err != nil {
			return nil, err
		}
		s.log.Debug().Str("path", target).Msg("created csv")
		return CreateCSVResult{Success: true, Filename: filename, Path: target}, nil
	}

	requested := strings.TrimSpace(in.SheetName)
	sheet := sanitizeSheetName(requested, config.DefaultSheetName)
	err = s.books.Create(ctx, target, func(f *excelize.File) error {
		if sheet != config.DefaultSheetName {
			if err := f.SetSheetName(config.DefaultSheetName, sheet); err != nil {
				return err
			}
		}
		if len(in.Headers) == 0 {
			return nil
		}
		return writeHeader(f, sheet, in.Headers)
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("path", target).Str("sheet", sheet).Msg("created workbook")

	res := CreateXLSXResult{Success: true, Filename: filename, Path: target, SheetName: sheet}
	if requested != "" && requested != sheet {
		res.OriginalSheetName = &requested
	}
	return res, nil
}

// writeHeader writes headers into row 1 and makes them bold.
func writeHeader(f *excelize.File, sheet string, headers []string) error {
	vals := make([]CellValue, len(headers))
	for i, h := range headers {
		vals[i] = CellValue{V: h}
	}
	if err := writeRow(f, sheet, 1, vals); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// RenameFile moves a file to a new name inside the base directory. An
// existing target is reported as a failure object.
func (s *Service) RenameFile(ctx context.Context, in RenameFileInput) (any, error) {
	oldPath, err := s.resolver.Resolve(in.OldFilename, true)
	if err != nil {
		return nil, err
	}
	newPath, err := s.resolver.Resolve(in.NewFilename, false)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(newPath); err == nil {
		return fail("Target filename already exists"), nil
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return nil, mcperr.Wrap(mcperr.IOFailed, err, "rename file")
	}
	s.log.Debug().Str("from", oldPath).Str("to", newPath).Msg("renamed file")
	return RenameFileResult{Success: true, Old: filepath.Base(oldPath), New: filepath.Base(newPath)}, nil
}

// DeleteSpreadsheet removes a file.
func (s *Service) DeleteSpreadsheet(ctx context.Context, in DeleteSpreadsheetInput) (DeleteSpreadsheetResult, error) {
	target, err := s.resolver.Resolve(in.Filename, true)
	if err != nil {
		return DeleteSpreadsheetResult{}, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return DeleteSpreadsheetResult{}, mcperr.Wrap(mcperr.IOFailed, err, "stat "+in.Filename)
	}
	if info.IsDir() {
		return DeleteSpreadsheetResult{}, mcperr.Newf(mcperr.Validation, "%s is a directory", in.Filename)
	}
	if err := os.Remove(target); err != nil {
		return DeleteSpreadsheetResult{}, mcperr.Wrap(mcperr.IOFailed, err, "delete file")
	}
	s.log.Debug().Str("path", target).Msg("deleted file")
	return DeleteSpreadsheetResult{Success: true, Filename: in.Filename}, nil
}
