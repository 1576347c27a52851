package spreadsheet

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// SheetSelector names the sheet an operation targets. The zero value selects
// the workbook's active sheet.
type SheetSelector struct {
	Name string
}

// Sheet selects a sheet by name.
func Sheet(name string) SheetSelector { return SheetSelector{Name: name} }

// Active selects the active sheet.
func Active() SheetSelector { return SheetSelector{} }

func (s *SheetSelector) UnmarshalJSON(b []byte) error {
	var name *string
	if err := json.Unmarshal(b, &name); err != nil {
		return mcperr.New(mcperr.Validation, "sheet must be a string")
	}
	s.Name = ""
	if name != nil {
		s.Name = strings.TrimSpace(*name)
	}
	return nil
}

func (s SheetSelector) MarshalJSON() ([]byte, error) {
	if s.IsActive() {
		return []byte("null"), nil
	}
	return json.Marshal(s.Name)
}

// IsActive reports whether the selector defers to the active sheet.
func (s SheetSelector) IsActive() bool { return s.Name == "" }

// Resolve returns the concrete sheet name in f, or NOT_FOUND when a named
// sheet is absent.
func (s SheetSelector) Resolve(f *excelize.File) (string, error) {
	if s.IsActive() {
		name := f.GetSheetName(f.GetActiveSheetIndex())
		if name == "" {
			// Active index can point at a removed sheet; fall back to the first.
			if list := f.GetSheetList(); len(list) > 0 {
				return list[0], nil
			}
			return "", mcperr.New(mcperr.NotFound, "Workbook has no sheets")
		}
		return name, nil
	}
	name, ok := lookupSheet(f, s.Name)
	if !ok {
		return "", sheetNotFound(s.Name)
	}
	return name, nil
}

// lookupSheet finds name in f and returns the stored spelling. Sheet names
// compare case-insensitively, as in excelize.
func lookupSheet(f *excelize.File, name string) (string, bool) {
	for _, candidate := range f.GetSheetList() {
		if candidate == name {
			return candidate, true
		}
	}
	for _, candidate := range f.GetSheetList() {
		if strings.EqualFold(candidate, name) {
			return candidate, true
		}
	}
	return "", false
}

func sheetNotFound(name string) error {
	return mcperr.Newf(mcperr.NotFound, "Sheet %s not found", name)
}

// sheetError turns excelize's missing-sheet failure into NOT_FOUND.
func sheetError(name string, err error) error {
	if mcperr.IsInvalidSheet(err) {
		return sheetNotFound(name)
	}
	return err
}

// sanitizeSheetName makes name acceptable to excelize: invalid characters are
// dropped, surrounding apostrophes trimmed, and the result capped at 31
// characters. An empty result falls back to def.
func sanitizeSheetName(name, def string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if utf8.RuneCountInString(name) > excelize.MaxSheetNameLength {
		name = string([]rune(name)[:excelize.MaxSheetNameLength])
	}
	if name == "" {
		return def
	}
	return name
}
