package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
	"github.com/xuri/excelize/v2"
)

var (
	once sync.Once
	v    *validator.Validate
)

// Validator returns a shared validator with the spreadsheet rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// Report fields by their wire (json) names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// A1-style single cell, e.g. "B2".
		_ = v.RegisterValidation("a1cell", func(fl validator.FieldLevel) bool {
			return IsCell(fl.Field().String())
		})
		// A1-style inclusive range "A1:C10"; a lone cell is accepted as a 1x1 range.
		_ = v.RegisterValidation("a1range", func(fl validator.FieldLevel) bool {
			return IsRange(fl.Field().String())
		})
		// Range with an optional sheet prefix, e.g. "Data!A1:B5" or "'Q1 Sales'!A1:B5".
		_ = v.RegisterValidation("sheetrange", func(fl validator.FieldLevel) bool {
			_, rng := SplitSheetRange(fl.Field().String())
			return IsRange(rng)
		})
		// Column letters only, e.g. "A" or "AB".
		_ = v.RegisterValidation("colname", func(fl validator.FieldLevel) bool {
			_, err := excelize.ColumnNameToNumber(strings.TrimSpace(fl.Field().String()))
			return err == nil
		})
		_ = v.RegisterValidation("format", func(fl validator.FieldLevel) bool {
			switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
			case "xlsx", "csv":
				return true
			}
			return false
		})
		// Empty is allowed; pair with omitempty.
		_ = v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true
			}
			_, err := pagination.Decode(s)
			return err == nil
		})
	})
	return v
}

// IsCell reports whether s is a single A1-style reference.
func IsCell(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, ":") {
		return false
	}
	_, _, err := excelize.CellNameToCoordinates(s)
	return err == nil
}

// IsRange reports whether s is "TL:BR" (or a single cell) in A1 notation.
func IsRange(s string) bool {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 1:
		return IsCell(parts[0])
	case 2:
		return IsCell(parts[0]) && IsCell(parts[1])
	}
	return false
}

// SplitSheetRange separates an optional "Sheet!" prefix from a range. Quoted
// sheet names have their quotes removed.
func SplitSheetRange(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, "!")
	if i < 0 {
		return "", s
	}
	sheet := s[:i]
	if len(sheet) >= 2 && strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	return sheet, s[i+1:]
}

// ValidateStruct validates s and maps the first failure onto a VALIDATION
// (or CURSOR_INVALID) error. Returns nil when valid.
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return mcperr.Wrap(mcperr.Validation, err, "invalid inputs")
	}
	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return mcperr.Newf(mcperr.Validation, "%s is required", field)
	case "a1cell":
		return mcperr.Newf(mcperr.Validation, "invalid %s %q; use an A1-style reference like B2", field, fe.Value())
	case "a1range":
		return mcperr.Newf(mcperr.Validation, "invalid %s %q; use an A1-style range like A1:C10", field, fe.Value())
	case "sheetrange":
		return mcperr.Newf(mcperr.Validation, "invalid %s %q; use a range like A1:C10 or Sheet1!A1:C10", field, fe.Value())
	case "colname":
		return mcperr.Newf(mcperr.Validation, "invalid %s %q; use column letters like A or AB", field, fe.Value())
	case "format":
		return mcperr.Newf(mcperr.UnsupportedFormat, "Unsupported format: %v. Use 'xlsx' or 'csv'", fe.Value())
	case "cursor":
		return mcperr.New(mcperr.CursorInvalid, "failed to decode cursor; restart reading without it")
	case "oneof":
		return mcperr.Newf(mcperr.Validation, "%s must be one of: %s", field, fe.Param())
	case "min", "max", "gte", "lte", "gt":
		return mcperr.Newf(mcperr.Validation, "%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return mcperr.Newf(mcperr.Validation, "invalid %s", field)
}
