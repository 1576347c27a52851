package spreadsheet

import (
	"context"
	"strings"

	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/vinodismyname/mcpsheets/pkg/validation"
	"github.com/xuri/excelize/v2"
)

var chartTypes = map[string]excelize.ChartType{
	"bar": excelize.Col,
	"pie": excelize.Pie,
}

// CreateChart builds a chart from a data range. The first row holds series
// titles; with two or more columns the first column holds the categories.
// The range may name another sheet ("Data!A1:C5"); the chart is anchored on
// the selected sheet at position.
func (s *Service) CreateChart(ctx context.Context, in CreateChartInput) (any, error) {
	t, err := s.openWorkbook(in.Filename, OpCreateChart)
	if err != nil {
		return nil, err
	}
	kind, ok := chartTypes[strings.ToLower(strings.TrimSpace(in.ChartType))]
	if !ok {
		return fail("Unsupported chart type"), nil
	}
	title := in.Title
	if title == "" {
		title = config.DefaultChartTitle
	}
	anchor := normalizeCell(in.Position)
	if anchor == "" {
		anchor = config.DefaultChartAnchor
	}

	err = s.books.WithWrite(ctx, t.path, func(f *excelize.File) error {
		sheet, err := in.Sheet.Resolve(f)
		if err != nil {
			return err
		}
		dataSheet, rng := validation.SplitSheetRange(in.DataRange)
		if dataSheet == "" {
			dataSheet = sheet
		} else if dataSheet, err = Sheet(dataSheet).Resolve(f); err != nil {
			return err
		}
		series, err := chartSeries(dataSheet, rng, kind)
		if err != nil {
			return err
		}
		return f.AddChart(sheet, anchor, &excelize.Chart{
			Type:   kind,
			Series: series,
			Title:  []excelize.RichTextRun{{Text: title}},
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("file", t.rel).Str("type", in.ChartType).Str("range", in.DataRange).Msg("created chart")
	return CreateChartResult{Success: true, ChartType: in.ChartType}, nil
}

// chartSeries splits rng into one series per value column. Pie charts take
// the first series only.
func chartSeries(sheet, rng string, kind excelize.ChartType) ([]excelize.ChartSeries, error) {
	c1, r1, c2, r2, err := rangeBounds(rng)
	if err != nil {
		return nil, err
	}
	if r2 <= r1 {
		return nil, mcperr.Newf(mcperr.Validation, "data_range %s needs a title row and at least one data row", rng)
	}
	var categories string
	first := c1
	if c2 > c1 {
		if categories, err = columnRef(sheet, c1, r1+1, r2); err != nil {
			return nil, err
		}
		first = c1 + 1
	}
	var out []excelize.ChartSeries
	for c := first; c <= c2; c++ {
		name, err := absCell(c, r1)
		if err != nil {
			return nil, err
		}
		values, err := columnRef(sheet, c, r1+1, r2)
		if err != nil {
			return nil, err
		}
		out = append(out, excelize.ChartSeries{
			Name:       quoteSheet(sheet) + "!" + name,
			Categories: categories,
			Values:     values,
		})
		if kind == excelize.Pie {
			break
		}
	}
	return out, nil
}

// columnRef returns the absolute reference of rows from..to in column col.
func columnRef(sheet string, col, from, to int) (string, error) {
	top, err := absCell(col, from)
	if err != nil {
		return "", err
	}
	bottom, err := absCell(col, to)
	if err != nil {
		return "", err
	}
	return quoteSheet(sheet) + "!" + top + ":" + bottom, nil
}

func absCell(col, row int) (string, error) {
	return excelize.CoordinatesToCellName(col, row, true)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
