package crossnet

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ImportRow is a single cross section to be imported: name, location and case-insensitive type name
type ImportRow struct {
	Name string
	X    float64
	Y    float64
	Type string

	// Line number in source file (1-based). Zero for rows built in code
	line int
	err  error
}

// ParseImportRows reads ';'-separated rows 'name;x;y;type'. Header row (first field 'name') is skipped.
// Rows with malformed coordinates are kept and rejected later by ImportBulk; only malformed CSV fails the whole read
func ParseImportRows(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows := []ImportRow{}
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "Can't read import rows")
		}
		line++
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}
		row := ImportRow{line: line}
		if len(record) != 4 {
			row.err = errors.Errorf("Line %d: expected 4 fields, got %d", line, len(record))
			rows = append(rows, row)
			continue
		}
		row.Name = strings.TrimSpace(record[0])
		row.Type = strings.TrimSpace(record[3])
		row.X, err = strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			row.err = errors.Wrapf(err, "Line %d: bad x", line)
		}
		row.Y, err = strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil && row.err == nil {
			row.err = errors.Wrapf(err, "Line %d: bad y", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// EuclideanRows converts rows given in WGS84 (x == lon, y == lat) to EPSG:3857 used by networks read from OSM
func EuclideanRows(rows []ImportRow) []ImportRow {
	result := make([]ImportRow, len(rows))
	for i, row := range rows {
		result[i] = row
		if row.err != nil {
			continue
		}
		pt := pointToEuclidean(orb.Point{row.X, row.Y})
		result[i].X, result[i].Y = pt.X(), pt.Y()
	}
	return result
}

// ImportBulk creates cross section for every row. Failing rows are counted as rejected and do not abort the batch.
// Context is checked before each row; on cancellation counts so far are returned along with the context error
func (svc *PlacementService) ImportBulk(ctx context.Context, rows []ImportRow) (accepted int, rejected int, err error) {
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			svc.logger.Warn("bulk import cancelled", "processed", i, "total", len(rows))
			return accepted, rejected, err
		}
		if rowErr := svc.importRow(ctx, row); rowErr != nil {
			rejected++
			svc.metrics.importRows.WithLabelValues("rejected").Inc()
			svc.logger.Info("import row rejected", "row", i+1, "line", row.line, "name", row.Name, "error", rowErr)
			continue
		}
		accepted++
		svc.metrics.importRows.WithLabelValues("accepted").Inc()
	}
	svc.logger.Info("bulk import done", "accepted", accepted, "rejected", rejected)
	return accepted, rejected, nil
}

func (svc *PlacementService) importRow(ctx context.Context, row ImportRow) error {
	if row.err != nil {
		return row.err
	}
	csType, err := ParseCrossSectionType(row.Type)
	if err != nil {
		return err
	}
	_, err = svc.Create(ctx, row.Name, orb.Point{row.X, row.Y}, csType)
	return err
}
