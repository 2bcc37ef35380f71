// Package dataset loads the training CSV and splits it into the feature
// table and label vector.
package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

// ctxCheckInterval is how many rows are read between cancellation checks.
const ctxCheckInterval = 4096

// Dataset is a fully loaded CSV file.
type Dataset struct {
	Path    string
	Columns []string
	Records []table.Record
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Records) }

// Table returns the dataset as a table with the file's column order.
func (d *Dataset) Table() *table.Table {
	return table.FromRecords(d.Columns, d.Records)
}

// Path returns the configured training file path.
func Path(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DatasetDir, cfg.App.TrainingDataFile)
}

// LoadTraining loads the configured training file.
func LoadTraining(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Dataset, error) {
	return Load(ctx, Path(cfg), l)
}

// Load reads a CSV file with a header row. Column types are inferred per
// column: int64 when every non-empty cell parses as an integer, float64 when
// every non-empty cell parses as a number, string otherwise. Empty cells are
// nil.
func Load(ctx context.Context, path string, l *zap.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrorTypeNotFound, "dataset file not found").WithDetail("path", path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open dataset").WithDetail("path", path)
	}
	defer f.Close()

	ds, err := Read(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read dataset").WithDetail("path", path)
	}
	ds.Path = path
	describe(logger.OrGlobal(l), ds)
	return ds, nil
}

// Read parses CSV from r.
func Read(ctx context.Context, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrorTypeData, "dataset is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read header")
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	raw := make([][]string, len(columns))
	rows := 0
	for {
		if rows%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "dataset read cancelled")
			}
		}
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed CSV row").WithDetail("row", rows+1)
		}
		for i := range columns {
			raw[i] = append(raw[i], rec[i])
		}
		rows++
	}

	records := make([]table.Record, rows)
	for i := range records {
		records[i] = make(table.Record, len(columns))
	}
	for c, name := range columns {
		for i, v := range convertColumn(raw[c]) {
			records[i][name] = v
		}
	}
	return &Dataset{Columns: columns, Records: records}, nil
}

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindString
)

func inferKind(cells []string) columnKind {
	kind := kindInt
	for _, s := range cells {
		if s == "" {
			continue
		}
		if kind == kindInt {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				continue
			}
			kind = kindFloat
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return kindString
		}
	}
	return kind
}

func convertColumn(cells []string) []any {
	kind := inferKind(cells)
	out := make([]any, len(cells))
	for i, s := range cells {
		if s == "" {
			continue
		}
		switch kind {
		case kindInt:
			out[i], _ = strconv.ParseInt(s, 10, 64)
		case kindFloat:
			out[i], _ = strconv.ParseFloat(s, 64)
		default:
			out[i] = s
		}
	}
	return out
}

// Prepare projects the dataset onto the configured features and extracts
// the target column as labels. Every row must carry a numeric target.
func Prepare(cfg *config.Config, ds *Dataset) (*table.Table, []float64, error) {
	target := cfg.Model.Target
	labels := make([]float64, ds.Len())
	for i, rec := range ds.Records {
		v, present := rec[target]
		if !present || v == nil {
			return nil, nil, errors.New(errors.ErrorTypeData, "row has no target value").
				WithDetail("row", i).
				WithDetail("target", target)
		}
		f, ok := table.ToFloat64(v)
		if !ok {
			return nil, nil, errors.New(errors.ErrorTypeData, "target value is not numeric").
				WithDetail("row", i).
				WithDetail("value", v)
		}
		labels[i] = f
	}
	return table.FromRecords(cfg.Model.Features, ds.Records), labels, nil
}

// describe logs the shape and null counts of a dataset.
func describe(l *zap.Logger, ds *Dataset) {
	nulls := make(map[string]int)
	for _, rec := range ds.Records {
		for _, c := range ds.Columns {
			if rec[c] == nil {
				nulls[c]++
			}
		}
	}
	fields := []zap.Field{
		zap.String("path", ds.Path),
		zap.Int("rows", ds.Len()),
		zap.Strings("columns", ds.Columns),
	}
	if len(nulls) > 0 {
		fields = append(fields, zap.Any("nulls", nulls))
	}
	l.Info("dataset loaded", fields...)
}
