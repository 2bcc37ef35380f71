// Package testutil provides shared helpers for package tests: loggers,
// configurations sized for fast fits and synthetic customer records.
package testutil

import (
	"context"
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// TestConfig returns the default configuration with a small forest and the
// artifact and dataset directories pointed at temporary directories.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Model.NEstimators = 15
	cfg.Model.MaxDepth = 6
	cfg.Artifact.Dir = t.TempDir()
	cfg.Paths.DatasetDir = t.TempDir()
	return cfg
}

// SampleRecord returns a single well-formed customer record.
func SampleRecord() table.Record {
	return table.Record{
		"id":                   int64(1),
		"Gender":               "Male",
		"Age":                  int64(44),
		"Driving_License":      int64(1),
		"Region_Code":          28.0,
		"Previously_Insured":   int64(0),
		"Vehicle_Age":          "> 2 Years",
		"Vehicle_Damage":       "Yes",
		"Annual_Premium":       40454.0,
		"Policy_Sales_Channel": 26.0,
		"Vintage":              int64(217),
	}
}

var vehicleAges = []string{"< 1 Year", "1-2 Year", "> 2 Years"}

// SyntheticRecords generates n customer records with a Response label. The
// label is mostly determined by prior insurance, vehicle damage and age, with
// a little noise, so a forest can learn it.
func SyntheticRecords(n int, seed int64) []table.Record {
	rnd := rand.New(rand.NewSource(seed))
	out := make([]table.Record, n)
	for i := range out {
		age := int64(20 + rnd.Intn(60))
		insured := int64(rnd.Intn(2))
		damage := "No"
		if rnd.Float64() < 0.5 {
			damage = "Yes"
		}
		gender := "Female"
		if rnd.Intn(2) == 1 {
			gender = "Male"
		}

		response := int64(0)
		if insured == 0 && damage == "Yes" && age >= 30 && age < 60 {
			response = 1
		}
		if rnd.Float64() < 0.03 {
			response = 1 - response
		}

		out[i] = table.Record{
			"id":                   int64(i + 1),
			"Gender":               gender,
			"Age":                  age,
			"Driving_License":      int64(1),
			"Region_Code":          float64(rnd.Intn(50)),
			"Previously_Insured":   insured,
			"Vehicle_Age":          vehicleAges[rnd.Intn(len(vehicleAges))],
			"Vehicle_Damage":       damage,
			"Annual_Premium":       2630 + float64(rnd.Intn(60000)),
			"Policy_Sales_Channel": float64(1 + rnd.Intn(160)),
			"Vintage":              int64(10 + rnd.Intn(290)),
			"Response":             response,
		}
	}
	return out
}

// Labels extracts the target column of records as float64.
func Labels(records []table.Record, target string) []float64 {
	y := make([]float64, len(records))
	for i, r := range records {
		y[i], _ = table.ToFloat64(r[target])
	}
	return y
}

// WriteCSV writes records as a CSV file with the given header order and
// returns its path.
func WriteCSV(t *testing.T, dir, name string, columns []string, records []table.Record) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		t.Fatalf("write header: %v", err)
	}
	row := make([]string, len(columns))
	for _, r := range records {
		for j, c := range columns {
			if r[c] == nil {
				row[j] = ""
				continue
			}
			row[j] = table.Key(r[c])
		}
		if err := w.Write(row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return path
}
