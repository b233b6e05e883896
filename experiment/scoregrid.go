package experiment

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"

	"github.com/YuminosukeSato/regress/pkg/errors"
)

// MetricNames lists the six reported metrics in display order.
var MetricNames = []string{"MAE", "MSE", "RMSE", "RMSLE", "R2", "MAPE"}

// FoldMetrics is one scored fold: the six regression metrics plus the time
// the fold's fit took.
type FoldMetrics struct {
	MAE     float64
	MSE     float64
	RMSE    float64
	RMSLE   float64
	R2      float64
	MAPE    float64
	FitTime time.Duration
}

// Metric returns the named metric value.
func (f FoldMetrics) Metric(name string) (float64, error) {
	switch name {
	case "MAE":
		return f.MAE, nil
	case "MSE":
		return f.MSE, nil
	case "RMSE":
		return f.RMSE, nil
	case "RMSLE":
		return f.RMSLE, nil
	case "R2":
		return f.R2, nil
	case "MAPE":
		return f.MAPE, nil
	}
	return 0, errors.NewValidationError("metric", "must be one of "+strings.Join(MetricNames, ", "), name)
}

// HigherIsBetter reports the ranking direction of a metric. Only R2 ranks
// descending; every error metric ranks ascending.
func HigherIsBetter(metric string) bool {
	return metric == "R2"
}

// ScoreGrid is the per-fold metric table of one training call: the fold rows
// in ascending order, then the Mean row, then the population Std row.
type ScoreGrid struct {
	Tag   string
	Name  string
	Folds []FoldMetrics
	Mean  FoldMetrics
	Std   FoldMetrics
}

// newScoreGrid aggregates fold rows into a grid, rounding every value to
// the given number of decimals.
func newScoreGrid(tag, name string, folds []FoldMetrics, digits int) (*ScoreGrid, error) {
	if len(folds) == 0 {
		return nil, errors.NewValueError("newScoreGrid", "no fold rows")
	}

	grid := &ScoreGrid{Tag: tag, Name: name, Folds: make([]FoldMetrics, len(folds))}

	columns := map[string][]float64{}
	for _, metric := range MetricNames {
		columns[metric] = make([]float64, len(folds))
	}
	var fitTotal time.Duration
	for i, f := range folds {
		for _, metric := range MetricNames {
			v, _ := f.Metric(metric)
			columns[metric][i] = v
		}
		fitTotal += f.FitTime
		grid.Folds[i] = roundMetrics(f, digits)
	}

	for _, metric := range MetricNames {
		mean, err := stats.Mean(stats.Float64Data(columns[metric]))
		if err != nil {
			return nil, errors.Wrapf(err, "aggregating %s", metric)
		}
		std, err := stats.StandardDeviationPopulation(stats.Float64Data(columns[metric]))
		if err != nil {
			return nil, errors.Wrapf(err, "aggregating %s", metric)
		}
		setMetric(&grid.Mean, metric, mean)
		setMetric(&grid.Std, metric, std)
	}
	// The summary row keeps RMSE consistent with its own MSE instead of
	// averaging the fold RMSEs.
	grid.Mean.RMSE = math.Sqrt(grid.Mean.MSE)
	grid.Mean.FitTime = fitTotal / time.Duration(len(folds))
	grid.Mean = roundMetrics(grid.Mean, digits)
	grid.Std = roundMetrics(grid.Std, digits)
	return grid, nil
}

func setMetric(f *FoldMetrics, name string, v float64) {
	switch name {
	case "MAE":
		f.MAE = v
	case "MSE":
		f.MSE = v
	case "RMSE":
		f.RMSE = v
	case "RMSLE":
		f.RMSLE = v
	case "R2":
		f.R2 = v
	case "MAPE":
		f.MAPE = v
	}
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

func roundMetrics(f FoldMetrics, digits int) FoldMetrics {
	f.MAE = roundTo(f.MAE, digits)
	f.MSE = roundTo(f.MSE, digits)
	f.RMSE = roundTo(f.RMSE, digits)
	f.RMSLE = roundTo(f.RMSLE, digits)
	f.R2 = roundTo(f.R2, digits)
	f.MAPE = roundTo(f.MAPE, digits)
	return f
}

// NRows returns the row count: one per fold plus Mean and Std.
func (g *ScoreGrid) NRows() int {
	return len(g.Folds) + 2
}

// MeanMetric returns the Mean row's value for the named metric.
func (g *ScoreGrid) MeanMetric(name string) (float64, error) {
	return g.Mean.Metric(name)
}

// DisplayTable converts the grid into the display form appended to the
// session history.
func (g *ScoreGrid) DisplayTable() *DisplayTable {
	headers := append([]string{"Fold"}, MetricNames...)
	rows := make([][]string, 0, g.NRows())
	for i, f := range g.Folds {
		rows = append(rows, metricRow(fmt.Sprintf("%d", i), f))
	}
	rows = append(rows, metricRow("Mean", g.Mean), metricRow("Std", g.Std))
	return &DisplayTable{Title: g.Name, Headers: headers, Rows: rows}
}

func metricRow(label string, f FoldMetrics) []string {
	return []string{
		label,
		formatMetric(f.MAE),
		formatMetric(f.MSE),
		formatMetric(f.RMSE),
		formatMetric(f.RMSLE),
		formatMetric(f.R2),
		formatMetric(f.MAPE),
	}
}

func formatMetric(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// Render returns the grid as text.
func (g *ScoreGrid) Render() string {
	return g.DisplayTable().Render()
}

// DisplayTable is one user-facing result table. The session keeps the last
// shown tables; Pull returns the most recent one.
type DisplayTable struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Render draws the table as text.
func (d *DisplayTable) Render() string {
	var sb strings.Builder
	if d.Title != "" {
		sb.WriteString(d.Title)
		sb.WriteString("\n")
	}
	table := tablewriter.NewWriter(&sb)
	table.SetHeader(d.Headers)
	table.SetAutoFormatHeaders(false)
	for _, row := range d.Rows {
		table.Append(row)
	}
	table.Render()
	return sb.String()
}
