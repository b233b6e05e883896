package experiment

import (
	"sort"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/pkg/log"
)

// CompareOptions configures CompareModels.
type CompareOptions struct {
	Include []string
	Exclude []string
	Folds   int
	Sort    string
	N       int // positive selects the top N, negative the bottom N
	Turbo   bool
	RoundTo int
}

// CompareOption mutates CompareOptions.
type CompareOption func(*CompareOptions)

// WithInclude restricts the comparison to the given tags.
func WithInclude(tags ...string) CompareOption {
	return func(o *CompareOptions) { o.Include = tags }
}

// WithExclude removes the given tags from the default catalog.
func WithExclude(tags ...string) CompareOption {
	return func(o *CompareOptions) { o.Exclude = tags }
}

// WithCompareFolds overrides the fold count for the comparison.
func WithCompareFolds(k int) CompareOption {
	return func(o *CompareOptions) { o.Folds = k }
}

// WithSort sets the ranking metric.
func WithSort(metric string) CompareOption {
	return func(o *CompareOptions) { o.Sort = metric }
}

// WithSelectN sets how many models to return; negative selects from the
// bottom of the leaderboard.
func WithSelectN(n int) CompareOption {
	return func(o *CompareOptions) { o.N = n }
}

// WithTurbo toggles the exclusion of the slow recipes.
func WithTurbo(on bool) CompareOption {
	return func(o *CompareOptions) { o.Turbo = on }
}

type leaderboardRow struct {
	tag  string
	name string
	mean FoldMetrics
}

// CompareModels cross-validates the working catalog with identical fold
// partitions, publishes a ranked leaderboard, retrains the single best
// recipe, and returns it.
func (s *Session) CompareModels(opts ...CompareOption) (model.Regressor, error) {
	models, err := s.CompareModelsN(append(opts, WithSelectN(1))...)
	if err != nil {
		return nil, err
	}
	return models[0], nil
}

// CompareModelsN is CompareModels returning the selected N models in
// leaderboard order.
func (s *Session) CompareModelsN(opts ...CompareOption) ([]model.Regressor, error) {
	const op = "experiment.CompareModels"

	o := CompareOptions{Folds: s.cfg.Fold, Sort: "R2", N: 1, Turbo: true, RoundTo: s.cfg.RoundTo}
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.Include) > 0 && len(o.Exclude) > 0 {
		return nil, errors.NewUsageError(op, "include and exclude are mutually exclusive")
	}
	if o.N == 0 {
		return nil, errors.NewValidationError("n_select", "must not be zero", o.N)
	}
	if _, err := (FoldMetrics{}).Metric(o.Sort); err != nil {
		return nil, err
	}

	tags, err := workingCatalog(o)
	if err != nil {
		return nil, err
	}

	logger := s.opLogger("compare_models")
	logger.Info().Int("catalog_size", len(tags)).Str(log.KeyMetric, o.Sort).Msg("comparison started")

	rows := make([]leaderboardRow, 0, len(tags))
	for _, tag := range tags {
		r, err := s.resolveRecipe(tag, nil)
		if err != nil {
			return nil, err
		}
		// Score silently; only the selected recipes get retrained into the
		// containers below.
		folds, err := s.crossValidate(r, o.Folds)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: scoring %s", op, tag)
		}
		grid, err := newScoreGrid(r.tag, r.name, folds, o.RoundTo)
		if err != nil {
			return nil, err
		}
		rows = append(rows, leaderboardRow{tag: r.tag, name: r.name, mean: grid.Mean})
	}

	sortLeaderboard(rows, o.Sort)
	s.pushDisplay(leaderboardTable(rows, o.Sort))

	selected := selectRows(rows, o.N)
	out := make([]model.Regressor, 0, len(selected))
	for _, row := range selected {
		m, err := s.CreateModel(row.tag, WithFolds(o.Folds), WithRound(o.RoundTo))
		if err != nil {
			return nil, err
		}
		// CreateModel pushed its own grid; the leaderboard stays the
		// comparison's user-facing table.
		s.popDisplay()
		out = append(out, m)
	}

	logger.Info().Str("best", selected[0].tag).Msg("comparison finished")
	return out, nil
}

func workingCatalog(o CompareOptions) ([]string, error) {
	if len(o.Include) > 0 {
		tags := make([]string, 0, len(o.Include))
		for _, tag := range o.Include {
			if _, err := lookupRecipe(tag); err != nil {
				return nil, err
			}
			tags = append(tags, tag)
		}
		return tags, nil
	}

	excluded := make(map[string]bool, len(o.Exclude))
	for _, tag := range o.Exclude {
		if _, err := lookupRecipe(tag); err != nil {
			return nil, err
		}
		excluded[tag] = true
	}

	tags := make([]string, 0, len(catalog))
	for _, tag := range CatalogTags(o.Turbo) {
		if !excluded[tag] {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil, errors.NewUsageError("experiment.CompareModels", "working catalog is empty")
	}
	return tags, nil
}

// sortLeaderboard ranks descending for R2, ascending for error metrics.
func sortLeaderboard(rows []leaderboardRow, metric string) {
	higher := HigherIsBetter(metric)
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].mean.Metric(metric)
		b, _ := rows[j].mean.Metric(metric)
		if higher {
			return a > b
		}
		return a < b
	})
}

func selectRows(rows []leaderboardRow, n int) []leaderboardRow {
	if n > 0 {
		if n > len(rows) {
			n = len(rows)
		}
		return rows[:n]
	}
	n = -n
	if n > len(rows) {
		n = len(rows)
	}
	return rows[len(rows)-n:]
}

func leaderboardTable(rows []leaderboardRow, metric string) *DisplayTable {
	headers := append([]string{"Model"}, MetricNames...)
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string{row.name}, metricRow("", row.mean)[1:]...)
	}
	return &DisplayTable{Title: "Comparison (sorted by " + metric + ")", Headers: headers, Rows: out}
}
