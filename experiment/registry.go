package experiment

import (
	"sort"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/dummy"
	"github.com/YuminosukeSato/regress/ensemble"
	"github.com/YuminosukeSato/regress/linear"
	"github.com/YuminosukeSato/regress/neighbors"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/tree"
)

// FactoryConfig carries what a recipe factory needs beyond its overrides.
type FactoryConfig struct {
	Seed      int64
	NJobs     int
	Overrides map[string]interface{}
}

// Recipe is one catalog entry: a tag, a display name, whether the turbo
// catalog keeps it, and a factory building a fresh estimator.
type Recipe struct {
	Tag   string
	Name  string
	Slow  bool // excluded when turbo filtering is on
	Build func(fc FactoryConfig) (model.Regressor, error)
}

// catalog lists every recipe in leaderboard order.
var catalog = []Recipe{
	{Tag: "lr", Name: "Linear Regression", Build: buildLR},
	{Tag: "ridge", Name: "Ridge Regression", Build: buildRidge},
	{Tag: "lasso", Name: "Lasso Regression", Build: buildLasso},
	{Tag: "en", Name: "Elastic Net", Build: buildElasticNet},
	{Tag: "huber", Name: "Huber Regressor", Build: buildHuber},
	{Tag: "omp", Name: "Orthogonal Matching Pursuit", Build: buildOMP},
	{Tag: "par", Name: "Passive Aggressive Regressor", Build: buildPAR},
	{Tag: "knn", Name: "K Neighbors Regressor", Slow: true, Build: buildKNN},
	{Tag: "dt", Name: "Decision Tree Regressor", Build: buildDT},
	{Tag: "rf", Name: "Random Forest Regressor", Build: buildRF},
	{Tag: "et", Name: "Extra Trees Regressor", Slow: true, Build: buildET},
	{Tag: "ada", Name: "AdaBoost Regressor", Build: buildAda},
	{Tag: "gbr", Name: "Gradient Boosting Regressor", Slow: true, Build: buildGBR},
	{Tag: "dummy", Name: "Dummy Regressor", Build: buildDummy},
}

var catalogByTag = func() map[string]Recipe {
	m := make(map[string]Recipe, len(catalog))
	for _, r := range catalog {
		m[r.Tag] = r
	}
	return m
}()

// lookupRecipe resolves a tag, failing before any computation on an unknown
// one.
func lookupRecipe(tag string) (Recipe, error) {
	r, ok := catalogByTag[tag]
	if !ok {
		return Recipe{}, errors.NewUnknownRecipeError(tag, CatalogTags(false))
	}
	return r, nil
}

// CatalogTags returns the catalog tags in order. With turbo set, the slow
// recipes are filtered out.
func CatalogTags(turbo bool) []string {
	out := make([]string, 0, len(catalog))
	for _, r := range catalog {
		if turbo && r.Slow {
			continue
		}
		out = append(out, r.Tag)
	}
	return out
}

// familyOf maps an estimator instance back to its catalog recipe, used by
// the tuner to find the right parameter space.
func familyOf(m model.Regressor) (Recipe, bool) {
	var tag string
	switch e := m.(type) {
	case *linear.Regression:
		tag = "lr"
	case *linear.Ridge:
		tag = "ridge"
	case *linear.Lasso:
		tag = "lasso"
	case *linear.ElasticNet:
		tag = "en"
	case *linear.Huber:
		tag = "huber"
	case *linear.OMP:
		tag = "omp"
	case *linear.PassiveAggressive:
		tag = "par"
	case *neighbors.KNN:
		tag = "knn"
	case *tree.Regressor:
		tag = "dt"
	case *ensemble.Forest:
		if e.Splitter == tree.SplitterRandom {
			tag = "et"
		} else {
			tag = "rf"
		}
	case *ensemble.AdaBoostR2:
		tag = "ada"
	case *ensemble.GradientBoosting:
		tag = "gbr"
	case *dummy.Regressor:
		tag = "dummy"
	default:
		return Recipe{}, false
	}
	return catalogByTag[tag], true
}

// overrideSet pops typed values out of a recipe's keyword overrides. Any key
// left unconsumed is a configuration error.
type overrideSet struct {
	values map[string]interface{}
	err    error
}

func newOverrideSet(overrides map[string]interface{}) *overrideSet {
	values := make(map[string]interface{}, len(overrides))
	for k, v := range overrides {
		values[k] = v
	}
	return &overrideSet{values: values}
}

func (o *overrideSet) float(key string, def float64) float64 {
	v, ok := o.values[key]
	if !ok {
		return def
	}
	delete(o.values, key)
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	}
	o.fail(key, "must be a float")
	return def
}

func (o *overrideSet) integer(key string, def int) int {
	v, ok := o.values[key]
	if !ok {
		return def
	}
	delete(o.values, key)
	if t, ok := v.(int); ok {
		return t
	}
	o.fail(key, "must be an int")
	return def
}

func (o *overrideSet) text(key, def string) string {
	v, ok := o.values[key]
	if !ok {
		return def
	}
	delete(o.values, key)
	if t, ok := v.(string); ok {
		return t
	}
	o.fail(key, "must be a string")
	return def
}

func (o *overrideSet) fail(key, reason string) {
	if o.err == nil {
		o.err = errors.NewValidationError(key, reason, o.values[key])
	}
}

// done fails on the first unrecognized leftover key.
func (o *overrideSet) done() error {
	if o.err != nil {
		return o.err
	}
	if len(o.values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(o.values))
	for k := range o.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return errors.NewValidationError(keys[0], "unknown parameter for this recipe", o.values[keys[0]])
}

func buildLR(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	if err := o.done(); err != nil {
		return nil, err
	}
	return linear.NewRegression(), nil
}

func buildRidge(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	alpha := o.float("alpha", 1.0)
	if err := o.done(); err != nil {
		return nil, err
	}
	return linear.NewRidge(alpha), nil
}

func buildLasso(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	alpha := o.float("alpha", 1.0)
	maxIter := o.integer("max_iter", 1000)
	if err := o.done(); err != nil {
		return nil, err
	}
	m := linear.NewLasso(alpha)
	m.MaxIter = maxIter
	return m, nil
}

func buildElasticNet(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	alpha := o.float("alpha", 1.0)
	l1Ratio := o.float("l1_ratio", 0.5)
	maxIter := o.integer("max_iter", 1000)
	if err := o.done(); err != nil {
		return nil, err
	}
	m := linear.NewElasticNet(alpha, l1Ratio)
	m.MaxIter = maxIter
	return m, nil
}

func buildHuber(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	epsilon := o.float("epsilon", 1.35)
	alpha := o.float("alpha", 0.0001)
	if err := o.done(); err != nil {
		return nil, err
	}
	return linear.NewHuber(epsilon, alpha), nil
}

func buildOMP(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	n := o.integer("n_nonzero", 0)
	if err := o.done(); err != nil {
		return nil, err
	}
	return linear.NewOMP(n), nil
}

func buildPAR(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	c := o.float("C", 1.0)
	epsilon := o.float("epsilon", 0.1)
	if err := o.done(); err != nil {
		return nil, err
	}
	m := linear.NewPassiveAggressive(c, fc.Seed)
	m.Epsilon = epsilon
	return m, nil
}

func buildKNN(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	k := o.integer("k", 5)
	if err := o.done(); err != nil {
		return nil, err
	}
	return neighbors.NewKNN(k, fc.NJobs), nil
}

func buildDT(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	maxDepth := o.integer("max_depth", 0)
	minLeaf := o.integer("min_samples_leaf", 1)
	minSplit := o.integer("min_samples_split", 2)
	if err := o.done(); err != nil {
		return nil, err
	}
	m := tree.NewRegressor(maxDepth, fc.Seed)
	m.MinSamplesLeaf = minLeaf
	m.MinSamplesSplit = minSplit
	return m, nil
}

func buildRF(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	n := o.integer("n_estimators", 100)
	maxDepth := o.integer("max_depth", 0)
	maxFeatures := o.integer("max_features", 0)
	if err := o.done(); err != nil {
		return nil, err
	}
	m := ensemble.NewRandomForest(n, fc.Seed)
	m.MaxDepth = maxDepth
	m.MaxFeatures = maxFeatures
	m.NJobs = fc.NJobs
	return m, nil
}

func buildET(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	n := o.integer("n_estimators", 100)
	maxDepth := o.integer("max_depth", 0)
	maxFeatures := o.integer("max_features", 0)
	if err := o.done(); err != nil {
		return nil, err
	}
	m := ensemble.NewExtraTrees(n, fc.Seed)
	m.MaxDepth = maxDepth
	m.MaxFeatures = maxFeatures
	m.NJobs = fc.NJobs
	return m, nil
}

func buildAda(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	n := o.integer("n_estimators", 50)
	lr := o.float("learning_rate", 1.0)
	maxDepth := o.integer("max_depth", 3)
	if err := o.done(); err != nil {
		return nil, err
	}
	m := ensemble.NewAdaBoostR2(tree.NewRegressor(maxDepth, fc.Seed), n, fc.Seed)
	m.LearningRate = lr
	return m, nil
}

func buildGBR(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	n := o.integer("n_estimators", 100)
	lr := o.float("learning_rate", 0.1)
	maxDepth := o.integer("max_depth", 3)
	if err := o.done(); err != nil {
		return nil, err
	}
	m := ensemble.NewGradientBoosting(n, fc.Seed)
	m.LearningRate = lr
	m.MaxDepth = maxDepth
	return m, nil
}

func buildDummy(fc FactoryConfig) (model.Regressor, error) {
	o := newOverrideSet(fc.Overrides)
	if err := o.done(); err != nil {
		return nil, err
	}
	return dummy.NewRegressor(), nil
}
