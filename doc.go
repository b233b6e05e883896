// Package regress is an AutoML toolkit for tabular regression.
//
// The entry point is the experiment package: Setup ingests a dataset,
// splits it into training and holdout partitions, and returns a Session
// whose methods mirror a typical model-development workflow:
//
//	exp, err := experiment.Setup(data, "price",
//		experiment.WithSeed(42),
//		experiment.WithFold(10),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	best, err := exp.CompareModels()          // ranked leaderboard
//	tuned, err := exp.TuneModel(best)         // random-search tuning
//	final, err := exp.FinalizeModel(tuned)    // refit on all data
//	err = exp.SaveModel(final, "model.bundle")
//
// Every training operation cross-validates with identical fold
// partitions, records a score grid, and appends the refit model to the
// session history, so results stay comparable across calls.
//
// The estimators live in the linear, tree, ensemble, neighbors, and
// dummy packages. They share the model.Regressor interface and can be
// used standalone:
//
//	rf := ensemble.NewRandomForest(100, 42)
//	if err := rf.Fit(X, y); err != nil {
//		log.Fatal(err)
//	}
//	pred, err := rf.Predict(Xtest)
//
// Preprocessing (imputation, scaling, target transforms) is in the
// preprocessing package, metrics in metrics, and cross-validation
// splitters in modelselection.
package regress
