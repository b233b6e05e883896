package log

// Structured attribute keys shared by all workflow log events.
const (
	// KeySessionID identifies the experiment session created by Setup.
	KeySessionID = "session_id"

	// KeyOperation is the workflow operation name (create_model, tune_model, ...).
	KeyOperation = "operation"

	// KeyTag is the recipe tag being trained.
	KeyTag = "tag"

	// KeyFold is the cross-validation fold count.
	KeyFold = "fold"

	// KeyMetric is the optimization metric name.
	KeyMetric = "metric"

	// KeyRows and KeyCols describe the shape of the data in play.
	KeyRows = "rows"
	KeyCols = "cols"

	// KeyDuration is the wall-clock time of the operation.
	KeyDuration = "duration"
)
