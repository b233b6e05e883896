package experiment

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/pkg/log"
)

// maxParamValueLen caps tracked parameter values, matching the usual
// tracking-server limit.
const maxParamValueLen = 250

// Tracker is a local-filesystem experiment store. Every logged run gets its
// own directory holding params, metrics, tags, and artifact files. Tracking
// is best-effort: callers log failures at warn and move on.
type Tracker struct {
	Dir        string
	Experiment string
}

// NewTracker creates a tracker rooted at dir.
func NewTracker(dir, experiment string) *Tracker {
	if experiment == "" {
		experiment = "default"
	}
	return &Tracker{Dir: dir, Experiment: experiment}
}

// Run is one tracked training call.
type Run struct {
	ID        uuid.UUID
	Params    map[string]string
	Metrics   map[string]float64
	Tags      map[string]string
	Artifacts map[string][]byte
}

// LogRun writes a run to disk and returns its id.
func (t *Tracker) LogRun(run *Run) (string, error) {
	const op = "experiment.Tracker.LogRun"

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	runDir := filepath.Join(t.Dir, t.Experiment, run.ID.String())
	if err := os.MkdirAll(filepath.Join(runDir, "artifacts"), 0o755); err != nil {
		return "", errors.Wrapf(err, "%s: creating run dir", op)
	}

	if err := writeYAML(filepath.Join(runDir, "params.yaml"), truncateValues(run.Params)); err != nil {
		return "", err
	}
	if err := writeYAML(filepath.Join(runDir, "metrics.yaml"), run.Metrics); err != nil {
		return "", err
	}
	if err := writeYAML(filepath.Join(runDir, "tags.yaml"), run.Tags); err != nil {
		return "", err
	}

	for name, content := range run.Artifacts {
		path := filepath.Join(runDir, "artifacts", name)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return "", errors.Wrapf(err, "%s: writing artifact %s", op, name)
		}
	}
	return run.ID.String(), nil
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling tracking data")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

func truncateValues(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if len(v) > maxParamValueLen {
			v = v[:maxParamValueLen]
		}
		out[k] = v
	}
	return out
}

// trackSetup records the session configuration as the first run.
func (s *Session) trackSetup() {
	if s.tracker == nil {
		return
	}

	err := errors.SafeExecute("track setup", func() error {
		params := map[string]string{
			"train_size":   fmt.Sprintf("%g", s.cfg.TrainSize),
			"fold":         fmt.Sprintf("%d", s.cfg.Fold),
			"seed":         fmt.Sprintf("%d", s.Seed),
			"normalize":    fmt.Sprintf("%t", s.cfg.Normalize),
			"impute":       string(s.cfg.Impute),
			"target":       s.TargetName,
			"transform_y":  fmt.Sprintf("%t", s.cfg.TransformTarget),
			"fold_shuffle": fmt.Sprintf("%t", s.FoldShuffle),
		}
		_, err := s.tracker.LogRun(&Run{
			Params: params,
			Tags:   s.runTags("setup"),
		})
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("tracking setup failed")
	}
}

// trackTraining records one training operation's grid and model bundle.
// Best-effort: a failure is logged and the training result stands.
func (s *Session) trackTraining(source string, grid *ScoreGrid, m model.Regressor) {
	if s.tracker == nil {
		return
	}

	err := errors.SafeExecute("track training", func() error {
		metricsMap := make(map[string]float64, len(MetricNames))
		for _, name := range MetricNames {
			v, err := grid.MeanMetric(name)
			if err != nil {
				return err
			}
			metricsMap[name] = v
		}

		artifacts := map[string][]byte{
			"scores.txt": []byte(grid.Render()),
		}
		var bundle bytes.Buffer
		if err := s.encodeBundle(m, &bundle); err == nil {
			artifacts["model.bundle"] = bundle.Bytes()
		}

		_, err := s.tracker.LogRun(&Run{
			Params:    map[string]string{"tag": grid.Tag, "model": grid.Name},
			Metrics:   metricsMap,
			Tags:      s.runTags(source),
			Artifacts: artifacts,
		})
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).Str(log.KeyOperation, source).Msg("tracking failed")
	}
}

func (s *Session) runTags(source string) map[string]string {
	return map[string]string{
		"source":     source,
		"session_id": s.ID.String(),
		"run_time":   time.Now().UTC().Format(time.RFC3339),
	}
}
