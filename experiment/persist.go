package experiment

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/dummy"
	"github.com/YuminosukeSato/regress/ensemble"
	"github.com/YuminosukeSato/regress/linear"
	"github.com/YuminosukeSato/regress/neighbors"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/preprocessing"
	"github.com/YuminosukeSato/regress/tree"
)

// Bundle is the single persisted object: the trained model together with the
// preprocessing it expects, so a loaded model predicts raw rows directly.
type Bundle struct {
	Model           model.Regressor
	Pipeline        *preprocessing.Pipeline
	TargetTransform model.TargetTransformer
	TargetName      string
	SavedAt         time.Time
}

func init() {
	// Concrete types crossing the Bundle's interface fields.
	gob.Register(&linear.Regression{})
	gob.Register(&linear.Ridge{})
	gob.Register(&linear.Lasso{})
	gob.Register(&linear.ElasticNet{})
	gob.Register(&linear.Huber{})
	gob.Register(&linear.OMP{})
	gob.Register(&linear.PassiveAggressive{})
	gob.Register(&neighbors.KNN{})
	gob.Register(&tree.Regressor{})
	gob.Register(&ensemble.Forest{})
	gob.Register(&ensemble.Bagging{})
	gob.Register(&ensemble.AdaBoostR2{})
	gob.Register(&ensemble.GradientBoosting{})
	gob.Register(&ensemble.Voting{})
	gob.Register(&ensemble.Stacking{})
	gob.Register(&dummy.Regressor{})
	gob.Register(&preprocessing.SimpleImputer{})
	gob.Register(&preprocessing.StandardScaler{})
	gob.Register(&preprocessing.StandardTarget{})
}

// SaveModel writes the model plus the session's preprocessing to one file.
func (s *Session) SaveModel(m model.Regressor, filename string) error {
	const op = "experiment.SaveModel"

	if m == nil {
		return errors.NewValueError(op, "model is nil")
	}

	bundle := &Bundle{
		Model:           m,
		Pipeline:        s.Pipeline,
		TargetTransform: s.TargetTransform,
		TargetName:      s.TargetName,
		SavedAt:         time.Now().UTC(),
	}

	if err := model.SaveModel(bundle, filename); err != nil {
		return errors.Wrapf(err, "%s: writing %s", op, filename)
	}

	logger := s.opLogger("save_model")
	logger.Info().Str("file", filename).Msg("model saved")
	return nil
}

// LoadModel reads a bundle written by SaveModel.
func LoadModel(filename string) (*Bundle, error) {
	const op = "experiment.LoadModel"

	var bundle Bundle
	if err := model.LoadModel(&bundle, filename); err != nil {
		return nil, errors.Wrapf(err, "%s: reading %s", op, filename)
	}
	return &bundle, nil
}

// Predict runs raw feature rows through the bundled preprocessing, the
// model, and the inverse target transform.
func (b *Bundle) Predict(data *mat.Dense) (*mat.VecDense, error) {
	const op = "Bundle.Predict"

	X := mat.Matrix(data)
	if b.Pipeline != nil {
		transformed, err := b.Pipeline.Transform(data)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: preprocessing", op)
		}
		X = transformed
	}

	raw, err := b.Model.Predict(X)
	if err != nil {
		return nil, err
	}

	pred := matToVec(raw)
	if b.TargetTransform != nil {
		pred, err = b.TargetTransform.InverseTransformVec(pred)
		if err != nil {
			return nil, err
		}
	}
	return pred, nil
}

// DeployModel saves the bundle into a target directory, the local stand-in
// for an artifact bucket.
func (s *Session) DeployModel(m model.Regressor, name, dir string) error {
	const op = "experiment.DeployModel"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "%s: creating %s", op, dir)
	}
	return s.SaveModel(m, filepath.Join(dir, name+".bundle"))
}

// encodeBundle serializes a bundle for use as a tracking artifact.
func (s *Session) encodeBundle(m model.Regressor, w io.Writer) error {
	bundle := &Bundle{
		Model:           m,
		Pipeline:        s.Pipeline,
		TargetTransform: s.TargetTransform,
		TargetName:      s.TargetName,
		SavedAt:         time.Now().UTC(),
	}
	return model.SaveModelToWriter(bundle, w)
}
