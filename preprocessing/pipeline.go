package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Step is one named transformer inside a Pipeline. Steps are looked up by
// name, never by position.
type Step struct {
	Name        string
	Transformer model.Transformer
}

// Pipeline chains feature transformers in order. It is itself a Transformer,
// so a fitted pipeline can be bundled and shipped with a trained model.
type Pipeline struct {
	model.BaseEstimator

	Steps []Step
}

// NewPipeline creates a pipeline from the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{Steps: steps}
}

// Fit fits each step in order, feeding every step the output of the one
// before it.
func (p *Pipeline) Fit(X mat.Matrix) error {
	cur := X
	for _, step := range p.Steps {
		out, err := step.Transformer.FitTransform(cur)
		if err != nil {
			return errors.Wrapf(err, "pipeline step %q", step.Name)
		}
		cur = out
	}
	p.SetFitted()
	return nil
}

// Transform applies each fitted step in order.
func (p *Pipeline) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Transform")
	}

	cur := X
	for _, step := range p.Steps {
		out, err := step.Transformer.Transform(cur)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline step %q", step.Name)
		}
		cur = out
	}
	return cur, nil
}

// FitTransform runs Fit followed by Transform.
func (p *Pipeline) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// StepByName returns the named step's transformer, or nil when absent.
func (p *Pipeline) StepByName(name string) model.Transformer {
	for _, step := range p.Steps {
		if step.Name == name {
			return step.Transformer
		}
	}
	return nil
}
