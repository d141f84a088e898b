package eval

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/apple/pkl-go/pkl"
	"github.com/picklr-io/adopt/internal/ir"
)

// Evaluator evaluates PKL batch files into IR types.
type Evaluator struct {
	projectDir string
}

func NewEvaluator(projectDir string) *Evaluator {
	return &Evaluator{
		projectDir: projectDir,
	}
}

// LoadBatch evaluates a PKL module whose `resources` listing describes the
// entries to reconcile. properties are readable in PKL as read("prop:NAME").
func (e *Evaluator) LoadBatch(ctx context.Context, file string, properties map[string]string) (*ir.Batch, error) {
	evaluator, err := e.newEvaluator(ctx, properties)
	if err != nil {
		return nil, fmt.Errorf("failed to create PKL evaluator: %w", err)
	}
	defer evaluator.Close()

	if !filepath.IsAbs(file) {
		abs, err := filepath.Abs(filepath.Join(e.projectDir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", file, err)
		}
		file = abs
	}

	var batch ir.Batch
	if err := evaluator.EvaluateModule(ctx, pkl.FileSource(file), &batch); err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", file, err)
	}
	return &batch, nil
}

// newEvaluator uses the project evaluator when the directory holds a
// PklProject, so package dependencies resolve.
func (e *Evaluator) newEvaluator(ctx context.Context, properties map[string]string) (pkl.Evaluator, error) {
	opts := []func(*pkl.EvaluatorOptions){pkl.PreconfiguredOptions}
	if len(properties) > 0 {
		opts = append(opts, func(o *pkl.EvaluatorOptions) {
			if o.Properties == nil {
				o.Properties = make(map[string]string)
			}
			for k, v := range properties {
				o.Properties[k] = v
			}
		})
	}

	if _, err := os.Stat(filepath.Join(e.projectDir, "PklProject")); err == nil {
		u, err := projectURL(e.projectDir)
		if err != nil {
			return nil, err
		}
		return pkl.NewProjectEvaluator(ctx, u, opts...)
	}
	return pkl.NewEvaluator(ctx, opts...)
}

// projectURL returns the file URL of dir, which must end in a slash for pkl
// to treat it as a project directory.
func projectURL(dir string) (*url.URL, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory %s: %w", dir, err)
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs) + "/"}, nil
}
