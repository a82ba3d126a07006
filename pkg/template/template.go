// Package template is the rendering boundary for templated dotfiles.
// Rendering is a pure function of template source and context, which
// keeps planning deterministic and the engine swappable.
package template

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/dotty-sh/dotty/pkg/errors"
)

// Renderer renders a template file with a context into final bytes
type Renderer interface {
	Render(sourcePath string, context map[string]interface{}) ([]byte, error)
}

// Engine is the default Renderer backed by text/template
type Engine struct{}

// NewEngine returns the default template engine
func NewEngine() *Engine {
	return &Engine{}
}

// Render parses the template at sourcePath and executes it with the
// given context. Unknown keys are an error rather than rendering as
// "<no value>", so a typo surfaces at plan time.
func (e *Engine) Render(sourcePath string, context map[string]interface{}) ([]byte, error) {
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileNotFound, "reading template %s", sourcePath)
	}

	tmpl, err := template.New(filepath.Base(sourcePath)).
		Option("missingkey=error").
		Parse(string(raw))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidTemplate, "parsing template %s", sourcePath)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTemplateRender, "rendering template %s", sourcePath)
	}

	return buf.Bytes(), nil
}
