// Package render defines the renderer contract shared by the HTML and terminal
// front ends, plus server error mapping and hidden submission fields.
package render

import (
	"context"

	"github.com/goliatone/go-hitasforms/pkg/dispatcher"
)

// FormView is the read side of a form session that renderers consume.
type FormView interface {
	Name() string
	Title() string
	Fields() []*dispatcher.Field
	FormErrors() []string
}

// Renderer turns a form view into bytes (HTML, JSON, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form FormView, options RenderOptions) ([]byte, error)
}
