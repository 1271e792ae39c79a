// Package dispatcher binds field descriptors to typed widgets.
//
// Render resolves the current value from the draft, picks the widget for the
// descriptor input type and returns a Field. Field events never mutate the
// draft: they return a model.FieldChange for the owner of the draft to apply,
// or hand the value to an alternate setter when the field is managed outside
// the form.
package dispatcher

import (
	"github.com/goliatone/go-hitasforms/pkg/logging"
	"github.com/goliatone/go-hitasforms/pkg/model"
	"github.com/goliatone/go-hitasforms/pkg/picker"
	"github.com/goliatone/go-hitasforms/pkg/valuepath"
	"github.com/goliatone/go-hitasforms/pkg/widgets"
)

// Dispatcher creates bound fields.
type Dispatcher struct {
	logger   logging.Logger
	searcher model.Searcher
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger handed to every bound field.
func WithLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSearcher supplies the entity searcher for related-model descriptors that
// do not carry their own.
func WithSearcher(searcher model.Searcher) Option {
	return func(d *Dispatcher) {
		d.searcher = searcher
	}
}

// New returns a dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// FieldOption customises a single Render call.
type FieldOption func(*fieldConfig)

type fieldConfig struct {
	setter      func(any)
	serverError *model.ServerError
	display     string
}

// WithSetter routes written values to setter instead of emitting a
// FieldChange. Use it when the value lives outside the draft.
func WithSetter(setter func(any)) FieldOption {
	return func(cfg *fieldConfig) {
		cfg.setter = setter
	}
}

// WithServerErrors reconciles a rejected submission into the field state.
func WithServerErrors(err *model.ServerError) FieldOption {
	return func(cfg *fieldConfig) {
		cfg.serverError = err
	}
}

// WithDisplay seeds the display text, used by related-model fields whose
// stored value is an identifier.
func WithDisplay(display string) FieldOption {
	return func(cfg *fieldConfig) {
		cfg.display = display
	}
}

// Render binds desc to its widget. Configuration problems are returned as
// go-errors with text code FIELD_CONFIG_INVALID.
func (d *Dispatcher) Render(desc model.Descriptor, draft map[string]any, opts ...FieldOption) (*Field, error) {
	cfg := fieldConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if desc.Input == model.InputRelatedModel && desc.Related != nil && desc.Related.Searcher == nil && d.searcher != nil {
		related := *desc.Related
		related.Searcher = d.searcher
		desc.Related = &related
	}

	if err := desc.Validate(); err != nil {
		d.logger.Error("field configuration invalid", "path", desc.Path, "input", desc.Input.String(), "error", err)
		return nil, configError(desc.Path, err)
	}

	widget, err := widgets.New(desc)
	if err != nil {
		return nil, configError(desc.Path, err)
	}

	value, _ := valuepath.Get(draft, desc.Path)
	field := &Field{
		desc:   desc,
		widget: widget,
		value:  value,
		setter: cfg.setter,
		logger: logging.WithFields(d.logger, map[string]any{"field": desc.Path}),
	}
	field.display = widget.Format(value)

	if related, ok := widget.(*widgets.Related); ok {
		if cfg.display != "" && value != nil {
			related.Seed(value, cfg.display)
			field.display = related.Format(value)
		}
		p, err := picker.New(*desc.Related, nil, picker.WithLogger(d.logger))
		if err != nil {
			return nil, configError(desc.Path, err)
		}
		field.picker = p
	}

	if cfg.serverError != nil {
		field.ReconcileServerErrors(cfg.serverError)
	}
	return field, nil
}

// MustRender is Render for statically known descriptors; it panics on
// configuration errors.
func (d *Dispatcher) MustRender(desc model.Descriptor, draft map[string]any, opts ...FieldOption) *Field {
	field, err := d.Render(desc, draft, opts...)
	if err != nil {
		panic(err)
	}
	return field
}
