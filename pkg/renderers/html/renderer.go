// Package html renders form sessions as HTML with pongo2 templates. Every
// control shows display-format text; canonical values never reach the markup
// except as option values.
package html

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-hitasforms/pkg/dispatcher"
	"github.com/goliatone/go-hitasforms/pkg/model"
	"github.com/goliatone/go-hitasforms/pkg/picker"
	"github.com/goliatone/go-hitasforms/pkg/render"
)

const (
	Name = "html"

	defaultSubmitLabel     = "Tallenna"
	defaultDatePlaceholder = "pp.kk.vvvv"
)

type Option func(*config)

type config struct {
	templates   fs.FS
	baseDir     string
	submitLabel string
}

// WithTemplatesFS supplies an alternate template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = files
		}
	}
}

// WithTemplatesDir loads templates from a directory on disk. Templates
// missing there fall back to the configured bundle.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(path)
	}
}

// WithSubmitLabel overrides the submit button text.
func WithSubmitLabel(label string) Option {
	return func(cfg *config) {
		if label = strings.TrimSpace(label); label != "" {
			cfg.submitLabel = label
		}
	}
}

type Renderer struct {
	engine      *Engine
	submitLabel string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the HTML renderer with the embedded templates unless an
// override is given.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templates: TemplatesFS(), submitLabel: defaultSubmitLabel}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	engine, err := NewEngine(cfg.templates, cfg.baseDir)
	if err != nil {
		return nil, err
	}
	return &Renderer{engine: engine, submitLabel: cfg.submitLabel}, nil
}

func (r *Renderer) Name() string { return Name }

func (r *Renderer) ContentType() string { return "text/html; charset=utf-8" }

// Render emits the whole form, or a single field fragment when
// options.Field is set.
func (r *Renderer) Render(_ context.Context, form render.FormView, options render.RenderOptions) ([]byte, error) {
	if form == nil {
		return nil, fmt.Errorf("html renderer: form is nil")
	}
	fields := form.Fields()
	if options.Field != "" {
		for _, field := range fields {
			if field.Path() == options.Field {
				return r.engine.Render(fieldTemplate, pongo2.Context{"field": newFieldView(field)})
			}
		}
		return nil, fmt.Errorf("html renderer: unknown field %q", options.Field)
	}

	views := make([]fieldView, 0, len(fields))
	for _, field := range fields {
		views = append(views, newFieldView(field))
	}
	method, override := render.MethodOverride(options.Method)
	hidden := options.Hidden
	if override != nil {
		hidden = append(append([]render.HiddenField(nil), hidden...), *override)
	}
	return r.engine.Render(formTemplate, pongo2.Context{
		"form": pongo2.Context{
			"Name":   form.Name(),
			"Title":  form.Title(),
			"Errors": form.FormErrors(),
		},
		"fields": views,
		"action": options.Action,
		"method": method,
		"hidden": render.SortedHiddenFields(hidden),
		"submit": r.submitLabel,
	})
}

type optionView struct {
	Label    string
	Value    string
	Selected bool
}

type candidateView struct {
	Index int
	Label string
}

type pickerView struct {
	State   string
	Query   string
	Results []candidateView
	Total   int
	Error   string
}

type fieldView struct {
	ID          string
	Path        string
	Input       string
	Label       string
	Required    bool
	Unit        string
	Placeholder string
	Help        string
	Display     string
	Value       string
	Invalid     bool
	Message     string
	Digits      int
	Options     []optionView
	Picker      *pickerView
}

func newFieldView(field *dispatcher.Field) fieldView {
	desc := field.Descriptor()
	state := field.State()
	view := fieldView{
		ID:          "field-" + strings.ReplaceAll(desc.Path, ".", "-"),
		Path:        desc.Path,
		Input:       desc.Input.String(),
		Label:       desc.Label,
		Required:    desc.Required,
		Unit:        desc.Unit,
		Placeholder: desc.Placeholder,
		Help:        SanitizeHelp(desc.HelpText),
		Display:     field.Display(),
		Invalid:     state.Invalid,
		Message:     state.Message,
		Digits:      desc.Digits(),
	}
	if field.Value() != nil {
		view.Value = fmt.Sprint(field.Value())
	}
	if desc.Input == model.InputDate && view.Placeholder == "" {
		view.Placeholder = defaultDatePlaceholder
	}
	if desc.Input == model.InputMoney && view.Unit == "" {
		view.Unit = "€"
	}
	if desc.Input.IsDropdown() {
		for _, opt := range desc.Options {
			value := fmt.Sprint(opt.Resolved())
			view.Options = append(view.Options, optionView{
				Label:    opt.Label,
				Value:    value,
				Selected: field.Value() != nil && value == view.Value,
			})
		}
	}
	if p := field.Picker(); p != nil {
		view.Picker = newPickerView(p)
	}
	return view
}

func newPickerView(p *picker.Picker) *pickerView {
	view := &pickerView{
		State: p.State().String(),
		Query: p.Query(),
		Total: p.Total(),
	}
	for idx, candidate := range p.Results() {
		view.Results = append(view.Results, candidateView{Index: idx, Label: candidate.Label})
	}
	if err := p.Err(); err != nil {
		view.Error = err.Error()
	}
	return view
}
