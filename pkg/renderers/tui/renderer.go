// Package tui fills a form from the terminal. Every answer goes through the
// form's event dispatch exactly like browser input, so the draft only ever
// holds canonical values and invalid answers are re-prompted.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-hitasforms/pkg/dispatcher"
	"github.com/goliatone/go-hitasforms/pkg/form"
	"github.com/goliatone/go-hitasforms/pkg/model"
	"github.com/goliatone/go-hitasforms/pkg/render"
)

const (
	Name = "tui"

	emptyChoice  = "(tyhjä)"
	searchAgain  = "Hae uudelleen"
	noResultsMsg = "Ei tuloksia"
)

// Interactive is a form view that also accepts events, satisfied by
// *form.Form.
type Interactive interface {
	render.FormView
	Field(path string) (*dispatcher.Field, bool)
	Dispatch(ctx context.Context, ev form.Event) (bool, error)
	Validate() []form.InvalidField
	Payload() map[string]any
}

var _ Interactive = (*form.Form)(nil)

// Renderer implements render.Renderer for terminal-driven sessions.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	maxAttempts       int
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) *Renderer {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		maxAttempts:  DefaultMaxAttempts,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

func (r *Renderer) Name() string { return Name }

func (r *Renderer) ContentType() string {
	if r.outputFormat == OutputFormatPrettyText {
		return "text/plain; charset=utf-8"
	}
	return "application/json"
}

// Render prompts for every field of view in order and returns the serialized
// payload. options.Field limits prompting to one field.
func (r *Renderer) Render(ctx context.Context, view render.FormView, options render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	session, ok := view.(Interactive)
	if !ok {
		return nil, ErrNotInteractive
	}
	if title := view.Title(); title != "" {
		if err := r.info(ctx, title); err != nil {
			return nil, err
		}
	}
	for _, msg := range view.FormErrors() {
		if err := r.errorf(ctx, "%s", msg); err != nil {
			return nil, err
		}
	}

	for _, field := range view.Fields() {
		if options.Field != "" && field.Path() != options.Field {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.promptField(ctx, session, field.Path()); err != nil {
			return nil, err
		}
	}

	if invalid := session.Validate(); len(invalid) > 0 && options.Field == "" {
		for _, entry := range invalid {
			_ = r.errorf(ctx, "%s: %s", entry.Label, entry.Message)
		}
		return nil, fmt.Errorf("tui: %d field(s) invalid", len(invalid))
	}

	payload := session.Payload()
	if r.submitTransformer != nil {
		var err error
		payload, err = r.submitTransformer(payload)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return r.serialize(session, payload)
}

func (r *Renderer) promptField(ctx context.Context, session Interactive, path string) error {
	field, ok := session.Field(path)
	if !ok {
		return fmt.Errorf("tui: unknown field %q", path)
	}
	switch input := field.Descriptor().Input; {
	case input.IsDropdown():
		return r.promptChoice(ctx, session, path)
	case input == model.InputRelatedModel:
		return r.promptRelated(ctx, session, path)
	default:
		return r.promptText(ctx, session, path)
	}
}

func (r *Renderer) promptText(ctx context.Context, session Interactive, path string) error {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		field, _ := session.Field(path)
		desc := field.Descriptor()

		var (
			answer string
			err    error
		)
		if desc.Input == model.InputTextArea {
			answer, err = r.driver.TextArea(ctx, TextAreaConfig{
				Message: message(desc),
				Default: field.Display(),
				Help:    plainHelp(desc.HelpText),
			})
		} else {
			answer, err = r.driver.Input(ctx, InputConfig{
				Message: message(desc),
				Default: field.Display(),
				Help:    plainHelp(desc.HelpText),
			})
		}
		if err != nil {
			return err
		}
		if err := typeInto(ctx, session, path, answer); err != nil {
			return err
		}
		if ok, err := r.checked(ctx, session, path); ok || err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrTooManyAttempts, path)
}

func (r *Renderer) promptChoice(ctx context.Context, session Interactive, path string) error {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		field, _ := session.Field(path)
		desc := field.Descriptor()

		choices := make([]string, 0, len(desc.Options)+1)
		if !desc.Required {
			choices = append(choices, emptyChoice)
		}
		offset := len(choices)
		current := -1
		for idx, option := range desc.Options {
			choices = append(choices, option.Label)
			if field.Value() != nil && fmt.Sprint(option.Resolved()) == fmt.Sprint(field.Value()) {
				current = idx + offset
			}
		}
		if current < 0 {
			current = 0
		}

		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      message(desc),
			Options:      choices,
			DefaultIndex: current,
			Help:         plainHelp(desc.HelpText),
		})
		if err != nil {
			return err
		}
		ev := form.Event{Path: path, Kind: form.EventClear}
		if idx >= offset && idx < len(choices) {
			option := desc.Options[idx-offset]
			ev = form.Event{Path: path, Kind: form.EventSelect, Value: fmt.Sprint(option.Resolved())}
		}
		if _, err := session.Dispatch(ctx, ev); err != nil {
			return err
		}
		if ok, err := r.checked(ctx, session, path); ok || err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrTooManyAttempts, path)
}

func (r *Renderer) promptRelated(ctx context.Context, session Interactive, path string) error {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		field, _ := session.Field(path)
		desc := field.Descriptor()

		query, err := r.driver.Input(ctx, InputConfig{
			Message: message(desc),
			Default: field.Display(),
			Help:    plainHelp(desc.HelpText),
		})
		if err != nil {
			return err
		}
		query = strings.TrimSpace(query)

		switch {
		case query == "" && !desc.Required:
			_, err := session.Dispatch(ctx, form.Event{Path: path, Kind: form.EventClear})
			return err
		case query == "" && field.Value() == nil:
			if err := r.errorf(ctx, "%s: %s", desc.Label, dispatcher.MessageRequired); err != nil {
				return err
			}
			continue
		case query == "" || (query == field.Display() && field.Value() != nil):
			return nil
		}

		if _, err := session.Dispatch(ctx, form.Event{Path: path, Kind: form.EventInput, Value: query}); err != nil {
			if infoErr := r.errorf(ctx, "%s: %v", desc.Label, err); infoErr != nil {
				return infoErr
			}
			continue
		}
		candidates := field.Picker().Results()
		if len(candidates) == 0 {
			if err := r.info(ctx, noResultsMsg); err != nil {
				return err
			}
			continue
		}

		labels := make([]string, 0, len(candidates)+1)
		for _, candidate := range candidates {
			labels = append(labels, candidate.Label)
		}
		labels = append(labels, searchAgain)
		idx, err := r.driver.Select(ctx, SelectConfig{Message: message(desc), Options: labels})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(candidates) {
			continue
		}
		if _, err := session.Dispatch(ctx, form.Event{Path: path, Kind: form.EventCommit, Value: strconv.Itoa(idx)}); err != nil {
			return err
		}
		if ok, err := r.checked(ctx, session, path); ok || err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrTooManyAttempts, path)
}

// checked validates the field after an answer and reports the message when
// it is still invalid. Server messages are shown but do not block the answer.
func (r *Renderer) checked(ctx context.Context, session Interactive, path string) (bool, error) {
	field, _ := session.Field(path)
	field.Validate()
	state := field.ClientState()
	if !state.Invalid {
		return true, nil
	}
	return false, r.errorf(ctx, "%s: %s", field.Descriptor().Label, state.Message)
}

func typeInto(ctx context.Context, session Interactive, path, answer string) error {
	for _, ev := range []form.Event{
		{Path: path, Kind: form.EventFocus},
		{Path: path, Kind: form.EventInput, Value: answer},
		{Path: path, Kind: form.EventBlur},
	} {
		if _, err := session.Dispatch(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Renderer) errorf(ctx context.Context, format string, args ...any) error {
	return r.driver.Info(ctx, r.theme.ErrorPrefix+fmt.Sprintf(format, args...))
}

func (r *Renderer) serialize(session Interactive, payload map[string]any) ([]byte, error) {
	if r.outputFormat == OutputFormatPrettyText {
		var b strings.Builder
		for _, field := range session.Fields() {
			fmt.Fprintf(&b, "%s: %s\n", field.Descriptor().Label, field.Display())
		}
		return []byte(b.String()), nil
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("tui: encode payload: %w", err)
	}
	return out, nil
}

func message(desc model.Descriptor) string {
	label := desc.Label
	if desc.Unit != "" {
		label += " (" + desc.Unit + ")"
	}
	if desc.Required {
		label += " *"
	}
	return label
}

var (
	plainPolicyOnce sync.Once
	plainPolicy     *bluemonday.Policy
)

// plainHelp strips markup from help texts written for the HTML renderer.
func plainHelp(raw string) string {
	plainPolicyOnce.Do(func() {
		plainPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(raw)))
}
