// Package form implements the form session that owns a draft: it binds one
// dispatcher field per descriptor, routes UI events by path and applies the
// emitted FieldChanges to the draft.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-hitasforms/internal/subscription"
	"github.com/goliatone/go-hitasforms/pkg/dispatcher"
	"github.com/goliatone/go-hitasforms/pkg/logging"
	"github.com/goliatone/go-hitasforms/pkg/model"
	"github.com/goliatone/go-hitasforms/pkg/render"
	"github.com/goliatone/go-hitasforms/pkg/valuepath"
)

// TextCodeServerValidation tags submissions rejected by the API.
const TextCodeServerValidation = "SERVER_VALIDATION_FAILED"

var (
	ErrUnknownField = errors.New("form: unknown field")
	ErrUnknownEvent = errors.New("form: unknown event")
	ErrEventValue   = errors.New("form: malformed event value")
)

// Option configures a Form.
type Option func(*Form)

// WithDispatcher sets the dispatcher used to bind fields.
func WithDispatcher(d *dispatcher.Dispatcher) Option {
	return func(f *Form) {
		if d != nil {
			f.dispatcher = d
		}
	}
}

// WithLogger sets the form logger.
func WithLogger(logger logging.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithLabels seeds display labels for related-model values already present in
// the draft, keyed by field path.
func WithLabels(labels map[string]string) Option {
	return func(f *Form) {
		for path, label := range labels {
			f.labels[path] = label
		}
	}
}

// WithExternal routes writes of path to setter instead of the draft.
func WithExternal(path string, setter func(any)) Option {
	return func(f *Form) {
		if setter != nil {
			f.external[path] = setter
		}
	}
}

// Form is not safe for concurrent use.
type Form struct {
	schema     model.FormSchema
	dispatcher *dispatcher.Dispatcher
	logger     logging.Logger
	draft      map[string]any
	fields     []*dispatcher.Field
	byPath     map[string]*dispatcher.Field
	labels     map[string]string
	external   map[string]func(any)
	serverErr  *model.ServerError
	formErrors []string
	changes    subscription.Set[model.FieldChange]
}

// New binds every descriptor of schema against a copy of draft.
func New(schema model.FormSchema, draft map[string]any, opts ...Option) (*Form, error) {
	f := &Form{
		schema:     schema,
		dispatcher: dispatcher.New(),
		logger:     logging.NoOp(),
		draft:      valuepath.Clone(draft),
		byPath:     make(map[string]*dispatcher.Field, len(schema.Fields)),
		labels:     make(map[string]string),
		external:   make(map[string]func(any)),
	}
	if f.draft == nil {
		f.draft = map[string]any{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	for _, desc := range schema.Fields {
		if _, dup := f.byPath[desc.Path]; dup {
			return nil, goerrors.Wrap(fmt.Errorf("duplicate field path %q", desc.Path), goerrors.CategoryInternal, "form schema is invalid").
				WithTextCode(dispatcher.TextCodeFieldConfig)
		}
		field, err := f.bind(desc)
		if err != nil {
			return nil, err
		}
		f.fields = append(f.fields, field)
		f.byPath[desc.Path] = field
	}
	f.logger.Debug("form bound", "form", schema.Name, "fields", len(f.fields))
	return f, nil
}

func (f *Form) bind(desc model.Descriptor) (*dispatcher.Field, error) {
	opts := []dispatcher.FieldOption{dispatcher.WithServerErrors(f.serverErr)}
	if label := f.labels[desc.Path]; label != "" {
		opts = append(opts, dispatcher.WithDisplay(label))
	}
	if setter := f.external[desc.Path]; setter != nil {
		opts = append(opts, dispatcher.WithSetter(setter))
	}
	return f.dispatcher.Render(desc, f.draft, opts...)
}

func (f *Form) Name() string             { return f.schema.Name }
func (f *Form) Title() string            { return f.schema.Title }
func (f *Form) Resource() string         { return f.schema.Resource }
func (f *Form) Schema() model.FormSchema { return f.schema }
func (f *Form) FormErrors() []string     { return append([]string(nil), f.formErrors...) }
func (f *Form) Fields() []*dispatcher.Field {
	return append([]*dispatcher.Field(nil), f.fields...)
}

// Field returns the bound field for path.
func (f *Form) Field(path string) (*dispatcher.Field, bool) {
	field, ok := f.byPath[path]
	return field, ok
}

// Subscribe registers fn for every change applied to the draft. Close the
// returned handle to stop receiving changes.
func (f *Form) Subscribe(fn func(model.FieldChange)) *subscription.Handle {
	return f.changes.Add(fn)
}

// Subscribers reports how many change subscriptions are live.
func (f *Form) Subscribers() int { return f.changes.Len() }

// Apply is the reducer: it writes changes into the draft in order, notifies
// subscribers and re-binds fields whose path overlaps a changed path.
func (f *Form) Apply(changes ...model.FieldChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := valuepath.Apply(f.draft, changes...); err != nil {
		return err
	}
	for _, change := range changes {
		f.changes.Notify(change)
		if err := f.refresh(change.Path); err != nil {
			return err
		}
	}
	return nil
}

// refresh re-binds fields nested under or above path so they reflect the new
// draft; the field bound exactly to path already holds the value.
func (f *Form) refresh(path string) error {
	for i, field := range f.fields {
		other := field.Path()
		if other == path || !overlaps(other, path) {
			continue
		}
		rebound, err := f.bind(field.Descriptor())
		if err != nil {
			return err
		}
		f.fields[i] = rebound
		f.byPath[other] = rebound
	}
	return nil
}

func overlaps(a, b string) bool {
	return strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}

// Draft returns the live draft. Callers must not mutate it; use Payload for a
// copy.
func (f *Form) Draft() map[string]any { return f.draft }

// Payload returns a deep copy of the draft for submission.
func (f *Form) Payload() map[string]any {
	return valuepath.Clone(f.draft)
}

// InvalidField describes one field failing validation.
type InvalidField struct {
	Path    string `json:"path"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// Validate re-checks every field and returns the failures in field order.
func (f *Form) Validate() []InvalidField {
	for _, field := range f.fields {
		field.Validate()
	}
	return f.Invalid()
}

// Invalid lists fields whose current state is invalid, without re-checking.
func (f *Form) Invalid() []InvalidField {
	var out []InvalidField
	for _, field := range f.fields {
		state := field.State()
		if !state.Invalid {
			continue
		}
		desc := field.Descriptor()
		out = append(out, InvalidField{Path: desc.Path, Label: desc.Label, Message: state.Message})
	}
	return out
}

// Valid re-checks every field and reports whether the form can be submitted.
func (f *Form) Valid() bool {
	return len(f.Validate()) == 0 && len(f.formErrors) == 0
}

// ApplyServerError reconciles a rejected submission into field states and
// form-level messages. A nil error clears previous server messages.
func (f *Form) ApplyServerError(serverErr *model.ServerError) {
	mapping := render.MapServerErrors(f.schema.Fields, serverErr)
	message := ""
	if serverErr != nil {
		message = serverErr.Data.Message
	}
	f.serverErr = mapping.ServerError(message)
	f.formErrors = mapping.Form
	for _, field := range f.fields {
		field.ReconcileServerErrors(f.serverErr)
	}
	if serverErr != nil {
		f.logger.Info("server rejected submission", "form", f.schema.Name, "fields", len(mapping.Fields), "form_errors", len(mapping.Form))
	}
}

// ServerValidationError wraps a rejected submission in the go-errors taxonomy.
func ServerValidationError(serverErr *model.ServerError) error {
	if serverErr == nil {
		return nil
	}
	return goerrors.Wrap(serverErr, goerrors.CategoryValidation, "submission rejected").
		WithTextCode(TextCodeServerValidation)
}

// lookup returns the field for path or ErrUnknownField.
func (f *Form) lookup(path string) (*dispatcher.Field, error) {
	field, ok := f.byPath[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, path)
	}
	return field, nil
}

// contextOrBackground guards event handlers called without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
