package dispatcher

import (
	"github.com/goliatone/go-hitasforms/pkg/logging"
	"github.com/goliatone/go-hitasforms/pkg/model"
	"github.com/goliatone/go-hitasforms/pkg/picker"
	"github.com/goliatone/go-hitasforms/pkg/widgets"
)

const (
	MessageRequired = "required"
	MessageInvalid  = "invalid value"
)

// Field is one bound widget together with its validation state. A Field is
// not safe for concurrent use; callers serialise events per form.
type Field struct {
	desc    model.Descriptor
	widget  widgets.Widget
	picker  *picker.Picker
	setter  func(any)
	logger  logging.Logger
	value   any
	display string
	focused bool

	client model.FieldState

	serverErr     *model.ServerError
	serverPath    string
	serverMessage string
}

func (f *Field) Descriptor() model.Descriptor { return f.desc }
func (f *Field) Widget() widgets.Widget       { return f.widget }
func (f *Field) Path() string                 { return f.desc.Path }

// Value returns the canonical value last written or read from the draft.
func (f *Field) Value() any { return f.value }

// Display returns the text the control shows.
func (f *Field) Display() string { return f.display }

func (f *Field) Focused() bool { return f.focused }

// State merges client validation with any reconciled server message. The
// server message wins until a new error object replaces it.
func (f *Field) State() model.FieldState {
	if f.serverMessage != "" {
		return model.FieldState{Invalid: true, Message: f.serverMessage}
	}
	return f.client
}

// ClientState is the widget and validator verdict without server messages.
func (f *Field) ClientState() model.FieldState { return f.client }

// Picker returns the related-model picker, or nil for other inputs.
func (f *Field) Picker() *picker.Picker { return f.picker }

// Focus marks the control focused and clears client validation state.
func (f *Field) Focus() {
	f.focused = true
	f.client = model.FieldState{}
}

// Input feeds raw control text through the widget.
func (f *Field) Input(raw string) (model.FieldChange, bool) {
	return f.apply(f.widget.Change(raw))
}

// Blur validates the display text and unfocuses the control. Widgets without
// a display check leave the verdict to the required and validator rules.
func (f *Field) Blur() (model.FieldChange, bool) {
	f.focused = false
	out := f.widget.Blur(f.display)
	if out.Verdict == widgets.VerdictUnchanged {
		out.Verdict = widgets.VerdictValid
	}
	return f.apply(out)
}

// Select picks a dropdown option. It reports false for widgets without a
// fixed option set.
func (f *Field) Select(option model.Option) (model.FieldChange, bool) {
	selector, ok := f.widget.(widgets.Selector)
	if !ok {
		f.logger.Warn("select on non-dropdown field", "input", f.desc.Input.String())
		return model.FieldChange{}, false
	}
	return f.apply(selector.Select(option))
}

// Clear removes the selection of a dropdown or related-model field. Required
// dropdowns ignore it and report false.
func (f *Field) Clear() (model.FieldChange, bool) {
	clearer, ok := f.widget.(interface{ Clear() widgets.Outcome })
	if !ok {
		return f.Input("")
	}
	out := clearer.Clear()
	if !out.Write {
		f.logger.Debug("clear ignored on required field")
		return model.FieldChange{}, false
	}
	if f.picker != nil {
		f.picker.Close()
	}
	return f.apply(out)
}

// Commit stores the picker candidate at index. Only related-model fields have
// a picker.
func (f *Field) Commit(index int) (model.FieldChange, bool, error) {
	related, ok := f.widget.(*widgets.Related)
	if !ok || f.picker == nil {
		return model.FieldChange{}, false, picker.ErrClosed
	}
	sel, err := f.picker.Commit(index)
	if err != nil {
		return model.FieldChange{}, false, err
	}
	related.Seed(sel.Value, sel.Label)
	change, written := f.apply(widgets.Outcome{
		Value:   sel.Value,
		Display: related.Format(sel.Value),
		Write:   true,
		Verdict: widgets.VerdictValid,
	})
	return change, written, nil
}

// Wheel reports whether a mouse-wheel edit must be blocked.
func (f *Field) Wheel() bool {
	if guard, ok := f.widget.(widgets.WheelGuard); ok {
		return guard.Wheel(f.focused)
	}
	return false
}

// SetFieldValue is the uniform setter: it validates value, updates state and
// either emits a FieldChange or calls the alternate setter. The returned bool
// is false when the value went to the alternate setter.
func (f *Field) SetFieldValue(value any) (model.FieldChange, bool) {
	f.value = value
	f.display = f.widget.Format(value)
	return f.write(value)
}

func (f *Field) write(value any) (model.FieldChange, bool) {
	f.value = value
	f.client = f.validate(value)
	if f.setter != nil {
		f.setter(value)
		return model.FieldChange{}, false
	}
	return model.FieldChange{Path: f.desc.Path, Value: value}, true
}

// Validate re-checks the current value without writing it, for submit-time
// checks of fields the user never touched.
func (f *Field) Validate() model.FieldState {
	out := f.widget.Blur(f.display)
	f.client = f.validate(f.value)
	if !f.client.Invalid && out.Verdict == widgets.VerdictInvalid {
		f.client = model.FieldState{Invalid: true, Message: out.Message}
	}
	return f.State()
}

func (f *Field) validate(value any) model.FieldState {
	if f.desc.Validator != nil {
		if !f.desc.Validator(value) {
			return model.FieldState{Invalid: true, Message: MessageInvalid}
		}
		return model.FieldState{}
	}
	if f.desc.Required && widgets.IsEmpty(value) {
		return model.FieldState{Invalid: true, Message: MessageRequired}
	}
	return model.FieldState{}
}

func (f *Field) apply(out widgets.Outcome) (model.FieldChange, bool) {
	var (
		change  model.FieldChange
		written bool
	)
	if out.Write {
		change, written = f.write(out.Value)
	}
	f.display = out.Display

	switch out.Verdict {
	case widgets.VerdictInvalid:
		f.client = model.FieldState{Invalid: true, Message: out.Message}
	case widgets.VerdictValid:
		f.client = f.validate(f.value)
	}
	if f.client.Invalid {
		f.logger.Debug("field invalid", "message", f.client.Message)
	}
	return change, written
}

// ReconcileServerErrors surfaces the server message addressed to this field.
// It only re-runs when the error object or the field path differs from the
// last reconciliation.
func (f *Field) ReconcileServerErrors(err *model.ServerError) {
	if err == f.serverErr && f.desc.Path == f.serverPath {
		return
	}
	f.serverErr = err
	f.serverPath = f.desc.Path
	f.serverMessage = ""
	if msg, ok := err.MessageFor(f.desc.Path); ok {
		if msg == "" {
			msg = MessageInvalid
		}
		f.serverMessage = msg
	}
}
