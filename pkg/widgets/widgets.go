// Package widgets implements the typed input widgets bound by the dispatcher.
//
// Each widget owns exactly one input concern: turning raw keystroke-level text
// into a canonical domain value, formatting a stored value for display, and
// checking the display text on blur. Widgets never touch the draft object; they
// return an Outcome that the dispatcher turns into a model.FieldChange.
package widgets

import (
	"fmt"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

// Verdict is the validity decision a widget reaches for one event.
type Verdict int

const (
	// VerdictUnchanged leaves validation to the dispatcher.
	VerdictUnchanged Verdict = iota
	// VerdictValid clears any widget-level invalid state.
	VerdictValid
	// VerdictInvalid marks the field invalid with Outcome.Message.
	VerdictInvalid
)

func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictInvalid:
		return "invalid"
	default:
		return "unchanged"
	}
}

// Outcome is the result of a widget event.
type Outcome struct {
	// Value is the canonical value to store when Write is true.
	Value any
	// Display is the text the control shows after the event.
	Display string
	// Write reports whether the event produces a value for the draft.
	Write   bool
	Verdict Verdict
	Message string
}

// Widget converts raw control input into canonical values.
type Widget interface {
	Input() model.InputType
	// Format renders a stored canonical value as display text.
	Format(value any) string
	// Change handles a raw input event.
	Change(raw string) Outcome
	// Blur validates the current display text when the control loses focus.
	Blur(display string) Outcome
}

// Selector is implemented by widgets that pick from a fixed option set.
type Selector interface {
	Widget
	Options() []model.Option
	Select(option model.Option) Outcome
	Clear() Outcome
}

// WheelGuard is implemented by widgets that refuse mouse-wheel edits while
// focused.
type WheelGuard interface {
	Wheel(focused bool) (blocked bool)
}

// New binds the widget matching the descriptor input type. Descriptors are
// expected to have passed Validate; the error branch only covers zero values.
func New(desc model.Descriptor) (Widget, error) {
	switch desc.Input {
	case model.InputText:
		return newText(model.InputText), nil
	case model.InputTextArea:
		return newText(model.InputTextArea), nil
	case model.InputPostalCode:
		return NewPostalCode(desc.Required), nil
	case model.InputNumber:
		return NewNumber(desc.Digits()), nil
	case model.InputMoney:
		return NewMoney(), nil
	case model.InputDate:
		return NewDate(), nil
	case model.InputSelect:
		return NewDropdown(desc.Options, desc.Required, false), nil
	case model.InputCombobox:
		return NewDropdown(desc.Options, desc.Required, true), nil
	case model.InputRelatedModel:
		if desc.Related == nil {
			return nil, fmt.Errorf("widgets: related model %q has no configuration", desc.Path)
		}
		return NewRelated(*desc.Related, desc.Required), nil
	}
	return nil, fmt.Errorf("widgets: no widget for input type %q", desc.Input)
}

// IsEmpty reports whether a canonical value counts as empty for required
// checks.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return len(trimSpace(v)) == 0
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
