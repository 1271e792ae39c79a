package widgets

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

// Related shows a human label for a related entity while the form stores one
// scalar field of that entity (its id by default).
type Related struct {
	spec     model.RelatedSpec
	required bool
	label    string
	value    any
}

// NewRelated returns a related-model widget.
func NewRelated(spec model.RelatedSpec, required bool) *Related {
	return &Related{spec: spec, required: required}
}

// Spec returns the picker configuration.
func (w *Related) Spec() model.RelatedSpec { return w.spec }

func (w *Related) Input() model.InputType { return model.InputRelatedModel }

// Format returns the label of the last chosen entity when it still matches the
// stored value, otherwise the raw value.
func (w *Related) Format(value any) string {
	if value == nil {
		return ""
	}
	if w.label != "" && fmt.Sprint(value) == fmt.Sprint(w.value) {
		return w.label
	}
	if entity, ok := value.(map[string]any); ok {
		return w.spec.DisplayLabel(model.Entity(entity))
	}
	return fmt.Sprint(value)
}

// Change treats typed text as a picker query; it never writes the draft.
func (w *Related) Change(raw string) Outcome {
	return Outcome{Display: raw}
}

func (w *Related) Blur(display string) Outcome {
	return Outcome{Display: display}
}

// Choose commits an entity: the requested field is written and the label is
// remembered for display.
func (w *Related) Choose(entity model.Entity) Outcome {
	value, _ := entity.Lookup(w.spec.ValueField())
	w.value = value
	w.label = strings.TrimSpace(w.spec.DisplayLabel(entity))
	return Outcome{Value: value, Display: w.label, Write: true, Verdict: VerdictValid}
}

// Clear removes the selection.
func (w *Related) Clear() Outcome {
	w.value = nil
	w.label = ""
	return Outcome{Value: nil, Display: "", Write: true}
}

// Seed records a known label for an existing stored value, so forms opened on
// saved drafts show names instead of identifiers.
func (w *Related) Seed(value any, label string) {
	w.value = value
	w.label = strings.TrimSpace(label)
}

// Required reports whether the bound descriptor demands a value.
func (w *Related) Required() bool { return w.required }
