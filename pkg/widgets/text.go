package widgets

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

// Text is the pass-through widget used by text and textArea inputs.
type Text struct {
	kind model.InputType
}

func newText(kind model.InputType) *Text {
	return &Text{kind: kind}
}

// NewText returns a single-line text widget.
func NewText() *Text {
	return newText(model.InputText)
}

// NewTextArea returns a multi-line text widget.
func NewTextArea() *Text {
	return newText(model.InputTextArea)
}

func (w *Text) Input() model.InputType { return w.kind }

func (w *Text) Format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (w *Text) Change(raw string) Outcome {
	if w.kind == model.InputText {
		raw = strings.ReplaceAll(raw, "\n", " ")
	}
	return Outcome{Value: raw, Display: raw, Write: true}
}

func (w *Text) Blur(display string) Outcome {
	return Outcome{Display: display}
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
