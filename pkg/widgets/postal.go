package widgets

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

// PostalCodeLength is the only accepted non-empty postal code length.
const PostalCodeLength = 5

// PostalCode keeps digits only and requires exactly five of them.
type PostalCode struct {
	required bool
}

// NewPostalCode returns a postal code widget.
func NewPostalCode(required bool) *PostalCode {
	return &PostalCode{required: required}
}

func (w *PostalCode) Input() model.InputType { return model.InputPostalCode }

func (w *PostalCode) Format(value any) string {
	if value == nil {
		return ""
	}
	return DigitsOnly(fmt.Sprint(value))
}

func (w *PostalCode) Change(raw string) Outcome {
	digits := DigitsOnly(raw)
	return Outcome{Value: digits, Display: digits, Write: true}
}

// Blur accepts exactly five digits, or an empty value on optional fields.
func (w *PostalCode) Blur(display string) Outcome {
	digits := DigitsOnly(display)
	if ValidPostalCode(digits, w.required) {
		return Outcome{Display: digits, Verdict: VerdictValid}
	}
	return Outcome{
		Display: digits,
		Verdict: VerdictInvalid,
		Message: fmt.Sprintf("postal code must be %d digits", PostalCodeLength),
	}
}

// ValidPostalCode applies the blur rule to an already stripped value.
func ValidPostalCode(digits string, required bool) bool {
	switch len(digits) {
	case PostalCodeLength:
		return true
	case 0:
		return !required
	default:
		return false
	}
}

// DigitsOnly strips every non-digit character.
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
