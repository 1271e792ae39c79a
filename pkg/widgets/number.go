package widgets

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

// Number accepts decimal input truncated to a fixed number of fraction digits.
// The canonical value is the truncated decimal string, or nil when empty.
type Number struct {
	digits int
}

// NewNumber returns a number widget keeping at most digits fraction digits.
func NewNumber(digits int) *Number {
	if digits < 0 {
		digits = 0
	}
	if digits > model.MaxFractionDigits {
		digits = model.MaxFractionDigits
	}
	return &Number{digits: digits}
}

// FractionDigits returns the configured precision.
func (w *Number) FractionDigits() int { return w.digits }

func (w *Number) Input() model.InputType { return model.InputNumber }

func (w *Number) Format(value any) string {
	return formatNumeric(value, w.digits)
}

func (w *Number) Change(raw string) Outcome {
	display := TruncateDecimal(raw, w.digits)
	return Outcome{Value: numberValue(display), Display: display, Write: true}
}

func (w *Number) Blur(display string) Outcome {
	return Outcome{Display: display}
}

// Wheel blocks scroll-driven value changes while the control has focus.
func (w *Number) Wheel(focused bool) bool { return focused }

// Money is a number widget fixed at two fraction digits whose canonical value
// is a float64.
type Money struct {
	number *Number
}

// NewMoney returns a money widget.
func NewMoney() *Money {
	return &Money{number: NewNumber(model.MoneyFractionDigits)}
}

func (w *Money) Input() model.InputType { return model.InputMoney }

func (w *Money) Format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return TruncateDecimal(v, model.MoneyFractionDigits)
	}
	if f, ok := toFloat(value); ok {
		return padFraction(TruncateDecimal(strconv.FormatFloat(f, 'f', -1, 64), model.MoneyFractionDigits), model.MoneyFractionDigits)
	}
	return fmt.Sprint(value)
}

func (w *Money) Change(raw string) Outcome {
	out := w.number.Change(raw)
	out.Value = moneyValue(out.Display)
	return out
}

// Blur pads the display to exactly two fraction digits.
func (w *Money) Blur(display string) Outcome {
	if moneyValue(display) == nil {
		return Outcome{Display: display}
	}
	return Outcome{Display: padFraction(strings.TrimSuffix(display, "."), model.MoneyFractionDigits)}
}

func (w *Money) Wheel(focused bool) bool { return w.number.Wheel(focused) }

// TruncateDecimal keeps digits and at most one decimal separator, dropping any
// fraction digits beyond the limit. It never rounds. A leading separator gets
// a zero prepended (".5" -> "0.5") and ',' is read as a decimal separator.
// With digits == 0 sign, exponent and separator characters are rejected; with
// digits > 0 a single leading '-' is kept. Exponents are always dropped.
func TruncateDecimal(raw string, digits int) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw) + 1)
	separator := false
	fraction := 0
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			if separator {
				if fraction >= digits {
					continue
				}
				fraction++
			}
			b.WriteRune(r)
		case r == '.' || r == ',':
			if digits == 0 || separator {
				continue
			}
			separator = true
			if body := strings.TrimPrefix(b.String(), "-"); body == "" {
				b.WriteByte('0')
			}
			b.WriteByte('.')
		case r == '-':
			if digits == 0 || i != 0 {
				continue
			}
			b.WriteByte('-')
		}
	}
	return b.String()
}

func numberValue(display string) any {
	canonical := strings.TrimSuffix(display, ".")
	if canonical == "" || canonical == "-" {
		return nil
	}
	return canonical
}

func moneyValue(display string) any {
	canonical := strings.TrimSuffix(display, ".")
	if canonical == "" || canonical == "-" {
		return nil
	}
	f, err := strconv.ParseFloat(canonical, 64)
	if err != nil {
		return nil
	}
	return f
}

func formatNumeric(value any, digits int) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return TruncateDecimal(v, digits)
	case json.Number:
		return TruncateDecimal(v.String(), digits)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	if f, ok := toFloat(value); ok {
		return TruncateDecimal(strconv.FormatFloat(f, 'f', -1, 64), digits)
	}
	return fmt.Sprint(value)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// padFraction right-pads the fraction part of a decimal string with zeros.
func padFraction(decimal string, digits int) string {
	if decimal == "" || digits <= 0 {
		return decimal
	}
	dot := strings.IndexByte(decimal, '.')
	if dot < 0 {
		return decimal + "." + strings.Repeat("0", digits)
	}
	if missing := digits - (len(decimal) - dot - 1); missing > 0 {
		return decimal + strings.Repeat("0", missing)
	}
	return decimal
}
