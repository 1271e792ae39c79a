package widgets

import (
	"strings"
	"time"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

const (
	// DisplayDateLayout is the locale format shown to users (dd.MM.yyyy).
	DisplayDateLayout = "02.01.2006"
	// ISODateLayout is the canonical stored format (yyyy-MM-dd).
	ISODateLayout = "2006-01-02"

	parseDisplayLayout = "2.1.2006"
)

// Date shows dd.MM.yyyy while storing ISO dates. Input with an incomplete
// year is kept as the raw display string until it can be converted.
type Date struct{}

// NewDate returns a date widget.
func NewDate() *Date {
	return &Date{}
}

func (w *Date) Input() model.InputType { return model.InputDate }

// Format renders ISO values as display dates. Anything else (including a
// provisional raw string) is shown unchanged.
func (w *Date) Format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format(DisplayDateLayout)
	case string:
		if parsed, err := time.Parse(ISODateLayout, strings.TrimSpace(v)); err == nil {
			return parsed.Format(DisplayDateLayout)
		}
		return v
	default:
		return ""
	}
}

func (w *Date) Change(raw string) Outcome {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Outcome{Value: nil, Display: raw, Write: true}
	}

	if !hasFullYear(trimmed) {
		return Outcome{
			Value:   raw,
			Display: raw,
			Write:   true,
			Verdict: VerdictInvalid,
			Message: "enter the date as dd.mm.yyyy",
		}
	}

	iso, ok := DisplayToISO(trimmed)
	if !ok {
		return Outcome{
			Value:   raw,
			Display: raw,
			Write:   true,
			Verdict: VerdictInvalid,
			Message: "invalid date",
		}
	}
	return Outcome{Value: iso, Display: raw, Write: true, Verdict: VerdictValid}
}

// Blur re-checks the display text, so a provisional value stays invalid after
// focus cleared the state.
func (w *Date) Blur(display string) Outcome {
	out := w.Change(display)
	return Outcome{Display: display, Verdict: out.Verdict, Message: out.Message}
}

// DisplayToISO converts d.M.yyyy (one or two digit day and month) to ISO.
func DisplayToISO(display string) (string, bool) {
	parsed, err := time.Parse(parseDisplayLayout, strings.TrimSpace(display))
	if err != nil {
		return "", false
	}
	return parsed.Format(ISODateLayout), true
}

// ISOToDisplay converts an ISO date to dd.MM.yyyy.
func ISOToDisplay(iso string) (string, bool) {
	parsed, err := time.Parse(ISODateLayout, strings.TrimSpace(iso))
	if err != nil {
		return "", false
	}
	return parsed.Format(DisplayDateLayout), true
}

func hasFullYear(display string) bool {
	year := display
	if idx := strings.LastIndex(display, "."); idx >= 0 {
		year = display[idx+1:]
	}
	count := 0
	for _, r := range year {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count >= 4
}
