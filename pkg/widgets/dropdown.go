package widgets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

// Dropdown covers both the closed-set select and the searchable combobox.
type Dropdown struct {
	options  []model.Option
	required bool
	search   bool
}

// NewDropdown returns a select (search=false) or combobox (search=true).
func NewDropdown(options []model.Option, required, search bool) *Dropdown {
	return &Dropdown{
		options:  append([]model.Option(nil), options...),
		required: required,
		search:   search,
	}
}

func (w *Dropdown) Input() model.InputType {
	if w.search {
		return model.InputCombobox
	}
	return model.InputSelect
}

// Options returns a copy of the configured options.
func (w *Dropdown) Options() []model.Option {
	return append([]model.Option(nil), w.options...)
}

// Format shows the label of the option whose resolved value matches.
func (w *Dropdown) Format(value any) string {
	if value == nil {
		return ""
	}
	if option, ok := w.optionFor(value); ok {
		return option.Label
	}
	return fmt.Sprint(value)
}

// Change resolves raw as an option value or label. Empty input clears the
// selection. For a combobox unmatched text is a search query and writes
// nothing; for a select it is rejected.
func (w *Dropdown) Change(raw string) Outcome {
	if strings.TrimSpace(raw) == "" {
		return w.Clear()
	}
	if option, ok := w.lookup(raw); ok {
		return w.Select(option)
	}
	if w.search {
		return Outcome{Display: raw}
	}
	return Outcome{Display: raw, Verdict: VerdictInvalid, Message: "unknown option"}
}

func (w *Dropdown) Blur(display string) Outcome {
	return Outcome{Display: display}
}

// Select writes option.Value when present, otherwise option.Label.
func (w *Dropdown) Select(option model.Option) Outcome {
	return Outcome{Value: option.Resolved(), Display: option.Label, Write: true, Verdict: VerdictValid}
}

// Clear writes nil, except on required fields where clearing is ignored.
func (w *Dropdown) Clear() Outcome {
	if w.required {
		return Outcome{}
	}
	return Outcome{Value: nil, Display: "", Write: true}
}

// Filter returns options whose label contains query (case-insensitive),
// prefix matches first. An empty query returns every option.
func (w *Dropdown) Filter(query string) []model.Option {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return w.Options()
	}
	type match struct {
		option model.Option
		prefix bool
		order  int
	}
	var matches []match
	for idx, option := range w.options {
		label := strings.ToLower(option.Label)
		if !strings.Contains(label, query) {
			continue
		}
		matches = append(matches, match{option: option, prefix: strings.HasPrefix(label, query), order: idx})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].prefix != matches[j].prefix {
			return matches[i].prefix
		}
		return matches[i].order < matches[j].order
	})
	out := make([]model.Option, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.option)
	}
	return out
}

func (w *Dropdown) lookup(raw string) (model.Option, bool) {
	raw = strings.TrimSpace(raw)
	for _, option := range w.options {
		if fmt.Sprint(option.Resolved()) == raw {
			return option, true
		}
	}
	for _, option := range w.options {
		if strings.EqualFold(option.Label, raw) {
			return option, true
		}
	}
	return model.Option{}, false
}

func (w *Dropdown) optionFor(value any) (model.Option, bool) {
	want := fmt.Sprint(value)
	for _, option := range w.options {
		if fmt.Sprint(option.Resolved()) == want {
			return option, true
		}
	}
	return model.Option{}, false
}
