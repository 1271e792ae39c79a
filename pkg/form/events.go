package form

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-hitasforms/pkg/model"
	"github.com/goliatone/go-hitasforms/pkg/picker"
)

// EventKind names a UI event routed to one field.
type EventKind string

const (
	EventFocus  EventKind = "focus"
	EventInput  EventKind = "input"
	EventBlur   EventKind = "blur"
	EventSelect EventKind = "select"
	EventClear  EventKind = "clear"
	EventCommit EventKind = "commit"
)

// ParseEventKind accepts the lower-case event names used in URLs.
func ParseEventKind(raw string) (EventKind, error) {
	kind := EventKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case EventFocus, EventInput, EventBlur, EventSelect, EventClear, EventCommit:
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
}

// Event is one UI event. Value carries typed text for input, the option value
// or label for select, and the candidate index for commit.
type Event struct {
	Path  string
	Kind  EventKind
	Value string
}

// Dispatch routes ev to its field and applies the resulting change. It
// reports whether the draft changed. Input on a related-model field runs the
// picker search with ctx.
func (f *Form) Dispatch(ctx context.Context, ev Event) (bool, error) {
	field, err := f.lookup(ev.Path)
	if err != nil {
		return false, err
	}

	var (
		change  model.FieldChange
		written bool
	)
	switch ev.Kind {
	case EventFocus:
		field.Focus()
		return false, nil
	case EventInput:
		change, written = field.Input(ev.Value)
		if p := field.Picker(); p != nil {
			if p.State() == picker.StateClosed {
				p.Open()
			}
			if err := p.SetQuery(contextOrBackground(ctx), ev.Value); err != nil {
				return false, err
			}
		}
	case EventBlur:
		change, written = field.Blur()
	case EventSelect:
		option, ok := findOption(field.Descriptor().Options, ev.Value)
		if !ok {
			change, written = field.Input(ev.Value)
			break
		}
		change, written = field.Select(option)
	case EventClear:
		change, written = field.Clear()
	case EventCommit:
		index, convErr := strconv.Atoi(strings.TrimSpace(ev.Value))
		if convErr != nil {
			return false, fmt.Errorf("%w: commit index %q: %v", ErrEventValue, ev.Value, convErr)
		}
		change, written, err = field.Commit(index)
		if err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}

	if !written {
		return false, nil
	}
	if err := f.Apply(change); err != nil {
		return false, err
	}
	return true, nil
}

func findOption(options []model.Option, raw string) (model.Option, bool) {
	raw = strings.TrimSpace(raw)
	for _, option := range options {
		if fmt.Sprint(option.Resolved()) == raw {
			return option, true
		}
	}
	for _, option := range options {
		if strings.EqualFold(option.Label, raw) {
			return option, true
		}
	}
	return model.Option{}, false
}

// Input is shorthand for an input event followed by nothing else.
func (f *Form) Input(ctx context.Context, path, raw string) (bool, error) {
	return f.Dispatch(ctx, Event{Path: path, Kind: EventInput, Value: raw})
}

// Type simulates a user editing a field: focus, input, blur.
func (f *Form) Type(ctx context.Context, path, raw string) (bool, error) {
	if _, err := f.Dispatch(ctx, Event{Path: path, Kind: EventFocus}); err != nil {
		return false, err
	}
	changed, err := f.Dispatch(ctx, Event{Path: path, Kind: EventInput, Value: raw})
	if err != nil {
		return false, err
	}
	blurred, err := f.Dispatch(ctx, Event{Path: path, Kind: EventBlur})
	return changed || blurred, err
}
