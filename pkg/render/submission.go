package render

import (
	"fmt"
	"sort"
	"strings"
)

// HiddenField is a hidden input emitted next to the visible fields.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// SessionField carries the form session identifier.
func SessionField(id string) HiddenField {
	return Hidden("_session", id)
}

// CSRFToken carries an anti-forgery token under the backend's input name.
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// SortedHiddenFields drops empty names, lets later fields win on collisions
// and sorts the result by name.
func SortedHiddenFields(fields []HiddenField) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	byName := make(map[string]string, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		byName[name] = field.Value
	}
	if len(byName) == 0 {
		return nil
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]HiddenField, 0, len(names))
	for _, name := range names {
		out = append(out, HiddenField{Name: name, Value: byName[name]})
	}
	return out
}

// MethodOverride returns the verb the browser should use and the hidden
// override field for verbs HTML forms cannot send.
func MethodOverride(method string) (string, *HiddenField) {
	verb := strings.ToUpper(strings.TrimSpace(method))
	switch verb {
	case "", "POST":
		return "post", nil
	case "GET":
		return "get", nil
	default:
		field := Hidden("_method", verb)
		return "post", &field
	}
}
