package model

import (
	"fmt"
	"strings"
)

// InputType enumerates the widget kinds a descriptor can bind to.
type InputType string

const (
	InputText         InputType = "text"
	InputTextArea     InputType = "textArea"
	InputPostalCode   InputType = "postalCode"
	InputNumber       InputType = "number"
	InputMoney        InputType = "money"
	InputDate         InputType = "date"
	InputSelect       InputType = "select"
	InputCombobox     InputType = "combobox"
	InputRelatedModel InputType = "relatedModel"
)

var inputTypes = []InputType{
	InputText,
	InputTextArea,
	InputPostalCode,
	InputNumber,
	InputMoney,
	InputDate,
	InputSelect,
	InputCombobox,
	InputRelatedModel,
}

var inputTypeLookup = func() map[string]InputType {
	lookup := make(map[string]InputType, len(inputTypes)*2)
	for _, kind := range inputTypes {
		lookup[normaliseInputKey(string(kind))] = kind
	}
	// aliases used by older form definitions
	lookup["textarea"] = InputTextArea
	lookup["postal"] = InputPostalCode
	lookup["postalcode"] = InputPostalCode
	lookup["dropdown"] = InputSelect
	lookup["related"] = InputRelatedModel
	lookup["relatedmodel"] = InputRelatedModel
	return lookup
}()

// InputTypes returns every supported input type in declaration order.
func InputTypes() []InputType {
	return append([]InputType(nil), inputTypes...)
}

// ParseInputType converts a raw identifier into an InputType. Matching ignores
// case and the separators '-', '_' and ' '.
func ParseInputType(raw string) (InputType, error) {
	key := normaliseInputKey(raw)
	if key == "" {
		return "", fmt.Errorf("model: input type is required")
	}
	if kind, ok := inputTypeLookup[key]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("model: unknown input type %q", raw)
}

// Valid reports whether the value is one of the declared input types.
func (t InputType) Valid() bool {
	for _, kind := range inputTypes {
		if kind == t {
			return true
		}
	}
	return false
}

// IsDropdown reports whether the type renders as a select or combobox.
func (t InputType) IsDropdown() bool {
	return t == InputSelect || t == InputCombobox
}

// IsNumeric reports whether the type stores numbers.
func (t InputType) IsNumeric() bool {
	return t == InputNumber || t == InputMoney
}

func (t InputType) String() string {
	return string(t)
}

func normaliseInputKey(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch r {
		case '-', '_', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// Option is a single dropdown choice.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Resolved returns the value a selection writes: Value when present, otherwise
// the Label.
func (o Option) Resolved() any {
	if o.Value != nil {
		if s, ok := o.Value.(string); !ok || s != "" {
			return o.Value
		}
	}
	return o.Label
}

// FieldState is the validation state owned by a single bound field.
type FieldState struct {
	Invalid bool   `json:"invalid"`
	Message string `json:"message,omitempty"`
}

// Valid is the zero state.
func (s FieldState) Valid() bool {
	return !s.Invalid
}

// FieldChange is the command a widget emits instead of mutating the draft.
type FieldChange struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Entity is a record returned by an entity search, keyed by API field name.
type Entity map[string]any

// ID returns the entity identifier rendered as a string. Empty when missing.
func (e Entity) ID() string {
	return e.String("id")
}

// String renders the value at key (dotted paths allowed) as a string.
func (e Entity) String(key string) string {
	value, ok := e.Lookup(key)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Lookup resolves a dotted key inside the entity.
func (e Entity) Lookup(key string) (any, bool) {
	key = strings.TrimSpace(key)
	if e == nil || key == "" {
		return nil, false
	}
	if value, ok := e[key]; ok {
		return value, true
	}
	var current any = map[string]any(e)
	for _, segment := range strings.Split(key, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
