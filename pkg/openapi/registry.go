package openapi

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

const (
	// ExtensionInput forces the input type of a property.
	ExtensionInput = "x-hitas-input"
	// ExtensionRelated marks a property as a related-model reference.
	ExtensionRelated = "x-hitas-related"
	// ExtensionMoney marks a numeric property as a money amount.
	ExtensionMoney = "x-money"
	// ExtensionUnit carries the unit suffix shown next to the control.
	ExtensionUnit = "x-hitas-unit"
	// ExtensionFractionDigits overrides the precision of number inputs.
	ExtensionFractionDigits = "x-hitas-fraction-digits"

	// ComboboxThreshold is the option count above which enums become
	// searchable comboboxes.
	ComboboxThreshold = 10
	// TextAreaThreshold is the maxLength above which strings become text areas.
	TextAreaThreshold = 200
)

// Property is one flattened schema property considered for input inference.
type Property struct {
	Name     string
	Path     string
	Schema   *openapi3.Schema
	Required bool
}

// Extension returns a vendor extension from the property schema or any of its
// allOf members.
func (p Property) Extension(key string) (any, bool) {
	return extension(p.Schema, key)
}

// Types returns the declared schema types.
func (p Property) Types() []string {
	if p.Schema == nil || p.Schema.Type == nil {
		return nil
	}
	return p.Schema.Type.Slice()
}

// Is reports whether the property declares the given type.
func (p Property) Is(typ string) bool {
	for _, declared := range p.Types() {
		if declared == typ {
			return true
		}
	}
	return false
}

// Matcher decides whether an input type applies to a property.
type Matcher func(Property) bool

type rule struct {
	input    model.InputType
	priority int
	match    Matcher
	order    int
}

// Registry maps properties to input types. An explicit x-hitas-input wins;
// otherwise the highest priority matcher decides and ties fall back to
// registration order.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry returns a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher for input at the given priority.
func (r *Registry) Register(input model.InputType, priority int, matcher Matcher) {
	if r == nil || matcher == nil || !input.Valid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{
		input:    input,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the input type for a property.
func (r *Registry) Resolve(prop Property) (model.InputType, bool) {
	if explicit, ok := explicitInput(prop); ok {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(prop) {
			return entry.input, true
		}
	}
	return "", false
}

func explicitInput(prop Property) (model.InputType, bool) {
	raw, ok := prop.Extension(ExtensionInput)
	if !ok {
		return "", false
	}
	name, _ := raw.(string)
	input, err := model.ParseInputType(name)
	if err != nil {
		return "", false
	}
	return input, true
}

var postalPattern = regexp.MustCompile(`^\^?(\\d|\[0-9\])\{5\}\$?$`)

func (r *Registry) registerBuiltins() {
	r.Register(model.InputRelatedModel, 100, func(p Property) bool {
		_, ok := p.Extension(ExtensionRelated)
		return ok
	})
	r.Register(model.InputCombobox, 91, func(p Property) bool {
		return p.Schema != nil && len(p.Schema.Enum) > ComboboxThreshold
	})
	r.Register(model.InputSelect, 90, func(p Property) bool {
		return p.Schema != nil && len(p.Schema.Enum) > 0
	})
	r.Register(model.InputDate, 80, func(p Property) bool {
		return p.Schema != nil && p.Schema.Format == "date"
	})
	r.Register(model.InputMoney, 70, func(p Property) bool {
		if flag, ok := p.Extension(ExtensionMoney); ok {
			enabled, _ := flag.(bool)
			return enabled
		}
		return p.Schema != nil && p.Schema.Format == "money"
	})
	r.Register(model.InputPostalCode, 60, func(p Property) bool {
		if !p.Is(openapi3.TypeString) {
			return false
		}
		if p.Schema.Pattern != "" && postalPattern.MatchString(p.Schema.Pattern) {
			return true
		}
		return strings.EqualFold(p.Name, "postal_code") || strings.EqualFold(p.Name, "postalCode")
	})
	r.Register(model.InputNumber, 50, func(p Property) bool {
		return p.Is(openapi3.TypeNumber) || p.Is(openapi3.TypeInteger)
	})
	r.Register(model.InputTextArea, 40, func(p Property) bool {
		return p.Schema != nil && p.Schema.MaxLength != nil && *p.Schema.MaxLength > TextAreaThreshold
	})
	r.Register(model.InputText, 0, func(Property) bool {
		return true
	})
}

func extension(schema *openapi3.Schema, key string) (any, bool) {
	if schema == nil {
		return nil, false
	}
	if value, ok := schema.Extensions[key]; ok {
		return value, true
	}
	for _, member := range schema.AllOf {
		if member == nil {
			continue
		}
		if value, ok := extension(member.Value, key); ok {
			return value, true
		}
	}
	return nil, false
}
