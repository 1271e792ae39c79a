package model

import (
	"context"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// DefaultRelatedField is the entity key a related-model selection stores.
	DefaultRelatedField = "id"
	// MinRelatedQueryLength gates related-model searches.
	MinRelatedQueryLength = 2
	// MaxFractionDigits bounds numeric descriptor precision.
	MaxFractionDigits = 10
	// MoneyFractionDigits is the fixed precision of money inputs.
	MoneyFractionDigits = 2
	// MaxPathIndex bounds numeric path segments so a write cannot allocate an
	// arbitrarily large list.
	MaxPathIndex = 9999
)

// Validator reports whether a canonical value is acceptable.
type Validator func(value any) bool

// Descriptor is the static metadata describing one form field.
type Descriptor struct {
	Path        string    `json:"path"`
	Label       string    `json:"label"`
	Input       InputType `json:"input"`
	Required    bool      `json:"required"`
	Unit        string    `json:"unit,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	HelpText    string    `json:"helpText,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	// FractionDigits applies to number inputs; money inputs always use two.
	FractionDigits *int              `json:"fractionDigits,omitempty"`
	Validator      Validator         `json:"-"`
	Related        *RelatedSpec      `json:"related,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// SearchFilter narrows an entity search.
type SearchFilter struct {
	Resource string
	Query    string
	// QueryParam names the query string parameter carrying Query.
	QueryParam string
	Params     map[string]string
	Limit      int
}

// SearchPage is one page of entity search results.
type SearchPage struct {
	Contents   []Entity `json:"contents"`
	Size       int      `json:"size"`
	TotalItems int      `json:"total_items"`
}

// Searcher queries an external list endpoint for related entities.
type Searcher interface {
	Search(ctx context.Context, filter SearchFilter) (SearchPage, error)
}

// SearcherFunc adapts a function into a Searcher.
type SearcherFunc func(ctx context.Context, filter SearchFilter) (SearchPage, error)

// Search calls fn.
func (fn SearcherFunc) Search(ctx context.Context, filter SearchFilter) (SearchPage, error) {
	return fn(ctx, filter)
}

// RelatedSpec configures a related-model picker.
type RelatedSpec struct {
	Resource string `json:"resource"`
	// Field is the entity key written to the form value. Defaults to "id".
	Field string `json:"field,omitempty"`
	// LabelField names the entity key used for display and as the search
	// parameter. Label takes precedence for display when set.
	LabelField string              `json:"labelField,omitempty"`
	Label      func(Entity) string `json:"-"`
	Params     map[string]string   `json:"params,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
	Searcher   Searcher            `json:"-"`
}

// ValueField returns the configured value field or the default identifier.
func (r RelatedSpec) ValueField() string {
	if field := strings.TrimSpace(r.Field); field != "" {
		return field
	}
	return DefaultRelatedField
}

// DisplayLabel renders the human label for an entity.
func (r RelatedSpec) DisplayLabel(entity Entity) string {
	if r.Label != nil {
		return r.Label(entity)
	}
	if r.LabelField != "" {
		return entity.String(r.LabelField)
	}
	return entity.ID()
}

// Digits returns the fraction digits used by numeric inputs.
func (d Descriptor) Digits() int {
	if d.Input == InputMoney {
		return MoneyFractionDigits
	}
	if d.FractionDigits == nil {
		return 0
	}
	return *d.FractionDigits
}

// Validate enforces the configuration invariants of a descriptor. Failures are
// implementer errors and should not be shown to end users.
func (d Descriptor) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Path, validation.Required, validation.By(validPath)),
		validation.Field(&d.Input, validation.Required, validation.By(func(value any) error {
			if kind, _ := value.(InputType); !kind.Valid() {
				return validation.NewError("hitas.field.input_unknown", "unknown input type")
			}
			return nil
		})),
		validation.Field(&d.Options, validation.When(d.Input.IsDropdown(),
			validation.Required.Error("options are required for dropdown inputs"),
		)),
		validation.Field(&d.FractionDigits, validation.By(func(value any) error {
			digits, _ := value.(*int)
			if digits == nil {
				return nil
			}
			if *digits < 0 || *digits > MaxFractionDigits {
				return validation.NewError("hitas.field.fraction_digits", "fraction digits must be between 0 and 10")
			}
			return nil
		})),
		validation.Field(&d.Related, validation.By(func(value any) error {
			if d.Input != InputRelatedModel {
				return nil
			}
			related, _ := value.(*RelatedSpec)
			if related == nil {
				return validation.NewError("hitas.field.related_missing", "related model configuration is required")
			}
			if related.Searcher == nil {
				return validation.NewError("hitas.field.related_searcher", "related model query function is required")
			}
			if related.Label == nil && strings.TrimSpace(related.LabelField) == "" {
				return validation.NewError("hitas.field.related_label", "related model label function is required")
			}
			return nil
		})),
	)
}

func validPath(value any) error {
	path, _ := value.(string)
	for _, segment := range strings.Split(path, ".") {
		if strings.TrimSpace(segment) == "" {
			return validation.NewError("hitas.field.path_segment", "path contains an empty segment")
		}
		if idx, err := strconv.Atoi(segment); err == nil && idx > MaxPathIndex {
			return validation.NewError("hitas.field.path_index", "path index is too large")
		}
	}
	return nil
}
