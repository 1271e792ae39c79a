// Package formdef loads form schemas from YAML definitions. Field validators
// are CEL expressions over the canonical field value.
package formdef

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

// TextCodeDefinitionInvalid tags definition files that cannot be loaded.
const TextCodeDefinitionInvalid = "FORM_DEFINITION_INVALID"

// Definition is the YAML shape of one form.
type Definition struct {
	Name     string  `yaml:"name"`
	Title    string  `yaml:"title"`
	Resource string  `yaml:"resource"`
	Fields   []Field `yaml:"fields"`
}

// Field is the YAML shape of one descriptor.
type Field struct {
	Path           string            `yaml:"path"`
	Label          string            `yaml:"label"`
	Input          string            `yaml:"input"`
	Required       bool              `yaml:"required"`
	Unit           string            `yaml:"unit"`
	Placeholder    string            `yaml:"placeholder"`
	Help           string            `yaml:"help"`
	Options        []model.Option    `yaml:"options"`
	FractionDigits *int              `yaml:"fractionDigits"`
	Validate       string            `yaml:"validate"`
	Related        *Related          `yaml:"related"`
	Metadata       map[string]string `yaml:"metadata"`
}

// Related is the YAML shape of a related-model picker.
type Related struct {
	Resource   string            `yaml:"resource"`
	Field      string            `yaml:"field"`
	LabelField string            `yaml:"labelField"`
	Params     map[string]string `yaml:"params"`
	Limit      int               `yaml:"limit"`
}

// Parse decodes and compiles one YAML definition. Searchers are not part of
// the file; related-model descriptors get theirs from the dispatcher.
func Parse(data []byte) (model.FormSchema, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return model.FormSchema{}, definitionError("", fmt.Errorf("decode yaml: %w", err))
	}
	return def.Schema()
}

// Schema converts the definition into descriptors, compiling validators.
func (d Definition) Schema() (model.FormSchema, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return model.FormSchema{}, definitionError("", fmt.Errorf("name is required"))
	}
	if len(d.Fields) == 0 {
		return model.FormSchema{}, definitionError(name, fmt.Errorf("at least one field is required"))
	}

	schema := model.FormSchema{
		Name:     name,
		Title:    strings.TrimSpace(d.Title),
		Resource: strings.TrimSpace(d.Resource),
		Fields:   make([]model.Descriptor, 0, len(d.Fields)),
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for idx, field := range d.Fields {
		desc, err := field.descriptor()
		if err != nil {
			return model.FormSchema{}, definitionError(name, fmt.Errorf("fields[%d]: %w", idx, err))
		}
		if _, dup := seen[desc.Path]; dup {
			return model.FormSchema{}, definitionError(name, fmt.Errorf("fields[%d]: duplicate path %q", idx, desc.Path))
		}
		seen[desc.Path] = struct{}{}
		schema.Fields = append(schema.Fields, desc)
	}
	return schema, nil
}

func (f Field) descriptor() (model.Descriptor, error) {
	input, err := model.ParseInputType(f.Input)
	if err != nil {
		return model.Descriptor{}, err
	}
	desc := model.Descriptor{
		Path:           strings.TrimSpace(f.Path),
		Label:          strings.TrimSpace(f.Label),
		Input:          input,
		Required:       f.Required,
		Unit:           f.Unit,
		Placeholder:    f.Placeholder,
		HelpText:       f.Help,
		Options:        f.Options,
		FractionDigits: f.FractionDigits,
		Metadata:       f.Metadata,
	}
	if desc.Path == "" {
		return model.Descriptor{}, fmt.Errorf("path is required")
	}
	if desc.Label == "" {
		desc.Label = desc.Path
	}
	if expr := strings.TrimSpace(f.Validate); expr != "" {
		validator, err := CompileValidator(expr)
		if err != nil {
			return model.Descriptor{}, fmt.Errorf("%s: validate: %w", desc.Path, err)
		}
		desc.Validator = validator
		if desc.Metadata == nil {
			desc.Metadata = map[string]string{}
		}
		desc.Metadata["validate"] = expr
	}
	if f.Related != nil {
		desc.Related = &model.RelatedSpec{
			Resource:   strings.TrimSpace(f.Related.Resource),
			Field:      strings.TrimSpace(f.Related.Field),
			LabelField: strings.TrimSpace(f.Related.LabelField),
			Params:     f.Related.Params,
			Limit:      f.Related.Limit,
		}
	}
	if input == model.InputRelatedModel {
		if desc.Related == nil || desc.Related.Resource == "" {
			return model.Descriptor{}, fmt.Errorf("%s: related.resource is required", desc.Path)
		}
		if desc.Related.LabelField == "" {
			return model.Descriptor{}, fmt.Errorf("%s: related.labelField is required", desc.Path)
		}
	}
	if input.IsDropdown() && len(desc.Options) == 0 {
		return model.Descriptor{}, fmt.Errorf("%s: options are required for %s", desc.Path, input)
	}
	return desc, nil
}

func definitionError(name string, err error) error {
	msg := "form definition is invalid"
	if name != "" {
		msg = fmt.Sprintf("form definition %q is invalid", name)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).WithTextCode(TextCodeDefinitionInvalid)
}
