package openapi

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-hitasforms/pkg/formdef"
	"github.com/goliatone/go-hitasforms/pkg/model"
)

const (
	// TextCodeDocumentInvalid tags documents that cannot produce a form.
	TextCodeDocumentInvalid = "OPENAPI_DOCUMENT_INVALID"

	// ExtensionValidate carries a CEL validation expression over `value`.
	ExtensionValidate = "x-hitas-validate"
	// ExtensionOrder positions a property within its parent.
	ExtensionOrder = "x-hitas-order"
	// ExtensionResource names the API resource an operation writes to.
	ExtensionResource = "x-hitas-resource"
)

var mediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

// Option configures a Deriver.
type Option func(*Deriver)

// WithRegistry replaces the input type registry.
func WithRegistry(registry *Registry) Option {
	return func(d *Deriver) {
		if registry != nil {
			d.registry = registry
		}
	}
}

// WithDecorators registers decorators run over the derived descriptors.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(d *Deriver) {
		d.decorators = append(d.decorators, decorators...)
	}
}

// WithExternalRefs allows the loader to follow references outside the
// document.
func WithExternalRefs(allow bool) Option {
	return func(d *Deriver) {
		d.externalRefs = allow
	}
}

// Deriver turns an operation request body into a form schema.
type Deriver struct {
	registry     *Registry
	decorators   []model.Decorator
	externalRefs bool
}

// NewDeriver constructs a Deriver with the built-in registry.
func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{registry: NewRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Descriptors derives the descriptors for operationID using the default
// registry.
func Descriptors(ctx context.Context, raw []byte, operationID string) ([]model.Descriptor, error) {
	schema, err := NewDeriver().Schema(ctx, raw, operationID)
	if err != nil {
		return nil, err
	}
	return schema.Fields, nil
}

// Operations lists the operation ids that accept a request body.
func Operations(ctx context.Context, raw []byte) ([]string, error) {
	spec, err := load(ctx, raw, false)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range operations(spec) {
		if entry.op.RequestBody != nil && entry.op.OperationID != "" {
			ids = append(ids, entry.op.OperationID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Schema loads raw and flattens the request body of operationID into a form
// schema. Nested objects become dotted paths.
func (d *Deriver) Schema(ctx context.Context, raw []byte, operationID string) (model.FormSchema, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	spec, err := load(ctx, raw, d.externalRefs)
	if err != nil {
		return model.FormSchema{}, err
	}

	var found *operationEntry
	for _, entry := range operations(spec) {
		if entry.op.OperationID == operationID {
			found = &entry
			break
		}
	}
	if found == nil {
		return model.FormSchema{}, documentError(fmt.Errorf("operation %q not found", operationID))
	}

	body := requestSchema(found.op.RequestBody)
	if body == nil {
		return model.FormSchema{}, documentError(fmt.Errorf("operation %q has no request body schema", operationID))
	}

	fields, err := d.flatten(ctx, "", body)
	if err != nil {
		return model.FormSchema{}, documentError(fmt.Errorf("%s: %w", operationID, err))
	}
	for _, decorator := range d.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(fields); err != nil {
			return model.FormSchema{}, documentError(fmt.Errorf("%s: decorate: %w", operationID, err))
		}
	}

	title := found.op.Summary
	if title == "" {
		title = humanize(operationID)
	}
	return model.FormSchema{
		Name:     operationID,
		Title:    title,
		Resource: resourceOf(found),
		Fields:   fields,
	}, nil
}

func load(ctx context.Context, raw []byte, external bool) (*openapi3.T, error) {
	if len(raw) == 0 {
		return nil, documentError(fmt.Errorf("document payload is empty"))
	}
	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: external,
	}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, documentError(fmt.Errorf("load document: %w", err))
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, documentError(fmt.Errorf("document does not contain any paths"))
	}
	return spec, nil
}

type operationEntry struct {
	path string
	op   *openapi3.Operation
}

func operations(spec *openapi3.T) []operationEntry {
	paths := spec.Paths.Map()
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []operationEntry
	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		for _, op := range []*openapi3.Operation{item.Post, item.Put, item.Patch} {
			if op != nil {
				out = append(out, operationEntry{path: path, op: op})
			}
		}
	}
	return out
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range mediaTypes {
		if mt, ok := content[mediaType]; ok && mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func resourceOf(entry *operationEntry) string {
	if raw, ok := entry.op.Extensions[ExtensionResource].(string); ok && raw != "" {
		return raw
	}
	for _, segment := range strings.Split(entry.path, "/") {
		if segment != "" && !strings.HasPrefix(segment, "{") {
			return segment
		}
	}
	return ""
}

func (d *Deriver) flatten(ctx context.Context, prefix string, schema *openapi3.Schema) ([]model.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	props, required := properties(schema)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, oj := order(props[names[i]]), order(props[names[j]])
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})

	var out []model.Descriptor
	for _, name := range names {
		prop := Property{
			Name:     name,
			Path:     joinPath(prefix, name),
			Schema:   props[name],
			Required: required[name],
		}
		if prop.Schema == nil || prop.Schema.ReadOnly {
			continue
		}
		if _, related := prop.Extension(ExtensionRelated); !related && isObject(prop.Schema) {
			nested, err := d.flatten(ctx, prop.Path, prop.Schema)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		if prop.Is(openapi3.TypeArray) {
			continue
		}
		desc, err := d.descriptor(prop)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

// properties merges the schema's own properties with those of its allOf
// members.
func properties(schema *openapi3.Schema) (map[string]*openapi3.Schema, map[string]bool) {
	props := make(map[string]*openapi3.Schema)
	required := make(map[string]bool)
	var walk func(*openapi3.Schema)
	walk = func(s *openapi3.Schema) {
		if s == nil {
			return
		}
		for _, member := range s.AllOf {
			if member != nil {
				walk(member.Value)
			}
		}
		for name, ref := range s.Properties {
			if ref != nil && ref.Value != nil {
				props[name] = ref.Value
			}
		}
		for _, name := range s.Required {
			required[name] = true
		}
	}
	walk(schema)
	return props, required
}

func isObject(schema *openapi3.Schema) bool {
	if schema.Type != nil && schema.Type.Is(openapi3.TypeObject) {
		return true
	}
	props, _ := properties(schema)
	return len(props) > 0
}

func (d *Deriver) descriptor(prop Property) (model.Descriptor, error) {
	input, ok := d.registry.Resolve(prop)
	if !ok {
		input = model.InputText
	}
	desc := model.Descriptor{
		Path:     prop.Path,
		Label:    prop.Schema.Title,
		Input:    input,
		Required: prop.Required,
		HelpText: prop.Schema.Description,
	}
	if desc.Label == "" {
		desc.Label = humanize(prop.Name)
	}
	if unit, ok := prop.Extension(ExtensionUnit); ok {
		desc.Unit, _ = unit.(string)
	}

	switch {
	case input.IsDropdown():
		for _, value := range prop.Schema.Enum {
			if value == nil {
				continue
			}
			desc.Options = append(desc.Options, model.Option{Label: fmt.Sprint(value), Value: value})
		}
	case input == model.InputNumber:
		desc.FractionDigits = fractionDigits(prop)
	case input == model.InputRelatedModel:
		related, err := relatedSpec(prop)
		if err != nil {
			return model.Descriptor{}, err
		}
		desc.Related = related
		desc.Path = joinPath(prop.Path, related.ValueField())
	}

	if raw, ok := prop.Extension(ExtensionValidate); ok {
		expr, _ := raw.(string)
		validator, err := formdef.CompileValidator(expr)
		if err != nil {
			return model.Descriptor{}, fmt.Errorf("%s: %s: %w", prop.Path, ExtensionValidate, err)
		}
		desc.Validator = validator
		desc.Metadata = map[string]string{"validate": expr}
	}
	return desc, nil
}

func relatedSpec(prop Property) (*model.RelatedSpec, error) {
	raw, _ := prop.Extension(ExtensionRelated)
	values, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: %s must be an object", prop.Path, ExtensionRelated)
	}
	spec := &model.RelatedSpec{
		Resource:   stringValue(values["resource"]),
		Field:      stringValue(values["field"]),
		LabelField: stringValue(values["labelField"]),
	}
	if limit, ok := values["limit"].(float64); ok {
		spec.Limit = int(limit)
	}
	if params, ok := values["params"].(map[string]any); ok {
		spec.Params = make(map[string]string, len(params))
		for key, value := range params {
			spec.Params[key] = fmt.Sprint(value)
		}
	}
	if spec.Resource == "" || spec.LabelField == "" {
		return nil, fmt.Errorf("%s: %s needs resource and labelField", prop.Path, ExtensionRelated)
	}
	return spec, nil
}

func fractionDigits(prop Property) *int {
	if raw, ok := prop.Extension(ExtensionFractionDigits); ok {
		if digits, ok := raw.(float64); ok {
			n := int(digits)
			return &n
		}
	}
	if prop.Is(openapi3.TypeInteger) || prop.Schema.MultipleOf == nil {
		return nil
	}
	text := strconv.FormatFloat(*prop.Schema.MultipleOf, 'f', -1, 64)
	idx := strings.IndexByte(text, '.')
	if idx < 0 {
		return nil
	}
	n := len(text) - idx - 1
	if n > model.MaxFractionDigits {
		n = model.MaxFractionDigits
	}
	return &n
}

func order(schema *openapi3.Schema) float64 {
	if raw, ok := extension(schema, ExtensionOrder); ok {
		if n, ok := raw.(float64); ok {
			return n
		}
	}
	return 0
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func humanize(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func documentError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "openapi document cannot produce a form").
		WithTextCode(TextCodeDocumentInvalid)
}
