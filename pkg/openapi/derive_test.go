package openapi

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

const housingCompanyDoc = `
openapi: 3.0.3
info:
  title: Hitas
  version: "1.0"
paths:
  /housing-companies:
    post:
      operationId: createHousingCompany
      summary: New housing company
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/HousingCompanyWrite'
      responses:
        "201":
          description: created
  /housing-companies/{id}/notes:
    put:
      operationId: updateNotes
      x-hitas-resource: notes
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                notes:
                  type: string
                  maxLength: 1000
      responses:
        "200":
          description: ok
components:
  schemas:
    Developer:
      type: object
      properties:
        id:
          type: string
        value:
          type: string
    HousingCompanyWrite:
      type: object
      required: [business_id, state]
      properties:
        id:
          type: string
          readOnly: true
        business_id:
          type: string
          title: Business ID
          x-hitas-order: 1
          x-hitas-validate: 'value != null && value.matches("^[0-9]{7}-[0-9]$")'
        state:
          type: string
          enum: [not_ready, lt_30_years, gt_30_years_not_free, sale]
        municipality:
          type: string
          enum: [a, b, c, d, e, f, g, h, i, j, k, l]
        completion_date:
          type: string
          format: date
        acquisition_price:
          type: number
          x-money: true
          x-hitas-unit: "€"
        surface_area:
          type: number
          multipleOf: 0.01
        count:
          type: integer
        address:
          type: object
          required: [postal_code]
          properties:
            street_address:
              type: string
            postal_code:
              type: string
              pattern: '^\d{5}$'
        notes:
          type: string
          maxLength: 500
          description: Free text
        kind:
          type: string
          x-hitas-input: combobox
          enum: [x]
        developer:
          allOf:
            - $ref: '#/components/schemas/Developer'
          x-hitas-related:
            resource: developers
            labelField: value
            limit: 5
        tags:
          type: array
          items:
            type: string
`

func TestDeriverSchema(t *testing.T) {
	schema, err := NewDeriver().Schema(context.Background(), []byte(housingCompanyDoc), "createHousingCompany")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if schema.Title != "New housing company" || schema.Resource != "housing-companies" {
		t.Fatalf("unexpected schema header %q %q", schema.Title, schema.Resource)
	}

	type summary struct {
		Path     string
		Input    model.InputType
		Required bool
	}
	var got []summary
	for _, field := range schema.Fields {
		got = append(got, summary{field.Path, field.Input, field.Required})
	}
	want := []summary{
		{"acquisition_price", model.InputMoney, false},
		{"address.postal_code", model.InputPostalCode, true},
		{"address.street_address", model.InputText, false},
		{"completion_date", model.InputDate, false},
		{"count", model.InputNumber, false},
		{"developer.id", model.InputRelatedModel, false},
		{"kind", model.InputCombobox, false},
		{"municipality", model.InputCombobox, false},
		{"notes", model.InputTextArea, false},
		{"state", model.InputSelect, true},
		{"surface_area", model.InputNumber, false},
		{"business_id", model.InputText, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriverDescriptorDetails(t *testing.T) {
	schema, err := NewDeriver().Schema(context.Background(), []byte(housingCompanyDoc), "createHousingCompany")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}

	business, ok := schema.Descriptor("business_id")
	if !ok {
		t.Fatalf("business_id missing")
	}
	if business.Label != "Business ID" || business.Validator == nil {
		t.Fatalf("unexpected business_id descriptor %+v", business)
	}
	if !business.Validator("1234567-8") || business.Validator("12") {
		t.Fatalf("business id validator misbehaves")
	}

	price, _ := schema.Descriptor("acquisition_price")
	if price.Unit != "€" || price.Label != "Acquisition price" {
		t.Fatalf("unexpected price descriptor %+v", price)
	}

	area, _ := schema.Descriptor("surface_area")
	if area.Digits() != 2 {
		t.Fatalf("expected 2 fraction digits, got %d", area.Digits())
	}

	state, _ := schema.Descriptor("state")
	if len(state.Options) != 4 || state.Options[0].Value != "not_ready" {
		t.Fatalf("unexpected state options %+v", state.Options)
	}

	developer, _ := schema.Descriptor("developer.id")
	want := &model.RelatedSpec{Resource: "developers", LabelField: "value", Limit: 5}
	if diff := cmp.Diff(want, developer.Related, cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".Label" || p.Last().String() == ".Searcher"
	}, cmp.Ignore())); diff != "" {
		t.Fatalf("related mismatch (-want +got):\n%s", diff)
	}

	notes, _ := schema.Descriptor("notes")
	if notes.HelpText != "Free text" {
		t.Fatalf("expected help text, got %q", notes.HelpText)
	}
}

func TestDeriverResourceExtensionAndDecorators(t *testing.T) {
	var seen int
	deriver := NewDeriver(WithDecorators(model.DecoratorFunc(func(descs []model.Descriptor) error {
		seen = len(descs)
		descs[0].Label = "Notes"
		return nil
	})))
	schema, err := deriver.Schema(context.Background(), []byte(housingCompanyDoc), "updateNotes")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if schema.Resource != "notes" || seen != 1 || schema.Fields[0].Label != "Notes" {
		t.Fatalf("unexpected schema %+v", schema)
	}
}

func TestOperations(t *testing.T) {
	ids, err := Operations(context.Background(), []byte(housingCompanyDoc))
	if err != nil {
		t.Fatalf("Operations: %v", err)
	}
	if diff := cmp.Diff([]string{"createHousingCompany", "updateNotes"}, ids); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriverErrors(t *testing.T) {
	cases := map[string]struct {
		raw string
		op  string
	}{
		"empty":       {raw: "", op: "x"},
		"no paths":    {raw: "openapi: 3.0.3\ninfo: {title: t, version: '1'}\npaths: {}\n", op: "x"},
		"unknown op":  {raw: housingCompanyDoc, op: "deleteEverything"},
		"bad related": {raw: badRelatedDoc, op: "create"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Descriptors(context.Background(), []byte(tc.raw), tc.op)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !goerrors.IsCategory(err, goerrors.CategoryInternal) {
				t.Fatalf("expected internal category, got %v", err)
			}
		})
	}
}

const badRelatedDoc = `
openapi: 3.0.3
info: {title: t, version: "1"}
paths:
  /things:
    post:
      operationId: create
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                owner:
                  type: object
                  x-hitas-related: {resource: owners}
      responses:
        "201": {description: created}
`

func TestRegistryPriority(t *testing.T) {
	reg := NewRegistry()
	reg.Register(model.InputTextArea, 95, func(p Property) bool { return p.Name == "state" })

	stringType := &openapi3.Types{openapi3.TypeString}
	prop := Property{Name: "state", Schema: &openapi3.Schema{Type: stringType, Enum: []any{"a"}}}
	if got, _ := reg.Resolve(prop); got != model.InputTextArea {
		t.Fatalf("expected custom matcher to win, got %s", got)
	}

	prop.Schema.Extensions = map[string]any{ExtensionInput: "postalCode"}
	if got, _ := reg.Resolve(prop); got != model.InputPostalCode {
		t.Fatalf("expected explicit input, got %s", got)
	}

	postal := Property{Name: "zip", Schema: &openapi3.Schema{Type: stringType, Pattern: `^[0-9]{5}$`}}
	if got, _ := NewRegistry().Resolve(postal); got != model.InputPostalCode {
		t.Fatalf("expected postal code from pattern, got %s", got)
	}
}
