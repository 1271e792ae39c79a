package form

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-hitasforms/pkg/dispatcher"
	"github.com/goliatone/go-hitasforms/pkg/model"
	"github.com/goliatone/go-hitasforms/pkg/picker"
)

type countingSearcher struct {
	inner *picker.StaticSearcher
	calls int
}

func (c *countingSearcher) Search(ctx context.Context, filter model.SearchFilter) (model.SearchPage, error) {
	c.calls++
	return c.inner.Search(ctx, filter)
}

func housingCompanySchema() model.FormSchema {
	return model.FormSchema{
		Name:     "housing_company",
		Title:    "Housing company",
		Resource: "housing-companies",
		Fields: []model.Descriptor{
			{Path: "name.display", Label: "Name", Input: model.InputText, Required: true},
			{Path: "address.postal_code", Label: "Postal code", Input: model.InputPostalCode, Required: true},
			{Path: "acquisition_date", Label: "Acquisition date", Input: model.InputDate},
			{Path: "acquisition_price", Label: "Acquisition price", Input: model.InputMoney, Unit: "€"},
			{Path: "regulation_status", Label: "Regulation", Input: model.InputSelect, Required: true, Options: []model.Option{
				{Label: "Regulated", Value: "regulated"},
				{Label: "Released by plot department", Value: "released_by_plot_department"},
			}},
			{Path: "property_manager.id", Label: "Property manager", Input: model.InputRelatedModel, Related: &model.RelatedSpec{
				Resource: "property-managers", LabelField: "name",
			}},
		},
	}
}

func newTestForm(t *testing.T, draft map[string]any, searcher model.Searcher) *Form {
	t.Helper()
	f, err := New(housingCompanySchema(), draft, WithDispatcher(dispatcher.New(dispatcher.WithSearcher(searcher))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func managers() *countingSearcher {
	return &countingSearcher{inner: picker.NewStaticSearcher(map[string][]model.Entity{
		"property-managers": {
			{"id": "pm-1", "name": "Isännöinti Oy"},
			{"id": "pm-2", "name": "Kiinteistöhuolto Ab"},
		},
	})}
}

func TestNewCopiesDraft(t *testing.T) {
	draft := map[string]any{"name": map[string]any{"display": "Asunto Oy Hitas"}}
	f := newTestForm(t, draft, managers())

	if _, err := f.Type(context.Background(), "name.display", "Changed"); err != nil {
		t.Fatalf("Type: %v", err)
	}
	if got := draft["name"].(map[string]any)["display"]; got != "Asunto Oy Hitas" {
		t.Fatalf("caller draft mutated: %v", got)
	}
}

func TestEventsUpdateDraft(t *testing.T) {
	f := newTestForm(t, nil, managers())
	ctx := context.Background()

	steps := []Event{
		{Path: "name.display", Kind: EventInput, Value: "Asunto Oy Hitas"},
		{Path: "address.postal_code", Kind: EventInput, Value: "00-100"},
		{Path: "acquisition_date", Kind: EventInput, Value: "1.2.2003"},
		{Path: "acquisition_price", Kind: EventInput, Value: "1500000,456"},
		{Path: "regulation_status", Kind: EventSelect, Value: "Regulated"},
	}
	for _, ev := range steps {
		if _, err := f.Dispatch(ctx, ev); err != nil {
			t.Fatalf("Dispatch(%v): %v", ev, err)
		}
	}

	want := map[string]any{
		"name":              map[string]any{"display": "Asunto Oy Hitas"},
		"address":           map[string]any{"postal_code": "00100"},
		"acquisition_date":  "2003-02-01",
		"acquisition_price": 1500000.45,
		"regulation_status": "regulated",
	}
	if diff := cmp.Diff(want, f.Payload()); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	field, _ := f.Field("acquisition_date")
	if field.Display() != "1.2.2003" {
		t.Fatalf("date display = %q", field.Display())
	}
}

func TestSubscriptionReceivesChangesUntilClosed(t *testing.T) {
	f := newTestForm(t, nil, managers())
	var got []model.FieldChange
	sub := f.Subscribe(func(change model.FieldChange) { got = append(got, change) })

	if _, err := f.Input(context.Background(), "address.postal_code", "001"); err != nil {
		t.Fatalf("Input: %v", err)
	}
	_ = sub.Close()
	if _, err := f.Input(context.Background(), "address.postal_code", "00100"); err != nil {
		t.Fatalf("Input: %v", err)
	}

	want := []model.FieldChange{{Path: "address.postal_code", Value: "001"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateReportsUntouchedRequiredFields(t *testing.T) {
	f := newTestForm(t, map[string]any{"address": map[string]any{"postal_code": "0010"}}, managers())
	if f.Valid() {
		t.Fatalf("form with empty required fields should be invalid")
	}

	var paths []string
	for _, invalid := range f.Invalid() {
		paths = append(paths, invalid.Path)
	}
	want := []string{"name.display", "address.postal_code", "regulation_status"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("invalid fields mismatch (-want +got):\n%s", diff)
	}
}

func TestRequiredDropdownClearLeavesDraft(t *testing.T) {
	f := newTestForm(t, map[string]any{"regulation_status": "regulated"}, managers())
	changed, err := f.Dispatch(context.Background(), Event{Path: "regulation_status", Kind: EventClear})
	if err != nil || changed {
		t.Fatalf("clear = %v, %v", changed, err)
	}
	if f.Payload()["regulation_status"] != "regulated" {
		t.Fatalf("required dropdown value changed")
	}
}

func TestRelatedModelFlow(t *testing.T) {
	searcher := managers()
	f := newTestForm(t, nil, searcher)
	ctx := context.Background()

	if _, err := f.Input(ctx, "property_manager.id", "K"); err != nil {
		t.Fatalf("Input: %v", err)
	}
	if searcher.calls != 0 {
		t.Fatalf("one character query searched %d times", searcher.calls)
	}
	if _, err := f.Input(ctx, "property_manager.id", "Ki"); err != nil {
		t.Fatalf("Input: %v", err)
	}
	if searcher.calls != 1 {
		t.Fatalf("two character query searched %d times", searcher.calls)
	}

	changed, err := f.Dispatch(ctx, Event{Path: "property_manager.id", Kind: EventCommit, Value: "0"})
	if err != nil || !changed {
		t.Fatalf("commit = %v, %v", changed, err)
	}
	if diff := cmp.Diff(map[string]any{"property_manager": map[string]any{"id": "pm-2"}}, f.Payload()); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	field, _ := f.Field("property_manager.id")
	if field.Display() != "Kiinteistöhuolto Ab" || field.Picker().State() != picker.StateClosed {
		t.Fatalf("display %q state %s", field.Display(), field.Picker().State())
	}
}

func TestApplyServerError(t *testing.T) {
	f := newTestForm(t, nil, managers())
	f.ApplyServerError(&model.ServerError{Data: model.ServerErrorData{
		Status: 400,
		Fields: []model.ServerFieldError{
			{Field: "name.display", Message: "required"},
			{Field: "body.address.postal_code", Message: "unknown postal code"},
			{Field: "business_id", Message: "already in use"},
		},
	}})

	name, _ := f.Field("name.display")
	if diff := cmp.Diff(model.FieldState{Invalid: true, Message: "required"}, name.State()); diff != "" {
		t.Fatalf("name state mismatch (-want +got):\n%s", diff)
	}
	postal, _ := f.Field("address.postal_code")
	if postal.State().Message != "unknown postal code" {
		t.Fatalf("postal state = %#v", postal.State())
	}
	if diff := cmp.Diff([]string{"already in use"}, f.FormErrors()); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}

	f.ApplyServerError(nil)
	if name.State().Invalid || len(f.FormErrors()) != 0 {
		t.Fatalf("nil server error should clear messages")
	}
}

func TestDispatchErrors(t *testing.T) {
	f := newTestForm(t, nil, managers())
	if _, err := f.Dispatch(context.Background(), Event{Path: "missing", Kind: EventInput}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("unknown field err = %v", err)
	}
	if _, err := ParseEventKind("drag"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("unknown event err = %v", err)
	}
}

func TestDuplicatePathsRejected(t *testing.T) {
	schema := model.FormSchema{Name: "dup", Fields: []model.Descriptor{
		{Path: "name", Input: model.InputText},
		{Path: "name", Input: model.InputText},
	}}
	if _, err := New(schema, nil); !dispatcher.IsConfigError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestServerValidationError(t *testing.T) {
	err := ServerValidationError(&model.ServerError{Data: model.ServerErrorData{Message: "rejected"}})
	var serverErr *model.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("wrapped error should unwrap to *model.ServerError: %v", err)
	}
}
