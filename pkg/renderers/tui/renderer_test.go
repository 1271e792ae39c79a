package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-hitasforms/pkg/dispatcher"
	"github.com/goliatone/go-hitasforms/pkg/form"
	"github.com/goliatone/go-hitasforms/pkg/model"
	"github.com/goliatone/go-hitasforms/pkg/picker"
	"github.com/goliatone/go-hitasforms/pkg/render"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	textAreas    []string
	infoMessages []string
	prompts      []InputConfig
	selects      []SelectConfig
	inputPos     int
	selectPos    int
	textPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.selects = append(s.selects, cfg)
	if s.selectPos >= len(s.selectIdx) {
		return 0, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func newSession(t *testing.T) *form.Form {
	t.Helper()
	schema := model.FormSchema{
		Name:  "housing_company",
		Title: "Housing company",
		Fields: []model.Descriptor{
			{Path: "name", Label: "Name", Input: model.InputText, Required: true},
			{Path: "address.postal_code", Label: "Postal code", Input: model.InputPostalCode, Required: true},
			{Path: "completion_date", Label: "Completion date", Input: model.InputDate},
			{Path: "state", Label: "State", Input: model.InputSelect, Required: true, Options: []model.Option{
				{Label: "Ready", Value: "ready"},
				{Label: "Sold", Value: "sold"},
			}},
			{Path: "property_manager.id", Label: "Property manager", Input: model.InputRelatedModel,
				HelpText: "Search <b>by name</b> &amp; pick",
				Related:  &model.RelatedSpec{Resource: "property-managers", LabelField: "name"}},
			{Path: "notes", Label: "Notes", Input: model.InputTextArea},
		},
	}
	searcher := picker.NewStaticSearcher(map[string][]model.Entity{
		"property-managers": {
			{"id": "pm-1", "name": "Isännöinti Oy"},
			{"id": "pm-2", "name": "Isännöitsijät Ab"},
		},
	})
	f, err := form.New(schema, nil, form.WithDispatcher(dispatcher.New(dispatcher.WithSearcher(searcher))))
	if err != nil {
		t.Fatalf("form.New: %v", err)
	}
	return f
}

func TestRenderCollectsCanonicalPayload(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Asunto Oy Testi", "0010", "00100", "1.1.23", "01.02.2003", "is"},
		selectIdx: []int{1, 1},
		textAreas: []string{"Note"},
	}
	out, err := New(WithPromptDriver(driver), WithTheme(Theme{ErrorPrefix: "! "})).
		Render(context.Background(), newSession(t), render.RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v (messages %v)", err, driver.infoMessages)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want := map[string]any{
		"name":             "Asunto Oy Testi",
		"address":          map[string]any{"postal_code": "00100"},
		"completion_date":  "2003-02-01",
		"state":            "sold",
		"property_manager": map[string]any{"id": "pm-2"},
		"notes":            "Note",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	var errorsShown int
	for _, msg := range driver.infoMessages {
		if strings.HasPrefix(msg, "! ") {
			errorsShown++
		}
	}
	if errorsShown != 2 {
		t.Fatalf("expected two re-prompt messages, got %v", driver.infoMessages)
	}

	if got := driver.selects[0].Options; !cmp.Equal(got, []string{"Ready", "Sold"}) {
		t.Fatalf("required select must not offer an empty choice: %v", got)
	}
	if got := driver.selects[1].Options; !cmp.Equal(got, []string{"Isännöinti Oy", "Isännöitsijät Ab", searchAgain}) {
		t.Fatalf("unexpected picker options %v", got)
	}
	if help := driver.prompts[5].Help; help != "Search by name & pick" {
		t.Fatalf("expected plain help text, got %q", help)
	}
	if msg := driver.prompts[0].Message; msg != "Name *" {
		t.Fatalf("unexpected prompt label %q", msg)
	}
}

func TestRenderGivesUpAfterMaxAttempts(t *testing.T) {
	driver := &stubDriver{inputs: []string{"", "", ""}}
	_, err := New(WithPromptDriver(driver), WithMaxAttempts(3)).
		Render(context.Background(), newSession(t), render.RenderOptions{Field: "name"})
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestRenderSingleFieldPretty(t *testing.T) {
	driver := &stubDriver{inputs: []string{"Kotikatu Oy"}}
	out, err := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatPrettyText)).
		Render(context.Background(), newSession(t), render.RenderOptions{Field: "name"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(out), "Name: Kotikatu Oy\n") {
		t.Fatalf("unexpected pretty output %q", out)
	}
}

type readOnlyView struct{}

func (readOnlyView) Name() string                { return "x" }
func (readOnlyView) Title() string               { return "" }
func (readOnlyView) Fields() []*dispatcher.Field { return nil }
func (readOnlyView) FormErrors() []string        { return nil }

func TestRenderRequiresInteractiveView(t *testing.T) {
	_, err := New(WithPromptDriver(&stubDriver{})).Render(context.Background(), readOnlyView{}, render.RenderOptions{})
	if !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected ErrNotInteractive, got %v", err)
	}
}
