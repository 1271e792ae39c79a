package widgets

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

func TestNewBindsEveryInputType(t *testing.T) {
	digits := 3
	for _, kind := range model.InputTypes() {
		desc := model.Descriptor{Path: "field", Input: kind, FractionDigits: &digits}
		switch {
		case kind.IsDropdown():
			desc.Options = []model.Option{{Label: "A"}}
		case kind == model.InputRelatedModel:
			desc.Related = &model.RelatedSpec{Resource: "owners", LabelField: "name"}
		}
		widget, err := New(desc)
		if err != nil {
			t.Fatalf("New(%s): %v", kind, err)
		}
		if widget.Input() != kind {
			t.Fatalf("New(%s) bound %s", kind, widget.Input())
		}
	}
}

func TestNewRejectsUnknownInput(t *testing.T) {
	if _, err := New(model.Descriptor{Path: "x", Input: "colour"}); err == nil {
		t.Fatalf("expected error for unknown input type")
	}
}

func TestTextKeepsRawValue(t *testing.T) {
	out := NewText().Change("  Hitas Oy\n")
	if !out.Write || out.Value != "  Hitas Oy " {
		t.Fatalf("unexpected outcome %#v", out)
	}
	area := NewTextArea().Change("line 1\nline 2")
	if area.Value != "line 1\nline 2" {
		t.Fatalf("text area should keep newlines, got %q", area.Value)
	}
}

func TestPostalCodeStripsNonDigits(t *testing.T) {
	widget := NewPostalCode(true)
	out := widget.Change("a1b2c3")
	if out.Value != "123" || out.Display != "123" || !out.Write {
		t.Fatalf("unexpected outcome %#v", out)
	}
}

func TestPostalCodeBlur(t *testing.T) {
	cases := []struct {
		name     string
		required bool
		display  string
		want     Verdict
	}{
		{name: "required short", required: true, display: "0010", want: VerdictInvalid},
		{name: "required five", required: true, display: "00100", want: VerdictValid},
		{name: "required empty", required: true, display: "", want: VerdictInvalid},
		{name: "optional empty", required: false, display: "", want: VerdictValid},
		{name: "optional long", required: false, display: "001000", want: VerdictInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := NewPostalCode(tc.required).Blur(tc.display)
			if out.Verdict != tc.want {
				t.Fatalf("verdict = %s, want %s", out.Verdict, tc.want)
			}
			if out.Verdict == VerdictInvalid && out.Message == "" {
				t.Fatalf("invalid verdict without message")
			}
		})
	}
}

func TestTruncateDecimal(t *testing.T) {
	cases := []struct {
		raw    string
		digits int
		want   string
	}{
		{"12.345", 2, "12.34"},
		{"12.349", 2, "12.34"},
		{".5", 2, "0.5"},
		{"1,25", 2, "1.25"},
		{"1.2.3", 2, "1.23"},
		{"-3.999", 1, "-3.9"},
		{"-3", 0, "3"},
		{"1e5", 2, "15"},
		{"12.", 2, "12."},
		{"", 2, ""},
	}
	for _, tc := range cases {
		if got := TruncateDecimal(tc.raw, tc.digits); got != tc.want {
			t.Fatalf("TruncateDecimal(%q, %d) = %q, want %q", tc.raw, tc.digits, got, tc.want)
		}
	}
}

func TestNumberChange(t *testing.T) {
	widget := NewNumber(2)
	out := widget.Change("12.345")
	if out.Value != "12.34" || out.Display != "12.34" {
		t.Fatalf("unexpected outcome %#v", out)
	}
	if out := widget.Change(".5"); out.Value != "0.5" {
		t.Fatalf("leading separator value = %#v", out.Value)
	}
	if out := widget.Change("7."); out.Value != "7" || out.Display != "7." {
		t.Fatalf("trailing separator outcome = %#v", out)
	}
	if out := widget.Change(""); out.Value != nil || !out.Write {
		t.Fatalf("empty input should write nil, got %#v", out)
	}
}

func TestNumberBlocksWheelWhileFocused(t *testing.T) {
	widget := NewNumber(0)
	if !widget.Wheel(true) {
		t.Fatalf("wheel should be blocked while focused")
	}
	if widget.Wheel(false) {
		t.Fatalf("wheel should pass through when unfocused")
	}
}

func TestMoney(t *testing.T) {
	widget := NewMoney()
	out := widget.Change("1234.567")
	if diff := cmp.Diff(any(1234.56), out.Value); diff != "" {
		t.Fatalf("money value mismatch (-want +got):\n%s", diff)
	}
	if got := widget.Format(1234.5); got != "1234.50" {
		t.Fatalf("Format = %q", got)
	}
	if got := widget.Format(nil); got != "" {
		t.Fatalf("Format(nil) = %q", got)
	}

	for raw, want := range map[string]string{"12.3": "12.30", "12": "12.00", "12.": "12.00", "": "", "-": "-"} {
		if got := widget.Blur(widget.Change(raw).Display).Display; got != want {
			t.Fatalf("Blur(%q) display = %q, want %q", raw, got, want)
		}
	}
}

func TestDateChange(t *testing.T) {
	widget := NewDate()

	partial := widget.Change("1.1.23")
	if partial.Value != "1.1.23" || partial.Verdict != VerdictInvalid || !partial.Write {
		t.Fatalf("partial year outcome %#v", partial)
	}

	full := widget.Change("01.01.2023")
	if full.Value != "2023-01-01" || full.Verdict != VerdictValid {
		t.Fatalf("full date outcome %#v", full)
	}

	short := widget.Change("5.3.2024")
	if short.Value != "2024-03-05" {
		t.Fatalf("single digit day/month = %#v", short.Value)
	}

	bad := widget.Change("31.02.2023")
	if bad.Verdict != VerdictInvalid || bad.Value != "31.02.2023" {
		t.Fatalf("impossible date outcome %#v", bad)
	}

	if empty := widget.Change(""); empty.Value != nil || !empty.Write {
		t.Fatalf("empty date outcome %#v", empty)
	}
}

func TestDateFormat(t *testing.T) {
	widget := NewDate()
	if got := widget.Format("2023-01-31"); got != "31.01.2023" {
		t.Fatalf("Format(iso) = %q", got)
	}
	if got := widget.Format("1.1.23"); got != "1.1.23" {
		t.Fatalf("Format(raw) = %q", got)
	}
}

func TestDropdownSelectAndClear(t *testing.T) {
	options := []model.Option{{Label: "Owner", Value: "OWNER"}, {Label: "Tenant"}}

	required := NewDropdown(options, true, false)
	if out := required.Select(options[0]); out.Value != "OWNER" || out.Display != "Owner" || !out.Write {
		t.Fatalf("select outcome %#v", out)
	}
	if out := required.Select(options[1]); out.Value != "Tenant" {
		t.Fatalf("label fallback = %#v", out.Value)
	}
	if out := required.Clear(); out.Write {
		t.Fatalf("required clear must not write, got %#v", out)
	}

	optional := NewDropdown(options, false, false)
	if out := optional.Clear(); !out.Write || out.Value != nil {
		t.Fatalf("optional clear should write nil, got %#v", out)
	}
}

func TestDropdownChange(t *testing.T) {
	options := []model.Option{{Label: "Helsinki", Value: 91}, {Label: "Espoo", Value: 49}}

	sel := NewDropdown(options, false, false)
	if out := sel.Change("espoo"); out.Value != 49 {
		t.Fatalf("label match = %#v", out)
	}
	if out := sel.Change("91"); out.Value != 91 {
		t.Fatalf("value match = %#v", out)
	}
	if out := sel.Change("Turku"); out.Write || out.Verdict != VerdictInvalid {
		t.Fatalf("unknown select option = %#v", out)
	}

	combo := NewDropdown(options, false, true)
	if out := combo.Change("Hel"); out.Write || out.Verdict != VerdictUnchanged || out.Display != "Hel" {
		t.Fatalf("combobox query = %#v", out)
	}
	if got := combo.Format(49); got != "Espoo" {
		t.Fatalf("Format = %q", got)
	}
}

func TestDropdownFilterPrefersPrefix(t *testing.T) {
	options := []model.Option{{Label: "Vantaa"}, {Label: "Tampere"}, {Label: "Kerava"}}
	got := NewDropdown(options, false, true).Filter("ta")
	want := []model.Option{{Label: "Tampere"}, {Label: "Vantaa"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestRelatedChooseWritesValueField(t *testing.T) {
	spec := model.RelatedSpec{Resource: "owners", LabelField: "name"}
	widget := NewRelated(spec, true)

	if out := widget.Change("Ma"); out.Write {
		t.Fatalf("typing must not write, got %#v", out)
	}

	out := widget.Choose(model.Entity{"id": "abc", "name": "Matti"})
	if out.Value != "abc" || out.Display != "Matti" || !out.Write {
		t.Fatalf("choose outcome %#v", out)
	}
	if got := widget.Format("abc"); got != "Matti" {
		t.Fatalf("Format = %q", got)
	}

	custom := NewRelated(model.RelatedSpec{Resource: "owners", Field: "identifier", LabelField: "name"}, false)
	if out := custom.Choose(model.Entity{"id": "abc", "identifier": "010101-123A", "name": "Matti"}); out.Value != "010101-123A" {
		t.Fatalf("custom field value = %#v", out.Value)
	}

	if out := widget.Clear(); !out.Write || out.Value != nil {
		t.Fatalf("clear outcome %#v", out)
	}
}

func TestDateBlurRechecksDisplay(t *testing.T) {
	widget := NewDate()
	if out := widget.Blur("1.1.23"); out.Verdict != VerdictInvalid {
		t.Fatalf("partial date blur = %#v", out)
	}
	if out := widget.Blur("1.1.2023"); out.Verdict != VerdictValid {
		t.Fatalf("full date blur = %#v", out)
	}
}
