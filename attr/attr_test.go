package attr

import (
	"testing"

	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/reporter"
)

func attrList(names ...string) *raw.AttributeList {
	al := &raw.AttributeList{}
	for _, n := range names {
		al.Attributes = append(al.Attributes, raw.Attribute{Name: n})
	}
	return al
}

func TestValidateDuplicateAttribute(t *testing.T) {
	rep := reporter.New()
	table := NewTable()
	table.Validate(rep, attrList("Doc", "Doc"), PlacementStruct)
	if !rep.HasErrors() {
		t.Fatalf("expected a duplicate-attribute error")
	}
	found := false
	for _, d := range rep.Errors() {
		if d.Message == "duplicate attribute with name 'Doc'" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected duplicate-attribute message, got %v", rep.Errors())
	}
}

func TestValidateUnknownAttributeSuggestsClosest(t *testing.T) {
	rep := reporter.New()
	table := NewTable()
	table.Validate(rep, attrList("Selektor"), PlacementMethod)
	if rep.HasErrors() {
		t.Fatalf("unknown attribute should only warn, not error: %v", rep.Errors())
	}
	warnings := rep.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if want := "suspect attribute with name 'Selektor'; did you mean 'Selector'?"; warnings[0].Message != want {
		t.Errorf("warning = %q, want %q", warnings[0].Message, want)
	}
}

func TestValidateDisallowedPlacement(t *testing.T) {
	rep := reporter.New()
	table := NewTable()
	table.Validate(rep, attrList("Transport"), PlacementStruct)
	if !rep.HasErrors() {
		t.Fatalf("expected a placement error for Transport on a struct")
	}
}

func TestSelectorRequiresValue(t *testing.T) {
	rep := reporter.New()
	table := NewTable()
	ok := table.ValidateConstraint(rep, "Selector", Target{Placement: PlacementMethod})
	if ok {
		t.Errorf("expected Selector with no value to fail its constraint")
	}
	if !rep.HasErrors() {
		t.Errorf("expected an error to be reported")
	}
}

func TestMaxBytesConstraint(t *testing.T) {
	rep := reporter.New()
	table := NewTable()
	target := Target{Placement: PlacementTable, HasValue: true, Value: "27", InlineSize: 16, OutOfLine: 24}
	ok := table.ValidateConstraint(rep, "MaxBytes", target)
	if ok {
		t.Fatalf("expected MaxBytes constraint to fail (40 > 27)")
	}
	if want := "too large: only 27 bytes allowed, but 40 bytes found"; len(rep.Errors()) != 1 || rep.Errors()[0].Message != want {
		t.Errorf("errors = %v, want single message %q", rep.Errors(), want)
	}
}

func TestMaxHandlesConstraint(t *testing.T) {
	rep := reporter.New()
	table := NewTable()
	target := Target{Placement: PlacementStruct, HasValue: true, Value: "1", Handles: 2}
	if table.ValidateConstraint(rep, "MaxHandles", target) {
		t.Fatalf("expected MaxHandles constraint to fail (2 > 1)")
	}
}

func TestTransportAllowlist(t *testing.T) {
	rep := reporter.New()
	table := NewTable()
	target := Target{Placement: PlacementProtocol, HasValue: true, Value: "Channel, Bogus"}
	if table.ValidateConstraint(rep, "Transport", target) {
		t.Fatalf("expected Transport constraint to fail on an unknown transport name")
	}
}

func TestRegisterExtendsSchemaSet(t *testing.T) {
	rep := reporter.New()
	table := NewTable()
	table.Register(Schema{Name: "Custom", Placements: []Placement{PlacementStruct}})
	table.Validate(rep, attrList("Custom"), PlacementStruct)
	if rep.HasErrors() || len(rep.Warnings()) != 0 {
		t.Errorf("expected Custom to validate cleanly after Register, got %v / %v", rep.Errors(), rep.Warnings())
	}
}
