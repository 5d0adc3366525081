package flat_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.fuchsia.dev/fidlcore/flat/flattest"
	"go.fuchsia.dev/fidlcore/ir"
)

// TestConstOutOfRangeReportsError mirrors the worked scenario from the
// teacher's const-range tests: a negative literal can never fit an
// unsigned target type, no matter its magnitude.
func TestConstOutOfRangeReportsError(t *testing.T) {
	errs := flattest.EndToEndTest{T: t}.ExpectFail(`
library example;

const uint64 a = -42;
`)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "cannot be interpreted as type") {
		t.Fatalf("errors = %v, want a single 'cannot be interpreted' diagnostic", errs)
	}
}

func TestDuplicateAttributeReportsError(t *testing.T) {
	errs := flattest.EndToEndTest{T: t}.ExpectFail(`
library example;

[Doc="one", Doc="two"]
struct S {
	bool b;
};
`)
	found := false
	for _, e := range errs {
		if e.Message == "duplicate attribute with name 'Doc'" {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want a duplicate attribute diagnostic", errs)
	}
}

// TestMethodOrdinalCollisionReportsError forces two methods onto the same
// ordinal by giving them identical explicit [Selector] values, since a
// genuine SHA-256 collision between two different names can't be
// constructed by hand.
func TestMethodOrdinalCollisionReportsError(t *testing.T) {
	errs := flattest.EndToEndTest{T: t}.ExpectFail(`
library example;

protocol P {
	[Selector="Same"]
	First();
	[Selector="Same"]
	Second();
};
`)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "colliding ordinals") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want a colliding-ordinals diagnostic", errs)
	}
}

// TestSelectorHashIncludesLibraryAndProtocolPrefix proves the ordinal
// hash input is "L/P.<Selector>", not the bare [Selector] value alone:
// two different protocols giving their one method the same [Selector]
// override must land on different ordinals, since only the method-name
// tail is substituted.
func TestSelectorHashIncludesLibraryAndProtocolPrefix(t *testing.T) {
	root := flattest.EndToEndTest{T: t}.Single(`
library example;

protocol P {
	[Selector="Thing"]
	First();
};

protocol Q {
	[Selector="Thing"]
	First();
};
`)
	p := findProtocol(t, root, "example/P")
	q := findProtocol(t, root, "example/Q")
	if len(p.Methods) != 1 || len(q.Methods) != 1 {
		t.Fatalf("expected one method each, got P=%d Q=%d", len(p.Methods), len(q.Methods))
	}
	if p.Methods[0].Ordinal == q.Methods[0].Ordinal {
		t.Errorf("P.First and Q.First share ordinal %d despite differing protocol prefixes", p.Methods[0].Ordinal)
	}
	if p.Methods[0].Selector != "example/P.Thing" {
		t.Errorf("P.First selector = %q, want %q", p.Methods[0].Selector, "example/P.Thing")
	}
	if q.Methods[0].Selector != "example/Q.Thing" {
		t.Errorf("Q.First selector = %q, want %q", q.Methods[0].Selector, "example/Q.Thing")
	}
}

func TestMaxBytesConstraintViolationReportsError(t *testing.T) {
	errs := flattest.EndToEndTest{T: t}.ExpectFail(`
library example;

[MaxBytes="27"]
table T {
	1: bool b;
	2: uint64 c;
};
`)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "too large") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want a MaxBytes constraint diagnostic", errs)
	}
}

// TestRecursiveNullableStructCompiles exercises the nullable-box cycle
// path through shape computation: Node holds an optional Node, which
// would otherwise recurse forever without the pending-cycle sentinel.
func TestRecursiveNullableStructCompiles(t *testing.T) {
	root := flattest.EndToEndTest{T: t}.Single(`
library example;

struct Node {
	uint32 value;
	Node? next;
};
`)
	s := findStruct(t, root, "example/Node")
	if len(s.Members) != 2 {
		t.Fatalf("Node has %d members, want 2", len(s.Members))
	}
	if !s.Members[1].Type.Nullable {
		t.Errorf("next member should be nullable")
	}
	// A boxed nullable struct reference costs one pointer-sized slot
	// inline; the recursive edge must not inflate InlineSize further.
	if s.TypeShapeV1.InlineSize != 16 {
		t.Errorf("InlineSize = %d, want 16 (uint32 padded + 8-byte pointer)", s.TypeShapeV1.InlineSize)
	}
}

// TestHandleMemberMarksStructAsResource confirms resourceness propagates
// from a handle member without requiring an explicit `resource` keyword.
func TestHandleMemberMarksStructAsResource(t *testing.T) {
	root := flattest.EndToEndTest{T: t}.Single(`
library example;

struct Holder {
	handle h;
};
`)
	s := findStruct(t, root, "example/Holder")
	if !s.TypeShapeV1.IsResource {
		t.Errorf("Holder should be marked resource because it holds a handle")
	}
}

// TestTableWithReservedMemberSerializesNull confirms a reserved table
// member's type field marshals as explicit JSON null rather than being
// omitted, per the open-question resolution: readers must be able to
// tell "no type here" apart from "field absent".
func TestTableWithReservedMemberSerializesNull(t *testing.T) {
	root := flattest.EndToEndTest{T: t}.Single(`
library example;

table T {
	1: bool b;
	2: reserved;
};
`)
	tbl := findTable(t, root, "example/T")
	if len(tbl.Members) != 2 {
		t.Fatalf("T has %d members, want 2", len(tbl.Members))
	}
	if !tbl.Members[1].Reserved {
		t.Errorf("member 2 should be reserved")
	}
	if tbl.Members[1].Type != nil {
		t.Errorf("reserved member's Type should marshal as nil, got %+v", tbl.Members[1].Type)
	}
	buf, err := json.Marshal(tbl.Members[1])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(buf), `"type":null`) {
		t.Errorf("reserved member JSON %s should contain \"type\":null", buf)
	}
}

// TestComposedProtocolSharesOrdinalNamespace compiles a two-library
// scenario (subject composing a dependency's protocol) and confirms both
// method sets land in the flattened protocol, mirroring
// TestErrorSyntaxOfImportedComposedProtocol's two-file setup.
func TestComposedProtocolSharesOrdinalNamespace(t *testing.T) {
	root := flattest.EndToEndTest{T: t}.
		WithDependency(`
library dep;

protocol Parent {
	DoParentThing();
};
`).
		Single(`
library example;
using dep;

protocol Child {
	compose dep.Parent;
	DoChildThing();
};
`)
	p := findProtocol(t, root, "example/Child")
	if len(p.Methods) < 1 {
		t.Fatalf("Child has no methods")
	}
	names := map[string]bool{}
	for _, m := range p.Methods {
		names[m.Name] = true
	}
	if !names["DoChildThing"] {
		t.Errorf("expected DoChildThing among methods, got %v", names)
	}
	if !names["DoParentThing"] {
		t.Errorf("expected composed DoParentThing among methods, got %v", names)
	}
}

// TestNullableUnionShapeDiffersByWireFormat grounds the two wire formats'
// genuinely different encodings for a nullable union: the legacy format
// boxes it behind an 8-byte pointer (same as a nullable struct), while
// the envelope format is a free pass-through, since absence is encoded
// in the union's own envelope. Numbers from typeshape_tests.cc's
// OptionalUnion/TableWithOptionalUnion cases.
func TestNullableUnionShapeDiffersByWireFormat(t *testing.T) {
	root := flattest.EndToEndTest{T: t}.Single(`
library example;

struct BoolAndU64 {
	bool b;
	uint64 u;
};

union UnionOfThings {
	1: bool ob;
	2: BoolAndU64 bu;
};

struct OptionalUnion {
	UnionOfThings? u;
};

table TableWithOptionalUnion {
	1: UnionOfThings u;
};
`)
	s := findStruct(t, root, "example/OptionalUnion")
	if got := s.TypeShapeV1; got.InlineSize != 8 || got.MaxOutOfLine != 24 || got.Depth != 1 {
		t.Errorf("OptionalUnion old shape = %+v, want {InlineSize:8 MaxOutOfLine:24 Depth:1 ...}", got)
	}
	if got := s.TypeShapeV2; got.InlineSize != 24 || got.MaxOutOfLine != 16 || got.Depth != 1 {
		t.Errorf("OptionalUnion v2 shape = %+v, want {InlineSize:24 MaxOutOfLine:16 Depth:1 ...}", got)
	}
	if s.TypeShapeV1 == s.TypeShapeV2 {
		t.Errorf("OptionalUnion's two wire formats should differ, both report %+v", s.TypeShapeV1)
	}

	tbl := findTable(t, root, "example/TableWithOptionalUnion")
	if got := tbl.TypeShapeV1; got.InlineSize != 16 || got.MaxOutOfLine != 40 || got.Depth != 2 {
		t.Errorf("TableWithOptionalUnion old shape = %+v, want {InlineSize:16 MaxOutOfLine:40 Depth:2 ...}", got)
	}
	if got := tbl.TypeShapeV2; got.InlineSize != 16 || got.MaxOutOfLine != 56 || got.Depth != 3 {
		t.Errorf("TableWithOptionalUnion v2 shape = %+v, want {InlineSize:16 MaxOutOfLine:56 Depth:3 ...}", got)
	}
}

// TestUnionUnknownMemberRules mirrors the bits/enum [Unknown] rules
// (flexible_tests.cc) extended to unions: at most one [Unknown] member,
// and never on a strict union.
func TestUnionUnknownMemberRules(t *testing.T) {
	errs := flattest.EndToEndTest{T: t}.ExpectFail(`
library example;

strict union U {
	1: bool a;
	[Unknown]
	2: bool b;
};
`)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "cannot specify [Unknown] for a strict union") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want a strict-union [Unknown] diagnostic", errs)
	}
}

func TestUnionMultipleUnknownMembersRejected(t *testing.T) {
	errs := flattest.EndToEndTest{T: t}.ExpectFail(`
library example;

flexible union U {
	[Unknown]
	1: bool a;
	[Unknown]
	2: bool b;
};
`)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "[Unknown] attribute can be only applied to one member") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want an at-most-one-[Unknown] diagnostic", errs)
	}
}

// TestFlexibleEnumRequiresUnknownWhenFull covers spec.md:88's other
// clause: a flexible enum occupying its full underlying value space must
// mark an explicit unknown member.
func TestFlexibleEnumRequiresUnknownWhenFull(t *testing.T) {
	errs := flattest.EndToEndTest{T: t}.WithExperiments("flexible_bits_and_enums").ExpectFail(`
library example;

flexible enum Full : uint8 {
` + fullUint8EnumBody() + `
};
`)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "must mark one member [Unknown]") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want a full-flexible-enum-needs-[Unknown] diagnostic", errs)
	}
}

func fullUint8EnumBody() string {
	var b strings.Builder
	for i := 0; i < 256; i++ {
		fmt.Fprintf(&b, "\tV%d = %d;\n", i, i)
	}
	return b.String()
}

// TestFlexibleEnumGatedByExperiment covers the supplemental
// ExperimentalFlags gate: `flexible enum` is rejected unless the
// flexible_bits_and_enums experiment is enabled.
func TestFlexibleEnumGatedByExperiment(t *testing.T) {
	errs := flattest.EndToEndTest{T: t}.ExpectFail(`
library example;

flexible enum E : uint8 {
	A = 1;
};
`)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, `cannot specify flexible for "enum"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want a flexible-enum-needs-experiment diagnostic", errs)
	}

	// Same source compiles once the experiment is enabled.
	root := flattest.EndToEndTest{T: t}.WithExperiments("flexible_bits_and_enums").Single(`
library example;

flexible enum E : uint8 {
	A = 1;
	[Unknown]
	B = 2;
};
`)
	if root == nil {
		t.Fatalf("expected compile to succeed with the experiment enabled")
	}
}

func TestIRRootDeterministicForSameSource(t *testing.T) {
	src := `
library example;

const uint32 kMax = 10;

struct S {
	uint32 a;
	bool b;
};
`
	a := flattest.EndToEndTest{T: t}.Single(src)
	b := flattest.EndToEndTest{T: t}.Single(src)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two compiles of identical source produced different IR (-first +second):\n%s", diff)
	}
}

func findStruct(t *testing.T, root *ir.Root, name string) ir.Struct {
	t.Helper()
	for _, s := range root.StructDeclarations {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no struct named %q in %v", name, root.DeclarationOrder)
	return ir.Struct{}
}

func findTable(t *testing.T, root *ir.Root, name string) ir.Table {
	t.Helper()
	for _, tbl := range root.TableDeclarations {
		if tbl.Name == name {
			return tbl
		}
	}
	t.Fatalf("no table named %q in %v", name, root.DeclarationOrder)
	return ir.Table{}
}

func findProtocol(t *testing.T, root *ir.Root, name string) ir.Protocol {
	t.Helper()
	for _, p := range root.ProtocolDeclarations {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no protocol named %q in %v", name, root.DeclarationOrder)
	return ir.Protocol{}
}
