package typeshape

import "testing"

// Table cases mirror zircon/system/utest/fidl-compiler/typeshape_tests.cc's
// simple_tables / tables_with_reserved_fields / optional_tables suites.
func TestTable(t *testing.T) {
	boolShape := Primitive(1)
	u32Shape := Primitive(4)
	u64Shape := Primitive(8)

	tests := []struct {
		name          string
		members       []TypeShape
		maxOrdinal    uint32
		wantOutOfLine uint32
		wantDepth     uint32
		wantPadding   bool
	}{
		{"no members", nil, 0, 0, 1, false},
		{"one bool", []TypeShape{boolShape}, 1, 24, 2, true},
		{"two bools", []TypeShape{boolShape, boolShape}, 2, 48, 2, true},
		{"bool and u32", []TypeShape{boolShape, u32Shape}, 2, 48, 2, true},
		{"bool and u64", []TypeShape{boolShape, u64Shape}, 2, 48, 2, true},
		// SomeReserved: ordinals 1 and 3 present, 2 reserved; last present
		// ordinal is 3, so envelopes cover all 3 slots (16*3=48) even though
		// only 2 members contribute their own inline+ool bytes (8+8=16).
		{"some reserved", []TypeShape{boolShape, boolShape}, 3, 64, 2, true},
	}

	for _, tc := range tests {
		got := Table(tc.members, tc.maxOrdinal)
		if got.MaxOutOfLine != tc.wantOutOfLine {
			t.Errorf("%s: MaxOutOfLine = %d, want %d", tc.name, got.MaxOutOfLine, tc.wantOutOfLine)
		}
		if got.Depth != tc.wantDepth {
			t.Errorf("%s: Depth = %d, want %d", tc.name, got.Depth, tc.wantDepth)
		}
		if got.HasPadding != tc.wantPadding {
			t.Errorf("%s: HasPadding = %v, want %v", tc.name, got.HasPadding, tc.wantPadding)
		}
		if got.InlineSize != 16 || got.Alignment != 8 {
			t.Errorf("%s: table InlineSize/Alignment should always be 16/8, got %d/%d", tc.name, got.InlineSize, got.Alignment)
		}
		if !got.HasFlexibleEnvelope {
			t.Errorf("%s: tables are always open, expected HasFlexibleEnvelope", tc.name)
		}
	}
}

func TestTableAllReserved(t *testing.T) {
	got := Table(nil, 2) // two reserved ordinals, no present members
	if got.MaxOutOfLine != 0 {
		t.Errorf("all-reserved table: MaxOutOfLine = %d, want 0", got.MaxOutOfLine)
	}
	if got.Depth != 1 {
		t.Errorf("all-reserved table: Depth = %d, want 1", got.Depth)
	}
	if got.HasPadding {
		t.Errorf("all-reserved table: HasPadding = true, want false")
	}
}

// flexible union { 1: bool b; 2: vector<vector<int32>:5>:6 v; } from the
// worked example in the spec's explicit testable scenarios.
func TestUnionVectorOfVectors(t *testing.T) {
	inner := Vector(Primitive(4), true, 5) // vector<int32>:5
	outer := Vector(inner, true, 6)        // vector<vector<int32>:5>:6
	boolShape := Primitive(1)

	shape := Union([]TypeShape{boolShape, outer}, true, WireFormatV2)

	if shape.InlineSize != 24 {
		t.Errorf("InlineSize = %d, want 24", shape.InlineSize)
	}
	if shape.MaxOutOfLine != 256 {
		t.Errorf("MaxOutOfLine = %d, want 256", shape.MaxOutOfLine)
	}
	if shape.Depth != 3 {
		t.Errorf("Depth = %d, want 3", shape.Depth)
	}
}

func TestStructOffsetsAndPadding(t *testing.T) {
	// struct { bool a; uint32 b; uint8 c; } — b forces 3 bytes of padding
	// after a, and the whole struct is padded to its 4-byte alignment.
	shape, fields := Struct([]MemberContribution{
		{Shape: Primitive(1)},
		{Shape: Primitive(4)},
		{Shape: Primitive(1)},
	})
	if shape.InlineSize != 12 {
		t.Fatalf("InlineSize = %d, want 12", shape.InlineSize)
	}
	if fields[0].Offset != 0 || fields[0].Padding != 3 {
		t.Errorf("field 0 = %+v, want offset 0 padding 3", fields[0])
	}
	if fields[1].Offset != 4 || fields[1].Padding != 0 {
		t.Errorf("field 1 = %+v, want offset 4 padding 0", fields[1])
	}
	if fields[2].Offset != 8 || fields[2].Padding != 3 {
		t.Errorf("field 2 = %+v, want offset 8 padding 3", fields[2])
	}
}

func TestNullableBoxedVsEnvelope(t *testing.T) {
	target := TypeShape{InlineSize: 8, Alignment: 8, MaxOutOfLine: 16}

	boxed := Nullable(target, NullableBoxed, WireFormatV2)
	if boxed.InlineSize != 8 {
		t.Errorf("boxed InlineSize = %d, want 8", boxed.InlineSize)
	}

	envelope := Nullable(target, NullableEnvelope, WireFormatV2)
	if envelope.InlineSize != 24 {
		t.Errorf("envelope InlineSize = %d, want 24", envelope.InlineSize)
	}
}

// TestNullableUnionWireFormatDivergence grounds the two cited numbers for
// OptionalUnion from typeshape_tests.cc: a nullable union costs a boxed
// pointer under the legacy format, but is a free pass-through under the
// envelope format since absence is represented by an empty envelope in
// the union's own existing representation.
func TestNullableUnionWireFormatDivergence(t *testing.T) {
	// UnionOfThings' own v2 shape, matching typeshape_tests.cc.
	union := Union([]TypeShape{Primitive(4), Primitive(8)}, false, WireFormatV2)

	old := Nullable(union, NullableUnion, WireFormatOld)
	if old.InlineSize != 8 {
		t.Errorf("old nullable union InlineSize = %d, want 8", old.InlineSize)
	}
	if old.Depth != union.Depth+1 {
		t.Errorf("old nullable union Depth = %d, want %d", old.Depth, union.Depth+1)
	}

	v2 := Nullable(union, NullableUnion, WireFormatV2)
	if v2 != union {
		t.Errorf("v2 nullable union should pass through target unchanged, got %+v want %+v", v2, union)
	}
}

func TestPendingCycleSaturates(t *testing.T) {
	p := PendingCycle()
	if p.Depth != Unbounded || p.MaxOutOfLine != Unbounded || p.InlineSize != Unbounded {
		t.Errorf("PendingCycle() should saturate every quantity, got %+v", p)
	}
}

func TestAddSaturatingClampsOverflow(t *testing.T) {
	if got := addSaturating(Unbounded, 1); got != Unbounded {
		t.Errorf("addSaturating(Unbounded, 1) = %d, want Unbounded", got)
	}
	if got := addSaturating(10, 20); got != 30 {
		t.Errorf("addSaturating(10, 20) = %d, want 30", got)
	}
}
