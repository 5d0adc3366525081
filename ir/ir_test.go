package ir_test

import (
	"encoding/json"
	"strings"
	"testing"

	"go.fuchsia.dev/fidlcore/flat/flattest"
)

func TestBuildEmitsDeclarationOrder(t *testing.T) {
	root := flattest.EndToEndTest{T: t}.Single(`
library example;

const uint32 kLimit = 4;

struct Point {
	int32 x;
	int32 y;
};
`)
	if root.Name != "example" {
		t.Errorf("Name = %q, want %q", root.Name, "example")
	}
	if len(root.DeclarationOrder) != 2 {
		t.Fatalf("DeclarationOrder = %v, want 2 entries", root.DeclarationOrder)
	}
	if len(root.ConstDeclarations) != 1 || root.ConstDeclarations[0].Value != "4" {
		t.Errorf("ConstDeclarations = %+v, want kLimit = 4", root.ConstDeclarations)
	}
	if len(root.StructDeclarations) != 1 || len(root.StructDeclarations[0].Members) != 2 {
		t.Errorf("StructDeclarations = %+v, want Point with 2 members", root.StructDeclarations)
	}
}

// TestReservedMemberMarshalsExplicitNull marshals a union with a reserved
// variant and asserts its "type" key round-trips as JSON null rather than
// being dropped by omitempty, matching the open-question resolution
// recorded for union/table reserved members.
func TestReservedMemberMarshalsExplicitNull(t *testing.T) {
	root := flattest.EndToEndTest{T: t}.Single(`
library example;

union U {
	1: bool b;
	2: reserved;
};
`)
	buf, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(buf)
	idx := strings.Index(out, `"reserved":true`)
	if idx == -1 {
		t.Fatalf("expected a reserved:true member in %s", out)
	}
	// The reserved member's "type" key must still be present with a null
	// value, not omitted. The reserved member is the union's last one, so
	// its object runs to the "]" that closes the members array (its own
	// nested "location" object rules out cutting at the first "}").
	window := out[idx:]
	if end := strings.Index(window, "]"); end != -1 {
		window = window[:end]
	}
	if !strings.Contains(window, `"type":null`) {
		t.Errorf("reserved member object %q should contain \"type\":null", window)
	}
}

func TestPrimitiveTypeRefRendersKindAndIdentifier(t *testing.T) {
	root := flattest.EndToEndTest{T: t}.Single(`
library example;

struct S {
	int32 v;
};
`)
	if len(root.StructDeclarations) != 1 {
		t.Fatalf("expected one struct, got %d", len(root.StructDeclarations))
	}
	m := root.StructDeclarations[0].Members[0]
	if m.Type == nil || m.Type.Kind != "primitive" || m.Type.Identifier != "int32" {
		t.Errorf("type ref = %+v, want primitive int32", m.Type)
	}
}
