// Package flat implements the name resolver and compiler: the Typespace,
// the Decl sum type, using-resolution, constant evaluation, the ordinal
// engine, and the declaration dependency graph with SCC detection (spec
// §4.3–§4.7, §4.9). Grounded on fidlgen's typeshape/type-name handling and
// on test_library.h's Compile()/Lookup* surface for the overall shape of
// a library's compiled state.
package flat

import (
	"fmt"

	"go.fuchsia.dev/fidlcore/names"
)

// PrimitiveSubtype enumerates the fixed scalar kinds.
type PrimitiveSubtype int

const (
	Bool PrimitiveSubtype = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var primitiveNames = map[string]PrimitiveSubtype{
	"bool": Bool, "int8": Int8, "int16": Int16, "int32": Int32, "int64": Int64,
	"uint8": Uint8, "uint16": Uint16, "uint32": Uint32, "uint64": Uint64,
	"float32": Float32, "float64": Float64,
}

func LookupPrimitive(name string) (PrimitiveSubtype, bool) {
	p, ok := primitiveNames[name]
	return p, ok
}

func (p PrimitiveSubtype) IsUnsigned() bool {
	switch p {
	case Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

func (p PrimitiveSubtype) IsInteger() bool {
	switch p {
	case Bool, Float32, Float64:
		return false
	}
	return true
}

func (p PrimitiveSubtype) String() string {
	for name, subtype := range primitiveNames {
		if subtype == p {
			return name
		}
	}
	return "unknown"
}

// Range reports the representable [min, max] integer range for p, as
// float64 for uniform comparison (float64 can exactly represent every
// int64/uint64 magnitude the schema tables in spec §4.4 care about up to
// 2^53; beyond that the float64 comparison is approximate, and
// consteval.go has no separate exact check). Returns ok=false for
// non-integer subtypes.
func (p PrimitiveSubtype) Range() (min, max float64, ok bool) {
	switch p {
	case Int8:
		return -128, 127, true
	case Int16:
		return -32768, 32767, true
	case Int32:
		return -2147483648, 2147483647, true
	case Int64:
		return -9223372036854775808, 9223372036854775807, true
	case Uint8:
		return 0, 255, true
	case Uint16:
		return 0, 65535, true
	case Uint32:
		return 0, 4294967295, true
	case Uint64:
		return 0, 18446744073709551615, true
	}
	return 0, 0, false
}

// HandleSubtype enumerates the handle kinds the grammar names after
// `handle:`. The core treats all subtypes uniformly for typeshape
// purposes (spec §4.8: handle/client-end/server-end share one row); the
// subtype is retained only for IR fidelity.
type HandleSubtype string

const (
	HandleSubtypeHandle HandleSubtype = "handle"
	HandleSubtypeVMO    HandleSubtype = "vmo"
	HandleSubtypeChannel HandleSubtype = "channel"
	HandleSubtypeEvent  HandleSubtype = "event"
	HandleSubtypePort   HandleSubtype = "port"
)

// Nullability mirrors raw.Nullability in the resolved-type domain.
type Nullability int

const (
	NonNullable Nullability = iota
	Nullable
)

// TypeKind discriminates Type's variants.
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindString
	KindVector
	KindArray
	KindHandle
	KindIdentifier // resolves to a Decl
	KindClientEnd
	KindServerEnd
	KindRequest // legacy: request<Protocol>
)

// Type is the canonical, interned form produced by the Typespace from a
// raw.TypeConstructor (spec §3's Type variant list).
type Type struct {
	Kind        TypeKind
	Primitive   PrimitiveSubtype
	ElementType *Type
	HasBound    bool
	Bound       uint32
	HandleSubtype HandleSubtype
	HandleRights  uint32
	Nullability   Nullability
	// Decl is set for KindIdentifier/KindClientEnd/KindServerEnd/KindRequest:
	// the resolved declaration this type names.
	Decl *Decl
	// declName is retained even before Decl resolution completes, for
	// error messages during the dependency-driven compile walk.
	declName names.Name
}

func (t *Type) String() string {
	switch t.Kind {
	case KindPrimitive:
		return t.Primitive.String()
	case KindString:
		if t.HasBound {
			return fmt.Sprintf("string:%d", t.Bound)
		}
		return "string"
	case KindVector:
		s := fmt.Sprintf("vector<%s>", t.ElementType)
		if t.HasBound {
			s += fmt.Sprintf(":%d", t.Bound)
		}
		return s
	case KindArray:
		return fmt.Sprintf("array<%s, %d>", t.ElementType, t.Bound)
	case KindHandle:
		return fmt.Sprintf("handle:%s", t.HandleSubtype)
	case KindIdentifier:
		return t.declName.FullyQualifiedName()
	case KindClientEnd:
		return fmt.Sprintf("client_end:%s", t.declName.FullyQualifiedName())
	case KindServerEnd:
		return fmt.Sprintf("server_end:%s", t.declName.FullyQualifiedName())
	case KindRequest:
		return fmt.Sprintf("request<%s>", t.declName.FullyQualifiedName())
	}
	return "<?>"
}

// IsNullable reports whether t carries the `?` modifier.
func (t *Type) IsNullable() bool { return t.Nullability == Nullable }

// BreaksRecursion reports whether a reference through t may participate in
// a cycle without being a layout error (spec §4.7: nullable hops, request/
// client-end/server-end, and unbounded vectors break the edge).
func (t *Type) BreaksRecursion() bool {
	switch t.Kind {
	case KindClientEnd, KindServerEnd, KindRequest:
		return true
	case KindVector:
		return !t.HasBound || t.IsNullable()
	}
	return t.IsNullable()
}
