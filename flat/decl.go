package flat

import (
	"go.fuchsia.dev/fidlcore/names"
	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/source"
	"go.fuchsia.dev/fidlcore/typeshape"
)

// DeclKind discriminates Decl's variants, mirroring the tagged-variant
// approach spec §9 prescribes in place of the source's visitor hierarchy.
type DeclKind int

const (
	DeclConst DeclKind = iota
	DeclBits
	DeclEnum
	DeclStruct
	DeclTable
	DeclUnion
	DeclProtocol
	DeclService
	DeclTypeAlias
	DeclResource
)

func (k DeclKind) String() string {
	switch k {
	case DeclConst:
		return "const"
	case DeclBits:
		return "bits"
	case DeclEnum:
		return "enum"
	case DeclStruct:
		return "struct"
	case DeclTable:
		return "table"
	case DeclUnion:
		return "union"
	case DeclProtocol:
		return "protocol"
	case DeclService:
		return "service"
	case DeclTypeAlias:
		return "type alias"
	case DeclResource:
		return "resource_definition"
	}
	return "unknown"
}

type compileState int

const (
	stateNotCompiled compileState = iota
	stateCompiling
	stateCompiled
)

// BitsMember is a resolved bits member: name plus its integer value.
type BitsMember struct {
	Name  string
	Span  source.Span
	Value uint64
	// Unknown marks this member as the decoding fallback for a flexible
	// bits declaration (the `[Unknown]` attribute, spec §4.5).
	Unknown bool
}

type BitsDecl struct {
	Strictness raw.Strictness
	Subtype    PrimitiveSubtype
	Members    []BitsMember
}

type EnumMember struct {
	Name    string
	Span    source.Span
	Value   int64
	Unknown bool
}

type EnumDecl struct {
	Strictness raw.Strictness
	Subtype    PrimitiveSubtype
	Members    []EnumMember
}

type StructMember struct {
	Name         string
	Span         source.Span
	Type         *Type
	HasDefault   bool
	DefaultValue interface{}
	// ShapeOld and ShapeV2 hold this member's offset/padding under the
	// legacy and envelope wire formats respectively. They can differ
	// because a nullable-union or union-typed sibling member's InlineSize
	// varies by wire format, which shifts every following member's offset
	// (spec §4.8, §9's wire-format-resolution note).
	ShapeOld typeshape.FieldShape
	ShapeV2  typeshape.FieldShape
}

// Shape returns the member's FieldShape for the given wire format.
func (m *StructMember) Shape(wf typeshape.WireFormat) typeshape.FieldShape {
	if wf == typeshape.WireFormatOld {
		return m.ShapeOld
	}
	return m.ShapeV2
}

// setShape records the member's FieldShape for the given wire format.
func (m *StructMember) setShape(wf typeshape.WireFormat, s typeshape.FieldShape) {
	if wf == typeshape.WireFormatOld {
		m.ShapeOld = s
	} else {
		m.ShapeV2 = s
	}
}

type StructDecl struct {
	Resource bool
	Members  []StructMember
}

// TableMember is either reserved (Type == nil) or a named field, keyed by
// its wire ordinal.
type TableMember struct {
	Ordinal  uint64
	Name     string
	Span     source.Span
	Reserved bool
	Type     *Type
}

type TableDecl struct {
	Resource bool
	Members  []TableMember // in source order; ordinals checked to be contiguous from 1
}

type UnionMember struct {
	Ordinal  uint64
	Name     string
	Span     source.Span
	Reserved bool
	Type     *Type
	// Unknown marks this member as the decoding fallback for a flexible
	// union declaration (the `[Unknown]` attribute, spec §4.5 extended to
	// unions per SPEC_FULL.md).
	Unknown bool
}

type UnionDecl struct {
	Strictness raw.Strictness
	Resource   bool
	Members    []UnionMember
}

type Parameter struct {
	Name string
	Span source.Span
	Type *Type
}

type Method struct {
	Name        string
	Span        source.Span
	Ordinal     uint64
	LegacyOrdinal uint32
	HasRequest  bool
	Request     []Parameter
	HasResponse bool
	Response    []Parameter
	HasError    bool
	ErrorType   *Type
	Selector    string // input actually hashed, for IR/debugging
}

type ProtocolDecl struct {
	// Methods includes methods pulled in transitively via `compose`,
	// flattened in declaration order, per spec §4.6 ("including composed
	// protocols" share the ordinal-clash namespace).
	Methods  []Method
	Composes []names.Name
}

type ServiceMember struct {
	Name string
	Span source.Span
	Type *Type // client_end<Protocol>
}

type ServiceDecl struct {
	Members []ServiceMember
}

type TypeAliasDecl struct {
	Target *Type
}

type ResourceProperty struct {
	Name string
	Span source.Span
	Type *Type
}

type ResourceDefinitionDecl struct {
	Subtype    PrimitiveSubtype
	Properties []ResourceProperty
}

// Decl is the compiled form of one library declaration: a Name, an
// attribute list, and variant-specific data (spec §3's Declaration sum
// type). Exactly one of the *Decl fields is non-nil, selected by Kind.
type Decl struct {
	Kind       DeclKind
	Name       names.Name
	Span       source.Span
	Attributes *raw.AttributeList

	Const    *ConstDecl
	Bits     *BitsDecl
	Enum     *EnumDecl
	Struct   *StructDecl
	Table    *TableDecl
	Union    *UnionDecl
	Protocol *ProtocolDecl
	Service  *ServiceDecl
	TypeAlias *TypeAliasDecl
	Resource  *ResourceDefinitionDecl

	state compileState

	// shapes holds the memoized TypeShape per wire format, populated by
	// the typeshape engine in compile phase 6 (spec §4.9).
	shapes map[typeshape.WireFormat]typeshape.TypeShape
}

type ConstDecl struct {
	Type  *Type
	Value interface{}
}

// Shape returns the memoized TypeShape for the given wire format, or the
// zero value if not yet computed.
func (d *Decl) Shape(wf typeshape.WireFormat) typeshape.TypeShape {
	if d.shapes == nil {
		return typeshape.TypeShape{}
	}
	return d.shapes[wf]
}

func (d *Decl) setShape(wf typeshape.WireFormat, s typeshape.TypeShape) {
	if d.shapes == nil {
		d.shapes = map[typeshape.WireFormat]typeshape.TypeShape{}
	}
	d.shapes[wf] = s
}
