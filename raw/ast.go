// Package raw defines the syntax tree produced directly by parsing, before
// any cross-file or cross-library resolution happens, and the
// recursive-descent parser that builds it. Every node records its Span so
// collaborators (the formatter, the syntax converter) can recover the exact
// source text, per spec §4.2.
package raw

import "go.fuchsia.dev/fidlcore/source"

// Identifier is a single dotted-free name token's text plus its span.
type Identifier struct {
	Span source.Span
	Name string
}

// CompoundIdentifier is a dotted reference, e.g. `some.library.Name` or
// `Name.MEMBER`.
type CompoundIdentifier struct {
	Span       source.Span
	Components []Identifier
}

func (c CompoundIdentifier) String() string {
	s := ""
	for i, part := range c.Components {
		if i > 0 {
			s += "."
		}
		s += part.Name
	}
	return s
}

// Attribute is a single `Name` or `Name="value"` occurrence inside an
// attribute list.
type Attribute struct {
	Span  source.Span
	Name  string
	Value string
	HasValue bool
}

// AttributeList is the `[A, B="v"]` block that may precede any declaration
// or member.
type AttributeList struct {
	Span       source.Span
	Attributes []Attribute
}

func (al *AttributeList) Get(name string) (Attribute, bool) {
	if al == nil {
		return Attribute{}, false
	}
	for _, a := range al.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Constant is the sum type for literal / identifier-reference / binary-or
// constant expressions (spec §4.4).
type Constant interface {
	constantNode()
	Span() source.Span
}

type LiteralKind int

const (
	NumericLiteral LiteralKind = iota
	StringLiteralKind
	BoolLiteral
)

type LiteralConstant struct {
	SpanValue source.Span
	Kind      LiteralKind
	Text      string // raw lexeme, e.g. "42", "\"hi\"", "true"
}

func (*LiteralConstant) constantNode()        {}
func (l *LiteralConstant) Span() source.Span  { return l.SpanValue }

type IdentifierConstant struct {
	SpanValue source.Span
	Identifier CompoundIdentifier
}

func (*IdentifierConstant) constantNode()       {}
func (c *IdentifierConstant) Span() source.Span { return c.SpanValue }

type BinaryOrConstant struct {
	SpanValue   source.Span
	Left, Right Constant
}

func (*BinaryOrConstant) constantNode()       {}
func (c *BinaryOrConstant) Span() source.Span { return c.SpanValue }

// Nullability distinguishes a trailing `?` on a type constructor.
type Nullability int

const (
	NonNullable Nullability = iota
	Nullable
)

// TypeConstructor is a reference to a named type plus the four optional
// parameter slots described in spec §3.
type TypeConstructor struct {
	Span        source.Span
	Identifier  CompoundIdentifier
	ElementType *TypeConstructor // vector<T>, array<T, N>
	MaybeSize   Constant         // vector:N, array<T,N>, string:N
	HandleSubtype *Identifier
	HandleRights  Constant
	Nullability   Nullability
}

// Strictness distinguishes `strict`/`flexible` on bits/enum/union.
type Strictness int

const (
	StrictnessUnspecified Strictness = iota
	Strict
	Flexible
)

// Member variants ------------------------------------------------------

type ConstDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Type       *TypeConstructor
	Name       Identifier
	Value      Constant
}

type BitsMember struct {
	Span       source.Span
	Attributes *AttributeList
	Name       Identifier
	Value      Constant
}

type BitsDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Strictness Strictness
	Name       Identifier
	Subtype    *TypeConstructor // underlying integer type; nil => default uint32
	Members    []BitsMember
}

type EnumMember struct {
	Span       source.Span
	Attributes *AttributeList
	Name       Identifier
	Value      Constant
}

type EnumDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Strictness Strictness
	Name       Identifier
	Subtype    *TypeConstructor
	Members    []EnumMember
}

type StructMember struct {
	Span         source.Span
	Attributes   *AttributeList
	Type         *TypeConstructor
	Name         Identifier
	DefaultValue Constant
}

type StructDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Resource   bool
	Name       Identifier
	Members    []StructMember
}

// TableMember is either `ord: reserved;` (Type == nil) or `ord: type name;`.
type TableMember struct {
	Span       source.Span
	Attributes *AttributeList
	Ordinal    uint64
	Reserved   bool
	Type       *TypeConstructor
	Name       Identifier
}

type TableDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Resource   bool
	Name       Identifier
	Members    []TableMember
}

type UnionMember struct {
	Span       source.Span
	Attributes *AttributeList
	Ordinal    uint64
	Reserved   bool
	Type       *TypeConstructor
	Name       Identifier
}

type UnionDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Strictness Strictness
	Resource   bool
	Name       Identifier
	Members    []UnionMember
}

type Parameter struct {
	Span source.Span
	Type *TypeConstructor
	Name Identifier
}

type ProtocolMethod struct {
	Span       source.Span
	Attributes *AttributeList
	Name       Identifier
	HasRequest bool
	Request    []Parameter
	HasResponse bool
	Response    []Parameter
	HasError    bool
	ErrorType   *TypeConstructor
}

type ComposeEntry struct {
	Span     source.Span
	Protocol CompoundIdentifier
}

type ProtocolDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Name       Identifier
	Composes   []ComposeEntry
	Methods    []ProtocolMethod
}

type ServiceMember struct {
	Span       source.Span
	Attributes *AttributeList
	Type       *TypeConstructor
	Name       Identifier
}

type ServiceDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Name       Identifier
	Members    []ServiceMember
}

type TypeAliasDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Name       Identifier
	Target     *TypeConstructor
}

type ResourceProperty struct {
	Span source.Span
	Type *TypeConstructor
	Name Identifier
}

type ResourceDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Name       Identifier
	Subtype    *TypeConstructor
	Properties []ResourceProperty
}

// Using is an import statement, optionally aliased (`using a.b as c;`).
// The type-alias form `using Name = Type;` is parsed into a
// TypeAliasDeclaration instead.
type Using struct {
	Span    source.Span
	Library CompoundIdentifier
	Alias   *Identifier
}

type LibraryDeclaration struct {
	Span       source.Span
	Attributes *AttributeList
	Name       CompoundIdentifier
}

// File is the raw AST for one parsed source file.
type File struct {
	SourceFile *source.File
	Library    LibraryDeclaration
	Using      []Using

	Consts     []ConstDeclaration
	Bits       []BitsDeclaration
	Enums      []EnumDeclaration
	Structs    []StructDeclaration
	Tables     []TableDeclaration
	Unions     []UnionDeclaration
	Protocols  []ProtocolDeclaration
	Services   []ServiceDeclaration
	TypeAliases []TypeAliasDeclaration
	Resources  []ResourceDeclaration

	// DeclOrder preserves the order every top-level declaration appeared
	// in the file, as (kind, index into the slice above) pairs, so the
	// library consumer can reconstruct file-order when needed (spec §3:
	// "records declaration order within file").
	DeclOrder []DeclRef
}

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

type DeclRef struct {
	Kind  DeclKind
	Index int
}
