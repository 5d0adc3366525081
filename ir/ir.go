// Package ir walks a compiled flat.Library and produces the stable,
// language-neutral tree described in spec §6: declarations grouped by
// kind, in the library's topological declaration order, each carrying its
// name, source location, computed typeshape/fieldshapes, and attributes.
// The tree is a plain JSON-taggable value so the external JSON backend
// (out of core scope per spec §1) can marshal it with encoding/json, the
// way tools/fidl/lib/fidlgen's own Root/Struct/Method types are read back
// with json.Unmarshal (types_test.go's TestCanUnmarshalLargeOrdinal,
// struct_test.go's TypeShapeV1/FieldShapeV1 naming).
package ir

import (
	"fmt"

	"go.fuchsia.dev/fidlcore/flat"
	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/source"
	"go.fuchsia.dev/fidlcore/typeshape"
)

// TypeShape mirrors fidlgen's TypeShapeV1/V2 field naming (spec §3's
// TypeShape tuple).
type TypeShape struct {
	InlineSize          uint32 `json:"inline_size"`
	Alignment           uint32 `json:"alignment"`
	MaxOutOfLine        uint32 `json:"max_out_of_line"`
	MaxHandles          uint32 `json:"max_handles"`
	Depth               uint32 `json:"depth"`
	HasPadding          bool   `json:"has_padding"`
	HasFlexibleEnvelope bool   `json:"has_flexible_envelope"`
	IsResource          bool   `json:"is_resource"`
}

func newTypeShape(s typeshape.TypeShape) TypeShape {
	return TypeShape{
		InlineSize:          s.InlineSize,
		Alignment:           s.Alignment,
		MaxOutOfLine:        s.MaxOutOfLine,
		MaxHandles:          s.MaxHandles,
		Depth:               s.Depth,
		HasPadding:          s.HasPadding,
		HasFlexibleEnvelope: s.HasFlexibleEnvelope,
		IsResource:          s.IsResource,
	}
}

// FieldShape mirrors fidlgen's FieldShapeV1/V2 (spec §3).
type FieldShape struct {
	Offset  uint32 `json:"offset"`
	Padding uint32 `json:"padding"`
}

func newFieldShape(s typeshape.FieldShape) FieldShape {
	return FieldShape{Offset: s.Offset, Padding: s.Padding}
}

// Location is the file/line/column a declaration or member was parsed
// from, read off its source.Span (spec §6: "per-declaration members
// including ... source location").
type Location struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Attribute is one resolved `[Name="value"]` or `[Name]` occurrence.
type Attribute struct {
	Name     string `json:"name"`
	Value    string `json:"value,omitempty"`
	HasValue bool   `json:"has_value"`
}

func newAttributes(list *raw.AttributeList) []Attribute {
	if list == nil {
		return nil
	}
	out := make([]Attribute, len(list.Attributes))
	for i, a := range list.Attributes {
		out[i] = Attribute{Name: a.Name, Value: a.Value, HasValue: a.HasValue}
	}
	return out
}

// TypeRef is the IR's printed form of a flat.Type: type references inside
// the IR are fully-qualified names (spec §6), with nested structure
// preserved for vector/array/handle element types.
type TypeRef struct {
	Kind          string   `json:"kind"`
	Identifier    string   `json:"identifier,omitempty"`
	ElementType   *TypeRef `json:"element_type,omitempty"`
	MaybeElementCount *uint32 `json:"maybe_element_count,omitempty"`
	Nullable      bool     `json:"nullable"`
	HandleSubtype string   `json:"subtype,omitempty"`
	HandleRights  uint32   `json:"rights,omitempty"`
}

// newTypeRef converts t to its IR printed form, or nil for a reserved
// table/union member slot — preserved explicitly as a JSON null rather
// than an omitted key, per spec §9's open-question resolution ("Union
// variants with reserved carry null in the IR for the type field").
func newTypeRef(t *flat.Type) *TypeRef {
	if t == nil {
		return nil
	}
	r := &TypeRef{Nullable: t.IsNullable()}
	switch t.Kind {
	case flat.KindPrimitive:
		r.Kind = "primitive"
		r.Identifier = t.Primitive.String()
	case flat.KindString:
		r.Kind = "string"
		if t.HasBound {
			b := t.Bound
			r.MaybeElementCount = &b
		}
	case flat.KindVector:
		r.Kind = "vector"
		r.ElementType = newTypeRef(t.ElementType)
		if t.HasBound {
			b := t.Bound
			r.MaybeElementCount = &b
		}
	case flat.KindArray:
		r.Kind = "array"
		r.ElementType = newTypeRef(t.ElementType)
		b := t.Bound
		r.MaybeElementCount = &b
	case flat.KindHandle:
		r.Kind = "handle"
		r.HandleSubtype = string(t.HandleSubtype)
		r.HandleRights = t.HandleRights
	case flat.KindIdentifier:
		r.Kind = "identifier"
		r.Identifier = fqnOf(t)
	case flat.KindClientEnd:
		r.Kind = "client_end"
		r.Identifier = fqnOf(t)
	case flat.KindServerEnd:
		r.Kind = "server_end"
		r.Identifier = fqnOf(t)
	case flat.KindRequest:
		r.Kind = "request"
		r.Identifier = fqnOf(t)
	default:
		r.Kind = "unknown"
	}
	return r
}

func fqnOf(t *flat.Type) string {
	if t.Decl == nil {
		return ""
	}
	return t.Decl.Name.FullyQualifiedName()
}

// constString renders a resolved constant value (spec §4.4's uint64/
// int64/float64/string/bool domain) as its IR text form.
func constString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

// Const, Bits, Enum, Struct, Table, Union, Protocol, Service, TypeAlias,
// and ResourceDefinition are the per-kind IR nodes, one per spec §3
// Declaration variant.

type Const struct {
	Name       string      `json:"name"`
	Location   Location    `json:"location"`
	Type       *TypeRef    `json:"type"`
	Value      string      `json:"value"`
	Attributes []Attribute `json:"maybe_attributes,omitempty"`
}

type BitsMember struct {
	Name       string      `json:"name"`
	Location   Location    `json:"location"`
	Value      uint64      `json:"value"`
	Unknown    bool        `json:"is_unknown,omitempty"`
	Attributes []Attribute `json:"maybe_attributes,omitempty"`
}

type Bits struct {
	Name       string       `json:"name"`
	Location   Location     `json:"location"`
	Type       string       `json:"type"`
	Strict     bool         `json:"strict"`
	Members    []BitsMember `json:"members"`
	Attributes []Attribute  `json:"maybe_attributes,omitempty"`
}

type EnumMember struct {
	Name       string      `json:"name"`
	Location   Location    `json:"location"`
	Value      int64       `json:"value"`
	Unknown    bool        `json:"is_unknown,omitempty"`
	Attributes []Attribute `json:"maybe_attributes,omitempty"`
}

type Enum struct {
	Name       string       `json:"name"`
	Location   Location     `json:"location"`
	Type       string       `json:"type"`
	Strict     bool         `json:"strict"`
	Members    []EnumMember `json:"members"`
	Attributes []Attribute  `json:"maybe_attributes,omitempty"`
}

type StructMember struct {
	Name         string      `json:"name"`
	Location     Location    `json:"location"`
	Type         *TypeRef    `json:"type"`
	HasDefault   bool        `json:"has_default,omitempty"`
	DefaultValue string      `json:"maybe_default_value,omitempty"`
	FieldShapeV1 FieldShape  `json:"field_shape_v1"`
	FieldShapeV2 FieldShape  `json:"field_shape_v2"`
	Attributes   []Attribute `json:"maybe_attributes,omitempty"`
}

type Struct struct {
	Name        string         `json:"name"`
	Location    Location       `json:"location"`
	Resource    bool           `json:"resource,omitempty"`
	Members     []StructMember `json:"members"`
	TypeShapeV1 TypeShape      `json:"type_shape_v1"`
	TypeShapeV2 TypeShape      `json:"type_shape_v2"`
	Attributes  []Attribute    `json:"maybe_attributes,omitempty"`
}

type TableMember struct {
	Ordinal    uint64      `json:"ordinal"`
	Reserved   bool        `json:"reserved"`
	Name       string      `json:"name,omitempty"`
	Location   Location    `json:"location"`
	Type       *TypeRef    `json:"type"`
	Attributes []Attribute `json:"maybe_attributes,omitempty"`
}

type Table struct {
	Name        string        `json:"name"`
	Location    Location      `json:"location"`
	Resource    bool          `json:"resource,omitempty"`
	Members     []TableMember `json:"members"`
	TypeShapeV1 TypeShape     `json:"type_shape_v1"`
	TypeShapeV2 TypeShape     `json:"type_shape_v2"`
	Attributes  []Attribute   `json:"maybe_attributes,omitempty"`
}

type UnionMember struct {
	Ordinal    uint64      `json:"ordinal"`
	Reserved   bool        `json:"reserved"`
	Name       string      `json:"name,omitempty"`
	Location   Location    `json:"location"`
	Type       *TypeRef    `json:"type"`
	Attributes []Attribute `json:"maybe_attributes,omitempty"`
}

type Union struct {
	Name        string        `json:"name"`
	Location    Location      `json:"location"`
	Strict      bool          `json:"strict"`
	Resource    bool          `json:"resource,omitempty"`
	Members     []UnionMember `json:"members"`
	TypeShapeV1 TypeShape     `json:"type_shape_v1"`
	TypeShapeV2 TypeShape     `json:"type_shape_v2"`
	Attributes  []Attribute   `json:"maybe_attributes,omitempty"`
}

type Parameter struct {
	Name string   `json:"name"`
	Type *TypeRef `json:"type"`
}

type Method struct {
	Name          string      `json:"name"`
	Location      Location    `json:"location"`
	Ordinal       uint64      `json:"ordinal"`
	LegacyOrdinal uint32      `json:"legacy_ordinal,omitempty"`
	Selector      string      `json:"selector"`
	HasRequest    bool        `json:"has_request"`
	Request       []Parameter `json:"maybe_request,omitempty"`
	HasResponse   bool        `json:"has_response"`
	Response      []Parameter `json:"maybe_response,omitempty"`
	HasError      bool        `json:"has_error,omitempty"`
	ErrorType     *TypeRef    `json:"maybe_error_type,omitempty"`
	Attributes    []Attribute `json:"maybe_attributes,omitempty"`
}

type Protocol struct {
	Name       string      `json:"name"`
	Location   Location    `json:"location"`
	Composes   []string    `json:"composed_protocols,omitempty"`
	Methods    []Method    `json:"methods"`
	Attributes []Attribute `json:"maybe_attributes,omitempty"`
}

type ServiceMember struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
	Type     *TypeRef `json:"type"`
}

type Service struct {
	Name       string          `json:"name"`
	Location   Location        `json:"location"`
	Members    []ServiceMember `json:"members"`
	Attributes []Attribute     `json:"maybe_attributes,omitempty"`
}

type TypeAlias struct {
	Name       string      `json:"name"`
	Location   Location    `json:"location"`
	Type       *TypeRef    `json:"partial_type_ctor"`
	Attributes []Attribute `json:"maybe_attributes,omitempty"`
}

type ResourceProperty struct {
	Name string   `json:"name"`
	Type *TypeRef `json:"type"`
}

type ResourceDefinition struct {
	Name       string             `json:"name"`
	Location   Location           `json:"location"`
	Type       string             `json:"type"`
	Properties []ResourceProperty `json:"properties"`
	Attributes []Attribute        `json:"maybe_attributes,omitempty"`
}

// Root is the whole-library IR tree (spec §6). DeclarationOrder is the
// flattened, fully-qualified-name topological order used to re-derive
// declaration order without re-running SCC detection.
type Root struct {
	Name                   string               `json:"name"`
	ConstDeclarations      []Const              `json:"const_declarations"`
	BitsDeclarations       []Bits               `json:"bits_declarations"`
	EnumDeclarations       []Enum               `json:"enum_declarations"`
	StructDeclarations     []Struct             `json:"struct_declarations"`
	TableDeclarations      []Table              `json:"table_declarations"`
	UnionDeclarations      []Union              `json:"union_declarations"`
	ProtocolDeclarations   []Protocol           `json:"protocol_declarations"`
	ServiceDeclarations    []Service            `json:"service_declarations"`
	TypeAliasDeclarations  []TypeAlias          `json:"type_alias_declarations"`
	ResourceDeclarations   []ResourceDefinition `json:"resource_declarations"`
	DeclarationOrder       []string             `json:"declaration_order"`
}

// Build walks lib (already Compile()d) in its topological declaration
// order and emits the stable IR tree. It does not check whether lib
// compiled successfully: it walks whatever TopoOrder holds, so callers
// should check the Reporter before trusting the result, matching spec §7 ("on any
// error ... the IR is not emitted" is the caller's responsibility, not
// this function's — Build is a pure walk of whatever declarations exist).
func Build(lib *flat.Library) *Root {
	r := &Root{Name: lib.Name.FullyQualifiedName()}
	for _, d := range lib.TopoOrder {
		r.DeclarationOrder = append(r.DeclarationOrder, d.Name.FullyQualifiedName())
		buildDecl(r, d)
	}
	return r
}

func loc(span source.Span) Location {
	if span.File == nil {
		return Location{}
	}
	line, col := span.File.LineCol(span.Start)
	return Location{Filename: span.File.Name(), Line: line, Column: col}
}

func buildDecl(r *Root, d *flat.Decl) {
	name := d.Name.FullyQualifiedName()
	attrs := newAttributes(d.Attributes)
	switch d.Kind {
	case flat.DeclConst:
		if d.Const == nil {
			return
		}
		r.ConstDeclarations = append(r.ConstDeclarations, Const{
			Name: name, Location: loc(d.Span),
			Type: newTypeRef(d.Const.Type), Value: constString(d.Const.Value),
			Attributes: attrs,
		})
	case flat.DeclBits:
		if d.Bits == nil {
			return
		}
		b := Bits{
			Name: name, Location: loc(d.Span),
			Type:       primitiveName(d.Bits.Subtype),
			Strict:     d.Bits.Strictness == raw.Strict,
			Attributes: attrs,
		}
		for _, m := range d.Bits.Members {
			b.Members = append(b.Members, BitsMember{Name: m.Name, Location: loc(m.Span), Value: m.Value, Unknown: m.Unknown})
		}
		r.BitsDeclarations = append(r.BitsDeclarations, b)
	case flat.DeclEnum:
		if d.Enum == nil {
			return
		}
		e := Enum{
			Name: name, Location: loc(d.Span),
			Type:       primitiveName(d.Enum.Subtype),
			Strict:     d.Enum.Strictness == raw.Strict,
			Attributes: attrs,
		}
		for _, m := range d.Enum.Members {
			e.Members = append(e.Members, EnumMember{Name: m.Name, Location: loc(m.Span), Value: m.Value, Unknown: m.Unknown})
		}
		r.EnumDeclarations = append(r.EnumDeclarations, e)
	case flat.DeclStruct:
		if d.Struct == nil {
			return
		}
		s := Struct{
			Name: name, Location: loc(d.Span),
			Resource:    d.Struct.Resource,
			TypeShapeV1: newTypeShape(d.Shape(typeshape.WireFormatOld)),
			TypeShapeV2: newTypeShape(d.Shape(typeshape.WireFormatV2)),
			Attributes:  attrs,
		}
		for _, m := range d.Struct.Members {
			sm := StructMember{
				Name: m.Name, Location: loc(m.Span), Type: newTypeRef(m.Type),
				HasDefault:   m.HasDefault,
				FieldShapeV1: newFieldShape(m.Shape(typeshape.WireFormatOld)), FieldShapeV2: newFieldShape(m.Shape(typeshape.WireFormatV2)),
			}
			if m.HasDefault {
				sm.DefaultValue = constString(m.DefaultValue)
			}
			s.Members = append(s.Members, sm)
		}
		r.StructDeclarations = append(r.StructDeclarations, s)
	case flat.DeclTable:
		if d.Table == nil {
			return
		}
		t := Table{
			Name: name, Location: loc(d.Span),
			Resource:    d.Table.Resource,
			TypeShapeV1: newTypeShape(d.Shape(typeshape.WireFormatOld)),
			TypeShapeV2: newTypeShape(d.Shape(typeshape.WireFormatV2)),
			Attributes:  attrs,
		}
		for _, m := range d.Table.Members {
			t.Members = append(t.Members, TableMember{
				Ordinal: m.Ordinal, Reserved: m.Reserved, Name: m.Name,
				Location: loc(m.Span), Type: newTypeRef(m.Type),
			})
		}
		r.TableDeclarations = append(r.TableDeclarations, t)
	case flat.DeclUnion:
		if d.Union == nil {
			return
		}
		u := Union{
			Name: name, Location: loc(d.Span),
			Strict:      d.Union.Strictness == raw.Strict,
			Resource:    d.Union.Resource,
			TypeShapeV1: newTypeShape(d.Shape(typeshape.WireFormatOld)),
			TypeShapeV2: newTypeShape(d.Shape(typeshape.WireFormatV2)),
			Attributes:  attrs,
		}
		for _, m := range d.Union.Members {
			u.Members = append(u.Members, UnionMember{
				Ordinal: m.Ordinal, Reserved: m.Reserved, Name: m.Name,
				Location: loc(m.Span), Type: newTypeRef(m.Type),
			})
		}
		r.UnionDeclarations = append(r.UnionDeclarations, u)
	case flat.DeclProtocol:
		if d.Protocol == nil {
			return
		}
		p := Protocol{Name: name, Location: loc(d.Span), Attributes: attrs}
		for _, c := range d.Protocol.Composes {
			p.Composes = append(p.Composes, c.FullyQualifiedName())
		}
		for _, m := range d.Protocol.Methods {
			method := Method{
				Name: m.Name, Location: loc(m.Span), Ordinal: m.Ordinal,
				LegacyOrdinal: m.LegacyOrdinal, Selector: m.Selector,
				HasRequest: m.HasRequest, HasResponse: m.HasResponse, HasError: m.HasError,
			}
			for _, p2 := range m.Request {
				method.Request = append(method.Request, Parameter{Name: p2.Name, Type: newTypeRef(p2.Type)})
			}
			for _, p2 := range m.Response {
				method.Response = append(method.Response, Parameter{Name: p2.Name, Type: newTypeRef(p2.Type)})
			}
			if m.HasError {
				method.ErrorType = newTypeRef(m.ErrorType)
			}
			p.Methods = append(p.Methods, method)
		}
		r.ProtocolDeclarations = append(r.ProtocolDeclarations, p)
	case flat.DeclService:
		if d.Service == nil {
			return
		}
		s := Service{Name: name, Location: loc(d.Span), Attributes: attrs}
		for _, m := range d.Service.Members {
			s.Members = append(s.Members, ServiceMember{Name: m.Name, Location: loc(m.Span), Type: newTypeRef(m.Type)})
		}
		r.ServiceDeclarations = append(r.ServiceDeclarations, s)
	case flat.DeclTypeAlias:
		if d.TypeAlias == nil {
			return
		}
		r.TypeAliasDeclarations = append(r.TypeAliasDeclarations, TypeAlias{
			Name: name, Location: loc(d.Span), Type: newTypeRef(d.TypeAlias.Target), Attributes: attrs,
		})
	case flat.DeclResource:
		if d.Resource == nil {
			return
		}
		rd := ResourceDefinition{
			Name: name, Location: loc(d.Span),
			Type: primitiveName(d.Resource.Subtype), Attributes: attrs,
		}
		for _, p := range d.Resource.Properties {
			rd.Properties = append(rd.Properties, ResourceProperty{Name: p.Name, Type: newTypeRef(p.Type)})
		}
		r.ResourceDeclarations = append(r.ResourceDeclarations, rd)
	}
}

func primitiveName(p flat.PrimitiveSubtype) string { return p.String() }
