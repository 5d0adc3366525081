package flat

import (
	"go.fuchsia.dev/fidlcore/names"
	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/reporter"
)

// consumeDecl attaches one top-level declaration (identified by its
// position in f.DeclOrder) to the library's name scope, without resolving
// any types or constants yet — that happens during the dependency-driven
// walk in Compile (spec §4.9 phase 1 vs phase 3).
func (l *Library) consumeDecl(rep *reporter.Reporter, f *raw.File, dr raw.DeclRef) {
	switch dr.Kind {
	case raw.DeclConst:
		n := f.Consts[dr.Index]
		l.stub(rep, DeclConst, n.Name, n.Attributes, f, n)
	case raw.DeclBits:
		n := f.Bits[dr.Index]
		l.stub(rep, DeclBits, n.Name, n.Attributes, f, n)
	case raw.DeclEnum:
		n := f.Enums[dr.Index]
		l.stub(rep, DeclEnum, n.Name, n.Attributes, f, n)
	case raw.DeclStruct:
		n := f.Structs[dr.Index]
		l.stub(rep, DeclStruct, n.Name, n.Attributes, f, n)
	case raw.DeclTable:
		n := f.Tables[dr.Index]
		l.stub(rep, DeclTable, n.Name, n.Attributes, f, n)
	case raw.DeclUnion:
		n := f.Unions[dr.Index]
		l.stub(rep, DeclUnion, n.Name, n.Attributes, f, n)
	case raw.DeclProtocol:
		n := f.Protocols[dr.Index]
		l.stub(rep, DeclProtocol, n.Name, n.Attributes, f, n)
	case raw.DeclService:
		n := f.Services[dr.Index]
		l.stub(rep, DeclService, n.Name, n.Attributes, f, n)
	case raw.DeclTypeAlias:
		n := f.TypeAliases[dr.Index]
		l.stub(rep, DeclTypeAlias, n.Name, n.Attributes, f, n)
	case raw.DeclResource:
		n := f.Resources[dr.Index]
		l.stub(rep, DeclResource, n.Name, n.Attributes, f, n)
	}
}

func (l *Library) stub(rep *reporter.Reporter, kind DeclKind, id raw.Identifier, attrs *raw.AttributeList, f *raw.File, node interface{}) {
	name := names.NewName(l.Name, id.Name)
	d := &Decl{Kind: kind, Name: name, Span: id.Span, Attributes: attrs}
	l.declare(rep, d)
	l.rawNodes[d] = rawNode{file: f, node: node}
}
