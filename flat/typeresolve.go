package flat

import (
	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/reporter"
)

// resolveType turns a raw.TypeConstructor into an interned *Type, looking
// up named declarations via l.Resolve and recursing into dependency
// compilation as needed (spec §4.9 phase 3: "when a declaration's compile
// references another, compile the referent first").
func (l *Library) resolveType(rep *reporter.Reporter, inProgress map[*Decl]bool, tc *raw.TypeConstructor) *Type {
	if tc == nil {
		return nil
	}
	nullability := NonNullable
	if tc.Nullability == raw.Nullable {
		nullability = Nullable
	}

	name := tc.Identifier.String()
	if tc.ElementType == nil && tc.HandleSubtype == nil {
		if p, ok := LookupPrimitive(name); ok {
			if nullability == Nullable {
				rep.Errorf(reporter.KindType, tc.Span, "cannot be nullable: %q is not a nullable type", name)
			}
			return l.typespace.Primitive(p)
		}
		switch name {
		case "string":
			hasBound, bound := l.resolveSize(rep, inProgress, tc.MaybeSize)
			return l.typespace.String(hasBound, bound, nullability)
		case "handle":
			return l.typespace.Handle(HandleSubtypeHandle, 0, nullability)
		case "vector":
			// bare `vector` with no element type is a grammar error in
			// this dialect; callers always supply ElementType for vector.
		case "request":
			// legacy `request<Protocol>` form: ElementType slot reused to
			// carry the protocol reference during parsing is not
			// supported by this grammar; protocols use client_end/
			// server_end exclusively.
		}
	}

	if tc.HandleSubtype != nil {
		subtype := HandleSubtype(tc.HandleSubtype.Name)
		rights := l.resolveRights(rep, inProgress, tc.HandleRights)
		return l.typespace.Handle(subtype, rights, nullability)
	}

	if (name == "client_end" || name == "server_end") && tc.ElementType != nil {
		protocol := l.resolveProtocolRef(rep, inProgress, tc.ElementType.Identifier)
		if protocol == nil {
			return nil
		}
		if name == "client_end" {
			return l.typespace.ClientEnd(protocol, nullability)
		}
		return l.typespace.ServerEnd(protocol, nullability)
	}

	if tc.ElementType != nil {
		elem := l.resolveType(rep, inProgress, tc.ElementType)
		switch name {
		case "array":
			_, size := l.resolveSize(rep, inProgress, tc.MaybeSize)
			if size == 0 {
				rep.Errorf(reporter.KindType, tc.Span, "array must have an explicit size")
			}
			return l.typespace.Array(elem, size)
		case "vector":
			hasBound, bound := l.resolveSize(rep, inProgress, tc.MaybeSize)
			return l.typespace.Vector(elem, hasBound, bound, nullability)
		default:
			rep.Errorf(reporter.KindType, tc.Span, "unknown parameterized type %q", name)
			return elem
		}
	}

	switch name {
	case "client_end", "server_end":
		rep.Errorf(reporter.KindType, tc.Span, "%s requires a protocol argument", name)
		return nil
	}

	d, member, ok := l.Resolve(rep, tc.Identifier)
	if !ok {
		return nil
	}
	if member != "" {
		rep.Errorf(reporter.KindType, tc.Span, "%q names a member, not a type", tc.Identifier.String())
		return nil
	}
	l.ensureCompiled(rep, inProgress, d)

	if d.Kind == DeclTypeAlias {
		if d.TypeAlias == nil {
			return nil
		}
		t := d.TypeAlias.Target
		if nullability == Nullable && t != nil {
			return l.reNullable(t, Nullable)
		}
		return t
	}
	if d.Kind == DeclProtocol {
		rep.Errorf(reporter.KindType, tc.Span, "protocol %q must be wrapped in client_end or server_end", tc.Identifier.String())
		return nil
	}
	return l.typespace.Identifier(d, nullability)
}

// resolveProtocolRef resolves ci (the argument of a client_end<Protocol>
// or server_end<Protocol> type constructor) to a compiled protocol
// declaration, rejecting anything else.
func (l *Library) resolveProtocolRef(rep *reporter.Reporter, inProgress map[*Decl]bool, ci raw.CompoundIdentifier) *Decl {
	d, member, ok := l.Resolve(rep, ci)
	if !ok {
		return nil
	}
	if member != "" {
		rep.Errorf(reporter.KindType, ci.Span, "%q names a member, not a protocol", ci.String())
		return nil
	}
	l.ensureCompiled(rep, inProgress, d)
	if d.Kind != DeclProtocol {
		rep.Errorf(reporter.KindType, ci.Span, "%q is not a protocol", ci.String())
		return nil
	}
	return d
}

// reNullable re-interns t's structural key with a different nullability,
// used when a type-alias target is referenced with a trailing `?` at the
// use site (spec §3: "each slot may be supplied at the use site or be
// pre-bound by an alias").
func (l *Library) reNullable(t *Type, n Nullability) *Type {
	switch t.Kind {
	case KindIdentifier:
		return l.typespace.Identifier(t.Decl, n)
	case KindString:
		return l.typespace.String(t.HasBound, t.Bound, n)
	case KindVector:
		return l.typespace.Vector(t.ElementType, t.HasBound, t.Bound, n)
	case KindHandle:
		return l.typespace.Handle(t.HandleSubtype, t.HandleRights, n)
	}
	return t
}

func (l *Library) resolveSize(rep *reporter.Reporter, inProgress map[*Decl]bool, c raw.Constant) (hasBound bool, bound uint32) {
	if c == nil {
		return false, 0
	}
	v, ok := l.evalConstant(rep, inProgress, c, l.typespace.Primitive(Uint32))
	if !ok {
		return true, 0
	}
	n, _ := v.(uint64)
	return true, uint32(n)
}

func (l *Library) resolveRights(rep *reporter.Reporter, inProgress map[*Decl]bool, c raw.Constant) uint32 {
	if c == nil {
		return 0
	}
	v, ok := l.evalConstant(rep, inProgress, c, l.typespace.Primitive(Uint32))
	if !ok {
		return 0
	}
	n, _ := v.(uint64)
	return uint32(n)
}

// ensureCompiled drives the dependency-driven compile order of spec §4.9
// phase 3: if d hasn't been compiled yet, compile it now. Reaching d again
// while it is still in progress means a cycle. For a struct, table or
// union the cycle is left to BuildDeclGraph, which accepts it when a
// nullable hop breaks it and reports it otherwise; for any other kind
// (type aliases and consts never break recursion) it is reported here.
func (l *Library) ensureCompiled(rep *reporter.Reporter, inProgress map[*Decl]bool, d *Decl) {
	if d.state == stateCompiled {
		return
	}
	if inProgress[d] {
		if d.Kind != DeclStruct && d.Kind != DeclTable && d.Kind != DeclUnion {
			rep.Errorf(reporter.KindName, d.Span, "declaration %q depends on itself", d.Name.DeclarationName())
		}
		return
	}
	inProgress[d] = true
	l.compileDecl(rep, inProgress, d)
	delete(inProgress, d)
}
