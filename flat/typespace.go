package flat

// typespaceKey is the structural key a Typespace interns types under
// (spec §9: "keys are hashed by (base-type, element, size, handle-
// subtype, rights, nullability)"). ElementType is folded into the key by
// its own already-interned pointer, so identity of nested types implies
// identity of the composite key.
type typespaceKey struct {
	kind          TypeKind
	primitive     PrimitiveSubtype
	element       *Type
	hasBound      bool
	bound         uint32
	handleSubtype HandleSubtype
	handleRights  uint32
	nullability   Nullability
	declFQN       string
}

// Typespace interns structural types for one compile: two TypeConstructors
// that resolve to the same key yield the same *Type pointer, so pointer
// equality implies type equality (spec §9).
type Typespace struct {
	entries map[typespaceKey]*Type
}

func NewTypespace() *Typespace {
	return &Typespace{entries: map[typespaceKey]*Type{}}
}

func (ts *Typespace) intern(k typespaceKey, build func() *Type) *Type {
	if t, ok := ts.entries[k]; ok {
		return t
	}
	t := build()
	ts.entries[k] = t
	return t
}

func (ts *Typespace) Primitive(p PrimitiveSubtype) *Type {
	k := typespaceKey{kind: KindPrimitive, primitive: p}
	return ts.intern(k, func() *Type { return &Type{Kind: KindPrimitive, Primitive: p} })
}

func (ts *Typespace) String(hasBound bool, bound uint32, nullability Nullability) *Type {
	k := typespaceKey{kind: KindString, hasBound: hasBound, bound: bound, nullability: nullability}
	return ts.intern(k, func() *Type {
		return &Type{Kind: KindString, HasBound: hasBound, Bound: bound, Nullability: nullability}
	})
}

func (ts *Typespace) Vector(elem *Type, hasBound bool, bound uint32, nullability Nullability) *Type {
	k := typespaceKey{kind: KindVector, element: elem, hasBound: hasBound, bound: bound, nullability: nullability}
	return ts.intern(k, func() *Type {
		return &Type{Kind: KindVector, ElementType: elem, HasBound: hasBound, Bound: bound, Nullability: nullability}
	})
}

func (ts *Typespace) Array(elem *Type, size uint32) *Type {
	k := typespaceKey{kind: KindArray, element: elem, bound: size, hasBound: true}
	return ts.intern(k, func() *Type {
		return &Type{Kind: KindArray, ElementType: elem, HasBound: true, Bound: size}
	})
}

func (ts *Typespace) Handle(subtype HandleSubtype, rights uint32, nullability Nullability) *Type {
	k := typespaceKey{kind: KindHandle, handleSubtype: subtype, handleRights: rights, nullability: nullability}
	return ts.intern(k, func() *Type {
		return &Type{Kind: KindHandle, HandleSubtype: subtype, HandleRights: rights, Nullability: nullability}
	})
}

func (ts *Typespace) Identifier(decl *Decl, nullability Nullability) *Type {
	k := typespaceKey{kind: KindIdentifier, declFQN: decl.Name.FullyQualifiedName(), nullability: nullability}
	return ts.intern(k, func() *Type {
		return &Type{Kind: KindIdentifier, Decl: decl, declName: decl.Name, Nullability: nullability}
	})
}

func (ts *Typespace) ClientEnd(protocol *Decl, nullability Nullability) *Type {
	k := typespaceKey{kind: KindClientEnd, declFQN: protocol.Name.FullyQualifiedName(), nullability: nullability}
	return ts.intern(k, func() *Type {
		return &Type{Kind: KindClientEnd, Decl: protocol, declName: protocol.Name, Nullability: nullability}
	})
}

func (ts *Typespace) ServerEnd(protocol *Decl, nullability Nullability) *Type {
	k := typespaceKey{kind: KindServerEnd, declFQN: protocol.Name.FullyQualifiedName(), nullability: nullability}
	return ts.intern(k, func() *Type {
		return &Type{Kind: KindServerEnd, Decl: protocol, declName: protocol.Name, Nullability: nullability}
	})
}

func (ts *Typespace) Request(protocol *Decl) *Type {
	k := typespaceKey{kind: KindRequest, declFQN: protocol.Name.FullyQualifiedName()}
	return ts.intern(k, func() *Type {
		return &Type{Kind: KindRequest, Decl: protocol, declName: protocol.Name}
	})
}
