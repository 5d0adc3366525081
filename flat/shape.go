package flat

import (
	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/typeshape"
)

// computeShape memoizes decl d's TypeShape for wire format wf (spec §4.8,
// §4.9 phase 6). A decl currently being computed (reached through a
// nullable hop, or through a cycle BuildDeclGraph has already reported,
// since phase 6 still runs after that error) returns the saturated
// PendingCycle sentinel instead of recursing
// further, matching the "pending/done" visitation the spec requires for
// O(N) termination.
func (l *Library) computeShape(d *Decl, wf typeshape.WireFormat) typeshape.TypeShape {
	if d.shapes != nil {
		if s, ok := d.shapes[wf]; ok {
			return s
		}
	}
	if l.shapeVisiting == nil {
		l.shapeVisiting = map[*Decl]map[typeshape.WireFormat]bool{}
	}
	if l.shapeVisiting[d][wf] {
		return typeshape.PendingCycle()
	}
	if l.shapeVisiting[d] == nil {
		l.shapeVisiting[d] = map[typeshape.WireFormat]bool{}
	}
	l.shapeVisiting[d][wf] = true
	defer delete(l.shapeVisiting[d], wf)

	s := l.computeDeclShape(d, wf)
	d.setShape(wf, s)
	return s
}

func (l *Library) computeDeclShape(d *Decl, wf typeshape.WireFormat) typeshape.TypeShape {
	switch d.Kind {
	case DeclBits, DeclEnum:
		subtype := Uint32
		if d.Kind == DeclBits && d.Bits != nil {
			subtype = d.Bits.Subtype
		} else if d.Kind == DeclEnum && d.Enum != nil {
			subtype = d.Enum.Subtype
		}
		return typeshape.Primitive(primitiveSize(subtype))
	case DeclStruct:
		return l.computeStructShape(d, wf)
	case DeclTable:
		return l.computeTableShape(d, wf)
	case DeclUnion:
		return l.computeUnionShape(d, wf)
	case DeclTypeAlias:
		if d.TypeAlias != nil {
			return l.typeShape(d.TypeAlias.Target, wf)
		}
	}
	return typeshape.TypeShape{}
}

func primitiveSize(p PrimitiveSubtype) uint32 {
	switch p {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	default:
		return 8
	}
}

// typeShape computes the TypeShape contribution of a single Type
// reference, recursing into element/identifier types as needed (spec
// §4.8's per-type table).
func (l *Library) typeShape(t *Type, wf typeshape.WireFormat) typeshape.TypeShape {
	if t == nil {
		return typeshape.TypeShape{}
	}
	switch t.Kind {
	case KindPrimitive:
		return typeshape.Primitive(primitiveSize(t.Primitive))
	case KindHandle, KindClientEnd, KindServerEnd, KindRequest:
		return typeshape.Handle()
	case KindString:
		return typeshape.String(t.HasBound, t.Bound)
	case KindVector:
		elem := l.typeShape(t.ElementType, wf)
		return typeshape.Vector(elem, t.HasBound, t.Bound)
	case KindArray:
		elem := l.typeShape(t.ElementType, wf)
		return typeshape.Array(elem, t.Bound)
	case KindIdentifier:
		if t.Decl == nil {
			return typeshape.TypeShape{}
		}
		target := l.computeShape(t.Decl, wf)
		if t.IsNullable() {
			kind := typeshape.NullableEnvelope
			switch t.Decl.Kind {
			case DeclStruct:
				kind = typeshape.NullableBoxed
			case DeclUnion:
				kind = typeshape.NullableUnion
			}
			return typeshape.Nullable(target, kind, wf)
		}
		if t.Decl.Kind == DeclStruct && t.Decl.Struct != nil && t.Decl.Struct.Resource {
			target.IsResource = true
		}
		return target
	}
	return typeshape.TypeShape{}
}

func (l *Library) computeStructShape(d *Decl, wf typeshape.WireFormat) typeshape.TypeShape {
	members := make([]typeshape.MemberContribution, len(d.Struct.Members))
	for i, m := range d.Struct.Members {
		members[i] = typeshape.MemberContribution{Shape: l.typeShape(m.Type, wf)}
	}
	shape, fields := typeshape.Struct(members)
	for i := range d.Struct.Members {
		d.Struct.Members[i].setShape(wf, fields[i])
	}
	if d.Struct.Resource {
		shape.IsResource = true
	}
	return shape
}

func (l *Library) computeTableShape(d *Decl, wf typeshape.WireFormat) typeshape.TypeShape {
	var present []typeshape.TypeShape
	var maxOrdinal uint32
	for _, m := range d.Table.Members {
		if !m.Reserved {
			if uint32(m.Ordinal) > maxOrdinal {
				maxOrdinal = uint32(m.Ordinal)
			}
			present = append(present, l.typeShape(m.Type, wf))
		}
	}
	shape := typeshape.Table(present, maxOrdinal)
	if d.Table.Resource {
		shape.IsResource = true
	}
	return shape
}

func (l *Library) computeUnionShape(d *Decl, wf typeshape.WireFormat) typeshape.TypeShape {
	var variants []typeshape.TypeShape
	for _, m := range d.Union.Members {
		if !m.Reserved {
			variants = append(variants, l.typeShape(m.Type, wf))
		}
	}
	flexible := d.Union.Strictness == raw.Flexible
	shape := typeshape.Union(variants, flexible, wf)
	if d.Union.Resource {
		shape.IsResource = true
	}
	return shape
}
