// Package typeshape computes the wire-format metrics described in spec
// §4.8: TypeShape (whole-type metrics) and FieldShape (per-member offset
// and padding), for both the legacy static-union wire format and the
// envelope/xunion wire format. Grounded on test_library.h's typeshape
// lookups and the typeshape_tests.cc/.cpp corpus (original_source/
// zircon/system/utest/fidl-compiler). The package is a set of pure
// functions over already-computed shapes; memoizing them per
// (declaration, wire format) is left to the caller (package flat).
package typeshape

import "math"

// WireFormat distinguishes the two wire encodings the engine supports
// simultaneously (spec §4.8).
type WireFormat int

const (
	// WireFormatOld is the legacy static-union encoding.
	WireFormatOld WireFormat = iota
	// WireFormatV2 is the envelope/xunion encoding.
	WireFormatV2
)

// Unbounded is the saturation value used for a pending cycle through a
// strongly-connected component of nullable-only edges (spec §4.8: "the
// engine must ... saturate unresolvable quantities to u32::MAX").
const Unbounded = math.MaxUint32

// TypeShape is the per-declaration wire-format metric tuple (spec §3).
type TypeShape struct {
	InlineSize          uint32
	Alignment           uint32
	MaxOutOfLine        uint32
	MaxHandles          uint32
	Depth               uint32
	HasPadding          bool
	HasFlexibleEnvelope bool
	IsResource          bool
}

// FieldShape is the per-member placement within its owning struct/union
// (spec §3).
type FieldShape struct {
	Offset  uint32
	Padding uint32
}

// AlignTo rounds n up to the next multiple of align (align must be a
// power of two, or 1).
func AlignTo(n, align uint32) uint32 {
	if align == 0 {
		return n
	}
	return (n + align - 1) / align * align
}

// addSaturating adds a and b, clamping to Unbounded instead of wrapping,
// since a pending-cycle member may already carry the sentinel.
func addSaturating(a, b uint32) uint32 {
	if a == Unbounded || b == Unbounded {
		return Unbounded
	}
	sum := uint64(a) + uint64(b)
	if sum > Unbounded {
		return Unbounded
	}
	return uint32(sum)
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// Primitive returns the fixed TypeShape for a scalar of the given inline
// size (1, 2, 4, or 8 bytes); scalars are identical across both wire
// formats (spec §4.8's table has no per-wire-format variance for them).
func Primitive(size uint32) TypeShape {
	return TypeShape{InlineSize: size, Alignment: size}
}

// Handle returns the fixed TypeShape shared by handle/client-end/
// server-end references.
func Handle() TypeShape {
	return TypeShape{InlineSize: 4, Alignment: 4, MaxHandles: 1, IsResource: true}
}

// Array computes the TypeShape for array<T, n> from the element's shape.
func Array(elem TypeShape, n uint32) TypeShape {
	inline := AlignTo(elem.InlineSize, elem.Alignment) * n
	return TypeShape{
		InlineSize:          inline,
		Alignment:           maxU32(elem.Alignment, 1),
		MaxOutOfLine:        mulSaturating(elem.MaxOutOfLine, n),
		MaxHandles:          mulSaturating(elem.MaxHandles, n),
		Depth:               elem.Depth,
		HasPadding:          elem.HasPadding,
		HasFlexibleEnvelope: elem.HasFlexibleEnvelope,
		IsResource:          elem.IsResource,
	}
}

func mulSaturating(a, n uint32) uint32 {
	if a == Unbounded || n == 0 && a == 0 {
		if a == Unbounded {
			return Unbounded
		}
	}
	product := uint64(a) * uint64(n)
	if product > Unbounded {
		return Unbounded
	}
	return uint32(product)
}

// Vector computes the TypeShape for vector<T>:bound (or unbounded when
// hasBound is false, which the engine treats as bound = Unbounded per
// spec §4.7's "unbounded optional breaks the dependency" note, since an
// unbounded vector's out-of-line size cannot be a fixed number anyway).
func Vector(elem TypeShape, hasBound bool, bound uint32) TypeShape {
	n := bound
	if !hasBound {
		n = Unbounded
	}
	elemsOutOfLine := AlignTo(mulSaturating(elem.InlineSize, n), 8)
	outOfLine := addSaturating(elemsOutOfLine, mulSaturating(elem.MaxOutOfLine, n))
	return TypeShape{
		InlineSize:          16,
		Alignment:           8,
		MaxOutOfLine:        outOfLine,
		MaxHandles:          mulSaturating(elem.MaxHandles, n),
		Depth:               addSaturating(elem.Depth, 1),
		HasPadding:          outOfLine%8 != 0,
		HasFlexibleEnvelope: elem.HasFlexibleEnvelope,
		IsResource:          elem.IsResource,
	}
}

// String computes the TypeShape for string:bound (or unbounded).
func String(hasBound bool, bound uint32) TypeShape {
	n := bound
	if !hasBound {
		n = Unbounded
	}
	outOfLine := AlignTo(n, 8)
	return TypeShape{
		InlineSize:   16,
		Alignment:    8,
		MaxOutOfLine: outOfLine,
		Depth:        1,
		HasPadding:   outOfLine%8 != 0,
	}
}

// MemberContribution is one struct member's shape, used by Struct to fold
// offsets and padding while it aggregates the whole-struct TypeShape.
type MemberContribution struct {
	Shape TypeShape
}

// Struct aggregates member shapes into a struct's TypeShape and also
// returns each member's FieldShape (offset + trailing padding), matching
// spec §4.8's struct row and the FieldShape derivation note directly
// beneath the table.
func Struct(members []MemberContribution) (TypeShape, []FieldShape) {
	var (
		cursor     uint32
		alignment  uint32 = 1
		maxOOL     uint32
		maxHandles uint32
		maxDepth   uint32
		hasPadding bool
		hasFlex    bool
		isResource bool
	)
	fields := make([]FieldShape, len(members))
	for i, m := range members {
		a := m.Shape.Alignment
		if a == 0 {
			a = 1
		}
		aligned := AlignTo(cursor, a)
		if aligned != cursor {
			if i > 0 {
				fields[i-1].Padding += aligned - cursor
			}
			hasPadding = true
		}
		fields[i].Offset = aligned
		cursor = aligned + m.Shape.InlineSize
		if a > alignment {
			alignment = a
		}
		maxOOL = addSaturating(maxOOL, m.Shape.MaxOutOfLine)
		maxHandles = addSaturating(maxHandles, m.Shape.MaxHandles)
		if m.Shape.Depth > maxDepth {
			maxDepth = m.Shape.Depth
		}
		hasPadding = hasPadding || m.Shape.HasPadding
		hasFlex = hasFlex || m.Shape.HasFlexibleEnvelope
		isResource = isResource || m.Shape.IsResource
	}
	total := AlignTo(cursor, alignment)
	if len(fields) > 0 {
		fields[len(fields)-1].Padding += total - cursor
	}
	if total != cursor {
		hasPadding = true
	}
	return TypeShape{
		InlineSize:          total,
		Alignment:           alignment,
		MaxOutOfLine:        maxOOL,
		MaxHandles:          maxHandles,
		Depth:               maxDepth,
		HasPadding:          hasPadding,
		HasFlexibleEnvelope: hasFlex,
		IsResource:          isResource,
	}, fields
}

// Table computes the TypeShape for a table given the shapes of its
// present (non-reserved) members and the table's max ordinal, per spec
// §4.8's table row: `16 x (max-ordinal) + sum(align8(inline)+ool)`. A
// table's envelope always sets HasFlexibleEnvelope (tables are always
// open/flexible, spec §9 glossary "Strict/flexible").
func Table(members []TypeShape, maxOrdinal uint32) TypeShape {
	var (
		sum        uint32
		maxHandles uint32
		maxDepth   uint32
		isResource bool
	)
	for _, m := range members {
		sum = addSaturating(sum, addSaturating(AlignTo(m.InlineSize, 8), m.MaxOutOfLine))
		maxHandles = addSaturating(maxHandles, m.MaxHandles)
		if m.Depth > maxDepth {
			maxDepth = m.Depth
		}
		isResource = isResource || m.IsResource
	}
	envelopes := mulSaturating(16, maxOrdinal)
	// A table with no present (non-reserved) members has nothing to
	// reach through: no envelopes are counted out-of-line, depth stays 1
	// (just the table's own out-of-line vector) and there is no trailing
	// gap to call padding. With at
	// least one present member, depth gains two levels (the envelope
	// vector, then the field inside its envelope) over that member's own
	// depth, matching the corpus (typeshape_tests.cc: simple_tables,
	// tables_with_reserved_fields).
	depth := uint32(1)
	hasPadding := false
	if len(members) > 0 {
		depth = addSaturating(maxDepth, 2)
		hasPadding = true
	} else {
		envelopes = 0
	}
	return TypeShape{
		InlineSize:          16,
		Alignment:           8,
		MaxOutOfLine:        addSaturating(envelopes, sum),
		MaxHandles:          maxHandles,
		Depth:               depth,
		HasPadding:          hasPadding,
		HasFlexibleEnvelope: true,
		IsResource:          isResource,
	}
}

// Union computes the TypeShape for a union/xunion given its (non-
// reserved) variant shapes, whether the union itself is `flexible`, and
// the wire format, which genuinely changes the encoding (spec §4.8,
// §9's wire-format-resolution note): the legacy format embeds the
// largest variant directly after an 8-byte tag, with no out-of-line
// wrapping of its own; the envelope format always reserves a fixed
// 24-byte inline header and pushes each variant's payload out-of-line
// through its envelope. Grounded on typeshape_tests.cc's UnionOfThings/
// UnionWithOutOfLine cases (original_source/zircon/.../typeshape_tests.cc).
func Union(members []TypeShape, flexible bool, wf WireFormat) TypeShape {
	var (
		maxVariantInline uint32
		maxOOL           uint32
		maxHandles       uint32
		maxDepth         uint32
		hasFlex          bool
		isResource       bool
	)
	for _, m := range members {
		aligned := AlignTo(m.InlineSize, 8)
		if aligned > maxVariantInline {
			maxVariantInline = aligned
		}
		var candidate uint32
		if wf == WireFormatOld {
			candidate = m.MaxOutOfLine
		} else {
			candidate = addSaturating(aligned, m.MaxOutOfLine)
		}
		if candidate > maxOOL {
			maxOOL = candidate
		}
		if m.MaxHandles > maxHandles {
			maxHandles = m.MaxHandles
		}
		if m.Depth > maxDepth {
			maxDepth = m.Depth
		}
		hasFlex = hasFlex || m.HasFlexibleEnvelope
		isResource = isResource || m.IsResource
	}
	if wf == WireFormatOld {
		// The legacy static-union encoding predates the envelope/unknown-
		// variant machinery entirely, so it never carries a flexible
		// envelope regardless of the declaration's own strictness.
		return TypeShape{
			InlineSize:   addSaturating(8, maxVariantInline),
			Alignment:    8,
			MaxOutOfLine: maxOOL,
			MaxHandles:   maxHandles,
			Depth:        maxDepth,
			HasPadding:   true,
			IsResource:   isResource,
		}
	}
	return TypeShape{
		InlineSize:          24,
		Alignment:           8,
		MaxOutOfLine:        maxOOL,
		MaxHandles:          maxHandles,
		Depth:               addSaturating(maxDepth, 1),
		HasPadding:          true,
		HasFlexibleEnvelope: flexible || hasFlex,
		IsResource:          isResource,
	}
}

// NullableKind distinguishes how a nullable reference to a declaration is
// encoded, since the answer depends on both the referenced declaration's
// kind and, for unions, the wire format.
type NullableKind int

const (
	// NullableBoxed is a struct reference, or a union reference under the
	// legacy wire format: an 8-byte out-of-line pointer.
	NullableBoxed NullableKind = iota
	// NullableUnion is a union reference under the envelope wire format:
	// absence is represented in-place by an empty envelope, so a nullable
	// union costs nothing beyond the union's own shape (spec §9).
	NullableUnion
	// NullableEnvelope covers any other nullable reference (e.g. a table),
	// held in a 24-byte inline envelope whose payload is out-of-line.
	NullableEnvelope
)

// Nullable computes the TypeShape for a nullable reference to target,
// given which NullableKind applies and the active wire format. Grounded
// on typeshape_tests.cc's OptionalUnion case, which shows a nullable
// union costs a boxed pointer under the legacy format but is a pure
// pass-through under the envelope format.
func Nullable(target TypeShape, kind NullableKind, wf WireFormat) TypeShape {
	if kind == NullableUnion && wf == WireFormatV2 {
		return target
	}
	inline := uint32(24)
	if kind == NullableBoxed || kind == NullableUnion {
		inline = 8
	}
	return TypeShape{
		InlineSize:          inline,
		Alignment:           8,
		MaxOutOfLine:        addSaturating(AlignTo(target.InlineSize, 8), target.MaxOutOfLine),
		MaxHandles:          target.MaxHandles,
		Depth:               addSaturating(target.Depth, 1),
		HasPadding:          true,
		HasFlexibleEnvelope: target.HasFlexibleEnvelope,
		IsResource:          target.IsResource,
	}
}

// PendingCycle returns the saturated placeholder TypeShape assigned to a
// node still being computed when a memoized lookup finds it `pending`
// rather than `done` (spec §4.8's cycle-handling paragraph). Callers
// must only accept this for edges that BreaksRecursion (nullable/
// request/client-end/server-end/unbounded-vector), since those are the
// only edges a strongly-connected component may legally contain (spec
// §4.7).
func PendingCycle() TypeShape {
	return TypeShape{
		InlineSize: Unbounded, Alignment: 8, MaxOutOfLine: Unbounded,
		MaxHandles: Unbounded, Depth: Unbounded, HasPadding: true,
	}
}
