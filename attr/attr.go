// Package attr implements the attribute schema engine: placement
// validation, unknown-attribute suggestions, and the constraint callbacks
// for the handful of attributes the compiler itself interprets (spec
// §4.5). Grounded on test_library.h's AddAttributeSchema/AttributeSchema
// shape and attributes_tests.cc's placement matrix, with suggestion
// matching borrowed from the agnivade/levenshtein library the way
// fidlgen's "did you mean" diagnostics use edit distance.
package attr

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/reporter"
	"go.fuchsia.dev/fidlcore/source"
)

// Placement identifies where in the grammar an attribute list may occur.
type Placement int

const (
	PlacementLibrary Placement = iota
	PlacementBits
	PlacementBitsMember
	PlacementEnum
	PlacementEnumMember
	PlacementStruct
	PlacementStructMember
	PlacementTable
	PlacementTableMember
	PlacementUnion
	PlacementUnionMember
	PlacementProtocol
	PlacementMethod
	PlacementParameter
	PlacementService
	PlacementServiceMember
	PlacementTypeAlias
	PlacementResourceDefinition
)

// Target is what a constraint callback needs to validate a single
// attribute occurrence: the resolved placement, the attribute's argument
// (if any), and a typeshape lookup hook supplied by the compile phase that
// runs after layout is known (MaxBytes/MaxHandles run post-typeshape).
type Target struct {
	Placement Placement
	Span      source.Span
	HasValue  bool
	Value     string

	// InlineSize/OutOfLine/Handles are populated only when the owning
	// declaration's typeshape has already been computed (struct, table
	// and union placements); zero otherwise, including for methods.
	InlineSize int
	OutOfLine  int
	Handles    int
}

// Constraint validates one attribute occurrence against its Target,
// reporting through rep and returning false if the constraint failed.
type Constraint func(rep *reporter.Reporter, t Target) bool

// Schema is a built-in attribute's rules.
type Schema struct {
	Name        string
	Placements  []Placement
	Constraint  Constraint
}

func (s Schema) allowsPlacement(p Placement) bool {
	for _, allowed := range s.Placements {
		if allowed == p {
			return true
		}
	}
	return false
}

// Table is the schema registry consulted while validating one library's
// attributes. The zero value has no schemas registered; use NewTable for
// the built-ins the core itself interprets.
type Table struct {
	schemas map[string]Schema
}

func NewTable() *Table {
	t := &Table{schemas: map[string]Schema{}}
	for _, s := range builtinSchemas {
		t.schemas[s.Name] = s
	}
	return t
}

// Register adds or overrides a schema, letting a host binary extend the
// built-in set (spec §4.5 describes only the core's own distinguished
// attributes; other tooling may register more).
func (t *Table) Register(s Schema) {
	t.schemas[s.Name] = s
}

var allPlacements = []Placement{
	PlacementLibrary, PlacementBits, PlacementBitsMember, PlacementEnum,
	PlacementEnumMember, PlacementStruct, PlacementStructMember,
	PlacementTable, PlacementTableMember, PlacementUnion, PlacementUnionMember,
	PlacementProtocol, PlacementMethod, PlacementParameter, PlacementService,
	PlacementServiceMember, PlacementTypeAlias, PlacementResourceDefinition,
}

var builtinSchemas = []Schema{
	{
		Name:       "Doc",
		Placements: allPlacements,
	},
	{
		Name:       "Selector",
		Placements: []Placement{PlacementMethod},
		Constraint: func(rep *reporter.Reporter, t Target) bool {
			if !t.HasValue || strings.TrimSpace(t.Value) == "" {
				rep.Errorf(reporter.KindAttribute, t.Span, "Selector attribute requires a non-empty value")
				return false
			}
			return true
		},
	},
	{
		Name:       "Transport",
		Placements: []Placement{PlacementProtocol},
		Constraint: func(rep *reporter.Reporter, t Target) bool {
			if !t.HasValue {
				return true
			}
			ok := true
			for _, tok := range strings.Split(t.Value, ",") {
				tok = strings.TrimSpace(tok)
				switch tok {
				case "Channel", "Syscall", "OvernetInternal", "OvernetStream":
				default:
					rep.Errorf(reporter.KindAttribute, t.Span, "unknown transport %q", tok)
					ok = false
				}
			}
			return ok
		},
	},
	{
		Name:       "ForDeprecatedCBindings",
		Placements: []Placement{PlacementProtocol},
	},
	{
		Name:       "Layout",
		Placements: []Placement{PlacementProtocol},
		Constraint: func(rep *reporter.Reporter, t Target) bool {
			if t.HasValue && t.Value != "Simple" {
				rep.Errorf(reporter.KindAttribute, t.Span, "unknown Layout value %q, only \"Simple\" is supported", t.Value)
				return false
			}
			return true
		},
	},
	{
		Name:       "MaxBytes",
		Placements: []Placement{PlacementStruct, PlacementTable, PlacementUnion, PlacementMethod},
		Constraint: func(rep *reporter.Reporter, t Target) bool {
			limit, err := strconv.Atoi(t.Value)
			if err != nil {
				rep.Errorf(reporter.KindAttribute, t.Span, "MaxBytes value %q is not a valid integer", t.Value)
				return false
			}
			total := t.InlineSize + t.OutOfLine
			if total > limit {
				rep.Errorf(reporter.KindAttribute, t.Span, "too large: only %d bytes allowed, but %d bytes found", limit, total)
				return false
			}
			return true
		},
	},
	{
		Name:       "MaxHandles",
		Placements: []Placement{PlacementStruct, PlacementTable, PlacementUnion, PlacementMethod},
		Constraint: func(rep *reporter.Reporter, t Target) bool {
			limit, err := strconv.Atoi(t.Value)
			if err != nil {
				rep.Errorf(reporter.KindAttribute, t.Span, "MaxHandles value %q is not a valid integer", t.Value)
				return false
			}
			if t.Handles > limit {
				rep.Errorf(reporter.KindAttribute, t.Span, "too many handles: only %d allowed, but %d found", limit, t.Handles)
				return false
			}
			return true
		},
	},
	{
		// Unknown marks a single member of a flexible enum/bits/union as
		// the decoding fallback. The placement list here only admits
		// bits, enum and union members; whether the owning declaration
		// is flexible is checked member-by-member by the compile phase
		// itself, which knows the declaration's strictness.
		Name: "Unknown",
		Placements: []Placement{
			PlacementBitsMember, PlacementEnumMember, PlacementUnionMember,
		},
	},
}

// Validate checks every attribute in list against the schema table for a
// given placement, reporting unknown-name suggestions, placement errors,
// and duplicates, and runs the constraint of each correctly placed
// attribute. It does not run the constraints that require a typeshape,
// MaxBytes and MaxHandles (callers invoke those separately via
// ValidateConstraint once layout is known, per spec §4.9's phase
// ordering).
func (t *Table) Validate(rep *reporter.Reporter, list *raw.AttributeList, placement Placement) {
	if list == nil {
		return
	}
	seen := map[string]bool{}
	for _, a := range list.Attributes {
		if seen[a.Name] {
			rep.Errorf(reporter.KindAttribute, a.Span, "duplicate attribute with name '%s'", a.Name)
			continue
		}
		seen[a.Name] = true

		schema, ok := t.schemas[a.Name]
		if !ok {
			if suggestion := t.suggest(a.Name); suggestion != "" {
				rep.Warnf(reporter.KindAttribute, a.Span, "suspect attribute with name '%s'; did you mean '%s'?", a.Name, suggestion)
			} else {
				rep.Warnf(reporter.KindAttribute, a.Span, "unknown attribute with name '%s'", a.Name)
			}
			continue
		}
		if !schema.allowsPlacement(placement) {
			rep.Errorf(reporter.KindAttribute, a.Span, "attribute '%s' is not allowed on this element", a.Name)
			continue
		}
		if schema.Constraint != nil && a.Name != "MaxBytes" && a.Name != "MaxHandles" {
			schema.Constraint(rep, Target{Placement: placement, Span: a.Span, HasValue: a.HasValue, Value: a.Value})
		}
	}
}

// ValidateConstraint runs the named attribute's constraint callback, if
// any, against t. Returns true when there is no constraint or it passed.
func (t *Table) ValidateConstraint(rep *reporter.Reporter, name string, target Target) bool {
	schema, ok := t.schemas[name]
	if !ok || schema.Constraint == nil {
		return true
	}
	return schema.Constraint(rep, target)
}

// suggest finds the closest known schema name within edit distance 2,
// mirroring fidlc's typo-correction heuristic for unknown attributes
// (spec §4.5 step 1).
func (t *Table) suggest(name string) string {
	const maxDistance = 2
	best := ""
	bestDist := maxDistance + 1
	names := make([]string, 0, len(t.schemas))
	for n := range t.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		d := levenshtein.ComputeDistance(name, n)
		if d < bestDist {
			bestDist = d
			best = n
		}
	}
	if bestDist > maxDistance {
		return ""
	}
	return best
}
