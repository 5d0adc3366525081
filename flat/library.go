package flat

import (
	"fmt"

	"go.fuchsia.dev/fidlcore/attr"
	"go.fuchsia.dev/fidlcore/names"
	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/reporter"
	"go.fuchsia.dev/fidlcore/typeshape"
)

// importedLibrary records one `using` line's resolution: the library it
// names, whether it's been referenced since (unused-import detection),
// and its local alias if any (spec §4.3).
type importedLibrary struct {
	library  *Library
	using    raw.Using
	used     bool
}

// Library is one compiled (or mid-compile) FIDL library: its name, its
// declarations by name, its imports, and — once Compile succeeds — a
// topologically-ordered declaration sequence (spec §3's Library).
type Library struct {
	Name  names.LibraryName
	files []*raw.File

	decls   map[string]*Decl
	// declOrder preserves first-seen declaration order across all of the
	// library's files, concatenated in the order AddFile was called; used
	// for the "using after a declaration" style warning and as a
	// deterministic fallback before compilation computes the topological
	// order.
	declOrder []*Decl

	imports map[string]*importedLibrary // keyed by local name (alias or short name)

	typespace *Typespace
	attrs     *attr.Table

	// options carries compile-time feature gates (spec's Configuration
	// error kind), set via SetOptions before Compile runs.
	options CompileOptions

	// TopoOrder is the declaration sequence computed by phase 5 of Compile
	// (spec §4.7, §4.9), each declaration after those its layout depends
	// on. Declarations with no dependency path between them are not sorted
	// by name; see BuildDeclGraph.
	TopoOrder []*Decl

	compiled bool

	// rawNodes holds each Decl's original raw.File and node before Compile
	// resolves it, keyed by pointer. Kept
	// out of Decl itself so the compiled, immutable Decl (spec §5:
	// "immutable after the compile phase completes") carries no
	// pre-compile scaffolding.
	rawNodes map[*Decl]rawNode

	// shapeVisiting tracks in-flight typeshape computations per (decl,
	// wire format) pair, so a nullable-hop cycle resolves to the
	// saturated PendingCycle sentinel instead of recursing forever.
	shapeVisiting map[*Decl]map[typeshape.WireFormat]bool
}

type rawNode struct {
	file *raw.File
	node interface{}
}

// Libraries is the process-wide registry of already-compiled libraries a
// new library's `using` lines may reference (spec §4.3's "process-wide
// map keyed by dotted library name").
type Libraries struct {
	byName map[string]*Library
}

func NewLibraries() *Libraries {
	return &Libraries{byName: map[string]*Library{}}
}

// Lookup finds an already-registered library by its fully-qualified dotted
// name.
func (ls *Libraries) Lookup(name string) (*Library, bool) {
	l, ok := ls.byName[name]
	return l, ok
}

// Insert registers lib. Fails if the name is already taken (spec §4.3).
func (ls *Libraries) Insert(lib *Library) error {
	fqn := lib.Name.FullyQualifiedName()
	if _, exists := ls.byName[fqn]; exists {
		return fmt.Errorf("library %q is already registered", fqn)
	}
	ls.byName[fqn] = lib
	return nil
}

// NewLibrary constructs an empty Library ready to consume source files.
// ts and attrs may be shared across libraries compiled in the same run
// (the Typespace is "process-wide but per-compile", spec §9); pass
// attr.NewTable() for the built-in schema set.
func NewLibrary(ts *Typespace, attrs *attr.Table) *Library {
	return &Library{
		decls:   map[string]*Decl{},
		imports: map[string]*importedLibrary{},
		typespace: ts,
		attrs:     attrs,
		rawNodes:  map[*Decl]rawNode{},
	}
}

// AddFile consumes one parsed source file into the library: phase 1 of
// spec §4.9 ("parse, attach each declaration to the library's name
// scope"). The library's Name is taken from the first file's library
// declaration; subsequent files must agree.
func (l *Library) AddFile(rep *reporter.Reporter, f *raw.File) {
	libName, err := names.ReadLibraryName(f.Library.Name.String())
	if err != nil {
		rep.Errorf(reporter.KindName, f.Library.Span, "invalid library name: %s", err)
		return
	}
	if l.Name.IsZero() {
		l.Name = libName
	} else if l.Name.FullyQualifiedName() != libName.FullyQualifiedName() {
		rep.Errorf(reporter.KindName, f.Library.Span, "file declares library %q but library is %q", libName, l.Name)
		return
	}
	l.attrs.Validate(rep, f.Library.Attributes, attr.PlacementLibrary)
	l.files = append(l.files, f)

	start := len(l.declOrder)
	for _, dr := range f.DeclOrder {
		l.consumeDecl(rep, f, dr)
	}

	// raw.File keeps usings apart from declarations, so a using that
	// follows a declaration is found by comparing offsets against the
	// file's first declared name.
	firstDecl := -1
	if len(l.declOrder) > start {
		firstDecl = l.declOrder[start].Span.Start
	}
	for _, u := range f.Using {
		if firstDecl >= 0 && u.Span.Start > firstDecl {
			rep.Warnf(reporter.KindName, u.Span, "using declaration appears after a prior declaration in the file")
		}
		l.addUsing(rep, u)
	}
}

func (l *Library) addUsing(rep *reporter.Reporter, u raw.Using) {
	local := u.Library.Components[len(u.Library.Components)-1].Name
	if u.Alias != nil {
		local = u.Alias.Name
	}
	if _, dup := l.imports[local]; dup {
		rep.Errorf(reporter.KindName, u.Span, "duplicate using declaration for %q", local)
		return
	}
	l.imports[local] = &importedLibrary{using: u}
}

// ResolveImports binds every `using` to its already-registered Library
// (phase 2, spec §4.9). Must run after every dependency library has been
// inserted into ls.
func (l *Library) ResolveImports(rep *reporter.Reporter, ls *Libraries) {
	for local, imp := range l.imports {
		dep, ok := ls.Lookup(imp.using.Library.String())
		if !ok {
			rep.Errorf(reporter.KindName, imp.using.Span, "could not find library named %q", imp.using.Library.String())
			continue
		}
		imp.library = dep
		_ = local
	}
}

// CheckUnusedImports reports an error for every `using` never referenced
// by a name resolution (spec §4.3: "each using must be used").
func (l *Library) CheckUnusedImports(rep *reporter.Reporter) {
	for local, imp := range l.imports {
		if !imp.used {
			rep.Errorf(reporter.KindName, imp.using.Span, "library %q imported but never used", local)
		}
	}
}

func (l *Library) declare(rep *reporter.Reporter, d *Decl) {
	if existing, dup := l.decls[d.Name.DeclarationName()]; dup {
		rep.Errorf(reporter.KindName, d.Span, "name %q is already declared at %s", d.Name.DeclarationName(), existing.Span)
		return
	}
	l.decls[d.Name.DeclarationName()] = d
	l.declOrder = append(l.declOrder, d)
}

// LookupLocal finds a declaration already attached to this library by its
// bare (undotted) name.
func (l *Library) LookupLocal(name string) (*Decl, bool) {
	d, ok := l.decls[name]
	return d, ok
}

// Resolve implements the three-rule reference resolution of spec §4.3:
// a single identifier is local; a dotted reference tries "own short
// name", then "imported library", then "local decl's member".
func (l *Library) Resolve(rep *reporter.Reporter, ci raw.CompoundIdentifier) (*Decl, string, bool) {
	comps := ci.Components
	if len(comps) == 1 {
		d, ok := l.LookupLocal(comps[0].Name)
		if !ok {
			rep.Errorf(reporter.KindName, ci.Span, "unknown identifier %q", comps[0].Name)
			return nil, "", false
		}
		return d, "", true
	}

	x := comps[0].Name
	rest := comps[1:]

	var matches []struct {
		decl   *Decl
		member string
	}

	// (a) X is the local library's own short name.
	if len(l.Name.Parts()) > 0 && x == l.Name.Parts()[len(l.Name.Parts())-1] && len(rest) == 1 {
		if d, ok := l.LookupLocal(rest[0].Name); ok {
			matches = append(matches, struct {
				decl   *Decl
				member string
			}{d, ""})
		}
	}

	// (b) X is an imported library name or alias.
	if imp, ok := l.imports[x]; ok && imp.library != nil && len(rest) == 1 {
		if d, ok := imp.library.LookupLocal(rest[0].Name); ok {
			imp.used = true
			matches = append(matches, struct {
				decl   *Decl
				member string
			}{d, ""})
		}
	}

	// (c) X names a local declaration with members (enum/bits), Y is the
	// member.
	if len(rest) == 1 {
		if d, ok := l.LookupLocal(x); ok && (d.Kind == DeclEnum || d.Kind == DeclBits) {
			matches = append(matches, struct {
				decl   *Decl
				member string
			}{d, rest[0].Name})
		}
	}

	switch len(matches) {
	case 0:
		rep.Errorf(reporter.KindName, ci.Span, "unknown reference %q", ci.String())
		return nil, "", false
	case 1:
		return matches[0].decl, matches[0].member, true
	default:
		rep.Errorf(reporter.KindName, ci.Span, "ambiguous reference %q", ci.String())
		return nil, "", false
	}
}
