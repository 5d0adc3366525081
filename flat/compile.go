package flat

import (
	"go.fuchsia.dev/fidlcore/attr"
	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/reporter"
	"go.fuchsia.dev/fidlcore/typeshape"
)

// Compile runs the seven strict phases of spec §4.9 over a library whose
// files have all been added via AddFile. Phases 1 (consume) already ran
// during AddFile; this method runs phases 2 through 7 and returns whether
// the library compiled without error. A failure in an earlier phase
// short-circuits later ones for the affected declaration but never halts
// sibling declarations (spec §4.9's closing paragraph).
func (l *Library) Compile(rep *reporter.Reporter, ls *Libraries) bool {
	cp := rep.Checkpoint()

	// Phase 2: resolve using declarations.
	l.ResolveImports(rep, ls)

	// Phase 3: dependency-driven compile of every declaration.
	inProgress := map[*Decl]bool{}
	for _, d := range l.declOrder {
		l.ensureCompiled(rep, inProgress, d)
	}
	l.CheckUnusedImports(rep)

	// Phase 4: assign method ordinals, checking clashes.
	for _, d := range l.declOrder {
		if d.Kind == DeclProtocol && d.Protocol != nil {
			l.assignOrdinals(rep, d)
		}
	}

	// Phase 5: declaration graph + SCC + topological order.
	l.BuildDeclGraph(rep)

	// Phase 6: typeshapes for both wire formats, in topological order so
	// every dependency's shape is memoized before its dependents need it.
	for _, d := range l.TopoOrder {
		l.computeShape(d, typeshape.WireFormatOld)
		l.computeShape(d, typeshape.WireFormatV2)
	}

	// Phase 7: attribute constraints that require a computed typeshape.
	l.runShapeConstraints(rep)

	l.compiled = cp.NoNewErrors()
	return l.compiled
}

func (l *Library) compileDecl(rep *reporter.Reporter, inProgress map[*Decl]bool, d *Decl) {
	if d.state != stateNotCompiled {
		return
	}
	d.state = stateCompiling
	rn, ok := l.rawNodes[d]
	if !ok {
		d.state = stateCompiled
		return
	}
	switch d.Kind {
	case DeclConst:
		l.compileConst(rep, inProgress, d, rn.node.(raw.ConstDeclaration))
	case DeclBits:
		l.compileBits(rep, inProgress, d, rn.node.(raw.BitsDeclaration))
	case DeclEnum:
		l.compileEnum(rep, inProgress, d, rn.node.(raw.EnumDeclaration))
	case DeclStruct:
		l.compileStruct(rep, inProgress, d, rn.node.(raw.StructDeclaration))
	case DeclTable:
		l.compileTable(rep, inProgress, d, rn.node.(raw.TableDeclaration))
	case DeclUnion:
		l.compileUnion(rep, inProgress, d, rn.node.(raw.UnionDeclaration))
	case DeclProtocol:
		l.compileProtocol(rep, inProgress, d, rn.node.(raw.ProtocolDeclaration))
	case DeclService:
		l.compileService(rep, inProgress, d, rn.node.(raw.ServiceDeclaration))
	case DeclTypeAlias:
		l.compileTypeAlias(rep, inProgress, d, rn.node.(raw.TypeAliasDeclaration))
	case DeclResource:
		l.compileResource(rep, inProgress, d, rn.node.(raw.ResourceDeclaration))
	}
	d.state = stateCompiled
}

func (l *Library) compileConst(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.ConstDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementLibrary)
	t := l.resolveType(rep, ip, n.Type)
	if t == nil {
		return
	}
	v, ok := l.evalConstant(rep, ip, n.Value, t)
	if !ok {
		return
	}
	d.Const = &ConstDecl{Type: t, Value: v}
}

func (l *Library) compileBits(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.BitsDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementBits)
	subtype := Uint32
	if n.Subtype != nil {
		t := l.resolveType(rep, ip, n.Subtype)
		if t != nil && t.Kind == KindPrimitive {
			subtype = t.Primitive
		}
	}
	if !subtype.IsUnsigned() {
		rep.Errorf(reporter.KindType, n.Span, "bits underlying type must be unsigned, got %s", subtype)
	}
	if n.Strictness == raw.Flexible && !l.options.Experiments.Contains(ExperimentFlexibleBitsAndEnums) {
		rep.Errorf(reporter.KindConfiguration, n.Span, `cannot specify flexible for "bits"; enable the flexible_bits_and_enums experiment`)
	}
	decl := &BitsDecl{Strictness: n.Strictness, Subtype: subtype}
	seenNames := map[string]bool{}
	seenValues := map[uint64]bool{}
	unknownCount := 0
	target := l.typespace.Primitive(subtype)
	for _, m := range n.Members {
		l.attrs.Validate(rep, m.Attributes, attr.PlacementBitsMember)
		if seenNames[m.Name.Name] {
			rep.Errorf(reporter.KindName, m.Span, "duplicate member name %q", m.Name.Name)
			continue
		}
		seenNames[m.Name.Name] = true
		v, ok := l.evalConstant(rep, ip, m.Value, target)
		if !ok {
			continue
		}
		val, _ := v.(uint64)
		if seenValues[val] {
			rep.Errorf(reporter.KindType, m.Span, "duplicate bits value %d", val)
			continue
		}
		seenValues[val] = true
		_, isUnknown := m.Attributes.Get("Unknown")
		if isUnknown {
			unknownCount++
		}
		decl.Members = append(decl.Members, BitsMember{Name: m.Name.Name, Span: m.Span, Value: val, Unknown: isUnknown})
	}
	if unknownCount > 1 {
		rep.Errorf(reporter.KindAttribute, n.Span, "[Unknown] attribute can be only applied to one member")
	}
	if n.Strictness == raw.Strict && unknownCount > 0 {
		rep.Errorf(reporter.KindAttribute, n.Span, "cannot specify [Unknown] for a strict bits")
	}
	d.Bits = decl
}

func (l *Library) compileEnum(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.EnumDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementEnum)
	subtype := Uint32
	if n.Subtype != nil {
		t := l.resolveType(rep, ip, n.Subtype)
		if t != nil && t.Kind == KindPrimitive {
			subtype = t.Primitive
		}
	}
	if n.Strictness == raw.Flexible && !l.options.Experiments.Contains(ExperimentFlexibleBitsAndEnums) {
		rep.Errorf(reporter.KindConfiguration, n.Span, `cannot specify flexible for "enum"; enable the flexible_bits_and_enums experiment`)
	}
	decl := &EnumDecl{Strictness: n.Strictness, Subtype: subtype}
	seenNames := map[string]bool{}
	seenValues := map[int64]bool{}
	unknownCount := 0
	target := l.typespace.Primitive(subtype)
	for _, m := range n.Members {
		l.attrs.Validate(rep, m.Attributes, attr.PlacementEnumMember)
		if seenNames[m.Name.Name] {
			rep.Errorf(reporter.KindName, m.Span, "duplicate member name %q", m.Name.Name)
			continue
		}
		seenNames[m.Name.Name] = true
		v, ok := l.evalConstant(rep, ip, m.Value, target)
		if !ok {
			continue
		}
		var val int64
		switch n := v.(type) {
		case uint64:
			val = int64(n)
		case int64:
			val = n
		}
		if seenValues[val] {
			rep.Errorf(reporter.KindType, m.Span, "duplicate enum value %d", val)
			continue
		}
		seenValues[val] = true
		_, isUnknown := m.Attributes.Get("Unknown")
		if isUnknown {
			unknownCount++
		}
		decl.Members = append(decl.Members, EnumMember{Name: m.Name.Name, Span: m.Span, Value: val, Unknown: isUnknown})
	}
	if unknownCount > 1 {
		rep.Errorf(reporter.KindAttribute, n.Span, "[Unknown] attribute can be only applied to one member")
	}
	if n.Strictness == raw.Strict && unknownCount > 0 {
		rep.Errorf(reporter.KindAttribute, n.Span, "cannot specify [Unknown] for a strict enum")
	}
	if n.Strictness == raw.Flexible && unknownCount == 0 {
		if lo, hi, ok := subtype.Range(); ok && hi-lo+1 == float64(len(decl.Members)) {
			rep.Errorf(reporter.KindAttribute, n.Span,
				"flexible enum %q occupies every value of its underlying type %s and must mark one member [Unknown]", d.Name.DeclarationName(), subtype)
		}
	}
	d.Enum = decl
}

func (l *Library) compileStruct(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.StructDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementStruct)
	decl := &StructDecl{Resource: n.Resource}
	seen := map[string]bool{}
	for _, m := range n.Members {
		l.attrs.Validate(rep, m.Attributes, attr.PlacementStructMember)
		if seen[m.Name.Name] {
			rep.Errorf(reporter.KindName, m.Span, "duplicate member name %q", m.Name.Name)
			continue
		}
		seen[m.Name.Name] = true
		t := l.resolveType(rep, ip, m.Type)
		if t == nil {
			continue
		}
		sm := StructMember{Name: m.Name.Name, Span: m.Span, Type: t}
		if m.DefaultValue != nil {
			v, ok := l.evalConstant(rep, ip, m.DefaultValue, t)
			if ok {
				sm.HasDefault = true
				sm.DefaultValue = v
			}
		}
		decl.Members = append(decl.Members, sm)
	}
	d.Struct = decl
}

func (l *Library) compileTable(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.TableDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementTable)
	decl := &TableDecl{Resource: n.Resource}
	seenNames := map[string]bool{}
	seenOrdinals := map[uint64]bool{}
	var maxOrdinal uint64
	for _, m := range n.Members {
		l.attrs.Validate(rep, m.Attributes, attr.PlacementTableMember)
		if m.Ordinal == 0 {
			rep.Errorf(reporter.KindOrdinal, m.Span, "table ordinals must be positive")
			continue
		}
		if seenOrdinals[m.Ordinal] {
			rep.Errorf(reporter.KindOrdinal, m.Span, "duplicate table ordinal %d", m.Ordinal)
			continue
		}
		seenOrdinals[m.Ordinal] = true
		if m.Ordinal > maxOrdinal {
			maxOrdinal = m.Ordinal
		}
		if m.Reserved {
			decl.Members = append(decl.Members, TableMember{Ordinal: m.Ordinal, Reserved: true, Span: m.Span})
			continue
		}
		if seenNames[m.Name.Name] {
			rep.Errorf(reporter.KindName, m.Span, "duplicate member name %q", m.Name.Name)
			continue
		}
		seenNames[m.Name.Name] = true
		t := l.resolveType(rep, ip, m.Type)
		if t == nil {
			continue
		}
		decl.Members = append(decl.Members, TableMember{Ordinal: m.Ordinal, Name: m.Name.Name, Span: m.Span, Type: t})
	}
	for i := uint64(1); i <= maxOrdinal; i++ {
		if !seenOrdinals[i] {
			rep.Errorf(reporter.KindOrdinal, n.Span, "table ordinals must be contiguous from 1; missing ordinal %d", i)
			break
		}
	}
	d.Table = decl
}

func (l *Library) compileUnion(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.UnionDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementUnion)
	decl := &UnionDecl{Strictness: n.Strictness, Resource: n.Resource}
	seenNames := map[string]bool{}
	seenOrdinals := map[uint64]bool{}
	unknownCount := 0
	for _, m := range n.Members {
		l.attrs.Validate(rep, m.Attributes, attr.PlacementUnionMember)
		if m.Ordinal == 0 {
			rep.Errorf(reporter.KindOrdinal, m.Span, "union ordinals must be positive")
			continue
		}
		if seenOrdinals[m.Ordinal] {
			rep.Errorf(reporter.KindOrdinal, m.Span, "duplicate union ordinal %d", m.Ordinal)
			continue
		}
		seenOrdinals[m.Ordinal] = true
		if m.Reserved {
			decl.Members = append(decl.Members, UnionMember{Ordinal: m.Ordinal, Reserved: true, Span: m.Span})
			continue
		}
		if seenNames[m.Name.Name] {
			rep.Errorf(reporter.KindName, m.Span, "duplicate member name %q", m.Name.Name)
			continue
		}
		seenNames[m.Name.Name] = true
		t := l.resolveType(rep, ip, m.Type)
		if t == nil {
			continue
		}
		_, isUnknown := m.Attributes.Get("Unknown")
		if isUnknown {
			unknownCount++
		}
		decl.Members = append(decl.Members, UnionMember{Ordinal: m.Ordinal, Name: m.Name.Name, Span: m.Span, Type: t, Unknown: isUnknown})
	}
	if unknownCount > 1 {
		rep.Errorf(reporter.KindAttribute, n.Span, "[Unknown] attribute can be only applied to one member")
	}
	if n.Strictness == raw.Strict && unknownCount > 0 {
		rep.Errorf(reporter.KindAttribute, n.Span, "cannot specify [Unknown] for a strict union")
	}
	d.Union = decl
}

func (l *Library) compileProtocol(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.ProtocolDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementProtocol)
	decl := &ProtocolDecl{}

	for _, c := range n.Composes {
		cd, member, ok := l.Resolve(rep, c.Protocol)
		if !ok || member != "" {
			continue
		}
		if cd.Kind != DeclProtocol {
			rep.Errorf(reporter.KindName, c.Span, "%q is not a protocol", c.Protocol.String())
			continue
		}
		l.ensureCompiled(rep, ip, cd)
		if cd.Protocol != nil {
			decl.Methods = append(decl.Methods, cd.Protocol.Methods...)
		}
		decl.Composes = append(decl.Composes, cd.Name)
	}

	seen := map[string]bool{}
	for _, m := range n.Methods {
		l.attrs.Validate(rep, m.Attributes, attr.PlacementMethod)
		if seen[m.Name.Name] {
			rep.Errorf(reporter.KindName, m.Span, "duplicate method name %q", m.Name.Name)
			continue
		}
		seen[m.Name.Name] = true
		method := Method{Name: m.Name.Name, Span: m.Span, HasRequest: m.HasRequest, HasResponse: m.HasResponse, HasError: m.HasError}
		if sel, ok := m.Attributes.Get("Selector"); ok && sel.HasValue {
			method.Selector = sel.Value
		}
		for _, p := range m.Request {
			t := l.resolveType(rep, ip, p.Type)
			method.Request = append(method.Request, Parameter{Name: p.Name.Name, Span: p.Span, Type: t})
		}
		for _, p := range m.Response {
			t := l.resolveType(rep, ip, p.Type)
			method.Response = append(method.Response, Parameter{Name: p.Name.Name, Span: p.Span, Type: t})
		}
		if m.HasError {
			method.ErrorType = l.resolveType(rep, ip, m.ErrorType)
		}
		decl.Methods = append(decl.Methods, method)
	}
	d.Protocol = decl
}

func (l *Library) compileService(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.ServiceDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementService)
	decl := &ServiceDecl{}
	seen := map[string]bool{}
	for _, m := range n.Members {
		l.attrs.Validate(rep, m.Attributes, attr.PlacementServiceMember)
		if seen[m.Name.Name] {
			rep.Errorf(reporter.KindName, m.Span, "duplicate member name %q", m.Name.Name)
			continue
		}
		seen[m.Name.Name] = true
		t := l.resolveType(rep, ip, m.Type)
		if t == nil || t.Kind != KindClientEnd {
			rep.Errorf(reporter.KindType, m.Span, "service member %q must be a client_end", m.Name.Name)
			continue
		}
		decl.Members = append(decl.Members, ServiceMember{Name: m.Name.Name, Span: m.Span, Type: t})
	}
	d.Service = decl
}

func (l *Library) compileTypeAlias(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.TypeAliasDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementTypeAlias)
	t := l.resolveType(rep, ip, n.Target)
	d.TypeAlias = &TypeAliasDecl{Target: t}
}

func (l *Library) compileResource(rep *reporter.Reporter, ip map[*Decl]bool, d *Decl, n raw.ResourceDeclaration) {
	l.attrs.Validate(rep, n.Attributes, attr.PlacementResourceDefinition)
	subtype := Uint32
	if n.Subtype != nil {
		t := l.resolveType(rep, ip, n.Subtype)
		if t != nil && t.Kind == KindPrimitive {
			subtype = t.Primitive
		}
	}
	decl := &ResourceDefinitionDecl{Subtype: subtype}
	for _, p := range n.Properties {
		t := l.resolveType(rep, ip, p.Type)
		decl.Properties = append(decl.Properties, ResourceProperty{Name: p.Name.Name, Span: p.Span, Type: t})
	}
	d.Resource = decl
}

// runShapeConstraints is phase 7: attribute constraints that need a
// computed typeshape (MaxBytes, MaxHandles), run once per declaration
// that carries them.
func (l *Library) runShapeConstraints(rep *reporter.Reporter) {
	for _, d := range l.declOrder {
		shape := d.Shape(typeshape.WireFormatV2)
		var placement attr.Placement
		switch d.Kind {
		case DeclStruct:
			placement = attr.PlacementStruct
		case DeclTable:
			placement = attr.PlacementTable
		case DeclUnion:
			placement = attr.PlacementUnion
		default:
			continue
		}
		target := attr.Target{
			Placement:  placement,
			Span:       d.Span,
			InlineSize: int(shape.InlineSize),
			OutOfLine:  int(shape.MaxOutOfLine),
			Handles:    int(shape.MaxHandles),
		}
		if a, ok := d.Attributes.Get("MaxBytes"); ok {
			target.HasValue, target.Value = a.HasValue, a.Value
			l.attrs.ValidateConstraint(rep, "MaxBytes", target)
		}
		if a, ok := d.Attributes.Get("MaxHandles"); ok {
			target.HasValue, target.Value = a.HasValue, a.Value
			l.attrs.ValidateConstraint(rep, "MaxHandles", target)
		}
	}
}
