package raw

import (
	"strconv"

	"go.fuchsia.dev/fidlcore/lexer"
	"go.fuchsia.dev/fidlcore/reporter"
	"go.fuchsia.dev/fidlcore/source"
)

// Parser is an LL(1) recursive-descent parser over a lexer.Lexer. On a
// syntax error it reports one diagnostic and synchronizes past the next
// declaration boundary (a `;` or an unmatched `}` at brace depth 0),
// never halting outright (spec §4.2).
type Parser struct {
	lex  *lexer.Lexer
	rep  *reporter.Reporter
	file *source.File

	cur        lexer.Token
	peeked     *lexer.Token
	pendingDoc string
	ok         bool
}

func NewParser(file *source.File, rep *reporter.Reporter) *Parser {
	p := &Parser{lex: lexer.New(file, rep), rep: rep, file: file, ok: true}
	p.advance()
	return p
}

// Ok reports whether parsing completed without a syntax error that
// prevented building a usable AST node somewhere. A non-ok parser may
// still have produced a best-effort File.
func (p *Parser) Ok() bool { return p.ok }

// nextRaw pulls the next non-doc-comment token from the lexer, folding
// any doc comments encountered along the way into pendingDoc.
func (p *Parser) nextRaw() lexer.Token {
	for {
		t := p.lex.Next()
		if t.Kind == lexer.DocComment {
			text := t.Text()
			// "///" doc comment: strip the slashes and one optional space.
			text = text[3:]
			if len(text) > 0 && text[0] == ' ' {
				text = text[1:]
			}
			if p.pendingDoc != "" {
				p.pendingDoc += "\n" + text
			} else {
				p.pendingDoc = text
			}
			continue
		}
		return t
	}
}

func (p *Parser) advance() {
	if p.peeked != nil {
		p.cur = *p.peeked
		p.peeked = nil
		return
	}
	p.cur = p.nextRaw()
}

// peekNext returns the token after p.cur without consuming it, buffering
// it for the following advance().
func (p *Parser) peekNext() lexer.Token {
	if p.peeked == nil {
		t := p.nextRaw()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *Parser) takeDoc() string {
	d := p.pendingDoc
	p.pendingDoc = ""
	return d
}

func (p *Parser) at(k lexer.Kind) bool { return p.cur.Kind == k }

func (p *Parser) atKeyword(kw string) bool {
	return p.cur.Kind == lexer.Identifier && p.cur.Text() == kw
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.ok = false
	p.rep.Errorf(reporter.KindSyntax, p.cur.Span, format, args...)
}

func (p *Parser) expect(k lexer.Kind, what string) source.Span {
	if !p.at(k) {
		p.errorf("unexpected token %q, expected %s", p.cur.Text(), what)
		return p.cur.Span
	}
	s := p.cur.Span
	p.advance()
	return s
}

func (p *Parser) expectKeyword(kw string) source.Span {
	if !p.atKeyword(kw) {
		p.errorf("unexpected token %q, expected %q", p.cur.Text(), kw)
		return p.cur.Span
	}
	s := p.cur.Span
	p.advance()
	return s
}

// identifier accepts an Identifier token, including any reserved word,
// per SPEC_FULL.md's reserved-word-safe parsing supplement: wherever the
// grammar requires a plain identifier, a keyword spelling is acceptable
// since no keyword production applies at that position.
func (p *Parser) identifier() Identifier {
	if !p.at(lexer.Identifier) {
		p.errorf("unexpected token %q, expected identifier", p.cur.Text())
		return Identifier{Span: p.cur.Span}
	}
	id := Identifier{Span: p.cur.Span, Name: p.cur.Text()}
	p.advance()
	return id
}

func (p *Parser) compoundIdentifier() CompoundIdentifier {
	first := p.identifier()
	comps := []Identifier{first}
	start := first.Span
	for p.at(lexer.Dot) {
		p.advance()
		comps = append(comps, p.identifier())
	}
	end := comps[len(comps)-1].Span
	return CompoundIdentifier{Span: start.Union(end), Components: comps}
}

// attributeList parses an optional leading `[A, B="v"]` block.
func (p *Parser) attributeList() *AttributeList {
	if !p.at(lexer.LBracket) {
		return nil
	}
	start := p.cur.Span
	p.advance()
	var attrs []Attribute
	for {
		aStart := p.cur.Span
		name := p.identifier()
		a := Attribute{Span: aStart, Name: name.Name}
		if p.at(lexer.Equal) {
			p.advance()
			if p.at(lexer.StringLiteral) {
				a.Value = lexer.UnescapeString(p.cur.Text())
				a.HasValue = true
				p.advance()
			} else {
				p.errorf("unexpected token %q, expected string literal", p.cur.Text())
			}
		}
		a.Span = a.Span.Union(p.cur.Span)
		attrs = append(attrs, a)
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	end := p.expect(lexer.RBracket, "]")
	return &AttributeList{Span: start.Union(end), Attributes: attrs}
}

// mergeDocAttribute folds a pending doc comment into the attribute list as
// a `Doc` attribute, duplicating fidlc's treatment of doc comments as
// trivia that attach to the following declaration (spec §4.5, §9). A
// pre-existing explicit [Doc="..."] plus a doc comment on the same owner
// is a duplicate-attribute error.
func (p *Parser) mergeDocAttribute(attrs *AttributeList, doc string) *AttributeList {
	if doc == "" {
		return attrs
	}
	if attrs == nil {
		attrs = &AttributeList{}
	}
	if _, ok := attrs.Get("Doc"); ok {
		p.rep.Errorf(reporter.KindAttribute, attrs.Span, "duplicate attribute with name 'Doc'")
		return attrs
	}
	attrs.Attributes = append(attrs.Attributes, Attribute{Name: "Doc", Value: doc, HasValue: true})
	return attrs
}

func (p *Parser) constant() Constant {
	switch {
	case p.at(lexer.NumericLiteral):
		c := &LiteralConstant{SpanValue: p.cur.Span, Kind: NumericLiteral, Text: p.cur.Text()}
		p.advance()
		return p.maybeBinaryOr(c)
	case p.at(lexer.StringLiteral):
		c := &LiteralConstant{SpanValue: p.cur.Span, Kind: StringLiteralKind, Text: p.cur.Text()}
		p.advance()
		return p.maybeBinaryOr(c)
	case p.atKeyword("true") || p.atKeyword("false"):
		c := &LiteralConstant{SpanValue: p.cur.Span, Kind: BoolLiteral, Text: p.cur.Text()}
		p.advance()
		return p.maybeBinaryOr(c)
	case p.at(lexer.Identifier):
		ci := p.compoundIdentifier()
		c := &IdentifierConstant{SpanValue: ci.Span, Identifier: ci}
		return p.maybeBinaryOr(c)
	default:
		p.errorf("unexpected token %q, expected constant", p.cur.Text())
		return &LiteralConstant{SpanValue: p.cur.Span, Kind: NumericLiteral, Text: "0"}
	}
}

func (p *Parser) maybeBinaryOr(left Constant) Constant {
	for p.at(lexer.Pipe) {
		p.advance()
		right := p.constantOperand()
		left = &BinaryOrConstant{SpanValue: left.Span().Union(right.Span()), Left: left, Right: right}
	}
	return left
}

// constantOperand parses a single operand of a `|` chain without
// recursing into maybeBinaryOr again (left-associative fold in constant()).
func (p *Parser) constantOperand() Constant {
	switch {
	case p.at(lexer.NumericLiteral):
		c := &LiteralConstant{SpanValue: p.cur.Span, Kind: NumericLiteral, Text: p.cur.Text()}
		p.advance()
		return c
	case p.at(lexer.Identifier):
		ci := p.compoundIdentifier()
		return &IdentifierConstant{SpanValue: ci.Span, Identifier: ci}
	default:
		p.errorf("unexpected token %q, expected constant", p.cur.Text())
		return &LiteralConstant{SpanValue: p.cur.Span, Kind: NumericLiteral, Text: "0"}
	}
}

// typeConstructor parses the four-slot type constructor grammar from spec
// §3/§6: qualified_id ['<' type_ctor [',' size] '>'] [':' size] '?'?
func (p *Parser) typeConstructor() *TypeConstructor {
	start := p.cur.Span
	name := p.compoundIdentifier()
	tc := &TypeConstructor{Span: start, Identifier: name}

	if p.at(lexer.LAngle) {
		p.advance()
		elem := p.typeConstructor()
		tc.ElementType = elem
		if p.at(lexer.Comma) {
			p.advance()
			tc.MaybeSize = p.constant()
		}
		p.expect(lexer.RAngle, ">")
	}
	if p.at(lexer.Colon) {
		p.advance()
		// `handle:VMO` or `handle:<VMO, rights>` style subtype, or a bare
		// size bound for string/vector/array.
		if p.at(lexer.LAngle) {
			p.advance()
			h := p.identifier()
			tc.HandleSubtype = &h
			if p.at(lexer.Comma) {
				p.advance()
				tc.HandleRights = p.constant()
			}
			p.expect(lexer.RAngle, ">")
		} else if p.at(lexer.Identifier) && !isNumericStart(p.cur.Text()) {
			h := p.identifier()
			tc.HandleSubtype = &h
		} else {
			tc.MaybeSize = p.constant()
		}
	}
	if p.at(lexer.Question) {
		tc.Nullability = Nullable
		p.advance()
	}
	tc.Span = tc.Span.Union(p.prevEndSpan())
	return tc
}

func isNumericStart(s string) bool { return len(s) > 0 && s[0] >= '0' && s[0] <= '9' }

// prevEndSpan is a best-effort trailing span for Union(); since the
// parser is single-token lookahead we just reuse the current token's
// span, which is adjacent to what was just consumed.
func (p *Parser) prevEndSpan() source.Span { return p.cur.Span }

func (p *Parser) strictnessPrefix() Strictness {
	if p.atKeyword("strict") {
		p.advance()
		return Strict
	}
	if p.atKeyword("flexible") {
		p.advance()
		return Flexible
	}
	return StrictnessUnspecified
}

// ParseFile parses the whole of a single source file into a raw.File. It
// never returns a nil File, even when p.Ok() is false, so that downstream
// consumers can read whatever declarations were recovered (spec §4.2:
// "best-effort AST").
func (p *Parser) ParseFile() *File {
	f := &File{SourceFile: p.file}

	libDoc := p.takeDoc()
	libAttrs := p.attributeList()
	libAttrs = p.mergeDocAttribute(libAttrs, libDoc)
	start := p.expectKeyword("library")
	libName := p.compoundIdentifier()
	end := p.expect(lexer.Semicolon, ";")
	f.Library = LibraryDeclaration{Span: start.Union(end), Attributes: libAttrs, Name: libName}

	for !p.at(lexer.EOF) {
		doc := p.takeDoc()
		attrs := p.attributeList()
		attrs = p.mergeDocAttribute(attrs, doc)

		switch {
		case p.atKeyword("using"):
			p.parseUsingOrAlias(attrs, f)
		case p.atKeyword("const"):
			f.Consts = append(f.Consts, p.parseConst(attrs))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclConst, len(f.Consts) - 1})
		case p.atKeyword("bits"):
			f.Bits = append(f.Bits, p.parseBits(attrs, StrictnessUnspecified))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclBits, len(f.Bits) - 1})
		case p.atKeyword("enum"):
			f.Enums = append(f.Enums, p.parseEnum(attrs, StrictnessUnspecified))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclEnum, len(f.Enums) - 1})
		case p.atKeyword("strict") || p.atKeyword("flexible"):
			p.parseStrictPrefixed(attrs, f)
		case p.atKeyword("struct"):
			f.Structs = append(f.Structs, p.parseStruct(attrs, false))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclStruct, len(f.Structs) - 1})
		case p.atKeyword("resource") && p.peekIsStruct():
			p.advance()
			f.Structs = append(f.Structs, p.parseStruct(attrs, true))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclStruct, len(f.Structs) - 1})
		case p.atKeyword("resource_definition"):
			f.Resources = append(f.Resources, p.parseResource(attrs))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclResource, len(f.Resources) - 1})
		case p.atKeyword("table"):
			f.Tables = append(f.Tables, p.parseTable(attrs))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclTable, len(f.Tables) - 1})
		case p.atKeyword("union") || p.atKeyword("xunion"):
			f.Unions = append(f.Unions, p.parseUnion(attrs, StrictnessUnspecified))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclUnion, len(f.Unions) - 1})
		case p.atKeyword("protocol"):
			f.Protocols = append(f.Protocols, p.parseProtocol(attrs))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclProtocol, len(f.Protocols) - 1})
		case p.atKeyword("service"):
			f.Services = append(f.Services, p.parseService(attrs))
			f.DeclOrder = append(f.DeclOrder, DeclRef{DeclService, len(f.Services) - 1})
		default:
			p.errorf("unexpected token %q, expected a declaration", p.cur.Text())
			p.synchronize()
		}
	}
	return f
}

// peekIsStruct disambiguates the `resource struct S {...}` inline-resource
// prefix (caller has already matched the `resource` keyword) from a
// `resource_definition` declaration, by checking the next token.
func (p *Parser) peekIsStruct() bool {
	n := p.peekNext()
	return n.Kind == lexer.Identifier && n.Text() == "struct"
}

func (p *Parser) parseStrictPrefixed(attrs *AttributeList, f *File) {
	strictness := p.strictnessPrefix()
	switch {
	case p.atKeyword("bits"):
		f.Bits = append(f.Bits, p.parseBits(attrs, strictness))
		f.DeclOrder = append(f.DeclOrder, DeclRef{DeclBits, len(f.Bits) - 1})
	case p.atKeyword("enum"):
		f.Enums = append(f.Enums, p.parseEnum(attrs, strictness))
		f.DeclOrder = append(f.DeclOrder, DeclRef{DeclEnum, len(f.Enums) - 1})
	case p.atKeyword("union") || p.atKeyword("xunion"):
		f.Unions = append(f.Unions, p.parseUnion(attrs, strictness))
		f.DeclOrder = append(f.DeclOrder, DeclRef{DeclUnion, len(f.Unions) - 1})
	default:
		p.errorf("unexpected token %q, expected bits, enum, or union", p.cur.Text())
		p.synchronize()
	}
}

// synchronize skips tokens up to and including the next plausible
// declaration boundary (a semicolon or an unmatched closing brace at
// brace depth 0), or to EOF, per spec §4.2's error-recovery policy.
func (p *Parser) synchronize() {
	depth := 0
	for !p.at(lexer.EOF) {
		switch p.cur.Kind {
		case lexer.LBrace:
			depth++
		case lexer.RBrace:
			if depth == 0 {
				p.advance()
				return
			}
			depth--
		case lexer.Semicolon:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseUsingOrAlias(attrs *AttributeList, f *File) {
	start := p.expectKeyword("using")
	name := p.compoundIdentifier()
	if p.at(lexer.Equal) {
		// type alias: `using Name = TypeCtor;`
		p.advance()
		target := p.typeConstructor()
		end := p.expect(lexer.Semicolon, ";")
		if len(name.Components) != 1 {
			p.rep.Errorf(reporter.KindSyntax, name.Span, "type alias name must not be dotted")
		}
		f.TypeAliases = append(f.TypeAliases, TypeAliasDeclaration{
			Span: start.Union(end), Attributes: attrs,
			Name: identifierOf(name), Target: target,
		})
		f.DeclOrder = append(f.DeclOrder, DeclRef{DeclTypeAlias, len(f.TypeAliases) - 1})
		return
	}
	var alias *Identifier
	if p.atKeyword("as") {
		p.advance()
		a := p.identifier()
		alias = &a
	}
	end := p.expect(lexer.Semicolon, ";")
	f.Using = append(f.Using, Using{Span: start.Union(end), Library: name, Alias: alias})
}

func identifierOf(ci CompoundIdentifier) Identifier {
	if len(ci.Components) == 0 {
		return Identifier{}
	}
	return ci.Components[len(ci.Components)-1]
}

func (p *Parser) parseConst(attrs *AttributeList) ConstDeclaration {
	start := p.expectKeyword("const")
	typ := p.typeConstructor()
	name := p.identifier()
	p.expect(lexer.Equal, "=")
	val := p.constant()
	end := p.expect(lexer.Semicolon, ";")
	return ConstDeclaration{Span: start.Union(end), Attributes: attrs, Type: typ, Name: name, Value: val}
}

func (p *Parser) parseBits(attrs *AttributeList, strictness Strictness) BitsDeclaration {
	start := p.expectKeyword("bits")
	name := p.identifier()
	var subtype *TypeConstructor
	if p.at(lexer.Colon) {
		p.advance()
		subtype = p.typeConstructor()
	}
	p.expect(lexer.LBrace, "{")
	var members []BitsMember
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		mDoc := p.takeDoc()
		mAttrs := p.attributeList()
		mAttrs = p.mergeDocAttribute(mAttrs, mDoc)
		mName := p.identifier()
		p.expect(lexer.Equal, "=")
		val := p.constant()
		mEnd := p.expect(lexer.Semicolon, ";")
		members = append(members, BitsMember{Span: mName.Span.Union(mEnd), Attributes: mAttrs, Name: mName, Value: val})
	}
	end := p.expect(lexer.RBrace, "}")
	p.expect(lexer.Semicolon, ";")
	return BitsDeclaration{Span: start.Union(end), Attributes: attrs, Strictness: strictness, Name: name, Subtype: subtype, Members: members}
}

func (p *Parser) parseEnum(attrs *AttributeList, strictness Strictness) EnumDeclaration {
	start := p.expectKeyword("enum")
	name := p.identifier()
	var subtype *TypeConstructor
	if p.at(lexer.Colon) {
		p.advance()
		subtype = p.typeConstructor()
	}
	p.expect(lexer.LBrace, "{")
	var members []EnumMember
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		mDoc := p.takeDoc()
		mAttrs := p.attributeList()
		mAttrs = p.mergeDocAttribute(mAttrs, mDoc)
		mName := p.identifier()
		p.expect(lexer.Equal, "=")
		val := p.constant()
		mEnd := p.expect(lexer.Semicolon, ";")
		members = append(members, EnumMember{Span: mName.Span.Union(mEnd), Attributes: mAttrs, Name: mName, Value: val})
	}
	end := p.expect(lexer.RBrace, "}")
	p.expect(lexer.Semicolon, ";")
	return EnumDeclaration{Span: start.Union(end), Attributes: attrs, Strictness: strictness, Name: name, Subtype: subtype, Members: members}
}

func (p *Parser) parseStruct(attrs *AttributeList, resource bool) StructDeclaration {
	start := p.expectKeyword("struct")
	name := p.identifier()
	p.expect(lexer.LBrace, "{")
	var members []StructMember
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		mDoc := p.takeDoc()
		mAttrs := p.attributeList()
		mAttrs = p.mergeDocAttribute(mAttrs, mDoc)
		typ := p.typeConstructor()
		mName := p.identifier()
		var def Constant
		if p.at(lexer.Equal) {
			p.advance()
			def = p.constant()
		}
		mEnd := p.expect(lexer.Semicolon, ";")
		members = append(members, StructMember{Span: typ.Span.Union(mEnd), Attributes: mAttrs, Type: typ, Name: mName, DefaultValue: def})
	}
	end := p.expect(lexer.RBrace, "}")
	p.expect(lexer.Semicolon, ";")
	return StructDeclaration{Span: start.Union(end), Attributes: attrs, Resource: resource, Name: name, Members: members}
}

func (p *Parser) parseTable(attrs *AttributeList) TableDeclaration {
	start := p.expectKeyword("table")
	name := p.identifier()
	p.expect(lexer.LBrace, "{")
	var members []TableMember
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		mDoc := p.takeDoc()
		mAttrs := p.attributeList()
		mAttrs = p.mergeDocAttribute(mAttrs, mDoc)
		ordSpan := p.cur.Span
		ordinal := p.parseOrdinal()
		p.expect(lexer.Colon, ":")
		if p.atKeyword("reserved") {
			p.advance()
			mEnd := p.expect(lexer.Semicolon, ";")
			members = append(members, TableMember{Span: ordSpan.Union(mEnd), Attributes: mAttrs, Ordinal: ordinal, Reserved: true})
			continue
		}
		typ := p.typeConstructor()
		mName := p.identifier()
		mEnd := p.expect(lexer.Semicolon, ";")
		members = append(members, TableMember{Span: ordSpan.Union(mEnd), Attributes: mAttrs, Ordinal: ordinal, Type: typ, Name: mName})
	}
	end := p.expect(lexer.RBrace, "}")
	p.expect(lexer.Semicolon, ";")
	return TableDeclaration{Span: start.Union(end), Attributes: attrs, Name: name, Members: members}
}

func (p *Parser) parseUnion(attrs *AttributeList, strictness Strictness) UnionDeclaration {
	start := p.cur.Span
	if p.atKeyword("xunion") {
		p.advance()
	} else {
		p.expectKeyword("union")
	}
	name := p.identifier()
	p.expect(lexer.LBrace, "{")
	var members []UnionMember
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		mDoc := p.takeDoc()
		mAttrs := p.attributeList()
		mAttrs = p.mergeDocAttribute(mAttrs, mDoc)
		ordSpan := p.cur.Span
		ordinal := p.parseOrdinal()
		p.expect(lexer.Colon, ":")
		if p.atKeyword("reserved") {
			p.advance()
			mEnd := p.expect(lexer.Semicolon, ";")
			members = append(members, UnionMember{Span: ordSpan.Union(mEnd), Attributes: mAttrs, Ordinal: ordinal, Reserved: true})
			continue
		}
		typ := p.typeConstructor()
		mName := p.identifier()
		mEnd := p.expect(lexer.Semicolon, ";")
		members = append(members, UnionMember{Span: ordSpan.Union(mEnd), Attributes: mAttrs, Ordinal: ordinal, Type: typ, Name: mName})
	}
	end := p.expect(lexer.RBrace, "}")
	p.expect(lexer.Semicolon, ";")
	return UnionDeclaration{Span: start.Union(end), Attributes: attrs, Strictness: strictness, Name: name, Members: members}
}

func (p *Parser) parseOrdinal() uint64 {
	if !p.at(lexer.NumericLiteral) {
		p.errorf("unexpected token %q, expected ordinal", p.cur.Text())
		return 0
	}
	v, err := strconv.ParseUint(p.cur.Text(), 10, 64)
	if err != nil {
		p.errorf("invalid ordinal %q", p.cur.Text())
	}
	p.advance()
	return v
}

func (p *Parser) parseProtocol(attrs *AttributeList) ProtocolDeclaration {
	start := p.expectKeyword("protocol")
	name := p.identifier()
	p.expect(lexer.LBrace, "{")
	decl := ProtocolDeclaration{Attributes: attrs, Name: name}
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		mDoc := p.takeDoc()
		mAttrs := p.attributeList()
		mAttrs = p.mergeDocAttribute(mAttrs, mDoc)
		if p.atKeyword("compose") {
			cStart := p.cur.Span
			p.advance()
			proto := p.compoundIdentifier()
			cEnd := p.expect(lexer.Semicolon, ";")
			decl.Composes = append(decl.Composes, ComposeEntry{Span: cStart.Union(cEnd), Protocol: proto})
			continue
		}
		decl.Methods = append(decl.Methods, p.parseMethod(mAttrs))
	}
	end := p.expect(lexer.RBrace, "}")
	p.expect(lexer.Semicolon, ";")
	decl.Span = start.Union(end)
	return decl
}

func (p *Parser) parseMethod(attrs *AttributeList) ProtocolMethod {
	name := p.identifier()
	start := name.Span
	m := ProtocolMethod{Attributes: attrs, Name: name}
	p.expect(lexer.LParen, "(")
	m.HasRequest = true
	m.Request = p.parseParameterList()
	p.expect(lexer.RParen, ")")
	end := p.cur.Span
	if p.at(lexer.Arrow) {
		p.advance()
		p.expect(lexer.LParen, "(")
		m.HasResponse = true
		m.Response = p.parseParameterList()
		p.expect(lexer.RParen, ")")
		if p.atKeyword("error") {
			p.advance()
			m.HasError = true
			m.ErrorType = p.typeConstructor()
		}
		end = p.cur.Span
	}
	end = p.expect(lexer.Semicolon, ";")
	m.Span = start.Union(end)
	return m
}

func (p *Parser) parseParameterList() []Parameter {
	var params []Parameter
	for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
		typ := p.typeConstructor()
		name := p.identifier()
		params = append(params, Parameter{Span: typ.Span.Union(name.Span), Type: typ, Name: name})
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	return params
}

func (p *Parser) parseService(attrs *AttributeList) ServiceDeclaration {
	start := p.expectKeyword("service")
	name := p.identifier()
	p.expect(lexer.LBrace, "{")
	var members []ServiceMember
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		mDoc := p.takeDoc()
		mAttrs := p.attributeList()
		mAttrs = p.mergeDocAttribute(mAttrs, mDoc)
		typ := p.typeConstructor()
		mName := p.identifier()
		mEnd := p.expect(lexer.Semicolon, ";")
		members = append(members, ServiceMember{Span: typ.Span.Union(mEnd), Attributes: mAttrs, Type: typ, Name: mName})
	}
	end := p.expect(lexer.RBrace, "}")
	p.expect(lexer.Semicolon, ";")
	return ServiceDeclaration{Span: start.Union(end), Attributes: attrs, Name: name, Members: members}
}

func (p *Parser) parseResource(attrs *AttributeList) ResourceDeclaration {
	start := p.expectKeyword("resource_definition")
	name := p.identifier()
	var subtype *TypeConstructor
	if p.at(lexer.Colon) {
		p.advance()
		subtype = p.typeConstructor()
	}
	p.expect(lexer.LBrace, "{")
	p.expectKeyword("properties")
	p.expect(lexer.LBrace, "{")
	var props []ResourceProperty
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		typ := p.typeConstructor()
		pName := p.identifier()
		pEnd := p.expect(lexer.Semicolon, ";")
		props = append(props, ResourceProperty{Span: typ.Span.Union(pEnd), Type: typ, Name: pName})
	}
	p.expect(lexer.RBrace, "}")
	p.expect(lexer.Semicolon, ";")
	end := p.expect(lexer.RBrace, "}")
	p.expect(lexer.Semicolon, ";")
	return ResourceDeclaration{Span: start.Union(end), Attributes: attrs, Name: name, Subtype: subtype, Properties: props}
}
