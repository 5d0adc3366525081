// Package names implements library and declaration name parsing and the
// fully-qualified name representation used throughout the compiler:
// `library.parts/Decl.Member`. Grounded on fidlgen's identifiers.go API
// (ReadLibraryName, ReadName, LibraryName, Name), reshaped around this
// compiler's own library-registration flow (spec §4.3).
package names

import (
	"fmt"
	"strings"
)

// LibraryName is a parsed, validated `library` declaration name: one or
// more lowercase, underscore-free dotted components.
type LibraryName struct {
	parts string // dot-joined, canonical form; comparable map key
}

// ReadLibraryName validates and parses a dotted library name such as
// "fuchsia.ui.scenic". Each component must be non-empty and consist only
// of lowercase ASCII letters and digits (no underscores, no leading
// digit), matching the old FIDL grammar's library-name production.
func ReadLibraryName(s string) (LibraryName, error) {
	if s == "" {
		return LibraryName{}, fmt.Errorf("library name must not be empty")
	}
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if !validLibraryComponent(p) {
			return LibraryName{}, fmt.Errorf("invalid library name %q: bad component %q", s, p)
		}
	}
	return LibraryName{parts: s}, nil
}

// MustReadLibraryName is ReadLibraryName, panicking on error. Intended for
// static/test call sites, mirroring fidlgen.MustReadLibraryName.
func MustReadLibraryName(s string) LibraryName {
	n, err := ReadLibraryName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func validLibraryComponent(p string) bool {
	if p == "" {
		return false
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		if !isLower && !isDigit {
			return false
		}
		if i == 0 && isDigit {
			return false
		}
	}
	return true
}

func (l LibraryName) FullyQualifiedName() string { return l.parts }

func (l LibraryName) Parts() []string {
	if l.parts == "" {
		return nil
	}
	return strings.Split(l.parts, ".")
}

func (l LibraryName) String() string { return l.parts }

func (l LibraryName) IsZero() bool { return l.parts == "" }

// Name is a fully-qualified declaration or member reference of the form
// `library.parts/DeclName` or `library.parts/DeclName.Member`.
type Name struct {
	library LibraryName
	decl    string
}

// ReadName validates and parses "library/Decl" or "library/Decl.Member".
func ReadName(s string) (Name, error) {
	slash := strings.IndexByte(s, '/')
	if slash < 0 {
		return Name{}, fmt.Errorf("invalid fully-qualified name %q: missing '/'", s)
	}
	lib, err := ReadLibraryName(s[:slash])
	if err != nil {
		return Name{}, err
	}
	decl := s[slash+1:]
	if decl == "" {
		return Name{}, fmt.Errorf("invalid fully-qualified name %q: empty declaration name", s)
	}
	return Name{library: lib, decl: decl}, nil
}

func MustReadName(s string) Name {
	n, err := ReadName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// NewName builds a Name directly from an already-resolved library and bare
// declaration name, used by the library consumer once a decl's owning
// library is known (rather than re-parsing a textual form).
func NewName(library LibraryName, decl string) Name {
	return Name{library: library, decl: decl}
}

// WithMember appends a `.Member` component (e.g. for an enum/bits member
// referenced by a constant default), returning a new Name.
func (n Name) WithMember(member string) Name {
	return Name{library: n.library, decl: n.decl + "." + member}
}

func (n Name) LibraryName() LibraryName { return n.library }

func (n Name) DeclarationName() string { return n.decl }

func (n Name) FullyQualifiedName() string {
	return n.library.FullyQualifiedName() + "/" + n.decl
}

func (n Name) String() string { return n.FullyQualifiedName() }

func (n Name) IsZero() bool { return n.library.IsZero() && n.decl == "" }
