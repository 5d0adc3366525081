package names

import "testing"

func TestReadLibraryName(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
		parts   []string
	}{
		{"fuchsia.ui.scenic", false, []string{"fuchsia", "ui", "scenic"}},
		{"example", false, []string{"example"}},
		{"", true, nil},
		{"Example", true, nil},     // uppercase not allowed
		{"9example", true, nil},    // leading digit
		{"ex_ample", true, nil},    // underscore not allowed
		{"example..sub", true, nil}, // empty component
	}
	for _, tc := range tests {
		n, err := ReadLibraryName(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ReadLibraryName(%q): expected error, got none", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ReadLibraryName(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if n.FullyQualifiedName() != tc.in {
			t.Errorf("ReadLibraryName(%q).FullyQualifiedName() = %q", tc.in, n.FullyQualifiedName())
		}
		parts := n.Parts()
		if len(parts) != len(tc.parts) {
			t.Fatalf("ReadLibraryName(%q).Parts() = %v, want %v", tc.in, parts, tc.parts)
		}
		for i := range parts {
			if parts[i] != tc.parts[i] {
				t.Errorf("ReadLibraryName(%q).Parts()[%d] = %q, want %q", tc.in, i, parts[i], tc.parts[i])
			}
		}
	}
}

func TestNameRoundTrip(t *testing.T) {
	lib := MustReadLibraryName("fuchsia.ui.scenic")
	n := NewName(lib, "Foo")
	if got, want := n.FullyQualifiedName(), "fuchsia.ui.scenic/Foo"; got != want {
		t.Errorf("FullyQualifiedName() = %q, want %q", got, want)
	}
	if got, want := n.DeclarationName(), "Foo"; got != want {
		t.Errorf("DeclarationName() = %q, want %q", got, want)
	}

	member := n.WithMember("BAR")
	if got, want := member.FullyQualifiedName(), "fuchsia.ui.scenic/Foo.BAR"; got != want {
		t.Errorf("WithMember FullyQualifiedName() = %q, want %q", got, want)
	}

	round, err := ReadName(n.FullyQualifiedName())
	if err != nil {
		t.Fatalf("ReadName: %v", err)
	}
	if round.FullyQualifiedName() != n.FullyQualifiedName() {
		t.Errorf("round-tripped name = %q, want %q", round.FullyQualifiedName(), n.FullyQualifiedName())
	}
}

func TestReadNameRejectsMissingSlash(t *testing.T) {
	if _, err := ReadName("noslash"); err == nil {
		t.Errorf("expected error for name with no '/'")
	}
}

func TestZeroLibraryName(t *testing.T) {
	var l LibraryName
	if !l.IsZero() {
		t.Errorf("zero-value LibraryName.IsZero() = false, want true")
	}
}
