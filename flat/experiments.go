package flat

// Experiments is a set of experimental-flag names gating behavior that
// isn't stable grammar yet, mirroring the real fidlgen.Experiments/
// Contains API (tools/fidl/lib/fidlgen).
type Experiments map[string]bool

// ExperimentFlexibleBitsAndEnums gates `flexible` on bits/enum
// declarations (spec's supplemental-features note on flexible_tests.cc's
// kFlexibleBitsAndEnums).
const ExperimentFlexibleBitsAndEnums = "flexible_bits_and_enums"

// NewExperiments builds an Experiments set from the given flag names.
func NewExperiments(names ...string) Experiments {
	e := make(Experiments, len(names))
	for _, n := range names {
		e[n] = true
	}
	return e
}

// Contains reports whether name is set.
func (e Experiments) Contains(name string) bool {
	return e[name]
}

// CompileOptions configures a Library's Compile call with feature gates
// that live outside the grammar itself (reporter.KindConfiguration).
type CompileOptions struct {
	Experiments Experiments
}

// SetOptions configures l's compile-time feature gates. Must be called
// before Compile; the zero value (no experiments enabled) matches the
// default NewLibrary behavior.
func (l *Library) SetOptions(o CompileOptions) {
	l.options = o
}
