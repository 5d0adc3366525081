package flat

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"go.fuchsia.dev/fidlcore/reporter"
)

// computeOrdinal hashes selector with SHA-256 and derives the 64-bit
// ordinal from the first 8 bytes (little-endian), masking off the high
// bit, per spec §4.6 and the round-trip-ordinal invariant in §8. The
// corresponding legacy 32-bit ordinal (spec §9's design note on dual
// emission) is derived the same way from the first 4 bytes.
func computeOrdinal(selector string) (ordinal64 uint64, ordinal32 uint32) {
	sum := sha256.Sum256([]byte(selector))
	ordinal64 = binary.LittleEndian.Uint64(sum[:8]) &^ (uint64(1) << 63)
	ordinal32 = binary.LittleEndian.Uint32(sum[:4]) &^ (uint32(1) << 31)
	return ordinal64, ordinal32
}

// assignOrdinals computes and cross-checks ordinals for every method of a
// protocol, including methods pulled in via `compose` (spec §4.6: "Two
// methods in the same protocol (including composed protocols) may not
// share an ordinal"). seen accumulates ordinal -> (protocol, method) for
// clash detection across composed protocols sharing a namespace.
func (l *Library) assignOrdinals(rep *reporter.Reporter, d *Decl) {
	type owner struct {
		protocol, method string
	}
	seen := map[uint64]owner{}
	for i := range d.Protocol.Methods {
		m := &d.Protocol.Methods[i]
		tail := m.Name
		if m.Selector != "" {
			tail = m.Selector
		}
		selector := fmt.Sprintf("%s/%s.%s", l.Name.FullyQualifiedName(), d.Name.DeclarationName(), tail)
		m.Selector = selector
		ord64, ord32 := computeOrdinal(selector)
		if ord64 == 0 {
			rep.Errorf(reporter.KindOrdinal, m.Span, "method %q has an ordinal of zero; rename the method or add a [Selector] attribute", m.Name)
			continue
		}
		m.Ordinal = ord64
		m.LegacyOrdinal = ord32

		if prior, dup := seen[ord64]; dup {
			rep.Errorf(reporter.KindOrdinal, m.Span,
				"method %q and method %q of protocol %q have colliding ordinals; consider adding distinct [Selector] attributes, for example [Selector=\"%s2\"]",
				prior.method, m.Name, d.Name.DeclarationName(), m.Name)
			continue
		}
		seen[ord64] = owner{protocol: d.Name.DeclarationName(), method: m.Name}
	}
}
