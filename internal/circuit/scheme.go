package circuit

// Scheme selects the remote-gate protocol used to implement a two-qubit gate
// whose operands live on different nodes.
type Scheme string

const (
	// SchemeCat consumes one entangled pair and one classical-correction
	// round to apply a cross-node two-qubit gate without teleporting either
	// operand.
	SchemeCat Scheme = "cat"
	// SchemeTPRisky teleports one operand, applies the gate locally, and
	// proceeds without confirmation that the target applied the correction.
	SchemeTPRisky Scheme = "tp_risky"
	// SchemeTPSafe is SchemeTPRisky followed by a teleport back, so the
	// originating node holds an acknowledged result before any later gate on
	// the same qubit is scheduled.
	SchemeTPSafe Scheme = "tp_safe"
)

// String returns the canonical scheme token.
func (s Scheme) String() string { return string(s) }

// IsValid checks whether the scheme is a known value.
func (s Scheme) IsValid() bool {
	switch s {
	case SchemeCat, SchemeTPRisky, SchemeTPSafe:
		return true
	}
	return false
}

// ParseScheme maps a scheme token to a Scheme. The shorthand tokens "1tp" and
// "2tp" are accepted as aliases for tp_risky and tp_safe. Unrecognized tokens
// are a ConfigurationError.
func ParseScheme(token string) (Scheme, error) {
	switch token {
	case "cat":
		return SchemeCat, nil
	case "tp_risky", "1tp":
		return SchemeTPRisky, nil
	case "tp_safe", "2tp":
		return SchemeTPSafe, nil
	}
	return "", Configf("unknown remote-gate scheme %q (want cat, tp_risky/1tp, or tp_safe/2tp)", token)
}
