package pipeline

// IdempotencyPolicy controls how a stage treats results left over from a
// previous run of the same project.
type IdempotencyPolicy int

const (
	// PolicyUnspecified defers to the stage's default.
	PolicyUnspecified IdempotencyPolicy = iota

	// PolicyRecompute discards prior results and rebuilds the stage's output.
	PolicyRecompute

	// PolicySkipIfPresent keeps prior results and only fills the gaps.
	PolicySkipIfPresent
)

func (p IdempotencyPolicy) String() string {
	switch p {
	case PolicyRecompute:
		return "recompute"
	case PolicySkipIfPresent:
		return "skip_if_present"
	default:
		return "unspecified"
	}
}
