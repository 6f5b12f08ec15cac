package editor

// Transition is a user-triggered switch between the two editing
// representations.
type Transition int

const (
	ToRaw Transition = iota
	ToStructured
)

// Reconciled is the outcome of a transition.
type Reconciled struct {
	// Buffer is the raw HTML buffer after the transition.
	Buffer string
	// Reload is true when the structured surface must be re-parsed from
	// Buffer.
	Reload bool
}

// Reconcile decides what a view switch does to the document. canonical is
// the structured surface's current serialisation and buffer the raw text.
// Entering the raw view snapshots canonical; leaving it reloads the surface
// only when the buffer was changed, so an unedited round trip leaves the
// canonical HTML untouched.
func Reconcile(t Transition, canonical, buffer string) Reconciled {
	switch t {
	case ToRaw:
		return Reconciled{Buffer: canonical}
	default:
		return Reconciled{Buffer: buffer, Reload: buffer != canonical}
	}
}
