package cpu

// State is the execution state of the interpreter.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING = State(0) // running
	STATE_WAITING = State(1) // waiting
	STATE_HALTED  = State(2) // halted
)

// Quirk selects between the historical behaviours of the shift and
// register spill instructions.
type Quirk int

//go:generate go tool stringer -linecomment -type=Quirk
const (
	QUIRK_MODERN = Quirk(0) // modern
	QUIRK_LEGACY = Quirk(1) // legacy
)

// Set parses a quirk name, so a Quirk can be used as a flag.Value.
func (q *Quirk) Set(name string) (err error) {
	for _, quirk := range []Quirk{QUIRK_MODERN, QUIRK_LEGACY} {
		if quirk.String() == name {
			*q = quirk
			return
		}
	}

	err = ErrQuirkInvalid
	return
}
