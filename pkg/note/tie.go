package note

// Tie types.
const (
	TieStart    = "start"
	TieStop     = "stop"
	TieContinue = "continue"
)

// Tie joins a note to the next note of the same pitch.
type Tie struct {
	Type string
}

// NewTie returns a tie of the given type.
func NewTie(typ string) *Tie {
	return &Tie{Type: typ}
}
