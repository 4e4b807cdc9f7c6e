package entity

// Side is one of the two competing players.
type Side string

const (
	SideFirst  Side = "FIRST"
	SideSecond Side = "SECOND"

	NoSide Side = ""
)

// Other returns the opposing side. NoSide stays NoSide.
func (that Side) Other() Side {
	switch that {
	case SideFirst:
		return SideSecond
	case SideSecond:
		return SideFirst
	default:
		return NoSide
	}
}

func (that Side) Valid() bool {
	return that == SideFirst || that == SideSecond
}
