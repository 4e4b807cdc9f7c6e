package entity

// SessionState is the lifecycle stage of a peer session.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateConnecting SessionState = "connecting"
	StateActive     SessionState = "active"
	StateConcluded  SessionState = "concluded"
)

// Cursor is the opponent's pointer position in board coordinates.
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Snapshot is a read-only copy of the session handed to renderers.
type Snapshot struct {
	State      SessionState `json:"state"`
	ListenPort int          `json:"listen_port"`
	LocalSide  Side         `json:"local_side,omitempty"`
	Opponent   *Connection  `json:"opponent,omitempty"`
	Turn       Side         `json:"turn"`
	Selection  int          `json:"selection"`
	Board      Board        `json:"board"`
	Winner     Side         `json:"winner,omitempty"`
	Cursor     Cursor       `json:"cursor"`
	Chat       []ChatEntry  `json:"chat"`
}
