package entity

import "time"

const (
	ResultVictory             = "victory"
	ResultDefeat              = "defeat"
	ResultSurrendered         = "surrendered"
	ResultOpponentSurrendered = "opponent_surrendered"
)

// Match is a concluded game as seen by the local peer.
type Match struct {
	ID         string    `json:"id"`
	LocalSide  Side      `json:"local_side"`
	Opponent   string    `json:"opponent"`
	Winner     Side      `json:"winner,omitempty"`
	Result     string    `json:"result"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
