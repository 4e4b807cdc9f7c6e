package surakarta

import "github.com/rocketscienceinc/surakarta/internal/entity"

// FindWinner reports the side left with pieces once the other side has none.
// An empty board has no winner.
func FindWinner(board entity.Board) (entity.Side, bool) {
	first := board.Count(entity.SideFirst)
	second := board.Count(entity.SideSecond)

	switch {
	case first == 0 && second == 0:
		return entity.NoSide, false
	case first == 0:
		return entity.SideSecond, true
	case second == 0:
		return entity.SideFirst, true
	default:
		return entity.NoSide, false
	}
}

// SelectCell applies a tap by local on cell. A piece is picked up from an own
// cell, then dropped on an empty cell or on top of an opponent piece.
// Arc movement is not checked: any destination is accepted.
func SelectCell(board entity.Board, selection int, local entity.Side, cell int) (entity.Board, int, bool) {
	occupant, occupied := board.OccupantOf(cell)
	holding := selection != entity.NoSelection

	switch {
	case !occupied && holding:
		return board.Place(cell, local), entity.NoSelection, true
	case occupant == local && !holding:
		return board.Remove(cell), cell, true
	case occupied && occupant == local.Other() && holding:
		return board.Place(cell, local), entity.NoSelection, true
	default:
		return board, selection, false
	}
}
