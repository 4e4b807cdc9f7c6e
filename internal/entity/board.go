package entity

import (
	"fmt"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
)

const (
	BoardSize = 6
	CellCount = BoardSize * BoardSize

	// NoSelection marks that no cell is picked up.
	NoSelection = -1

	startingRows = 2
)

// Board is the 6x6 occupancy grid in row-major order. An empty string means the cell is empty.
type Board [CellCount]Side

// StartingLayout returns the board with the first two rows owned by SideFirst and the last two by SideSecond.
func StartingLayout() Board {
	var board Board

	for cell := 0; cell < startingRows*BoardSize; cell++ {
		board[cell] = SideFirst
	}

	for cell := CellCount - startingRows*BoardSize; cell < CellCount; cell++ {
		board[cell] = SideSecond
	}

	return board
}

func ValidCell(cell int) bool {
	return cell >= 0 && cell < CellCount
}

// Place puts side on cell, overwriting the previous occupant.
func (that Board) Place(cell int, side Side) Board {
	that[cell] = side
	return that
}

// Remove clears cell. Removing from an empty cell is a no-op.
func (that Board) Remove(cell int) Board {
	that[cell] = NoSide
	return that
}

func (that Board) OccupantOf(cell int) (Side, bool) {
	side := that[cell]
	return side, side != NoSide
}

// Count returns how many cells side occupies.
func (that Board) Count(side Side) int {
	count := 0
	for _, occupant := range that {
		if occupant == side {
			count++
		}
	}

	return count
}

// ToMap converts the board into the wire shape, where a missing key is an empty cell.
func (that Board) ToMap() map[int]Side {
	pieces := make(map[int]Side)
	for cell, occupant := range that {
		if occupant != NoSide {
			pieces[cell] = occupant
		}
	}

	return pieces
}

// BoardFromMap builds a board from the wire shape.
func BoardFromMap(pieces map[int]Side) (Board, error) {
	var board Board

	for cell, occupant := range pieces {
		if !ValidCell(cell) {
			return Board{}, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
		}

		if !occupant.Valid() {
			return Board{}, fmt.Errorf("%w: %q at cell %d", apperror.ErrInvalidSide, occupant, cell)
		}

		board[cell] = occupant
	}

	return board, nil
}
