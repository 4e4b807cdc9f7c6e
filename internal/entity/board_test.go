package entity

import (
	"testing"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartingLayout(t *testing.T) {
	t.Run("Has twelve pieces per side and twelve empty cells", func(t *testing.T) {
		// When: building the starting layout
		board := StartingLayout()

		// Then: each side owns twelve cells and twelve cells stay empty
		assert.Equal(t, 12, board.Count(SideFirst))
		assert.Equal(t, 12, board.Count(SideSecond))
		assert.Equal(t, 12, board.Count(NoSide))
	})

	t.Run("Places first side on the top rows and second side on the bottom rows", func(t *testing.T) {
		// When: building the starting layout
		board := StartingLayout()

		// Then: cells 0..11 belong to the first side, 24..35 to the second
		for cell := 0; cell < 12; cell++ {
			assert.Equal(t, SideFirst, board[cell], "cell %d", cell)
		}
		for cell := 12; cell < 24; cell++ {
			assert.Equal(t, NoSide, board[cell], "cell %d", cell)
		}
		for cell := 24; cell < CellCount; cell++ {
			assert.Equal(t, SideSecond, board[cell], "cell %d", cell)
		}
	})

	t.Run("Is deterministic", func(t *testing.T) {
		// Then: repeated calls yield identical boards
		assert.Equal(t, StartingLayout(), StartingLayout())
	})
}

func TestBoard_PlaceAndRemove(t *testing.T) {
	t.Run("Remove then place restores the occupant", func(t *testing.T) {
		// Given: the starting layout
		board := StartingLayout()

		for cell := 0; cell < CellCount; cell++ {
			occupant, occupied := board.OccupantOf(cell)
			if !occupied {
				continue
			}

			// When: picking the piece up and putting it back
			restored := board.Remove(cell).Place(cell, occupant)

			// Then: the board is unchanged
			require.Equal(t, board, restored, "cell %d", cell)
		}
	})

	t.Run("Operations do not mutate the receiver", func(t *testing.T) {
		// Given: the starting layout
		board := StartingLayout()

		// When: placing and removing on copies
		_ = board.Place(15, SideSecond)
		_ = board.Remove(0)

		// Then: the original is untouched
		assert.Equal(t, StartingLayout(), board)
	})

	t.Run("Place overwrites the previous occupant", func(t *testing.T) {
		// Given: a board where cell 30 belongs to the second side
		board := StartingLayout()

		// When: the first side captures it
		board = board.Place(30, SideFirst)

		// Then: the cell now belongs to the first side
		occupant, occupied := board.OccupantOf(30)
		assert.True(t, occupied)
		assert.Equal(t, SideFirst, occupant)
		assert.Equal(t, 11, board.Count(SideSecond))
	})

	t.Run("Remove on an empty cell is a no-op", func(t *testing.T) {
		// Given: the starting layout
		board := StartingLayout()

		// When: removing an empty cell
		after := board.Remove(18)

		// Then: nothing changes
		assert.Equal(t, board, after)
	})
}

func TestBoardFromMap(t *testing.T) {
	t.Run("Round trips through the wire shape", func(t *testing.T) {
		// Given: the starting layout
		board := StartingLayout()

		// When: converting to a map and back
		restored, err := BoardFromMap(board.ToMap())

		// Then: the board is unchanged
		require.NoError(t, err)
		assert.Equal(t, board, restored)
	})

	t.Run("Empty map is an empty board", func(t *testing.T) {
		board, err := BoardFromMap(map[int]Side{})

		require.NoError(t, err)
		assert.Equal(t, CellCount, board.Count(NoSide))
	})

	t.Run("Rejects out of range cells", func(t *testing.T) {
		_, err := BoardFromMap(map[int]Side{36: SideFirst})

		assert.ErrorIs(t, err, apperror.ErrInvalidCell)
	})

	t.Run("Rejects unknown sides", func(t *testing.T) {
		_, err := BoardFromMap(map[int]Side{3: "PURPLE"})

		assert.ErrorIs(t, err, apperror.ErrInvalidSide)
	})
}

func TestSide_Other(t *testing.T) {
	assert.Equal(t, SideSecond, SideFirst.Other())
	assert.Equal(t, SideFirst, SideSecond.Other())
	assert.Equal(t, NoSide, NoSide.Other())
}
