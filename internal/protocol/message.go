package protocol

import "github.com/rocketscienceinc/surakarta/internal/entity"

// Kind is the discriminator of a wire message.
type Kind string

const (
	KindText         Kind = "TEXT"
	KindMoveMouse    Kind = "MOVE_MOUSE"
	KindChangeBoard  Kind = "CHANGE_BOARD"
	KindSelectedCell Kind = "SELECTED_CELL"
	KindChangeTurn   Kind = "CHANGE_TURN"
	KindSurrender    Kind = "SURRENDER"
	KindFinishGame   Kind = "FINISH_GAME"
)

// Message is one of the closed set of peer messages below.
type Message interface {
	Kind() Kind
	isMessage()
}

// Text is a chat line written by the sender.
type Text struct {
	Content string
}

// MoveMouse is the sender's pointer position during its turn.
type MoveMouse struct {
	X float64
	Y float64
}

// ChangeBoard replaces the receiver's whole board.
type ChangeBoard struct {
	Board entity.Board
}

// SelectedCell mirrors the sender's selection, entity.NoSelection for none.
type SelectedCell struct {
	Cell int
}

// ChangeTurn passes the turn to the receiver.
type ChangeTurn struct{}

// Surrender concedes the current game.
type Surrender struct{}

// FinishGame restarts after a concluded game.
type FinishGame struct{}

func (Text) Kind() Kind         { return KindText }
func (MoveMouse) Kind() Kind    { return KindMoveMouse }
func (ChangeBoard) Kind() Kind  { return KindChangeBoard }
func (SelectedCell) Kind() Kind { return KindSelectedCell }
func (ChangeTurn) Kind() Kind   { return KindChangeTurn }
func (Surrender) Kind() Kind    { return KindSurrender }
func (FinishGame) Kind() Kind   { return KindFinishGame }

func (Text) isMessage()         {}
func (MoveMouse) isMessage()    {}
func (ChangeBoard) isMessage()  {}
func (SelectedCell) isMessage() {}
func (ChangeTurn) isMessage()   {}
func (Surrender) isMessage()    {}
func (FinishGame) isMessage()   {}
