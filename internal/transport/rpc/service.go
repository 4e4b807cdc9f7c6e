// Package rpc exposes a peer as a remotely callable SurakartaPlayer service
// over net/rpc. Each link is a pair of RPC clients, one per direction.
package rpc

import (
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
)

// ServiceName is the name the player service is registered under.
const ServiceName = "SurakartaPlayer"

const (
	methodStart       = ServiceName + ".Start"
	methodSendMessage = ServiceName + ".SendMessage"
	methodMoveMouse   = ServiceName + ".MoveMouse"
	methodChangeBoard = ServiceName + ".ChangeBoard"
	methodSelectCell  = ServiceName + ".SelectCell"
	methodChangeTurn  = ServiceName + ".ChangeTurn"
	methodFinishGame  = ServiceName + ".FinishGame"
	methodSurrender   = ServiceName + ".Surrender"
)

// Every call carries the id of the link it belongs to, so calls from a
// replaced peer are refused.

type StartArgs struct {
	Link string
	Host string
	Port int
}

type TextArgs struct {
	Link string
	Text string
}

type MouseArgs struct {
	Link string
	X    float64
	Y    float64
}

type BoardArgs struct {
	Link  string
	Board map[int]entity.Side
}

type CellArgs struct {
	Link string
	Cell int
}

type SignalArgs struct {
	Link string
}

type Ack struct {
	OK bool
}

// Player is the service registered on every endpoint.
type Player struct {
	endpoint *endpoint
}

func (that *Player) Start(args *StartArgs, reply *Ack) error {
	if err := that.endpoint.handleStart(args); err != nil {
		return err
	}

	reply.OK = true
	return nil
}

func (that *Player) SendMessage(args *TextArgs, reply *Ack) error {
	return that.deliver(args.Link, protocol.Text{Content: args.Text}, reply)
}

func (that *Player) MoveMouse(args *MouseArgs, reply *Ack) error {
	return that.deliver(args.Link, protocol.MoveMouse{X: args.X, Y: args.Y}, reply)
}

func (that *Player) ChangeBoard(args *BoardArgs, reply *Ack) error {
	board, err := entity.BoardFromMap(args.Board)
	if err != nil {
		// malformed boards are dropped without failing the caller
		that.endpoint.logger.Warn("dropping malformed board", "link", args.Link, "error", err)
		reply.OK = false
		return nil
	}

	return that.deliver(args.Link, protocol.ChangeBoard{Board: board}, reply)
}

func (that *Player) SelectCell(args *CellArgs, reply *Ack) error {
	if args.Cell != entity.NoSelection && !entity.ValidCell(args.Cell) {
		that.endpoint.logger.Warn("dropping malformed selection", "link", args.Link, "cell", args.Cell)
		reply.OK = false
		return nil
	}

	return that.deliver(args.Link, protocol.SelectedCell{Cell: args.Cell}, reply)
}

func (that *Player) ChangeTurn(args *SignalArgs, reply *Ack) error {
	return that.deliver(args.Link, protocol.ChangeTurn{}, reply)
}

func (that *Player) FinishGame(args *SignalArgs, reply *Ack) error {
	return that.deliver(args.Link, protocol.FinishGame{}, reply)
}

func (that *Player) Surrender(args *SignalArgs, reply *Ack) error {
	return that.deliver(args.Link, protocol.Surrender{}, reply)
}

func (that *Player) deliver(linkID string, msg protocol.Message, reply *Ack) error {
	if err := that.endpoint.deliver(linkID, msg); err != nil {
		return err
	}

	reply.OK = true
	return nil
}

// callFor maps a message onto the remote method and its arguments.
func callFor(linkID string, msg protocol.Message) (string, any) {
	switch m := msg.(type) {
	case protocol.Text:
		return methodSendMessage, &TextArgs{Link: linkID, Text: m.Content}
	case protocol.MoveMouse:
		return methodMoveMouse, &MouseArgs{Link: linkID, X: m.X, Y: m.Y}
	case protocol.ChangeBoard:
		return methodChangeBoard, &BoardArgs{Link: linkID, Board: m.Board.ToMap()}
	case protocol.SelectedCell:
		return methodSelectCell, &CellArgs{Link: linkID, Cell: m.Cell}
	case protocol.ChangeTurn:
		return methodChangeTurn, &SignalArgs{Link: linkID}
	case protocol.FinishGame:
		return methodFinishGame, &SignalArgs{Link: linkID}
	case protocol.Surrender:
		return methodSurrender, &SignalArgs{Link: linkID}
	default:
		return "", nil
	}
}
