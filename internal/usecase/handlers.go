package usecase

import (
	"context"
	"time"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
	"github.com/rocketscienceinc/surakarta/internal/surakarta"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

func (that *GameSession) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case selectCell:
		e.reply <- that.onSelectCell(e.cell)
	case finishTurn:
		e.reply <- that.onFinishTurn()
	case surrender:
		e.reply <- that.onSurrender()
	case sendText:
		e.reply <- that.onSendMessage(e.text)
	case moveCursor:
		that.onCursorMove(e.x, e.y)
		e.reply <- nil
	case connectTo:
		that.onConnectToAdversary(ctx, e)
	case getSnapshot:
		e.reply <- that.snapshot()
	case dialed:
		that.onDialed(ctx, e)
	case accepted:
		if err := that.connect(ctx, entity.SideSecond, e.link); err != nil {
			that.logger.Warn("rejected inbound peer", "remote", e.link.Remote().String(), "error", err)
		}
	case received:
		if that.peer == nil || that.peer.id != e.peerID {
			that.logger.Debug("ignoring message from a stale link", "kind", e.msg.Kind())
			return
		}

		that.onReceive(e.msg)
	case linkLost:
		if that.peer == nil || that.peer.id != e.peerID {
			return
		}

		that.disconnect(e.err)
	}
}

// requirePlay checks that local board input is currently allowed.
func (that *GameSession) requirePlay() error {
	switch {
	case that.peer == nil:
		return apperror.ErrNotConnected
	case that.winner != entity.NoSide:
		return apperror.ErrGameFinished
	case that.turn != that.localSide:
		return apperror.ErrNotYourTurn
	default:
		return nil
	}
}

func (that *GameSession) onSelectCell(cell int) error {
	if err := that.requirePlay(); err != nil {
		return err
	}

	if !entity.ValidCell(cell) {
		return apperror.ErrInvalidCell
	}

	board, selection, changed := surakarta.SelectCell(that.board, that.selection, that.localSide, cell)
	if !changed {
		return nil
	}

	that.board = board
	that.selection = selection

	if winner, ok := surakarta.FindWinner(that.board); ok {
		that.conclude(winner)
	}

	that.emit(protocol.SelectedCell{Cell: that.selection})
	that.emit(protocol.ChangeBoard{Board: that.board})

	return nil
}

func (that *GameSession) onFinishTurn() error {
	if err := that.requirePlay(); err != nil {
		return err
	}

	that.turn = that.turn.Other()
	that.emit(protocol.ChangeTurn{})

	return nil
}

func (that *GameSession) onSurrender() error {
	if that.peer == nil {
		return apperror.ErrNotConnected
	}

	if that.winner != entity.NoSide {
		that.appendChat(entity.ChatReset())
		that.emit(protocol.FinishGame{})
		that.resetGame()
		that.state = entity.StateActive

		return nil
	}

	that.appendChat(entity.ChatSurrender())
	that.record(entity.ResultSurrendered, that.localSide.Other())

	that.emit(protocol.Surrender{})
	that.turn = that.turn.Other()
	that.emit(protocol.ChangeTurn{})
	that.resetGame()

	return nil
}

func (that *GameSession) onSendMessage(text string) error {
	if that.peer == nil {
		return apperror.ErrNotConnected
	}

	that.appendChat(entity.NewChatEntry(text, entity.AuthorYou))
	that.emit(protocol.Text{Content: text})

	return nil
}

// onCursorMove shares the pointer only while the local side is playing.
func (that *GameSession) onCursorMove(x, y float64) {
	if that.peer == nil || that.turn != that.localSide {
		return
	}

	that.emit(protocol.MoveMouse{X: x, Y: y})
}

func (that *GameSession) onConnectToAdversary(ctx context.Context, e connectTo) {
	if that.state != entity.StateIdle {
		e.reply <- apperror.ErrAlreadyConnected
		return
	}

	that.logger.Info("connecting to adversary", "remote", e.remote.String())

	that.state = entity.StateConnecting
	that.pendingDial = e.reply

	go that.dial(ctx, e.remote)
}

func (that *GameSession) onDialed(ctx context.Context, e dialed) {
	reply := that.pendingDial
	that.pendingDial = nil

	if e.err != nil {
		that.logger.Error("failed to connect to adversary", "remote", e.remote.String(), "error", e.err)
		that.appendChat(entity.ChatError(e.err))

		if that.state == entity.StateConnecting {
			that.state = entity.StateIdle
		}

		respond(reply, e.err)
		return
	}

	respond(reply, that.connect(ctx, entity.SideFirst, e.link))
}

// connect makes link the current peer. The first link to complete wins; later ones are closed.
func (that *GameSession) connect(ctx context.Context, side entity.Side, link transport.Link) error {
	if that.peer != nil {
		_ = link.Close()
		return apperror.ErrAlreadyConnected
	}

	remote := link.Remote()

	that.peer = that.startPeer(ctx, link)
	that.opponent = &remote
	that.localSide = side
	that.turn = entity.SideFirst
	that.cursor = entity.Cursor{}
	that.resetGame()
	that.state = entity.StateActive

	that.appendChat(entity.ChatConnectedTo(remote))
	that.logger.Info("connected to adversary", "remote", remote.String(), "side", side)

	return nil
}

func (that *GameSession) onReceive(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Text:
		that.appendChat(entity.NewChatEntry(m.Content, entity.AuthorAdversary))
	case protocol.MoveMouse:
		that.cursor = entity.Cursor{X: m.X, Y: m.Y}
	case protocol.ChangeTurn:
		that.turn = that.turn.Other()
	case protocol.ChangeBoard:
		that.board = m.Board

		if winner, ok := surakarta.FindWinner(that.board); ok {
			that.conclude(winner)
			return
		}

		that.winner = entity.NoSide
		that.state = entity.StateActive
	case protocol.SelectedCell:
		that.selection = m.Cell
	case protocol.Surrender:
		that.appendChat(entity.ChatAdversarySurrender())
		that.record(entity.ResultOpponentSurrendered, that.localSide)
		that.resetGame()
		that.state = entity.StateActive
	case protocol.FinishGame:
		that.appendChat(entity.ChatAdversaryReset())
		that.resetGame()
		that.state = entity.StateActive
	}
}

// conclude sets the winner once per game.
func (that *GameSession) conclude(winner entity.Side) {
	if that.winner != entity.NoSide {
		return
	}

	that.winner = winner
	that.state = entity.StateConcluded

	if winner == that.localSide {
		that.appendChat(entity.ChatVictory())
		that.record(entity.ResultVictory, winner)
	} else {
		that.appendChat(entity.ChatDefeat())
		that.record(entity.ResultDefeat, winner)
	}
}

// disconnect drops the current link. A nil cause means the peer left cleanly.
func (that *GameSession) disconnect(cause error) {
	if that.peer == nil {
		return
	}

	remote := that.peer.link.Remote()

	if cause != nil {
		that.appendChat(entity.ChatError(cause))
	} else {
		that.appendChat(entity.ChatDisconnected(remote))
	}

	that.logger.Info("disconnected from adversary", "remote", remote.String(), "error", cause)

	that.stopPeer()
	that.opponent = nil
	that.localSide = entity.NoSide
	that.state = entity.StateIdle
}

func (that *GameSession) resetGame() {
	that.board = entity.StartingLayout()
	that.selection = entity.NoSelection
	that.winner = entity.NoSide
	that.startedAt = time.Now().UTC()
}
