package usecase

import (
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

// event is anything the session actor applies: collaborator commands and
// link notifications alike.
type event interface{ isEvent() }

type selectCell struct {
	cell  int
	reply chan error
}

func (selectCell) isEvent() {}

type finishTurn struct {
	reply chan error
}

func (finishTurn) isEvent() {}

type surrender struct {
	reply chan error
}

func (surrender) isEvent() {}

type sendText struct {
	text  string
	reply chan error
}

func (sendText) isEvent() {}

type moveCursor struct {
	x, y  float64
	reply chan error
}

func (moveCursor) isEvent() {}

type connectTo struct {
	remote entity.Connection
	reply  chan error
}

func (connectTo) isEvent() {}

type getSnapshot struct {
	reply chan entity.Snapshot
}

func (getSnapshot) isEvent() {}

// dialed is posted by the dialing goroutine once the attempt ends.
type dialed struct {
	remote entity.Connection
	link   transport.Link
	err    error
}

func (dialed) isEvent() {}

type accepted struct {
	link transport.Link
}

func (accepted) isEvent() {}

// received carries one inbound message from the link with the given id.
type received struct {
	peerID string
	msg    protocol.Message
}

func (received) isEvent() {}

// linkLost reports that the link with the given id stopped. A nil err means
// the peer closed it cleanly.
type linkLost struct {
	peerID string
	err    error
}

func (linkLost) isEvent() {}
