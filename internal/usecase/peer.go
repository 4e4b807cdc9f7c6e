package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

var ErrOutboxFull = errors.New("peer is not draining its messages")

// peer is the current link together with its feed and outbox goroutines.
type peer struct {
	id     string
	link   transport.Link
	outbox chan protocol.Message
	cancel context.CancelFunc
}

// startPeer runs the feed and the outbox of link until ctx is cancelled or the link fails.
func (that *GameSession) startPeer(ctx context.Context, link transport.Link) *peer {
	ctx, cancel := context.WithCancel(ctx)

	p := &peer{
		id:     uuid.NewString(),
		link:   link,
		outbox: make(chan protocol.Message, that.outboxSize),
		cancel: cancel,
	}

	log := that.logger.With("peer", p.id, "remote", link.Remote().String())

	go that.feed(ctx, log, p)
	go that.drain(ctx, log, p)

	return p
}

func (that *GameSession) feed(ctx context.Context, log *slog.Logger, p *peer) {
	err := p.link.Serve(ctx, func(msg protocol.Message) {
		that.post(received{peerID: p.id, msg: msg})
	})
	if err != nil {
		log.Error("inbound feed stopped", "error", err)
	}

	that.post(linkLost{peerID: p.id, err: err})
}

func (that *GameSession) drain(ctx context.Context, log *slog.Logger, p *peer) {
	for {
		select {
		case msg := <-p.outbox:
			if err := p.link.Send(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return
				}

				log.Error("failed to send message", "kind", msg.Kind(), "error", err)
				that.post(linkLost{peerID: p.id, err: err})
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// emit queues msg for the current peer. A full outbox drops the link.
func (that *GameSession) emit(msg protocol.Message) {
	if that.peer == nil {
		return
	}

	select {
	case that.peer.outbox <- msg:
	default:
		that.logger.Error("outbox overflow", "kind", msg.Kind(), "size", that.outboxSize)
		that.disconnect(transport.LinkError("send", ErrOutboxFull))
	}
}

func (that *GameSession) stopPeer() {
	if that.peer == nil {
		return
	}

	that.peer.cancel()

	if err := that.peer.link.Close(); err != nil {
		that.logger.Warn("failed to close link", "error", err)
	}

	that.peer = nil
}
