package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

var ErrLinkClosed = errors.New("link closed")

type link struct {
	logger      *slog.Logger
	conn        *websocket.Conn
	remote      entity.Connection
	sendTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

func newLink(logger *slog.Logger, conn *websocket.Conn, remote entity.Connection, sendTimeout time.Duration) *link {
	return &link{
		logger:      logger.With("remote", remote.String()),
		conn:        conn,
		remote:      remote,
		sendTimeout: sendTimeout,
		closed:      make(chan struct{}),
	}
}

func (that *link) Send(ctx context.Context, msg protocol.Message) error {
	if that.isClosed() {
		return transport.LinkError("send", ErrLinkClosed)
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, that.sendTimeout)
	defer cancel()

	if err = that.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return transport.LinkError("send", err)
	}

	return nil
}

func (that *link) Serve(ctx context.Context, handle func(protocol.Message)) error {
	log := that.logger.With("method", "Serve")

	for {
		_, data, err := that.conn.Read(ctx)
		if err != nil {
			if that.isClosed() {
				return nil
			}

			if ctx.Err() != nil {
				_ = that.Close()
				return nil
			}

			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Info("peer closed the link")
				_ = that.Close()
				return nil
			}

			_ = that.Close()
			return transport.LinkError("receive", err)
		}

		transport.Dispatch(log, data, handle)
	}
}

func (that *link) Remote() entity.Connection {
	return that.remote
}

func (that *link) Close() error {
	that.closeOnce.Do(func() {
		close(that.closed)

		if err := that.conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
			that.logger.Debug("websocket close handshake incomplete", "error", err)
		}
	})

	return nil
}

func (that *link) isClosed() bool {
	select {
	case <-that.closed:
		return true
	default:
		return false
	}
}
