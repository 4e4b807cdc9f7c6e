// Package transport defines the peer link shared by every backend.
//
// A backend provides a Transport able to open a local Endpoint. The endpoint
// accepts inbound peers and dials outbound ones; either way the result is a
// Link carrying protocol messages in both directions.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
)

const (
	KindStream    = "stream"
	KindRPC       = "rpc"
	KindWebsocket = "websocket"
)

// Link is one live bidirectional channel to a peer.
type Link interface {
	// Send delivers msg, failing with an error wrapping apperror.ErrLink.
	Send(ctx context.Context, msg protocol.Message) error

	// Serve feeds decoded inbound messages to handle until the link closes.
	// It returns nil on a local or clean remote close.
	Serve(ctx context.Context, handle func(protocol.Message)) error

	Remote() entity.Connection

	// Close is safe to call more than once.
	Close() error
}

// Endpoint is the local listening side of a transport.
type Endpoint interface {
	Accept(ctx context.Context) (Link, error)
	Dial(ctx context.Context, remote entity.Connection) (Link, error)
	Port() int
	Close() error
}

type Transport interface {
	Listen(ctx context.Context, port int) (Endpoint, error)
}

var ErrEndpointClosed = errors.New("endpoint closed")

// LinkError wraps err as a link failure during op.
func LinkError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperror.ErrLink, op, err)
}

// Dispatch decodes one inbound record and hands it to handle.
// Malformed records are logged and dropped.
func Dispatch(log *slog.Logger, data []byte, handle func(protocol.Message)) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn("dropping malformed message", "error", err)
		return
	}

	handle(msg)
}
