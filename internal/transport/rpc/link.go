package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	netrpc "net/rpc"
	"sync"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

const inboundBufferSize = 64

var (
	ErrLinkClosed     = errors.New("link closed")
	ErrInboundOverrun = errors.New("inbound queue is full")
)

type link struct {
	logger   *slog.Logger
	endpoint *endpoint
	id       string
	client   *netrpc.Client
	conn     *watchedConn
	remote   entity.Connection

	inbound   chan protocol.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newLink(ep *endpoint, id string, client *netrpc.Client, conn *watchedConn, remote entity.Connection) *link {
	return &link{
		logger:   ep.logger.With("remote", remote.String(), "link", id),
		endpoint: ep,
		id:       id,
		client:   client,
		conn:     conn,
		remote:   remote,
		inbound:  make(chan protocol.Message, inboundBufferSize),
		closed:   make(chan struct{}),
	}
}

func (that *link) Send(ctx context.Context, msg protocol.Message) error {
	method, args := callFor(that.id, msg)
	if args == nil {
		return fmt.Errorf("%w: %T", protocol.ErrUnknownKind, msg)
	}

	return that.call(ctx, method, args)
}

func (that *link) call(ctx context.Context, method string, args any) error {
	if that.isClosed() {
		return transport.LinkError(method, ErrLinkClosed)
	}

	ctx, cancel := context.WithTimeout(ctx, that.endpoint.callTimeout)
	defer cancel()

	call := that.client.Go(method, args, &Ack{}, make(chan *netrpc.Call, 1))

	select {
	case <-call.Done:
		if call.Error == nil {
			return nil
		}

		// errors raised by the remote service arrive as plain strings
		var serverErr netrpc.ServerError
		if errors.As(call.Error, &serverErr) && serverErr.Error() == apperror.ErrAlreadyConnected.Error() {
			return apperror.ErrAlreadyConnected
		}

		return transport.LinkError(method, call.Error)
	case <-ctx.Done():
		return transport.LinkError(method, ctx.Err())
	case <-that.closed:
		return transport.LinkError(method, ErrLinkClosed)
	}
}

// push queues a message received through the player service.
func (that *link) push(msg protocol.Message) error {
	select {
	case <-that.closed:
		return ErrLinkClosed
	default:
	}

	select {
	case that.inbound <- msg:
		return nil
	default:
		that.logger.Error("inbound queue overrun", "kind", msg.Kind())
		return ErrInboundOverrun
	}
}

func (that *link) Serve(ctx context.Context, handle func(protocol.Message)) error {
	log := that.logger.With("method", "Serve")

	for {
		select {
		case msg := <-that.inbound:
			handle(msg)
		case <-that.closed:
			return nil
		case <-that.conn.lost:
			if that.isClosed() {
				return nil
			}

			if errors.Is(that.conn.cause(), io.EOF) {
				log.Info("peer closed the link")
				_ = that.Close()
				return nil
			}

			_ = that.Close()
			return transport.LinkError("receive", that.conn.cause())
		case <-ctx.Done():
			_ = that.Close()
			return nil
		}
	}
}

func (that *link) Remote() entity.Connection {
	return that.remote
}

func (that *link) Close() error {
	var err error

	that.closeOnce.Do(func() {
		close(that.closed)
		err = that.client.Close()
		that.endpoint.release(that)
	})

	if err != nil && !errors.Is(err, netrpc.ErrShutdown) {
		return fmt.Errorf("failed to close rpc client: %w", err)
	}

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

// watchedConn signals when the connection under an RPC client stops reading,
// which is how a peer leaving is noticed.
type watchedConn struct {
	net.Conn

	once sync.Once
	lost chan struct{}

	mutex sync.Mutex
	err   error
}

func newWatchedConn(conn net.Conn) *watchedConn {
	return &watchedConn{
		Conn: conn,
		lost: make(chan struct{}),
	}
}

func (that *watchedConn) Read(p []byte) (int, error) {
	n, err := that.Conn.Read(p)
	if err != nil {
		that.once.Do(func() {
			that.mutex.Lock()
			that.err = err
			that.mutex.Unlock()
			close(that.lost)
		})
	}

	return n, err
}

func (that *watchedConn) cause() error {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	return that.err
}
