package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	netrpc "net/rpc"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/surakarta/internal/apperror"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

var ErrUnknownLink = errors.New("call does not belong to the current link")

type Transport struct {
	logger        *slog.Logger
	advertiseHost string
	callTimeout   time.Duration
}

// New builds the RPC transport. advertiseHost is the address sent to peers
// so they can call back; when empty the local address of the dialed
// connection is used.
func New(logger *slog.Logger, advertiseHost string, callTimeout time.Duration) *Transport {
	return &Transport{
		logger:        logger.With("component", "transport", "transport", transport.KindRPC),
		advertiseHost: advertiseHost,
		callTimeout:   callTimeout,
	}
}

func (that *Transport) Listen(ctx context.Context, port int) (transport.Endpoint, error) {
	var config net.ListenConfig

	listener, err := config.Listen(ctx, "tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	ep := &endpoint{
		logger:        that.logger,
		listener:      listener,
		server:        netrpc.NewServer(),
		advertiseHost: that.advertiseHost,
		callTimeout:   that.callTimeout,
		accepted:      make(chan *link),
		closed:        make(chan struct{}),
		serverConns:   make(map[net.Conn]struct{}),
	}

	if err = ep.server.RegisterName(ServiceName, &Player{endpoint: ep}); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to register %s: %w", ServiceName, err)
	}

	go ep.serve()

	return ep, nil
}

type endpoint struct {
	logger        *slog.Logger
	listener      net.Listener
	server        *netrpc.Server
	advertiseHost string
	callTimeout   time.Duration

	accepted  chan *link
	closed    chan struct{}
	closeOnce sync.Once

	mutex       sync.Mutex
	current     *link
	serverConns map[net.Conn]struct{}
}

// serve runs the RPC server for every inbound TCP connection.
func (that *endpoint) serve() {
	log := that.logger.With("method", "serve")

	for {
		conn, err := that.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Error("failed to accept connection", "error", err)
			}
			return
		}

		that.mutex.Lock()
		that.serverConns[conn] = struct{}{}
		that.mutex.Unlock()

		go func() {
			that.server.ServeConn(conn)

			that.mutex.Lock()
			delete(that.serverConns, conn)
			that.mutex.Unlock()
		}()
	}
}

func (that *endpoint) Accept(ctx context.Context) (transport.Link, error) {
	select {
	case l := <-that.accepted:
		return l, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-that.closed:
		return nil, transport.ErrEndpointClosed
	}
}

// Dial calls Start on the remote player, which then calls back to this endpoint.
func (that *endpoint) Dial(ctx context.Context, remote entity.Connection) (transport.Link, error) {
	linkID := uuid.NewString()

	client, conn, err := that.dialClient(ctx, remote)
	if err != nil {
		return nil, err
	}

	l := newLink(that, linkID, client, conn, remote)

	if err = that.claim(l); err != nil {
		_ = client.Close()
		return nil, err
	}

	host := that.advertiseHost
	if host == "" {
		host = localHost(conn)
	}

	args := &StartArgs{Link: linkID, Host: host, Port: that.Port()}

	if err = l.call(ctx, methodStart, args); err != nil {
		_ = l.Close()
		return nil, err
	}

	return l, nil
}

func (that *endpoint) Port() int {
	return that.listener.Addr().(*net.TCPAddr).Port
}

func (that *endpoint) Close() error {
	var err error

	that.closeOnce.Do(func() {
		close(that.closed)
		err = that.listener.Close()

		that.mutex.Lock()
		current := that.current
		that.mutex.Unlock()

		if current != nil {
			_ = current.Close()
		}

		that.dropServerConns()
	})

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close listener: %w", err)
	}

	return nil
}

// handleStart answers a remote Start call by dialing back to the caller.
func (that *endpoint) handleStart(args *StartArgs) error {
	log := that.logger.With("method", "handleStart", "link", args.Link)

	remote := entity.Connection{Host: args.Host, Port: args.Port}

	ctx, cancel := context.WithTimeout(context.Background(), that.callTimeout)
	defer cancel()

	client, conn, err := that.dialClient(ctx, remote)
	if err != nil {
		log.Error("failed to call back peer", "remote", remote.String(), "error", err)
		return err
	}

	l := newLink(that, args.Link, client, conn, remote)

	if err = that.claim(l); err != nil {
		_ = client.Close()
		return err
	}

	select {
	case that.accepted <- l:
		log.Info("peer started a link", "remote", remote.String())
		return nil
	case <-ctx.Done():
		_ = l.Close()
		return fmt.Errorf("no one is accepting links: %w", ctx.Err())
	case <-that.closed:
		_ = l.Close()
		return transport.ErrEndpointClosed
	}
}

// claim makes l the current link unless another live link holds the endpoint.
func (that *endpoint) claim(l *link) error {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	if that.current != nil && !that.current.isClosed() {
		return apperror.ErrAlreadyConnected
	}

	that.current = l
	return nil
}

func (that *endpoint) release(l *link) {
	that.mutex.Lock()
	if that.current == l {
		that.current = nil
	}
	that.mutex.Unlock()

	// the peer's client to us is one of these; dropping it tells the peer we left
	that.dropServerConns()
}

func (that *endpoint) deliver(linkID string, msg protocol.Message) error {
	that.mutex.Lock()
	current := that.current
	that.mutex.Unlock()

	if current == nil || current.id != linkID {
		return ErrUnknownLink
	}

	return current.push(msg)
}

func (that *endpoint) dropServerConns() {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	for conn := range that.serverConns {
		_ = conn.Close()
		delete(that.serverConns, conn)
	}
}

func (that *endpoint) dialClient(ctx context.Context, remote entity.Connection) (*netrpc.Client, *watchedConn, error) {
	dialer := net.Dialer{Timeout: that.callTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(remote.Host, strconv.Itoa(remote.Port)))
	if err != nil {
		return nil, nil, transport.LinkError("dial "+remote.String(), err)
	}

	watched := newWatchedConn(conn)

	return netrpc.NewClient(watched), watched, nil
}

func localHost(conn net.Conn) string {
	if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}

	host, _, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		return "localhost"
	}

	return host
}
