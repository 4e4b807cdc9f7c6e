// Package stream carries newline-delimited records over plain TCP.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

type Transport struct {
	logger      *slog.Logger
	sendTimeout time.Duration
}

func New(logger *slog.Logger, sendTimeout time.Duration) *Transport {
	return &Transport{
		logger:      logger.With("component", "transport", "transport", transport.KindStream),
		sendTimeout: sendTimeout,
	}
}

// Listen binds port on all interfaces, 0 meaning an OS-assigned port.
func (that *Transport) Listen(ctx context.Context, port int) (transport.Endpoint, error) {
	var config net.ListenConfig

	listener, err := config.Listen(ctx, "tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		_ = listener.Close()
		return nil, fmt.Errorf("unexpected listener type %T", listener)
	}

	return &endpoint{
		logger:      that.logger,
		listener:    tcpListener,
		sendTimeout: that.sendTimeout,
	}, nil
}

type endpoint struct {
	logger      *slog.Logger
	listener    *net.TCPListener
	sendTimeout time.Duration
}

func (that *endpoint) Accept(ctx context.Context) (transport.Link, error) {
	// clear a deadline left behind by a previously cancelled Accept
	if err := that.listener.SetDeadline(time.Time{}); err != nil {
		return nil, transport.ErrEndpointClosed
	}

	stop := context.AfterFunc(ctx, func() {
		_ = that.listener.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := that.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if errors.Is(err, net.ErrClosed) {
			return nil, transport.ErrEndpointClosed
		}

		return nil, transport.LinkError("accept", err)
	}

	return newLink(that.logger, conn, remoteOf(conn), that.sendTimeout), nil
}

func (that *endpoint) Dial(ctx context.Context, remote entity.Connection) (transport.Link, error) {
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(remote.Host, strconv.Itoa(remote.Port)))
	if err != nil {
		return nil, transport.LinkError("dial "+remote.String(), err)
	}

	return newLink(that.logger, conn, remote, that.sendTimeout), nil
}

func (that *endpoint) Port() int {
	return that.listener.Addr().(*net.TCPAddr).Port
}

func (that *endpoint) Close() error {
	if err := that.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close listener: %w", err)
	}

	return nil
}

func remoteOf(conn net.Conn) entity.Connection {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return entity.Connection{Host: addr.IP.String(), Port: addr.Port}
	}

	return entity.Connection{Host: conn.RemoteAddr().String()}
}
