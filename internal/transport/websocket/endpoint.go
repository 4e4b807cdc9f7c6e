// Package websocket carries protocol records as websocket text messages.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

// Path is where peers open the websocket.
const Path = "/surakarta"

const (
	maxMessageSize    = 1024 * 1024
	readHeaderTimeout = 10 * time.Second
)

type Transport struct {
	logger      *slog.Logger
	sendTimeout time.Duration
}

func New(logger *slog.Logger, sendTimeout time.Duration) *Transport {
	return &Transport{
		logger:      logger.With("component", "transport", "transport", transport.KindWebsocket),
		sendTimeout: sendTimeout,
	}
}

func (that *Transport) Listen(ctx context.Context, port int) (transport.Endpoint, error) {
	var config net.ListenConfig

	listener, err := config.Listen(ctx, "tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	ep := &endpoint{
		logger:      that.logger,
		listener:    listener,
		sendTimeout: that.sendTimeout,
		accepted:    make(chan *link),
		closed:      make(chan struct{}),
	}

	router := chi.NewRouter()
	router.Get(Path, ep.upgrade)

	ep.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := ep.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ep.logger.Error("websocket server stopped", "error", err)
		}
	}()

	return ep, nil
}

type endpoint struct {
	logger      *slog.Logger
	listener    net.Listener
	server      *http.Server
	sendTimeout time.Duration

	accepted  chan *link
	closed    chan struct{}
	closeOnce sync.Once
}

// upgrade turns an inbound request into a link and holds the handler until the link ends.
func (that *endpoint) upgrade(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgrade")

	conn, err := websocket.Accept(writer, req, &websocket.AcceptOptions{
		// peers are other players, not browsers
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Warn("failed to accept websocket", "remote", req.RemoteAddr, "error", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)

	l := newLink(that.logger, conn, remoteOf(req.RemoteAddr), that.sendTimeout)

	select {
	case that.accepted <- l:
	case <-that.closed:
		_ = l.Close()
		return
	case <-req.Context().Done():
		_ = l.Close()
		return
	}

	select {
	case <-l.closed:
	case <-that.closed:
		_ = l.Close()
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

func (that *endpoint) Dial(ctx context.Context, remote entity.Connection) (transport.Link, error) {
	url := "ws://" + net.JoinHostPort(remote.Host, strconv.Itoa(remote.Port)) + Path

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, transport.LinkError("dial "+remote.String(), err)
	}

	conn.SetReadLimit(maxMessageSize)

	return newLink(that.logger, conn, remote, that.sendTimeout), nil
}

func (that *endpoint) Port() int {
	return that.listener.Addr().(*net.TCPAddr).Port
}

func (that *endpoint) Close() error {
	var err error

	that.closeOnce.Do(func() {
		close(that.closed)
		err = that.server.Close()
	})

	if err != nil {
		return fmt.Errorf("failed to close websocket server: %w", err)
	}

	return nil
}

func remoteOf(address string) entity.Connection {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return entity.Connection{Host: address}
	}

	number, err := strconv.Atoi(port)
	if err != nil {
		return entity.Connection{Host: host}
	}

	return entity.Connection{Host: host, Port: number}
}
