package stream

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
	"github.com/rocketscienceinc/surakarta/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

func newTestEndpoint(t *testing.T) transport.Endpoint {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	endpoint, err := New(logger, time.Second).Listen(context.Background(), 0)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = endpoint.Close()
	})

	return endpoint
}

// connectPair dials server from client and returns both ends.
func connectPair(t *testing.T, server, client transport.Endpoint) (transport.Link, transport.Link) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	accepted := make(chan transport.Link, 1)
	go func() {
		link, err := server.Accept(ctx)
		if err == nil {
			accepted <- link
		}
	}()

	dialed, err := client.Dial(ctx, entity.Connection{Host: "127.0.0.1", Port: server.Port()})
	require.NoError(t, err)

	select {
	case link := <-accepted:
		t.Cleanup(func() {
			_ = link.Close()
			_ = dialed.Close()
		})
		return link, dialed
	case <-ctx.Done():
		t.Fatal("accept timed out")
		return nil, nil
	}
}

func serveInto(link transport.Link) (<-chan protocol.Message, <-chan error) {
	messages := make(chan protocol.Message, 16)
	done := make(chan error, 1)

	go func() {
		done <- link.Serve(context.Background(), func(msg protocol.Message) {
			messages <- msg
		})
	}()

	return messages, done
}

func receive(t *testing.T, messages <-chan protocol.Message) protocol.Message {
	t.Helper()

	select {
	case msg := <-messages:
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("no message received")
		return nil
	}
}

func TestStream_Exchange(t *testing.T) {
	// Given: two endpoints linked over loopback
	accepted, dialed := connectPair(t, newTestEndpoint(t), newTestEndpoint(t))

	acceptedInbox, _ := serveInto(accepted)
	dialedInbox, _ := serveInto(dialed)

	ctx := context.Background()

	// When: each side sends messages
	require.NoError(t, dialed.Send(ctx, protocol.SelectedCell{Cell: 0}))
	require.NoError(t, dialed.Send(ctx, protocol.ChangeBoard{Board: entity.StartingLayout()}))
	require.NoError(t, accepted.Send(ctx, protocol.Text{Content: "bom jogo\nboa sorte"}))

	// Then: they arrive in order on the other side
	assert.Equal(t, protocol.SelectedCell{Cell: 0}, receive(t, acceptedInbox))
	assert.Equal(t, protocol.ChangeBoard{Board: entity.StartingLayout()}, receive(t, acceptedInbox))
	assert.Equal(t, protocol.Text{Content: "bom jogo\nboa sorte"}, receive(t, dialedInbox))

	// Then: the dialed link reports the address it dialed
	assert.Equal(t, "127.0.0.1", dialed.Remote().Host)
	assert.Equal(t, "127.0.0.1", accepted.Remote().Host)
}

func TestStream_SkipsMalformedRecords(t *testing.T) {
	// Given: a listening endpoint and a raw TCP client
	server := newTestEndpoint(t)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	accepted := make(chan transport.Link, 1)
	go func() {
		link, err := server.Accept(ctx)
		if err == nil {
			accepted <- link
		}
	}()

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(server.Port())))
	require.NoError(t, err)
	defer conn.Close()

	link := <-accepted
	defer link.Close()

	inbox, _ := serveInto(link)

	// When: garbage is followed by a valid record
	_, err = conn.Write([]byte("garbage\n{\"kind\":\"NOPE\"}\n\n{\"kind\":\"CHANGE_TURN\"}\n"))
	require.NoError(t, err)

	// Then: only the valid record is delivered
	assert.Equal(t, protocol.ChangeTurn{}, receive(t, inbox))
}

func TestStream_Close(t *testing.T) {
	t.Run("Peer close ends the feed on both sides", func(t *testing.T) {
		// Given: a linked pair with both feeds running
		accepted, dialed := connectPair(t, newTestEndpoint(t), newTestEndpoint(t))

		_, acceptedDone := serveInto(accepted)
		_, dialedDone := serveInto(dialed)

		// When: the dialer closes its link
		require.NoError(t, dialed.Close())

		// Then: both feeds stop without error
		for _, done := range []<-chan error{acceptedDone, dialedDone} {
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(waitTimeout):
				t.Fatal("feed did not stop")
			}
		}
	})

	t.Run("Close is idempotent and send fails afterwards", func(t *testing.T) {
		_, dialed := connectPair(t, newTestEndpoint(t), newTestEndpoint(t))

		require.NoError(t, dialed.Close())
		require.NoError(t, dialed.Close())

		err := dialed.Send(context.Background(), protocol.ChangeTurn{})
		assert.ErrorIs(t, err, apperror.ErrLink)
	})
}

func TestStream_DialUnreachable(t *testing.T) {
	// Given: a port nobody listens on
	endpoint := newTestEndpoint(t)
	probe := newTestEndpoint(t)
	port := probe.Port()
	require.NoError(t, probe.Close())

	// When: dialing it
	_, err := endpoint.Dial(context.Background(), entity.Connection{Host: "127.0.0.1", Port: port})

	// Then: a link error is returned
	assert.ErrorIs(t, err, apperror.ErrLink)
}

func TestStream_AcceptStopsOnCancel(t *testing.T) {
	endpoint := newTestEndpoint(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := endpoint.Accept(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
