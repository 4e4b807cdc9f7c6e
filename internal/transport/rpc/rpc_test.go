package rpc

import (
	"context"
	"io"
	"log/slog"
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

	endpoint, err := New(logger, "127.0.0.1", time.Second).Listen(context.Background(), 0)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = endpoint.Close()
	})

	return endpoint
}

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

func TestRPC_Exchange(t *testing.T) {
	// Given: two endpoints linked through the player service
	accepted, dialed := connectPair(t, newTestEndpoint(t), newTestEndpoint(t))

	acceptedInbox, _ := serveInto(accepted)
	dialedInbox, _ := serveInto(dialed)

	ctx := context.Background()

	board := entity.StartingLayout().Remove(0)

	// When: every kind of message is sent
	require.NoError(t, dialed.Send(ctx, protocol.Text{Content: "olá"}))
	require.NoError(t, dialed.Send(ctx, protocol.MoveMouse{X: 0.25, Y: 0.75}))
	require.NoError(t, dialed.Send(ctx, protocol.ChangeBoard{Board: board}))
	require.NoError(t, dialed.Send(ctx, protocol.SelectedCell{Cell: entity.NoSelection}))
	require.NoError(t, dialed.Send(ctx, protocol.ChangeTurn{}))
	require.NoError(t, accepted.Send(ctx, protocol.Surrender{}))
	require.NoError(t, accepted.Send(ctx, protocol.FinishGame{}))

	// Then: they arrive in order
	assert.Equal(t, protocol.Text{Content: "olá"}, receive(t, acceptedInbox))
	assert.Equal(t, protocol.MoveMouse{X: 0.25, Y: 0.75}, receive(t, acceptedInbox))
	assert.Equal(t, protocol.ChangeBoard{Board: board}, receive(t, acceptedInbox))
	assert.Equal(t, protocol.SelectedCell{Cell: entity.NoSelection}, receive(t, acceptedInbox))
	assert.Equal(t, protocol.ChangeTurn{}, receive(t, acceptedInbox))
	assert.Equal(t, protocol.Surrender{}, receive(t, dialedInbox))
	assert.Equal(t, protocol.FinishGame{}, receive(t, dialedInbox))

	require.NoError(t, dialed.Close())
}

func TestRPC_EmptyBoard(t *testing.T) {
	accepted, dialed := connectPair(t, newTestEndpoint(t), newTestEndpoint(t))
	inbox, _ := serveInto(accepted)

	require.NoError(t, dialed.Send(context.Background(), protocol.ChangeBoard{}))

	assert.Equal(t, protocol.ChangeBoard{}, receive(t, inbox))

	require.NoError(t, dialed.Close())
}

func TestRPC_PeerCloseEndsFeeds(t *testing.T) {
	// Given: a linked pair with both feeds running
	accepted, dialed := connectPair(t, newTestEndpoint(t), newTestEndpoint(t))

	_, acceptedDone := serveInto(accepted)
	_, dialedDone := serveInto(dialed)

	// When: the dialer closes its link
	require.NoError(t, dialed.Close())

	// Then: both feeds stop
	for _, done := range []<-chan error{acceptedDone, dialedDone} {
		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Fatal("feed did not stop")
		}
	}

	// Then: sending on the closed link fails
	err := dialed.Send(context.Background(), protocol.ChangeTurn{})
	assert.ErrorIs(t, err, apperror.ErrLink)
}

func TestRPC_SecondDialIsRefused(t *testing.T) {
	// Given: an endpoint already linked to a peer
	server := newTestEndpoint(t)
	_, dialed := connectPair(t, server, newTestEndpoint(t))

	defer dialed.Close()

	// When: a third endpoint dials it
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	_, err := newTestEndpoint(t).Dial(ctx, entity.Connection{Host: "127.0.0.1", Port: server.Port()})

	// Then: the dial is refused
	assert.ErrorIs(t, err, apperror.ErrAlreadyConnected)
}

func TestRPC_DialUnreachable(t *testing.T) {
	endpoint := newTestEndpoint(t)
	probe := newTestEndpoint(t)
	port := probe.Port()
	require.NoError(t, probe.Close())

	_, err := endpoint.Dial(context.Background(), entity.Connection{Host: "127.0.0.1", Port: port})

	assert.ErrorIs(t, err, apperror.ErrLink)
}

func TestRPC_AcceptAfterClose(t *testing.T) {
	endpoint := newTestEndpoint(t)
	require.NoError(t, endpoint.Close())

	_, err := endpoint.Accept(context.Background())

	assert.ErrorIs(t, err, transport.ErrEndpointClosed)
}

func TestRPC_StaleLinkCallsAreRefused(t *testing.T) {
	// Given: an endpoint with a live link
	server := newTestEndpoint(t)
	accepted, dialed := connectPair(t, server, newTestEndpoint(t))

	defer dialed.Close()
	defer accepted.Close()

	ep, ok := server.(*endpoint)
	require.True(t, ok)

	// When: a call arrives tagged with another link id
	err := ep.deliver("someone-else", protocol.ChangeTurn{})

	// Then: it is refused
	assert.ErrorIs(t, err, ErrUnknownLink)
}
