package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
	"github.com/rocketscienceinc/surakarta/internal/transport"
	"github.com/stretchr/testify/mock"
)

var (
	errBrokenPipe = errors.New("broken pipe")
	errRefused    = errors.New("connection refused")
	errClosed     = errors.New("closed")
)

// memLink is one end of an in-memory link. Messages sent on one end land in
// the inbox of the other.
type memLink struct {
	remote entity.Connection
	inbox  chan protocol.Message
	other  *memLink

	closed    chan struct{}
	closeOnce sync.Once

	failSends atomic.Bool
	gate      chan struct{}
}

func pipe(left, right entity.Connection) (*memLink, *memLink) {
	a := &memLink{remote: right, inbox: make(chan protocol.Message, 64), closed: make(chan struct{})}
	b := &memLink{remote: left, inbox: make(chan protocol.Message, 64), closed: make(chan struct{})}

	a.other, b.other = b, a

	return a, b
}

func (that *memLink) Send(ctx context.Context, msg protocol.Message) error {
	if that.failSends.Load() {
		return transport.LinkError("send", errBrokenPipe)
	}

	if that.gate != nil {
		select {
		case <-that.gate:
		case <-ctx.Done():
			return transport.LinkError("send", ctx.Err())
		}
	}

	select {
	case <-that.closed:
		return transport.LinkError("send", errClosed)
	case <-that.other.closed:
		return transport.LinkError("send", errClosed)
	default:
	}

	select {
	case that.other.inbox <- msg:
		return nil
	case <-ctx.Done():
		return transport.LinkError("send", ctx.Err())
	}
}

func (that *memLink) Serve(ctx context.Context, handle func(protocol.Message)) error {
	for {
		select {
		case msg := <-that.inbox:
			handle(msg)
		case <-that.closed:
			return nil
		case <-that.other.closed:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (that *memLink) Remote() entity.Connection {
	return that.remote
}

func (that *memLink) Close() error {
	that.closeOnce.Do(func() {
		close(that.closed)
	})

	return nil
}

func (that *memLink) isClosed() bool {
	select {
	case <-that.closed:
		return true
	default:
		return false
	}
}

type fakeEndpoint struct {
	port     int
	accepted chan transport.Link
	dial     func(ctx context.Context, remote entity.Connection) (transport.Link, error)
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		port:     9001,
		accepted: make(chan transport.Link),
	}
}

func (that *fakeEndpoint) Accept(ctx context.Context) (transport.Link, error) {
	select {
	case link := <-that.accepted:
		return link, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (that *fakeEndpoint) Dial(ctx context.Context, remote entity.Connection) (transport.Link, error) {
	if that.dial == nil {
		return nil, transport.LinkError("dial "+remote.String(), errRefused)
	}

	return that.dial(ctx, remote)
}

func (that *fakeEndpoint) Port() int {
	return that.port
}

func (that *fakeEndpoint) Close() error {
	return nil
}

type mockMatchRecorder struct {
	mock.Mock
}

func (that *mockMatchRecorder) CreateOrUpdate(ctx context.Context, match *entity.Match) error {
	args := that.Called(ctx, match)
	return args.Error(0)
}

// expectMatches makes the recorder accept any match and hands each one to the returned channel.
func expectMatches(recorder *mockMatchRecorder) <-chan *entity.Match {
	matches := make(chan *entity.Match, 8)

	recorder.On("CreateOrUpdate", mock.Anything, mock.AnythingOfType("*entity.Match")).
		Run(func(args mock.Arguments) {
			matches <- args.Get(1).(*entity.Match)
		}).
		Return(nil)

	return matches
}
