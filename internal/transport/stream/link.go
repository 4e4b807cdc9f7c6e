package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/protocol"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

const (
	initialBufferSize = 64 * 1024
	maxRecordSize     = 1024 * 1024
)

var ErrLinkClosed = errors.New("link closed")

type link struct {
	logger      *slog.Logger
	conn        net.Conn
	remote      entity.Connection
	sendTimeout time.Duration

	writeMutex sync.Mutex
	closeOnce  sync.Once
	closed     chan struct{}
}

func newLink(logger *slog.Logger, conn net.Conn, remote entity.Connection, sendTimeout time.Duration) *link {
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

	data = append(data, '\n')

	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	deadline := time.Now().Add(that.sendTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err = that.conn.SetWriteDeadline(deadline); err != nil {
		return transport.LinkError("send", err)
	}

	if _, err = that.conn.Write(data); err != nil {
		return transport.LinkError("send", err)
	}

	return nil
}

func (that *link) Serve(ctx context.Context, handle func(protocol.Message)) error {
	log := that.logger.With("method", "Serve")

	stop := context.AfterFunc(ctx, func() {
		_ = that.Close()
	})
	defer stop()

	scanner := bufio.NewScanner(that.conn)
	scanner.Buffer(make([]byte, 0, initialBufferSize), maxRecordSize)

	for scanner.Scan() {
		record := bytes.TrimSpace(scanner.Bytes())
		if len(record) == 0 {
			continue
		}

		transport.Dispatch(log, record, handle)
	}

	if that.isClosed() {
		return nil
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, io.EOF) {
		log.Info("peer closed the link")
		return nil
	}

	return transport.LinkError("receive", err)
}

func (that *link) Remote() entity.Connection {
	return that.remote
}

func (that *link) Close() error {
	var err error

	that.closeOnce.Do(func() {
		close(that.closed)
		err = that.conn.Close()
	})

	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
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
