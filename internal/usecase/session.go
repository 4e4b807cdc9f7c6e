package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/transport"
)

const (
	inboxSize        = 64
	acceptRetryDelay = 500 * time.Millisecond

	DefaultOutboxSize     = 32
	DefaultJournalTimeout = 3 * time.Second
)

var ErrSessionStopped = errors.New("game session is not running")

type Options struct {
	// OutboxSize bounds the messages queued for the peer before the link is dropped.
	OutboxSize     int
	JournalTimeout time.Duration
}

// GameSession owns the state of one peer. Every mutation, whether it comes
// from a local command or from the linked peer, is applied by the goroutine
// running Run.
type GameSession struct {
	logger         *slog.Logger
	endpoint       transport.Endpoint
	matches        matchRecorder
	outboxSize     int
	journalTimeout time.Duration

	inbox chan event
	done  chan struct{}

	// owned by Run
	state       entity.SessionState
	localSide   entity.Side
	opponent    *entity.Connection
	turn        entity.Side
	selection   int
	board       entity.Board
	winner      entity.Side
	cursor      entity.Cursor
	chat        []entity.ChatEntry
	peer        *peer
	pendingDial chan error
	startedAt   time.Time

	subscribersMutex sync.Mutex
	subscribers      map[int]chan entity.Snapshot
	nextSubscriber   int
	latest           entity.Snapshot
	stopped          bool
}

// NewGameSession builds a session on top of an already listening endpoint.
// A nil matches disables the match journal.
func NewGameSession(logger *slog.Logger, endpoint transport.Endpoint, matches matchRecorder, options Options) *GameSession {
	if matches == nil {
		matches = discardMatches{}
	}

	if options.OutboxSize <= 0 {
		options.OutboxSize = DefaultOutboxSize
	}

	if options.JournalTimeout <= 0 {
		options.JournalTimeout = DefaultJournalTimeout
	}

	that := &GameSession{
		logger:         logger.With("component", "session"),
		endpoint:       endpoint,
		matches:        matches,
		outboxSize:     options.OutboxSize,
		journalTimeout: options.JournalTimeout,

		inbox: make(chan event, inboxSize),
		done:  make(chan struct{}),

		state:     entity.StateIdle,
		turn:      entity.SideFirst,
		selection: entity.NoSelection,
		board:     entity.StartingLayout(),

		subscribers: make(map[int]chan entity.Snapshot),
	}

	that.latest = that.snapshot()

	return that
}

// Run accepts peers and applies events until ctx is cancelled.
func (that *GameSession) Run(ctx context.Context) error {
	defer close(that.done)
	defer that.closeSubscribers()

	log := that.logger.With("method", "Run")
	log.Info("accepting connections", "port", that.endpoint.Port())

	go that.acceptLoop(ctx)

	that.appendChat(entity.ChatAcceptingConnections(that.endpoint.Port()))
	that.publish()

	for {
		select {
		case ev := <-that.inbox:
			that.handle(ctx, ev)
			that.publish()
		case <-ctx.Done():
			that.stopPeer()
			respond(that.pendingDial, ctx.Err())
			that.pendingDial = nil

			log.Info("session stopped")
			return nil
		}
	}
}

func (that *GameSession) SelectCell(ctx context.Context, cell int) error {
	reply := make(chan error, 1)
	return that.ask(ctx, selectCell{cell: cell, reply: reply}, reply)
}

func (that *GameSession) FinishTurn(ctx context.Context) error {
	reply := make(chan error, 1)
	return that.ask(ctx, finishTurn{reply: reply}, reply)
}

// Surrender concedes the running game, or asks for a rematch once a winner is set.
func (that *GameSession) Surrender(ctx context.Context) error {
	reply := make(chan error, 1)
	return that.ask(ctx, surrender{reply: reply}, reply)
}

func (that *GameSession) SendMessage(ctx context.Context, text string) error {
	reply := make(chan error, 1)
	return that.ask(ctx, sendText{text: text, reply: reply}, reply)
}

func (that *GameSession) MoveCursor(ctx context.Context, x, y float64) error {
	reply := make(chan error, 1)
	return that.ask(ctx, moveCursor{x: x, y: y, reply: reply}, reply)
}

// ConnectToAdversary dials remote and returns once the link is established or the dial failed.
func (that *GameSession) ConnectToAdversary(ctx context.Context, remote entity.Connection) error {
	reply := make(chan error, 1)
	return that.ask(ctx, connectTo{remote: remote, reply: reply}, reply)
}

func (that *GameSession) Snapshot(ctx context.Context) (entity.Snapshot, error) {
	reply := make(chan entity.Snapshot, 1)

	if err := that.enqueue(ctx, getSnapshot{reply: reply}); err != nil {
		return entity.Snapshot{}, err
	}

	select {
	case snapshot := <-reply:
		return snapshot, nil
	case <-ctx.Done():
		return entity.Snapshot{}, ctx.Err()
	case <-that.done:
		return entity.Snapshot{}, ErrSessionStopped
	}
}

// Subscribe returns a channel holding the latest snapshot, refreshed after
// every change. Slow readers only miss intermediate snapshots. The channel
// is closed once Run returns.
func (that *GameSession) Subscribe() (<-chan entity.Snapshot, func()) {
	that.subscribersMutex.Lock()
	defer that.subscribersMutex.Unlock()

	updates := make(chan entity.Snapshot, 1)
	updates <- that.latest

	if that.stopped {
		close(updates)
		return updates, func() {}
	}

	id := that.nextSubscriber
	that.nextSubscriber++
	that.subscribers[id] = updates

	return updates, func() {
		that.subscribersMutex.Lock()
		defer that.subscribersMutex.Unlock()

		if _, ok := that.subscribers[id]; ok {
			delete(that.subscribers, id)
			close(updates)
		}
	}
}

func (that *GameSession) ask(ctx context.Context, ev event, reply <-chan error) error {
	if err := that.enqueue(ctx, ev); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-that.done:
		return ErrSessionStopped
	}
}

func (that *GameSession) enqueue(ctx context.Context, ev event) error {
	select {
	case that.inbox <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-that.done:
		return ErrSessionStopped
	}
}

// post hands ev to the actor from a link or dial goroutine. It reports false once the session stopped.
func (that *GameSession) post(ev event) bool {
	select {
	case that.inbox <- ev:
		return true
	case <-that.done:
		return false
	}
}

func (that *GameSession) acceptLoop(ctx context.Context) {
	log := that.logger.With("method", "acceptLoop")

	for {
		link, err := that.endpoint.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrEndpointClosed) {
				return
			}

			log.Error("failed to accept peer", "error", err)

			select {
			case <-time.After(acceptRetryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		if !that.post(accepted{link: link}) {
			_ = link.Close()
			return
		}
	}
}

func (that *GameSession) dial(ctx context.Context, remote entity.Connection) {
	link, err := that.endpoint.Dial(ctx, remote)

	if !that.post(dialed{remote: remote, link: link, err: err}) && link != nil {
		_ = link.Close()
	}
}

func (that *GameSession) snapshot() entity.Snapshot {
	snapshot := entity.Snapshot{
		State:      that.state,
		ListenPort: that.endpoint.Port(),
		LocalSide:  that.localSide,
		Turn:       that.turn,
		Selection:  that.selection,
		Board:      that.board,
		Winner:     that.winner,
		Cursor:     that.cursor,
		Chat:       slices.Clone(that.chat),
	}

	if that.opponent != nil {
		opponent := *that.opponent
		snapshot.Opponent = &opponent
	}

	return snapshot
}

func (that *GameSession) publish() {
	snapshot := that.snapshot()

	that.subscribersMutex.Lock()
	defer that.subscribersMutex.Unlock()

	that.latest = snapshot

	for _, updates := range that.subscribers {
		// only publish sends, so after draining the slot the send cannot block
		select {
		case <-updates:
		default:
		}

		updates <- snapshot
	}
}

func (that *GameSession) closeSubscribers() {
	that.subscribersMutex.Lock()
	defer that.subscribersMutex.Unlock()

	that.stopped = true

	for id, updates := range that.subscribers {
		delete(that.subscribers, id)
		close(updates)
	}
}

func (that *GameSession) appendChat(entry entity.ChatEntry) {
	that.chat = append(that.chat, entry)
}

func respond(reply chan error, err error) {
	if reply != nil {
		reply <- err
	}
}
