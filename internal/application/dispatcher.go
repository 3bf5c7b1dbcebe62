package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	"github.com/samber/lo"
)

var ErrTransportClosed = errors.New("transport event stream closed")

type command struct {
	fn   func(ctx context.Context, session *Session)
	done chan struct{}
}

// Dispatcher is the single entry point for everything the transport delivers.
// Run serializes inbound events and caller commands onto one goroutine, so the
// Session never sees two handlers at once.
type Dispatcher struct {
	log       *slog.Logger
	session   *Session
	transport ports.Transport
	commands  chan command
}

func NewDispatcher(log *slog.Logger, session *Session, transport ports.Transport) *Dispatcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Dispatcher{
		log:       log,
		session:   session,
		transport: transport,
		commands:  make(chan command),
	}
}

// Dispatch routes one inbound event. Protocol anomalies are logged and
// absorbed here.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) {
	var err error

	switch event.Kind {
	case domain.EventPeerConnected:
		err = d.session.HandlePeerConnected(ctx, event.Peer, event.Intents)
	case domain.EventPeerDisconnected:
		err = d.session.HandlePeerDisconnected(ctx, event.Peer)
	case domain.EventContactsChanged:
		available := lo.Filter(event.Contacts, func(contact domain.Contact, _ int) bool {
			return contact.IsAvailable
		})
		d.session.HandleContactsChanged(ctx, available)
	case domain.EventIntentNegotiated:
		if !lo.Contains(event.Intents, domain.SessionIntent) {
			err = fmt.Errorf("%w: negotiation for foreign intents %v", domain.ErrProtocolMismatch, event.Intents)
			break
		}
		err = d.session.HandleIntentNegotiated(ctx, event.Peer, event.Err)
	case domain.EventMessage:
		err = d.dispatchMessage(ctx, event.Peer, event.Message)
	default:
		err = fmt.Errorf("%w: unknown event %s", domain.ErrProtocolMismatch, event.Kind)
	}

	if err != nil {
		d.log.Debug("inbound event absorbed", "event", event.Kind, "peer", event.Peer, "error", err)
	}
}

func (d *Dispatcher) dispatchMessage(ctx context.Context, from domain.Identity, message domain.Message) error {
	switch message.Kind {
	case domain.MessageNewGame:
		return d.session.HandleNewGame(ctx, from)
	case domain.MessageMove:
		return d.session.HandleMove(ctx, from, message.Payload)
	case domain.MessageAck:
		return d.session.HandleAck(ctx, from, message.Payload)
	case domain.MessageSetGameStatus:
		return fmt.Errorf("%w: %s is reserved", domain.ErrProtocolMismatch, message.Kind)
	default:
		return fmt.Errorf("%w: unknown message %s", domain.ErrProtocolMismatch, message.Kind)
	}
}

// Run consumes transport events and queued commands until ctx is done or the
// transport closes its event stream.
func (d *Dispatcher) Run(ctx context.Context) error {
	events := d.transport.Events()

	for {
		select {
		case <-ctx.Done():
			d.log.Debug("context done, dispatcher stopping")
			return nil
		case event, ok := <-events:
			if !ok {
				return ErrTransportClosed
			}
			d.Dispatch(ctx, event)
		case cmd := <-d.commands:
			cmd.fn(ctx, d.session)
			close(cmd.done)
		}
	}
}

// Do runs fn on the dispatcher goroutine and waits for it to return. It must
// not be called from a notification handler.
func (d *Dispatcher) Do(ctx context.Context, fn func(ctx context.Context, session *Session)) error {
	cmd := command{fn: fn, done: make(chan struct{})}

	select {
	case d.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) InitiateGame(ctx context.Context, identity domain.Identity) error {
	var err error
	if doErr := d.Do(ctx, func(ctx context.Context, session *Session) {
		err = session.InitiateGame(ctx, identity)
	}); doErr != nil {
		return doErr
	}

	return err
}

func (d *Dispatcher) SubmitMove(ctx context.Context, move domain.Move) (bool, error) {
	var ok bool
	err := d.Do(ctx, func(ctx context.Context, session *Session) {
		ok = session.SubmitMove(ctx, move)
	})

	return ok, err
}

func (d *Dispatcher) Reset(ctx context.Context) error {
	return d.Do(ctx, func(ctx context.Context, session *Session) {
		session.Reset(ctx)
	})
}

// Snapshot reads the session state, opponent and board text in one step.
func (d *Dispatcher) Snapshot(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot
	err := d.Do(ctx, func(_ context.Context, session *Session) {
		snapshot.State = session.State()
		snapshot.Opponent, _ = session.Opponent()
		snapshot.Board, _ = session.CurrentStateText()
	})

	return snapshot, err
}

type Snapshot struct {
	State    SessionState
	Opponent domain.Identity
	Board    string
}
