package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bnema/peer-chess/internal/codec"
	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	"github.com/samber/lo"
)

type SessionState int

const (
	StateIdle SessionState = iota
	StateNegotiating
	StatePlaying
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Session tracks the single opponent and the board shared with it. It is not
// safe for concurrent use: every call must happen on one timeline, which
// Dispatcher.Run provides.
type Session struct {
	log       *slog.Logger
	transport ports.Transport
	boards    ports.BoardFactory
	notifier  *Notifier

	opponent domain.Identity
	board    ports.Board
}

func NewSession(log *slog.Logger, transport ports.Transport, boards ports.BoardFactory, notifier *Notifier) *Session {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if notifier == nil {
		notifier = NewNotifier()
	}

	return &Session{
		log:       log,
		transport: transport,
		boards:    boards,
		notifier:  notifier,
	}
}

func (s *Session) Notifier() *Notifier {
	return s.notifier
}

func (s *Session) State() SessionState {
	switch {
	case s.board != nil:
		return StatePlaying
	case s.opponent != "":
		return StateNegotiating
	default:
		return StateIdle
	}
}

func (s *Session) IsPlaying() bool {
	return s.board != nil
}

func (s *Session) Opponent() (domain.Identity, bool) {
	return s.opponent, s.opponent != ""
}

func (s *Session) CurrentStateText() (string, error) {
	if s.board == nil {
		return "", domain.ErrNotPlaying
	}

	return s.board.Text(), nil
}

// InitiateGame starts a handshake with identity. The NEW_GAME message is only
// sent once the transport reports the intent negotiation succeeded.
func (s *Session) InitiateGame(ctx context.Context, identity domain.Identity) error {
	if identity == "" {
		return fmt.Errorf("initiate game: identity is required")
	}
	if s.board != nil || (s.opponent != "" && s.opponent != identity) {
		return fmt.Errorf("initiate game with %s: %w", identity, domain.ErrOpponentPending)
	}

	s.opponent = identity
	if err := s.transport.NegotiateIntent(ctx, identity, domain.SessionIntent); err != nil {
		s.log.Debug("intent negotiation not started", "peer", identity, "error", err)
		s.opponent = ""
	}

	return nil
}

// HandleIntentNegotiated completes InitiateGame once the transport answered.
func (s *Session) HandleIntentNegotiated(ctx context.Context, identity domain.Identity, negotiationErr error) error {
	if identity != s.opponent {
		return fmt.Errorf("%w: negotiation outcome for %s while tracking %q", domain.ErrProtocolMismatch, identity, s.opponent)
	}
	if s.board != nil {
		// The peer's NEW_GAME already completed the handshake.
		return nil
	}
	if negotiationErr != nil {
		s.opponent = ""
		return fmt.Errorf("negotiate with %s: %w: %w", identity, domain.ErrTransportUnavailable, negotiationErr)
	}

	s.send(ctx, identity, domain.MessageNewGame, nil)
	return nil
}

// HandlePeerConnected records a peer advertising the session intent as the
// provisional opponent.
func (s *Session) HandlePeerConnected(_ context.Context, identity domain.Identity, intents []domain.Intent) error {
	if !lo.Contains(intents, domain.SessionIntent) {
		return fmt.Errorf("%w: %s does not advertise the session intent", domain.ErrProtocolMismatch, identity)
	}
	if s.board != nil {
		return fmt.Errorf("%w: already playing with %s", domain.ErrProtocolMismatch, s.opponent)
	}
	if s.opponent != "" && s.opponent != identity {
		return fmt.Errorf("%w: handshake with %s pending", domain.ErrProtocolMismatch, s.opponent)
	}

	s.opponent = identity
	return nil
}

func (s *Session) HandleNewGame(ctx context.Context, from domain.Identity) error {
	switch s.opponent {
	case "":
		s.opponent = from
	case from:
	default:
		return fmt.Errorf("%w: new game from %s while tracking %s", domain.ErrProtocolMismatch, from, s.opponent)
	}

	s.startBoard()
	s.updateIntent(ctx, from, domain.IntentInProgress)
	s.send(ctx, from, domain.MessageAck, nil)
	return nil
}

// HandleAck reconciles the local board with the state the opponent computed.
// The first ACK without a board completes the initiator's handshake.
func (s *Session) HandleAck(_ context.Context, from domain.Identity, payload []byte) error {
	if from == "" || from != s.opponent {
		return fmt.Errorf("%w: ack from %s while tracking %q", domain.ErrProtocolMismatch, from, s.opponent)
	}
	if s.board == nil {
		s.startBoard()
		return nil
	}
	if len(payload) == 0 {
		return nil
	}

	remote := string(payload)
	if remote == s.board.Text() {
		return nil
	}

	if err := s.board.Undo(); err != nil {
		return fmt.Errorf("roll back diverged move: %w", err)
	}
	s.log.Info("local move rolled back", "peer", from, "remote", remote, "local", s.board.Text())
	s.notifier.publishBoardChanged(s.board.Text())
	return nil
}

func (s *Session) HandleMove(ctx context.Context, from domain.Identity, payload []byte) error {
	if s.board == nil || from != s.opponent {
		return fmt.Errorf("%w: move from %s while tracking %q", domain.ErrProtocolMismatch, from, s.opponent)
	}

	move, err := codec.DecodeMove(payload)
	if err != nil {
		return fmt.Errorf("decode move from %s: %w", from, err)
	}

	if err := s.board.Apply(move); err != nil {
		// Illegal inbound moves are dropped without a reply.
		return fmt.Errorf("apply move from %s: %w", from, err)
	}

	state := s.board.Text()
	s.notifier.publishBoardChanged(state)
	s.send(ctx, from, domain.MessageAck, []byte(state))
	return nil
}

func (s *Session) HandlePeerDisconnected(ctx context.Context, identity domain.Identity) error {
	if identity == "" || identity != s.opponent {
		return fmt.Errorf("%w: %s disconnected while tracking %q", domain.ErrProtocolMismatch, identity, s.opponent)
	}

	s.Reset(ctx)
	return nil
}

func (s *Session) HandleContactsChanged(_ context.Context, available []domain.Contact) {
	s.notifier.publishAvailableContactsChanged(available)
}

// SubmitMove applies move locally and sends it to the opponent without
// waiting for the acknowledgment.
func (s *Session) SubmitMove(ctx context.Context, move domain.Move) bool {
	if s.board == nil || s.opponent == "" {
		return false
	}

	payload, err := codec.EncodeMove(move)
	if err != nil {
		s.log.Debug("move not encodable", "move", move, "error", err)
		return false
	}

	if err := s.board.Apply(move); err != nil {
		s.log.Debug("move rejected", "move", move, "error", err)
		return false
	}

	s.send(ctx, s.opponent, domain.MessageMove, payload)
	s.notifier.publishBoardChanged(s.board.Text())
	return true
}

// Reset discards the board and forgets the opponent.
func (s *Session) Reset(ctx context.Context) {
	s.board = nil
	if s.opponent != "" {
		s.updateIntent(ctx, s.opponent, domain.IntentCompleted)
		s.opponent = ""
	}

	s.notifier.publishPlayingStatusChanged(false)
}

func (s *Session) startBoard() {
	previous := s.board
	s.board = s.boards.NewBoard()

	if previous == nil {
		s.log.Info("game started", "opponent", s.opponent)
		s.notifier.publishPlayingStatusChanged(true)
		return
	}

	s.log.Info("game restarted by opponent", "opponent", s.opponent)
	if previous.Text() != s.board.Text() {
		s.notifier.publishBoardChanged(s.board.Text())
	}
}

func (s *Session) send(ctx context.Context, to domain.Identity, kind domain.MessageKind, payload []byte) {
	if err := s.transport.SendTo(ctx, to, kind, payload); err != nil {
		s.log.Warn("send failed", "peer", to, "kind", kind, "error", err)
	}
}

func (s *Session) updateIntent(ctx context.Context, peer domain.Identity, status domain.IntentStatus) {
	if err := s.transport.UpdateIntentStatus(ctx, peer, domain.SessionIntent, status); err != nil {
		s.log.Warn("intent status update failed", "peer", peer, "status", status, "error", err)
	}
}
