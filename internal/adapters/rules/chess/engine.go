// Package chess adapts github.com/corentings/chess/v2 to the ports.Board
// contract. Rule violations come back as domain.ErrIllegalMove and never
// escape as panics.
package chess

import (
	"fmt"
	"strings"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	nchess "github.com/corentings/chess/v2"
)

type Engine struct {
	startFEN string
}

var _ ports.BoardFactory = Engine{}

func NewEngine() Engine {
	return Engine{}
}

// NewEngineFromFEN builds boards starting at fen instead of the standard
// starting position.
func NewEngineFromFEN(fen string) (Engine, error) {
	if _, err := nchess.FEN(fen); err != nil {
		return Engine{}, fmt.Errorf("parse fen: %w", err)
	}

	return Engine{startFEN: fen}, nil
}

func (e Engine) NewBoard() ports.Board {
	return &Board{startFEN: e.startFEN, game: newGame(e.startFEN)}
}

type Board struct {
	startFEN string
	game     *nchess.Game
	history  []string
}

var _ ports.Board = (*Board)(nil)

func (b *Board) Apply(move domain.Move) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", domain.ErrIllegalMove, move, r)
		}
	}()

	for _, uci := range candidates(move) {
		if push(b.game, uci) == nil {
			b.history = append(b.history, uci)
			return nil
		}
	}

	return fmt.Errorf("%w: %s in %s", domain.ErrIllegalMove, move, b.game.FEN())
}

func (b *Board) Text() string {
	return b.game.FEN()
}

// Undo takes back the last applied move by replaying the history before it.
func (b *Board) Undo() error {
	if len(b.history) == 0 {
		return fmt.Errorf("undo: no move to take back")
	}

	history := b.history[:len(b.history)-1]
	game := newGame(b.startFEN)
	for _, uci := range history {
		if err := push(game, uci); err != nil {
			return fmt.Errorf("replay %s: %w", uci, err)
		}
	}

	b.game = game
	b.history = append([]string(nil), history...)
	return nil
}

// Moves returns the applied moves in UCI notation.
func (b *Board) Moves() []string {
	return append([]string(nil), b.history...)
}

func newGame(fen string) *nchess.Game {
	if strings.TrimSpace(fen) == "" {
		return nchess.NewGame()
	}

	option, err := nchess.FEN(fen)
	if err != nil {
		return nchess.NewGame()
	}
	return nchess.NewGame(option)
}

func push(game *nchess.Game, uci string) error {
	mv, err := nchess.UCINotation{}.Decode(game.Position(), uci)
	if err != nil {
		return err
	}

	return game.Move(mv, nil)
}

// candidates lists the UCI strings to try for move. The promotion field is
// ignored: a pawn reaching the last rank always becomes a queen, on both boards.
func candidates(move domain.Move) []string {
	uci := move.From.String() + move.To.String()
	return []string{uci, uci + string(domain.PieceQueen)}
}
