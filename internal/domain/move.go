package domain

import (
	"fmt"
	"strings"
)

type PieceKind string

const (
	PieceQueen  PieceKind = "q"
	PieceRook   PieceKind = "r"
	PieceBishop PieceKind = "b"
	PieceKnight PieceKind = "n"
)

func (k PieceKind) Valid() bool {
	switch k {
	case PieceQueen, PieceRook, PieceBishop, PieceKnight:
		return true
	default:
		return false
	}
}

// Move lives for the duration of a single submit or apply call. Promotion is
// optional and never travels on the wire, so boards always promote to a queen.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

// ParseMove accepts coordinate notation such as "e2e4" or "e7e8q".
func ParseMove(text string) (Move, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if len(text) != 4 && len(text) != 5 {
		return Move{}, fmt.Errorf("%w: move %q must look like e2e4", ErrCodec, text)
	}

	from, err := ParseSquare(text[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(text[2:4])
	if err != nil {
		return Move{}, err
	}

	move := Move{From: from, To: to}
	if len(text) == 5 {
		move.Promotion = PieceKind(text[4:])
		if !move.Promotion.Valid() {
			return Move{}, fmt.Errorf("%w: unknown promotion piece %q", ErrCodec, text[4:])
		}
	}

	return move, nil
}

// String renders the move in UCI coordinate notation.
func (m Move) String() string {
	return m.From.String() + m.To.String() + string(m.Promotion)
}
