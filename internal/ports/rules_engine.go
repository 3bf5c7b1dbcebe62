package ports

import "github.com/bnema/peer-chess/internal/domain"

// Board is a game instance owned by exactly one session.
type Board interface {
	// Apply plays move. A move the rules reject returns an error wrapping
	// domain.ErrIllegalMove and leaves the board untouched.
	Apply(move domain.Move) error
	// Text is the canonical serialized state (FEN).
	Text() string
	Undo() error
}

type BoardFactory interface {
	NewBoard() Board
}
