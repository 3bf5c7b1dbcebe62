package chess

import (
	"testing"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func mustMove(t *testing.T, text string) domain.Move {
	t.Helper()

	move, err := domain.ParseMove(text)
	require.NoError(t, err)
	return move
}

func TestNewBoardStartsAtStandardPosition(t *testing.T) {
	t.Parallel()

	board := NewEngine().NewBoard()
	assert.Equal(t, startFEN, board.Text())
}

func TestApplyLegalMoveAdvancesPosition(t *testing.T) {
	t.Parallel()

	board := NewEngine().NewBoard()
	require.NoError(t, board.Apply(mustMove(t, "e2e4")))

	assert.Contains(t, board.Text(), "4P3")
	assert.Contains(t, board.Text(), " b ")
}

func TestApplyIllegalMoveLeavesBoardUntouched(t *testing.T) {
	t.Parallel()

	board := NewEngine().NewBoard()
	err := board.Apply(mustMove(t, "e2e5"))
	require.ErrorIs(t, err, domain.ErrIllegalMove)
	assert.Equal(t, startFEN, board.Text())

	err = board.Apply(mustMove(t, "e7e5"))
	require.ErrorIs(t, err, domain.ErrIllegalMove, "black cannot move first")
	assert.Equal(t, startFEN, board.Text())
}

func TestUndoRestoresPreviousPosition(t *testing.T) {
	t.Parallel()

	board := NewEngine().NewBoard()
	require.NoError(t, board.Apply(mustMove(t, "e2e4")))
	afterFirst := board.Text()
	require.NoError(t, board.Apply(mustMove(t, "e7e5")))

	require.NoError(t, board.Undo())
	assert.Equal(t, afterFirst, board.Text())

	require.NoError(t, board.Undo())
	assert.Equal(t, startFEN, board.Text())

	require.Error(t, board.Undo())
}

func TestApplyPromotesToQueenByDefault(t *testing.T) {
	t.Parallel()

	engine, err := NewEngineFromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
	require.NoError(t, err)

	board := engine.NewBoard()
	require.NoError(t, board.Apply(mustMove(t, "a7a8")))
	assert.Contains(t, board.Text(), "Q7/")
	assert.Equal(t, []string{"a7a8q"}, board.(*Board).Moves())
}

func TestApplyIgnoresUnderPromotion(t *testing.T) {
	t.Parallel()

	engine, err := NewEngineFromFEN("8/4P3/8/8/8/8/8/k6K w - - 0 1")
	require.NoError(t, err)

	for _, text := range []string{"e7e8n", "e7e8r", "e7e8b", "e7e8q"} {
		board := engine.NewBoard()
		require.NoError(t, board.Apply(mustMove(t, text)), text)
		assert.Equal(t, "4Q3/8/8/8/8/8/8/k6K b - - 0 1", board.Text(), text)
	}
}

func TestNewEngineFromFENRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewEngineFromFEN("not a fen")
	require.Error(t, err)
}
