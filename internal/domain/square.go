package domain

import "fmt"

const (
	BoardFiles = 8
	BoardRanks = 8
)

// Square is a board coordinate. File and Rank are both 0-indexed, so "a1" is
// {File: 0, Rank: 0} and "h8" is {File: 7, Rank: 7}.
type Square struct {
	File uint8
	Rank uint8
}

func ParseSquare(text string) (Square, error) {
	if len(text) != 2 {
		return Square{}, fmt.Errorf("%w: square %q must be two characters", ErrCodec, text)
	}

	file, rank := text[0], text[1]
	if file < 'a' || file > 'h' {
		return Square{}, fmt.Errorf("%w: file %q out of range a-h", ErrCodec, file)
	}
	if rank < '1' || rank > '8' {
		return Square{}, fmt.Errorf("%w: rank %q out of range 1-8", ErrCodec, rank)
	}

	return Square{File: file - 'a', Rank: rank - '1'}, nil
}

func (s Square) Valid() bool {
	return s.File < BoardFiles && s.Rank < BoardRanks
}

func (s Square) String() string {
	if !s.Valid() {
		return fmt.Sprintf("invalid(%d,%d)", s.File, s.Rank)
	}

	return string([]byte{'a' + s.File, '1' + s.Rank})
}
