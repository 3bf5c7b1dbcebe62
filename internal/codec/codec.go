// Package codec converts squares and moves to and from their wire form.
//
// A square occupies one byte: the file index in the top three bits, the rank
// index in the next three, and two reserved low bits that are always zero.
// A move is the from-square byte followed by the to-square byte.
package codec

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bnema/peer-chess/internal/domain"
)

const (
	fileShift    = 5
	rankShift    = 2
	rankMask     = 0b111
	reservedMask = 0b11

	// MovePayloadSize is the length of an encoded move.
	MovePayloadSize = 2

	hexPrefix = "0x"
)

// EncodeSquare encodes a textual square such as "e4".
func EncodeSquare(text string) (byte, error) {
	square, err := domain.ParseSquare(text)
	if err != nil {
		return 0, err
	}

	return squareByte(square), nil
}

// DecodeSquare is the inverse of EncodeSquare.
func DecodeSquare(b byte) (domain.Square, error) {
	if b&reservedMask != 0 {
		return domain.Square{}, fmt.Errorf("%w: reserved bits set in %#02x", domain.ErrCodec, b)
	}

	return domain.Square{
		File: b >> fileShift,
		Rank: (b >> rankShift) & rankMask,
	}, nil
}

// EncodeMove returns the two-byte payload for move. The promotion piece is
// not part of the payload.
func EncodeMove(move domain.Move) ([]byte, error) {
	if !move.From.Valid() {
		return nil, fmt.Errorf("%w: from square %s", domain.ErrCodec, move.From)
	}
	if !move.To.Valid() {
		return nil, fmt.Errorf("%w: to square %s", domain.ErrCodec, move.To)
	}

	return []byte{squareByte(move.From), squareByte(move.To)}, nil
}

func DecodeMove(payload []byte) (domain.Move, error) {
	if len(payload) != MovePayloadSize {
		return domain.Move{}, fmt.Errorf("%w: move payload has %d bytes, want %d", domain.ErrCodec, len(payload), MovePayloadSize)
	}

	from, err := DecodeSquare(payload[0])
	if err != nil {
		return domain.Move{}, fmt.Errorf("decode from square: %w", err)
	}
	to, err := DecodeSquare(payload[1])
	if err != nil {
		return domain.Move{}, fmt.Errorf("decode to square: %w", err)
	}

	return domain.Move{From: from, To: to}, nil
}

// FormatPayload renders payload as 0x-prefixed hex, e.g. "0x848c" for e2e4.
func FormatPayload(payload []byte) string {
	return hexPrefix + hex.EncodeToString(payload)
}

// ParsePayload accepts the output of FormatPayload, with or without the prefix.
func ParsePayload(text string) ([]byte, error) {
	text = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(text)), hexPrefix)

	payload, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCodec, err)
	}

	return payload, nil
}

func squareByte(square domain.Square) byte {
	return square.File<<fileShift | square.Rank<<rankShift
}
