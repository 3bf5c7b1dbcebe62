package domain

import "errors"

var (
	ErrCodec                = errors.New("malformed square or move payload")
	ErrIllegalMove          = errors.New("illegal move")
	ErrProtocolMismatch     = errors.New("message does not match session state")
	ErrNotPlaying           = errors.New("not playing")
	ErrTransportUnavailable = errors.New("peer unavailable")
	ErrOpponentPending      = errors.New("another opponent is already tracked")
	ErrContactNotFound      = errors.New("contact not found")
)
