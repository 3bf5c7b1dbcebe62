// Package relay carries session traffic over websockets through a relay
// server. The server knows who is online, negotiates intents between peers
// and forwards protocol messages; it never looks inside payloads.
package relay

import (
	"github.com/bnema/peer-chess/internal/domain"
	"github.com/samber/lo"
)

const (
	frameContacts         = "contacts"
	frameNegotiate        = "negotiate"
	frameNegotiated       = "negotiated"
	framePeerConnected    = "peer_connected"
	framePeerDisconnected = "peer_disconnected"
	frameIntentStatus     = "intent_status"
	frameMessage          = "message"
)

// frame is the JSON envelope on the wire. Peer is the recipient on frames a
// client sends and the sender on frames the server forwards.
type frame struct {
	T        string         `json:"t"`
	Peer     string         `json:"peer,omitempty"`
	Intent   int            `json:"intent,omitempty"`
	Intents  []int          `json:"intents,omitempty"`
	OK       bool           `json:"ok,omitempty"`
	Status   string         `json:"status,omitempty"`
	Kind     uint8          `json:"kind,omitempty"`
	Payload  []byte         `json:"payload,omitempty"`
	Contacts []contactFrame `json:"contacts,omitempty"`
}

type contactFrame struct {
	Identity  string `json:"identity"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

func toWireIntents(intents []domain.Intent) []int {
	return lo.Map(intents, func(intent domain.Intent, _ int) int { return int(intent) })
}

func fromWireIntents(intents []int) []domain.Intent {
	return lo.Map(intents, func(intent int, _ int) domain.Intent { return domain.Intent(intent) })
}
