package domain

import "fmt"

// MessageKind tags a protocol message between two session peers.
type MessageKind uint8

const (
	MessageNewGame MessageKind = iota + 1
	// MessageSetGameStatus is reserved and never emitted.
	MessageSetGameStatus
	MessageMove
	MessageAck
)

func (k MessageKind) String() string {
	switch k {
	case MessageNewGame:
		return "NEW_GAME"
	case MessageSetGameStatus:
		return "SET_GAME_STATUS"
	case MessageMove:
		return "MOVE"
	case MessageAck:
		return "ACK"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

type EventKind int

const (
	EventPeerConnected EventKind = iota + 1
	EventPeerDisconnected
	EventContactsChanged
	EventIntentNegotiated
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventPeerConnected:
		return "peer_connected"
	case EventPeerDisconnected:
		return "peer_disconnected"
	case EventContactsChanged:
		return "contacts_changed"
	case EventIntentNegotiated:
		return "intent_negotiated"
	case EventMessage:
		return "message"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is everything the transport delivers inbound. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind     EventKind
	Peer     Identity
	Intents  []Intent
	Contacts []Contact
	// Err is set on EventIntentNegotiated when the peer could not be reached.
	Err     error
	Message Message
}

type Message struct {
	Kind    MessageKind
	Payload []byte
}

func PeerConnected(peer Identity, intents ...Intent) Event {
	return Event{Kind: EventPeerConnected, Peer: peer, Intents: intents}
}

func PeerDisconnected(peer Identity) Event {
	return Event{Kind: EventPeerDisconnected, Peer: peer}
}

func ContactsChanged(contacts []Contact) Event {
	return Event{Kind: EventContactsChanged, Contacts: contacts}
}

func IntentNegotiated(peer Identity, intent Intent, err error) Event {
	return Event{Kind: EventIntentNegotiated, Peer: peer, Intents: []Intent{intent}, Err: err}
}

func MessageFrom(peer Identity, kind MessageKind, payload []byte) Event {
	return Event{Kind: EventMessage, Peer: peer, Message: Message{Kind: kind, Payload: payload}}
}
