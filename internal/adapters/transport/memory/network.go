// Package memory is an in-process transport. Peers joined to the same Network
// exchange events through buffered channels; a full buffer drops the event,
// which mirrors the lossy channel sessions are built for.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	"github.com/samber/lo"
)

const defaultBuffer = 64

type pair struct {
	a, b domain.Identity
}

func newPair(a, b domain.Identity) pair {
	if b < a {
		a, b = b, a
	}
	return pair{a: a, b: b}
}

type Network struct {
	mu      sync.Mutex
	buffer  int
	peers   map[domain.Identity]*Peer
	intents map[pair]domain.IntentStatus
}

func NewNetwork() *Network {
	return &Network{
		buffer:  defaultBuffer,
		peers:   map[domain.Identity]*Peer{},
		intents: map[pair]domain.IntentStatus{},
	}
}

// Join registers a peer and announces it to everybody already connected.
func (n *Network) Join(identity domain.Identity, name string, intents ...domain.Intent) (*Peer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.peers[identity]; ok {
		return nil, fmt.Errorf("join %s: identity already connected", identity)
	}

	peer := &Peer{
		network:  n,
		identity: identity,
		name:     name,
		intents:  intents,
		events:   make(chan domain.Event, n.buffer),
	}
	n.peers[identity] = peer
	n.broadcastContactsLocked()

	return peer, nil
}

func (n *Network) busyLocked(identity domain.Identity) bool {
	for key, status := range n.intents {
		if status == domain.IntentInProgress && (key.a == identity || key.b == identity) {
			return true
		}
	}
	return false
}

func (n *Network) broadcastContactsLocked() {
	identities := lo.Keys(n.peers)
	sort.Slice(identities, func(i, j int) bool { return identities[i] < identities[j] })

	for _, receiver := range n.peers {
		contacts := make([]domain.Contact, 0, len(identities)-1)
		for _, identity := range identities {
			if identity == receiver.identity {
				continue
			}
			contacts = append(contacts, domain.Contact{
				Identity:    identity,
				Name:        n.peers[identity].name,
				IsAvailable: !n.busyLocked(identity),
			})
		}
		receiver.deliver(domain.ContactsChanged(contacts))
	}
}

func (n *Network) leave(peer *Peer) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.peers[peer.identity] != peer {
		return
	}
	delete(n.peers, peer.identity)
	close(peer.events)

	for key := range n.intents {
		if key.a == peer.identity || key.b == peer.identity {
			delete(n.intents, key)
		}
	}
	for _, other := range n.peers {
		other.deliver(domain.PeerDisconnected(peer.identity))
	}
	n.broadcastContactsLocked()
}

type Peer struct {
	network  *Network
	identity domain.Identity
	name     string
	intents  []domain.Intent
	events   chan domain.Event
}

var _ ports.Transport = (*Peer)(nil)

func (p *Peer) Identity() domain.Identity {
	return p.identity
}

func (p *Peer) deliver(event domain.Event) bool {
	select {
	case p.events <- event:
		return true
	default:
		return false
	}
}

func (p *Peer) NegotiateIntent(ctx context.Context, identity domain.Identity, intent domain.Intent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n := p.network
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.peers[p.identity] != p {
		return fmt.Errorf("negotiate with %s: peer %s left the network", identity, p.identity)
	}

	target, ok := n.peers[identity]
	if !ok || identity == p.identity || n.busyLocked(identity) {
		p.deliver(domain.IntentNegotiated(identity, intent, domain.ErrTransportUnavailable))
		return nil
	}

	target.deliver(domain.PeerConnected(p.identity, p.intents...))
	p.deliver(domain.IntentNegotiated(identity, intent, nil))
	return nil
}

func (p *Peer) UpdateIntentStatus(ctx context.Context, identity domain.Identity, _ domain.Intent, status domain.IntentStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("update intent with %s: unknown status %q", identity, status)
	}

	n := p.network
	n.mu.Lock()
	defer n.mu.Unlock()

	key := newPair(p.identity, identity)
	if status == domain.IntentCompleted {
		delete(n.intents, key)
	} else {
		n.intents[key] = status
	}
	n.broadcastContactsLocked()
	return nil
}

func (p *Peer) SendTo(ctx context.Context, identity domain.Identity, kind domain.MessageKind, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n := p.network
	n.mu.Lock()
	defer n.mu.Unlock()

	target, ok := n.peers[identity]
	if !ok {
		return fmt.Errorf("send %s to %s: %w", kind, identity, domain.ErrTransportUnavailable)
	}

	target.deliver(domain.MessageFrom(p.identity, kind, append([]byte(nil), payload...)))
	return nil
}

func (p *Peer) Events() <-chan domain.Event {
	return p.events
}

func (p *Peer) Close() error {
	p.network.leave(p)
	return nil
}
