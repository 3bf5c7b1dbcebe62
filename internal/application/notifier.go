package application

import (
	"fmt"
	"sync"

	"github.com/bnema/peer-chess/internal/domain"
)

// Topic is one of the fixed notification kinds a Session raises.
type Topic int

const (
	TopicBoardChanged Topic = iota + 1
	TopicPlayingStatusChanged
	TopicAvailableContactsChanged
)

func (t Topic) String() string {
	switch t {
	case TopicBoardChanged:
		return "boardChanged"
	case TopicPlayingStatusChanged:
		return "playingStatusChanged"
	case TopicAvailableContactsChanged:
		return "availableContactsChanged"
	default:
		return fmt.Sprintf("Topic(%d)", int(t))
	}
}

type Subscription struct {
	Topic Topic
	id    uint64
}

type handler[T any] struct {
	id uint64
	fn func(T)
}

type topic[T any] struct {
	handlers []handler[T]
}

func (t *topic[T]) add(id uint64, fn func(T)) {
	t.handlers = append(t.handlers, handler[T]{id: id, fn: fn})
}

func (t *topic[T]) remove(id uint64) {
	for i, h := range t.handlers {
		if h.id == id {
			t.handlers = append(t.handlers[:i:i], t.handlers[i+1:]...)
			return
		}
	}
}

func (t *topic[T]) snapshot() []handler[T] {
	return append([]handler[T](nil), t.handlers...)
}

// Notifier lets observers react to session changes without polling. Handlers
// run synchronously on the publishing goroutine, in subscription order.
type Notifier struct {
	mu       sync.Mutex
	nextID   uint64
	board    topic[string]
	status   topic[bool]
	contacts topic[[]domain.Contact]
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) OnBoardChanged(fn func(stateText string)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.board.add(n.nextID, fn)
	return Subscription{Topic: TopicBoardChanged, id: n.nextID}
}

func (n *Notifier) OnPlayingStatusChanged(fn func(playing bool)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.status.add(n.nextID, fn)
	return Subscription{Topic: TopicPlayingStatusChanged, id: n.nextID}
}

func (n *Notifier) OnAvailableContactsChanged(fn func(contacts []domain.Contact)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.contacts.add(n.nextID, fn)
	return Subscription{Topic: TopicAvailableContactsChanged, id: n.nextID}
}

func (n *Notifier) Unsubscribe(sub Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch sub.Topic {
	case TopicBoardChanged:
		n.board.remove(sub.id)
	case TopicPlayingStatusChanged:
		n.status.remove(sub.id)
	case TopicAvailableContactsChanged:
		n.contacts.remove(sub.id)
	}
}

func (n *Notifier) publishBoardChanged(stateText string) {
	n.mu.Lock()
	handlers := n.board.snapshot()
	n.mu.Unlock()

	for _, h := range handlers {
		h.fn(stateText)
	}
}

func (n *Notifier) publishPlayingStatusChanged(playing bool) {
	n.mu.Lock()
	handlers := n.status.snapshot()
	n.mu.Unlock()

	for _, h := range handlers {
		h.fn(playing)
	}
}

func (n *Notifier) publishAvailableContactsChanged(contacts []domain.Contact) {
	n.mu.Lock()
	handlers := n.contacts.snapshot()
	n.mu.Unlock()

	for _, h := range handlers {
		h.fn(append([]domain.Contact(nil), contacts...))
	}
}
