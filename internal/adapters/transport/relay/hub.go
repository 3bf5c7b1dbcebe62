package relay

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
)

type peer struct {
	identity domain.Identity
	name     string
	intents  []domain.Intent
	send     chan frame
}

type Hub struct {
	log     *slog.Logger
	metrics *Metrics
	intents *IntentTable

	mu    sync.RWMutex
	peers map[domain.Identity]*peer
}

func NewHub(log *slog.Logger, metrics *Metrics, intents *IntentTable) *Hub {
	return &Hub{
		log:     log,
		metrics: metrics,
		intents: intents,
		peers:   map[domain.Identity]*peer{},
	}
}

func (h *Hub) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", h.ServeWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	return r
}

// ServeWS upgrades the request and serves one peer until it disconnects. The
// peer announces itself with the identity, name and intents query parameters.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	identity := domain.Identity(strings.TrimSpace(query.Get("identity")))
	if identity == "" {
		http.Error(w, "identity is required", http.StatusBadRequest)
		return
	}
	intents, err := parseIntents(query.Get("intents"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(query.Get("name"))
	if name == "" {
		name = string(identity)
	}

	p := &peer{identity: identity, name: name, intents: intents, send: make(chan frame, sendBuffer)}
	if !h.register(p) {
		http.Error(w, "identity already connected", http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.unregister(p)
		h.log.Warn("websocket accept failed", "peer", identity, "error", err)
		return
	}
	h.log.Info("peer connected", "peer", identity, "name", name)
	h.broadcastContacts()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, p)

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			break
		}
		h.handle(ctx, p, f)
	}

	partners := h.unregister(p)
	h.log.Info("peer disconnected", "peer", identity, "partners", len(partners))
	h.broadcastDisconnect(identity, partners)
	h.broadcastContacts()
}

func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, p *peer) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-p.send:
			if err := wsjson.Write(ctx, conn, f); err != nil {
				h.log.Debug("write failed", "peer", p.identity, "error", err)
				return
			}
		case <-ping.C:
			_ = conn.Ping(ctx)
		}
	}
}

func (h *Hub) handle(_ context.Context, from *peer, f frame) {
	switch f.T {
	case frameNegotiate:
		h.negotiate(from, domain.Identity(f.Peer), domain.Intent(f.Intent))
	case frameIntentStatus:
		status := domain.IntentStatus(f.Status)
		if err := h.intents.Set(from.identity, domain.Identity(f.Peer), domain.Intent(f.Intent), status); err != nil {
			h.log.Debug("intent status rejected", "peer", from.identity, "error", err)
			return
		}
		h.broadcastContacts()
	case frameMessage:
		to := domain.Identity(f.Peer)
		target, ok := h.lookup(to)
		if !ok {
			h.metrics.dropped.WithLabelValues("unknown_peer").Inc()
			return
		}
		kind := domain.MessageKind(f.Kind)
		if h.deliver(target, frame{T: frameMessage, Peer: string(from.identity), Kind: f.Kind, Payload: f.Payload}) {
			h.metrics.routed.WithLabelValues(kind.String()).Inc()
		}
	default:
		h.log.Debug("unknown frame dropped", "peer", from.identity, "type", f.T)
		h.metrics.dropped.WithLabelValues("unknown_frame").Inc()
	}
}

// negotiate succeeds when the target is online and not already busy in a
// game; the target then learns about the initiator and its intents.
func (h *Hub) negotiate(from *peer, to domain.Identity, intent domain.Intent) {
	target, ok := h.lookup(to)
	if !ok || to == from.identity || h.intents.Busy(to) {
		h.metrics.negotiations.WithLabelValues("rejected").Inc()
		h.deliver(from, frame{T: frameNegotiated, Peer: string(to), Intent: int(intent)})
		return
	}

	h.intents.Pending(from.identity, to, intent)
	h.metrics.negotiations.WithLabelValues("accepted").Inc()
	h.deliver(target, frame{T: framePeerConnected, Peer: string(from.identity), Intents: toWireIntents(from.intents)})
	h.deliver(from, frame{T: frameNegotiated, Peer: string(to), Intent: int(intent), OK: true})
}

func (h *Hub) deliver(p *peer, f frame) bool {
	select {
	case p.send <- f:
		return true
	default:
		h.metrics.dropped.WithLabelValues("buffer_full").Inc()
		return false
	}
}

func (h *Hub) register(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.peers[p.identity]; ok {
		return false
	}
	h.peers[p.identity] = p
	h.metrics.peers.Set(float64(len(h.peers)))
	return true
}

// unregister drops p and returns the peers it had a live or pending negotiation with.
func (h *Hub) unregister(p *peer) []domain.Identity {
	h.mu.Lock()
	if h.peers[p.identity] == p {
		delete(h.peers, p.identity)
	}
	h.metrics.peers.Set(float64(len(h.peers)))
	h.mu.Unlock()

	return h.intents.Forget(p.identity)
}

func (h *Hub) lookup(identity domain.Identity) (*peer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p, ok := h.peers[identity]
	return p, ok
}

func (h *Hub) snapshot() []*peer {
	h.mu.RLock()
	defer h.mu.RUnlock()

	peers := lo.Values(h.peers)
	sort.Slice(peers, func(i, j int) bool { return peers[i].identity < peers[j].identity })
	return peers
}

func (h *Hub) broadcastDisconnect(identity domain.Identity, partners []domain.Identity) {
	for _, partner := range lo.Uniq(partners) {
		if p, ok := h.lookup(partner); ok {
			h.deliver(p, frame{T: framePeerDisconnected, Peer: string(identity)})
		}
	}
}

func (h *Hub) broadcastContacts() {
	peers := h.snapshot()
	for _, receiver := range peers {
		contacts := make([]contactFrame, 0, len(peers))
		for _, p := range peers {
			if p == receiver {
				continue
			}
			contacts = append(contacts, contactFrame{
				Identity:  string(p.identity),
				Name:      p.name,
				Available: !h.intents.Busy(p.identity),
			})
		}
		h.deliver(receiver, frame{T: frameContacts, Contacts: contacts})
	}
}

func parseIntents(raw string) ([]domain.Intent, error) {
	var intents []domain.Intent
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		value, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		intents = append(intents, domain.Intent(value))
	}
	return intents, nil
}
