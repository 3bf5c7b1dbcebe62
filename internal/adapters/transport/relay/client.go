package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	"github.com/samber/lo"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const eventBuffer = 64

type ClientConfig struct {
	URL     string
	Profile domain.Profile
	Intents []domain.Intent
	// Aliases replace the names peers announce for themselves.
	Aliases []domain.ContactEntry
}

// Client is a ports.Transport backed by a relay connection.
type Client struct {
	log     *slog.Logger
	conn    *websocket.Conn
	self    domain.Identity
	aliases map[domain.Identity]string
	events  chan domain.Event

	cancel    context.CancelFunc
	closeOnce sync.Once
}

var _ ports.Transport = (*Client)(nil)

func Dial(ctx context.Context, log *slog.Logger, cfg ClientConfig) (*Client, error) {
	endpoint, err := endpointURL(cfg)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", cfg.URL, err)
	}

	aliases := lo.SliceToMap(cfg.Aliases, func(entry domain.ContactEntry) (domain.Identity, string) {
		return entry.Identity, entry.Alias
	})

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		log:     log,
		conn:    conn,
		self:    cfg.Profile.Identity,
		aliases: aliases,
		events:  make(chan domain.Event, eventBuffer),
		cancel:  cancel,
	}
	go c.readLoop(readCtx)

	return c, nil
}

func endpointURL(cfg ClientConfig) (string, error) {
	if cfg.Profile.Identity == "" {
		return "", errors.New("relay client: identity is required")
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}

	query := u.Query()
	query.Set("identity", string(cfg.Profile.Identity))
	query.Set("name", cfg.Profile.Name)
	query.Set("intents", strings.Join(lo.Map(cfg.Intents, func(intent domain.Intent, _ int) string {
		return strconv.Itoa(int(intent))
	}), ","))
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.events)

	for {
		var f frame
		if err := wsjson.Read(ctx, c.conn, &f); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
				c.log.Warn("relay connection lost", "error", err)
			}
			return
		}

		event, ok := c.translate(f)
		if !ok {
			c.log.Debug("relay frame dropped", "type", f.T)
			continue
		}

		select {
		case c.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) translate(f frame) (domain.Event, bool) {
	peer := domain.Identity(f.Peer)

	switch f.T {
	case frameContacts:
		return domain.ContactsChanged(lo.Map(f.Contacts, func(contact contactFrame, _ int) domain.Contact {
			identity := domain.Identity(contact.Identity)
			name := contact.Name
			if alias, ok := c.aliases[identity]; ok {
				name = alias
			}
			return domain.Contact{Identity: identity, Name: name, IsAvailable: contact.Available}
		})), true
	case frameNegotiated:
		var err error
		if !f.OK {
			err = domain.ErrTransportUnavailable
		}
		return domain.IntentNegotiated(peer, domain.Intent(f.Intent), err), true
	case framePeerConnected:
		return domain.PeerConnected(peer, fromWireIntents(f.Intents)...), true
	case framePeerDisconnected:
		return domain.PeerDisconnected(peer), true
	case frameMessage:
		return domain.MessageFrom(peer, domain.MessageKind(f.Kind), f.Payload), true
	default:
		return domain.Event{}, false
	}
}

func (c *Client) write(ctx context.Context, f frame) error {
	if err := wsjson.Write(ctx, c.conn, f); err != nil {
		return fmt.Errorf("write %s frame: %w", f.T, err)
	}
	return nil
}

func (c *Client) NegotiateIntent(ctx context.Context, identity domain.Identity, intent domain.Intent) error {
	return c.write(ctx, frame{T: frameNegotiate, Peer: string(identity), Intent: int(intent)})
}

func (c *Client) UpdateIntentStatus(ctx context.Context, identity domain.Identity, intent domain.Intent, status domain.IntentStatus) error {
	return c.write(ctx, frame{T: frameIntentStatus, Peer: string(identity), Intent: int(intent), Status: string(status)})
}

func (c *Client) SendTo(ctx context.Context, identity domain.Identity, kind domain.MessageKind, payload []byte) error {
	return c.write(ctx, frame{T: frameMessage, Peer: string(identity), Kind: uint8(kind), Payload: payload})
}

func (c *Client) Events() <-chan domain.Event {
	return c.events
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close(websocket.StatusNormalClosure, "bye")
		c.cancel()
	})
	return err
}
