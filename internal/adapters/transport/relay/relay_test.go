package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay(t *testing.T) *httptest.Server {
	t.Helper()

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	hub := NewHub(log, NewMetrics(), NewIntentTable(time.Minute))
	server := httptest.NewServer(hub.Router())
	t.Cleanup(server.Close)
	return server
}

func dialTestClient(t *testing.T, server *httptest.Server, identity domain.Identity, aliases ...domain.ContactEntry) *Client {
	t.Helper()

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	client, err := Dial(context.Background(), log, ClientConfig{
		URL:     server.URL,
		Profile: domain.Profile{Identity: identity, Name: "name-" + string(identity)},
		Intents: []domain.Intent{domain.SessionIntent},
		Aliases: aliases,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// await returns the first event of kind, skipping anything else.
func await(t *testing.T, client *Client, kind domain.EventKind) domain.Event {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-client.Events():
			require.True(t, ok, "event stream closed while waiting for %s", kind)
			if event.Kind == kind {
				return event
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestRelayContactsUseLocalAliases(t *testing.T) {
	t.Parallel()

	server := newTestRelay(t)
	alice := dialTestClient(t, server, "alice", domain.ContactEntry{Identity: "bob", Alias: "Bobby"})
	await(t, alice, domain.EventContactsChanged)
	dialTestClient(t, server, "bob")

	event := await(t, alice, domain.EventContactsChanged)
	assert.Equal(t, []domain.Contact{{Identity: "bob", Name: "Bobby", IsAvailable: true}}, event.Contacts)
}

func TestRelayNegotiationAndMessageRouting(t *testing.T) {
	t.Parallel()

	server := newTestRelay(t)
	ctx := context.Background()
	alice := dialTestClient(t, server, "alice")
	bob := dialTestClient(t, server, "bob")
	await(t, alice, domain.EventContactsChanged)

	require.NoError(t, alice.NegotiateIntent(ctx, "bob", domain.SessionIntent))

	connected := await(t, bob, domain.EventPeerConnected)
	assert.Equal(t, domain.Identity("alice"), connected.Peer)
	assert.Equal(t, []domain.Intent{domain.SessionIntent}, connected.Intents)

	outcome := await(t, alice, domain.EventIntentNegotiated)
	assert.Equal(t, domain.Identity("bob"), outcome.Peer)
	assert.NoError(t, outcome.Err)

	require.NoError(t, alice.SendTo(ctx, "bob", domain.MessageMove, []byte{0x84, 0x8c}))
	message := await(t, bob, domain.EventMessage)
	assert.Equal(t, domain.MessageFrom("alice", domain.MessageMove, []byte{0x84, 0x8c}), message)

	require.NoError(t, bob.SendTo(ctx, "alice", domain.MessageAck, nil))
	ack := await(t, alice, domain.EventMessage)
	assert.Equal(t, domain.MessageAck, ack.Message.Kind)
	assert.Empty(t, ack.Message.Payload)
}

func TestRelayRejectsNegotiationWithBusyOrUnknownPeer(t *testing.T) {
	t.Parallel()

	server := newTestRelay(t)
	ctx := context.Background()
	alice := dialTestClient(t, server, "alice")
	dialTestClient(t, server, "bob")
	carol := dialTestClient(t, server, "carol")

	require.NoError(t, alice.NegotiateIntent(ctx, "nobody", domain.SessionIntent))
	assert.ErrorIs(t, await(t, alice, domain.EventIntentNegotiated).Err, domain.ErrTransportUnavailable)

	require.NoError(t, alice.UpdateIntentStatus(ctx, "bob", domain.SessionIntent, domain.IntentInProgress))
	for {
		event := await(t, carol, domain.EventContactsChanged)
		if len(event.Contacts) == 2 && !event.Contacts[0].IsAvailable && !event.Contacts[1].IsAvailable {
			break
		}
	}

	require.NoError(t, carol.NegotiateIntent(ctx, "bob", domain.SessionIntent))
	assert.ErrorIs(t, await(t, carol, domain.EventIntentNegotiated).Err, domain.ErrTransportUnavailable)
}

func TestRelayDisconnectReachesNegotiatedPartnersOnly(t *testing.T) {
	t.Parallel()

	server := newTestRelay(t)
	ctx := context.Background()
	alice := dialTestClient(t, server, "alice")
	bob := dialTestClient(t, server, "bob")
	carol := dialTestClient(t, server, "carol")

	require.NoError(t, alice.NegotiateIntent(ctx, "bob", domain.SessionIntent))
	require.NoError(t, await(t, alice, domain.EventIntentNegotiated).Err)

	require.NoError(t, bob.Close())

	event := await(t, alice, domain.EventPeerDisconnected)
	assert.Equal(t, domain.Identity("bob"), event.Peer)

	// carol sees bob leave the contacts list without a peer_disconnected first.
	timeout := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-carol.Events():
			require.True(t, ok)
			require.NotEqual(t, domain.EventPeerDisconnected, event.Kind)
			if event.Kind == domain.EventContactsChanged && !lo.ContainsBy(event.Contacts, func(c domain.Contact) bool {
				return c.Identity == "bob"
			}) && len(event.Contacts) == 1 {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for contacts without bob")
		}
	}
}

func TestRelayRejectsDuplicateIdentity(t *testing.T) {
	t.Parallel()

	server := newTestRelay(t)
	dialTestClient(t, server, "alice")

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	_, err := Dial(context.Background(), log, ClientConfig{
		URL:     server.URL,
		Profile: domain.Profile{Identity: "alice", Name: "Impostor"},
	})
	require.Error(t, err)
}

func TestRelayHealthAndMetrics(t *testing.T) {
	t.Parallel()

	server := newTestRelay(t)
	dialTestClient(t, server, "alice")

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		metrics, err := http.Get(server.URL + "/metrics")
		if err != nil {
			return false
		}
		defer metrics.Body.Close()
		body, err := io.ReadAll(metrics.Body)
		return err == nil && strings.Contains(string(body), "pchess_relay_connected_peers 1")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEndpointURL(t *testing.T) {
	t.Parallel()

	got, err := endpointURL(ClientConfig{
		URL:     "https://relay.example.com/",
		Profile: domain.Profile{Identity: "alice", Name: "Alice"},
		Intents: []domain.Intent{domain.SessionIntent, 7},
	})
	require.NoError(t, err)
	assert.Equal(t, "wss://relay.example.com/ws?identity=alice&intents=192%2C7&name=Alice", got)

	_, err = endpointURL(ClientConfig{URL: "ws://relay"})
	require.Error(t, err)
}

func TestIntentTableLifecycle(t *testing.T) {
	t.Parallel()

	table := NewIntentTable(time.Minute)
	table.Pending("alice", "bob", domain.SessionIntent)

	status, ok := table.Status("bob", "alice", domain.SessionIntent)
	require.True(t, ok)
	assert.Equal(t, intentPending, status)
	assert.False(t, table.Busy("alice"))

	require.NoError(t, table.Set("bob", "alice", domain.SessionIntent, domain.IntentInProgress))
	assert.True(t, table.Busy("alice"))
	assert.True(t, table.Busy("bob"))

	table.Pending("alice", "bob", domain.SessionIntent)
	status, _ = table.Status("alice", "bob", domain.SessionIntent)
	assert.Equal(t, domain.IntentInProgress, status)

	assert.Equal(t, []domain.Identity{"bob"}, table.Forget("alice"))
	assert.False(t, table.Busy("bob"))

	require.NoError(t, table.Set("alice", "bob", domain.SessionIntent, domain.IntentInProgress))
	require.NoError(t, table.Set("alice", "bob", domain.SessionIntent, domain.IntentCompleted))
	assert.False(t, table.Busy("alice"))

	require.Error(t, table.Set("alice", "bob", domain.SessionIntent, "paused"))
}

func TestIntentTablePendingExpires(t *testing.T) {
	t.Parallel()

	table := NewIntentTable(10 * time.Millisecond)
	table.Pending("alice", "bob", domain.SessionIntent)

	require.Eventually(t, func() bool {
		_, ok := table.Status("alice", "bob", domain.SessionIntent)
		return !ok
	}, time.Second, 5*time.Millisecond)
}
