package e2e

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	chessrules "github.com/bnema/peer-chess/internal/adapters/rules/chess"
	"github.com/bnema/peer-chess/internal/adapters/transport/memory"
	"github.com/bnema/peer-chess/internal/adapters/transport/relay"
	"github.com/bnema/peer-chess/internal/application"
	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type player struct {
	identity   domain.Identity
	dispatcher *application.Dispatcher
	notifier   *application.Notifier
}

func startPlayer(t *testing.T, ctx context.Context, identity domain.Identity, transport ports.Transport) *player {
	t.Helper()

	log := logs.GetLoggerFromLevel(slog.LevelDebug).With("player", identity)
	notifier := application.NewNotifier()
	session := application.NewSession(log, transport, chessrules.NewEngine(), notifier)
	dispatcher := application.NewDispatcher(log, session, transport)
	go func() { _ = dispatcher.Run(ctx) }()

	return &player{identity: identity, dispatcher: dispatcher, notifier: notifier}
}

func (p *player) waitFor(t *testing.T, ctx context.Context, check func(application.Snapshot) bool) application.Snapshot {
	t.Helper()

	var last application.Snapshot
	require.Eventually(t, func() bool {
		snapshot, err := p.dispatcher.Snapshot(ctx)
		if err != nil {
			return false
		}
		last = snapshot
		return check(snapshot)
	}, 3*time.Second, 10*time.Millisecond, "%s never reached the expected state", p.identity)
	return last
}

func playing(snapshot application.Snapshot) bool {
	return snapshot.State == application.StatePlaying
}

// playOpening runs a short game and checks both boards agree after every
// acknowledged move.
func playOpening(t *testing.T, ctx context.Context, white, black *player) {
	t.Helper()

	require.NoError(t, white.dispatcher.InitiateGame(ctx, black.identity))
	white.waitFor(t, ctx, playing)
	black.waitFor(t, ctx, playing)

	moves := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5"}
	for i, text := range moves {
		mover, other := white, black
		if i%2 == 1 {
			mover, other = black, white
		}

		move, err := domain.ParseMove(text)
		require.NoError(t, err)

		ok, err := mover.dispatcher.SubmitMove(ctx, move)
		require.NoError(t, err)
		require.True(t, ok, "move %s rejected", text)

		local := mover.waitFor(t, ctx, func(application.Snapshot) bool { return true })
		other.waitFor(t, ctx, func(snapshot application.Snapshot) bool {
			return snapshot.Board == local.Board
		})
	}

	final := white.waitFor(t, ctx, playing)
	assert.Equal(t, "r1bqkbnr/pppp1ppp/2n5/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3", final.Board)
}

func TestSessionFlowInMemory(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	network := memory.NewNetwork()
	whitePeer, err := network.Join("white", "White", domain.SessionIntent)
	require.NoError(t, err)
	blackPeer, err := network.Join("black", "Black", domain.SessionIntent)
	require.NoError(t, err)

	white := startPlayer(t, ctx, "white", whitePeer)
	black := startPlayer(t, ctx, "black", blackPeer)

	playOpening(t, ctx, white, black)

	stopped := make(chan struct{})
	var once sync.Once
	black.notifier.OnPlayingStatusChanged(func(isPlaying bool) {
		if !isPlaying {
			once.Do(func() { close(stopped) })
		}
	})
	require.NoError(t, whitePeer.Close())

	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("black never noticed white leaving")
	}
	assert.Equal(t, application.StateIdle, black.waitFor(t, ctx, func(application.Snapshot) bool { return true }).State)
}

func TestSessionFlowOverRelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	hub := relay.NewHub(log, relay.NewMetrics(), relay.NewIntentTable(time.Minute))
	server := httptest.NewServer(hub.Router())
	t.Cleanup(server.Close)

	dial := func(identity domain.Identity) *relay.Client {
		client, err := relay.Dial(ctx, log, relay.ClientConfig{
			URL:     server.URL,
			Profile: domain.Profile{Identity: identity, Name: string(identity)},
			Intents: []domain.Intent{domain.SessionIntent},
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		return client
	}

	white := startPlayer(t, ctx, "white", dial("white"))
	black := startPlayer(t, ctx, "black", dial("black"))

	playOpening(t, ctx, white, black)

	require.NoError(t, black.dispatcher.Reset(ctx))
	black.waitFor(t, ctx, func(snapshot application.Snapshot) bool {
		return snapshot.State == application.StateIdle
	})
}

func TestSimultaneousChallengesConverge(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	network := memory.NewNetwork()
	whitePeer, err := network.Join("white", "White", domain.SessionIntent)
	require.NoError(t, err)
	blackPeer, err := network.Join("black", "Black", domain.SessionIntent)
	require.NoError(t, err)

	white := startPlayer(t, ctx, "white", whitePeer)
	black := startPlayer(t, ctx, "black", blackPeer)

	whiteDone := make(chan error, 1)
	go func() { whiteDone <- white.dispatcher.InitiateGame(ctx, "black") }()
	require.NoError(t, black.dispatcher.InitiateGame(ctx, "white"))
	require.NoError(t, <-whiteDone)

	white.waitFor(t, ctx, playing)
	black.waitFor(t, ctx, playing)

	move, err := domain.ParseMove("d2d4")
	require.NoError(t, err)
	ok, err := white.dispatcher.SubmitMove(ctx, move)
	require.NoError(t, err)
	require.True(t, ok)

	local := white.waitFor(t, ctx, playing)
	black.waitFor(t, ctx, func(snapshot application.Snapshot) bool { return snapshot.Board == local.Board })
}
