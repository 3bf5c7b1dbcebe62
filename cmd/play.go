package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bnema/peer-chess/internal/adapters/transport/memory"
	"github.com/bnema/peer-chess/internal/adapters/transport/relay"
	"github.com/bnema/peer-chess/internal/application"
	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// playSide is one local participant: a session, the dispatcher that owns it
// and the transport it talks through.
type playSide struct {
	name       string
	identity   domain.Identity
	transport  ports.Transport
	session    *application.Session
	dispatcher *application.Dispatcher
}

func newPlaySide(log *slog.Logger, name string, identity domain.Identity, transport ports.Transport, boards ports.BoardFactory) *playSide {
	log = log.With("player", identity)
	session := application.NewSession(log, transport, boards, nil)

	return &playSide{
		name:       name,
		identity:   identity,
		transport:  transport,
		session:    session,
		dispatcher: application.NewDispatcher(log, session, transport),
	}
}

func newPlayCmd(app *app) *cobra.Command {
	var (
		opponent string
		local    bool
		logFile  string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Open the interactive board",
		Long:  "play connects to the relay and opens the board. Type moves such as e2e4, or /challenge <identity> to start a game. With --local both sides play on this terminal.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, closeLog, err := playLogger(logFile, app.config.GetString(logLevelKey))
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var sides []*playSide
			target := domain.Identity(opponent)
			if local {
				sides, err = startLocalSides(log, app.boards)
			} else {
				sides, err = startRelaySides(ctx, log, app)
			}
			if err != nil {
				return err
			}
			if local {
				target = sides[1].identity
			}
			defer func() {
				for _, side := range sides {
					_ = side.transport.Close()
				}
			}()

			program := tea.NewProgram(
				newPlayModel(ctx, sides, target),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			subscribe(sides[0].session.Notifier(), program.Send)

			for _, side := range sides {
				go func(side *playSide) {
					if err := side.dispatcher.Run(ctx); err != nil {
						program.Send(sessionEndedMsg{err: fmt.Errorf("%s: %w", side.name, err)})
					}
				}(side)
			}

			finalModel, err := program.Run()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			if result, ok := finalModel.(playModel); ok && result.fatal != nil {
				return result.fatal
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&opponent, "opponent", "", "Identity to challenge as soon as the board opens")
	cmd.Flags().BoolVar(&local, "local", false, "Play both sides on this terminal without a relay")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of discarding them")
	cmd.Flags().String("relay", defaultRelayURL, "Relay URL, overrides the configured one")
	_ = app.config.BindPFlag(relayURLKey, cmd.Flags().Lookup("relay"))

	return cmd
}

// subscribe forwards notifications to the bubbletea program. send blocks until
// the program reads the message, so the handlers never call back into a
// dispatcher.
func subscribe(notifier *application.Notifier, send func(tea.Msg)) {
	notifier.OnBoardChanged(func(stateText string) {
		send(boardChangedMsg{fen: stateText})
	})
	notifier.OnPlayingStatusChanged(func(playing bool) {
		send(playingChangedMsg{playing: playing})
	})
	notifier.OnAvailableContactsChanged(func(contacts []domain.Contact) {
		send(contactsChangedMsg{contacts: contacts})
	})
}

func startLocalSides(log *slog.Logger, boards ports.BoardFactory) ([]*playSide, error) {
	network := memory.NewNetwork()

	sides := make([]*playSide, 0, 2)
	for _, player := range []struct {
		identity domain.Identity
		name     string
	}{
		{identity: "white", name: "White"},
		{identity: "black", name: "Black"},
	} {
		peer, err := network.Join(player.identity, player.name, domain.SessionIntent)
		if err != nil {
			return nil, err
		}
		sides = append(sides, newPlaySide(log, player.name, player.identity, peer, boards))
	}

	return sides, nil
}

func startRelaySides(ctx context.Context, log *slog.Logger, app *app) ([]*playSide, error) {
	profile, err := app.profile()
	if err != nil {
		return nil, err
	}

	aliases, err := app.contacts.List(ctx)
	if err != nil {
		return nil, err
	}

	client, err := relay.Dial(ctx, log, relay.ClientConfig{
		URL:     profile.RelayURL,
		Profile: profile,
		Intents: []domain.Intent{domain.SessionIntent},
		Aliases: aliases,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransportUnavailable, err)
	}

	return []*playSide{newPlaySide(log, profile.Name, profile.Identity, client, app.boards)}, nil
}

func playLogger(path, level string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: logLevel}))
	return log, func() { _ = file.Close() }, nil
}
