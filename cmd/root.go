package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pchess",
		Short:         "Peer chess: play chess directly against another player",
		Long:          "pchess keeps a chess game in sync between two players. Moves travel as compact two-byte messages through a relay, and every move is checked and acknowledged by both sides.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newCodecCmd(),
		newInitCmd(app),
		newContactsCmd(app),
		newRelayCmd(app),
		newPlayCmd(app),
	)

	return rootCmd
}
