package cmd

import (
	"fmt"

	"github.com/bnema/peer-chess/internal/codec"
	"github.com/bnema/peer-chess/internal/domain"
	"github.com/spf13/cobra"
)

func newCodecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codec",
		Short: "Convert moves to and from their wire encoding",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "encode <move>",
			Short:   "Encode a move such as e2e4 to its hex payload",
			Example: "  pchess codec encode e2e4",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				move, err := domain.ParseMove(args[0])
				if err != nil {
					return err
				}
				payload, err := codec.EncodeMove(move)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), codec.FormatPayload(payload))
				return err
			},
		},
		&cobra.Command{
			Use:     "decode <payload>",
			Short:   "Decode a hex payload such as 0x848c to a move",
			Example: "  pchess codec decode 0x848c",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := codec.ParsePayload(args[0])
				if err != nil {
					return err
				}
				move, err := codec.DecodeMove(payload)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), move)
				return err
			},
		},
	)

	return cmd
}
