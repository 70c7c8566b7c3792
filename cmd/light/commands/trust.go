package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightcore/config"
	tmbytes "github.com/tendermint/lightcore/libs/bytes"
	"github.com/tendermint/lightcore/libs/log"
	"github.com/tendermint/lightcore/light"
)

// MakeTrustCommand returns the command recording a subjectively trusted
// light block.
func MakeTrustCommand(conf *config.Config, logger *log.Logger) *cobra.Command {
	var (
		height  int64
		hashStr string
	)

	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Trust the imported light block with the given height and hash",
		Long: `Trust the imported light block with the given height and hash.

The height and hash should come from a source you trust, e.g. a validator
or a block explorer you run. The block must be within the trusting period
and signed by +2/3 of its validator set.`,
		Example: `light trust --height 962118 --hash 28B97BE9F6DE51AC69F70E0B7BFD7E5C9CD1A595B7DC31AFF27C50D4948020CD`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hashStr == "" {
				return errors.New("--hash is required")
			}
			hash, err := tmbytes.ParseHexBytes(hashStr)
			if err != nil {
				return fmt.Errorf("invalid hash: %w", err)
			}

			metrics, stop := startMetrics(conf, *logger)
			defer stop()
			n, err := openNode(conf, *logger, metrics)
			if err != nil {
				return err
			}
			defer n.Close()

			lb, err := n.verifier.TrustLightBlock(cmd.Context(), light.NewState(n.store), light.TrustOptions{
				Period: conf.Light.TrustingPeriod,
				Height: height,
				Hash:   hash,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trusted #%d %X\n", lb.Height, lb.Hash())
			return nil
		},
	}
	cmd.Flags().Int64Var(&height, "height", 0, "height of the trusted light block")
	cmd.Flags().StringVar(&hashStr, "hash", "", "hex encoded hash of the trusted light block")
	return cmd
}
