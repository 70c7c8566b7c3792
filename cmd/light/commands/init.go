package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightcore/config"
)

// MakeInitCommand returns the command writing a config file for a chain.
func MakeInitCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init [chain-id]",
		Short: "Initialize the home directory for a chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.ChainID = args[0]
			if err := conf.ValidateBasic(); err != nil {
				return err
			}
			if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s for chain %s\n", conf.RootDir, conf.ChainID)
			return nil
		},
	}
}
