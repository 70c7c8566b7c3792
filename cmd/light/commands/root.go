package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tendermint/lightcore/config"
	"github.com/tendermint/lightcore/libs/log"
)

// ParseConfig retrieves the default environment configuration,
// sets up the light client root and ensures that the root exists
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point. Once the
// configuration is parsed, *logger is replaced by one honouring the
// configured format and level.
func RootCommand(conf *config.Config, logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "light",
		Short: "Verify light block headers by bisection from a trusted header",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			pconf, err := ParseConfig(conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			config.EnsureRoot(conf.RootDir)

			l, err := log.NewDefaultLoggerWithOutput(cmd.ErrOrStderr(), conf.LogFormat, conf.LogLevel)
			if err != nil {
				return err
			}
			*logger = l
			return nil
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("log-level", conf.LogLevel, "log level")
	cmd.PersistentFlags().String("chain-id", conf.ChainID, "chain whose headers are verified")
	return cmd
}
