package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightcore/config"
	"github.com/tendermint/lightcore/libs/log"
	dbp "github.com/tendermint/lightcore/light/provider/db"
)

// MakeImportCommand returns the command loading light block bundles into
// the local provider database.
func MakeImportCommand(conf *config.Config, logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "import [bundle-file...]",
		Short: "Import light blocks to verify against",
		Long: `Import light blocks from bundle files.

A bundle is a sequence of length-prefixed light blocks in protobuf wire
format. Imported blocks are only candidates; nothing is trusted until it is
verified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := openNode(conf, *logger, nil)
			if err != nil {
				return err
			}
			defer n.Close()

			for _, path := range args {
				bz, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				lbs, err := dbp.UnmarshalBundle(bz)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := n.provider.Import(lbs); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				(*logger).Info("imported light blocks", "file", path, "count", len(lbs))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "latest imported height: %d\n", n.provider.Latest())
			return nil
		},
	}
}
