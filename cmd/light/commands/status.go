package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tendermint/lightcore/config"
	"github.com/tendermint/lightcore/libs/log"
	"github.com/tendermint/lightcore/light/store"
)

// MakeStatusCommand returns the command summarising the light store.
func MakeStatusCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the light blocks held per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := openNode(conf, log.NewNopLogger(), nil)
			if err != nil {
				return err
			}
			defer n.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "chain\t%s\n", conf.ChainID)
			fmt.Fprintf(w, "imported up to\t%d\n", n.provider.Latest())
			fmt.Fprintf(w, "stored\t%d\n", n.store.Size())
			fmt.Fprintln(w, "STATUS\tCOUNT\tLOWEST\tHIGHEST")
			for _, status := range store.Statuses {
				all, err := n.store.All(status)
				if err != nil {
					return err
				}
				low, high := "-", "-"
				if lb, err := n.store.Lowest(status); err == nil {
					low = fmt.Sprint(lb.Height)
				} else if !errors.Is(err, store.ErrLightBlockNotFound) {
					return err
				}
				if lb, err := n.store.Highest(status); err == nil {
					high = fmt.Sprint(lb.Height)
				} else if !errors.Is(err, store.ErrLightBlockNotFound) {
					return err
				}
				fmt.Fprintf(w, "%v\t%d\t%s\t%s\n", status, len(all), low, high)
			}
			return w.Flush()
		},
	}
}
