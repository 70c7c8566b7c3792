package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tendermint/lightcore/config"
	"github.com/tendermint/lightcore/libs/log"
	"github.com/tendermint/lightcore/light"
	"github.com/tendermint/lightcore/light/provider"
	"github.com/tendermint/lightcore/light/store"
	"github.com/tendermint/lightcore/light/store/memory"
	"github.com/tendermint/lightcore/types"
)

// MakeVerifyCommand returns the command verifying one or more heights.
func MakeVerifyCommand(conf *config.Config, logger *log.Logger) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "verify [height...]",
		Short: "Verify imported light blocks starting from the closest trusted one",
		Long: `Verify imported light blocks starting from the closest trusted one.

Each height is verified in its own session, concurrently. Blocks verified or
rejected by any session are saved to the light store, even when another
session fails or the timeout expires, so a later run resumes from them. The
heights used as evidence are printed along with every result.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]int64, len(args))
			for i, arg := range args {
				h, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || h <= 0 {
					return fmt.Errorf("invalid height %q", arg)
				}
				targets[i] = h
			}

			metrics, stop := startMetrics(conf, *logger)
			defer stop()
			n, err := openNode(conf, *logger, metrics)
			if err != nil {
				return err
			}
			defer n.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			results, verifyErr := verifyTargets(ctx, n, targets)
			saved, err := saveProgress(n.store, results)
			if err != nil {
				return fmt.Errorf("saving progress: %w", err)
			}
			if verifyErr != nil {
				(*logger).Info("verification stopped", "saved", saved, "err", verifyErr)
				if provider.IsUnavailable(verifyErr) {
					return fmt.Errorf("%w (import more light blocks and retry)", verifyErr)
				}
				return verifyErr
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 means no limit)")
	return cmd
}

// result is one session's outcome. target is nil if the session did not
// finish.
type result struct {
	target *types.LightBlock
	state  *light.State
}

// verifyTargets runs one session per target. Each session works on its own
// copy of the justified blocks, so sessions never share a State. The states
// of unfinished sessions are returned along with the first error.
func verifyTargets(ctx context.Context, n *node, targets []int64) ([]result, error) {
	anchors, err := justified(n.store)
	if err != nil {
		return nil, err
	}

	results := make([]result, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			st := memory.New()
			for _, a := range anchors {
				if err := st.Update(a.lb, a.status); err != nil {
					return err
				}
			}
			results[i].state = light.NewState(st)
			lb, err := n.verifier.VerifyToHeight(ctx, results[i].state, target)
			if err != nil {
				return fmt.Errorf("#%d: %w", target, err)
			}
			results[i].target = lb
			return nil
		})
	}
	return results, g.Wait()
}

type anchor struct {
	lb     *types.LightBlock
	status store.Status
}

func justified(s store.Store) ([]anchor, error) {
	var res []anchor
	for _, status := range []store.Status{store.StatusTrusted, store.StatusVerified} {
		lbs, err := s.All(status)
		if err != nil {
			return nil, err
		}
		for _, lb := range lbs {
			res = append(res, anchor{lb: lb, status: status})
		}
	}
	if len(res) == 0 {
		return nil, errors.New("no trusted light block; run trust first")
	}
	return res, nil
}

// saveProgress copies the Verified and Failed records of every session into
// s and returns how many it wrote. Trusted and Verified records in s are
// never overwritten, and a height verified by any session is not marked
// Failed.
func saveProgress(s store.Store, results []result) (int, error) {
	saved := 0
	for _, status := range []store.Status{store.StatusVerified, store.StatusFailed} {
		for _, r := range results {
			if r.state == nil {
				continue
			}
			lbs, err := r.state.Store().All(status)
			if err != nil {
				return saved, err
			}
			for _, lb := range lbs {
				have, err := s.Status(lb.Height)
				switch {
				case err == nil && (have == store.StatusTrusted || have == store.StatusVerified || have == status):
					continue
				case err != nil && !errors.Is(err, store.ErrLightBlockNotFound):
					return saved, err
				}
				if err := s.Update(lb, status); err != nil {
					return saved, err
				}
				saved++
			}
		}
	}
	return saved, nil
}

func printResults(w io.Writer, results []result) {
	sort.Slice(results, func(i, j int) bool { return results[i].target.Height < results[j].target.Height })
	for _, r := range results {
		fmt.Fprintf(w, "verified #%d %X\n", r.target.Height, r.target.Hash())
		for _, h := range r.state.TraceHeights(r.target.Height) {
			fmt.Fprintf(w, "  evidence #%d\n", h)
		}
	}
}
