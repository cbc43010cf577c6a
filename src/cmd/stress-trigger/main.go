// Command stress-trigger fires many concurrent delegated triggers at a running
// resident and reports how many were accepted or refused as busy.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"ctrl-ai/src/llm"
	"ctrl-ai/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

type summary struct {
	ok, busy, absent, failed int32
}

func main() {
	cmd := newRootCmd(&stressOptions{}, os.Stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *stressOptions, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-trigger",
		Short:         "Stress test trigger delegation to the resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := llm.ParseMode(opts.mode)
			if err != nil {
				return err
			}
			start := time.Now()
			s := stress(cmd.Context(), singleinstance.NewClient, mode, opts.n, opts.deadline)
			fmt.Fprintf(out, "launched=%d ok=%d busy=%d absent=%d err=%d elapsed=%s\n",
				opts.n, s.ok, s.busy, s.absent, s.failed, time.Since(start))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", string(llm.ModeRefactor), "mode to trigger")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func stress(ctx context.Context, newClient func() singleinstance.Client, mode llm.Mode, n int, deadline time.Duration) summary {
	var wg sync.WaitGroup
	var s summary
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, deadline)
			defer cancel()
			delegated, err := newClient().TryTrigger(cctx, mode.String())
			switch {
			case errors.Is(err, singleinstance.ErrBusy):
				atomic.AddInt32(&s.busy, 1)
			case err != nil:
				atomic.AddInt32(&s.failed, 1)
			case !delegated:
				atomic.AddInt32(&s.absent, 1)
			default:
				atomic.AddInt32(&s.ok, 1)
			}
		}()
	}
	wg.Wait()
	return s
}
