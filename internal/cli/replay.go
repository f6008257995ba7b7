package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/kvcache/internal/cache"
	"github.com/roach88/kvcache/internal/instrument"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Op string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print the recorded call history of an operation",
		Long: `Print how many times an instrumented operation was called and, in call
order, each recorded input with the output it produced.

Calls that failed are counted but have no output, so they are not listed.

Examples:
  kvcache replay
  kvcache replay --op Cache.Store --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Op, "op", cache.StoreOp, "qualified operation name")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	st, _, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	h, err := instrument.ReadHistory(ctx, st, opts.Op)
	if err != nil {
		return out.Fail(ExitFailure, "E_REPLAY", "failed to read history", err)
	}

	return out.Success(h, func(w io.Writer) error {
		return instrument.WriteHistory(w, h)
	})
}
