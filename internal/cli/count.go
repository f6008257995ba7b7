package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// CountResult is the JSON payload of the count command.
type CountResult struct {
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count <url>",
		Short: "Print how many times a URL was fetched",
		Long: `Print the count:<url> counter maintained by fetch. A URL that was never
fetched has a count of 0.

Examples:
  kvcache count http://example.com`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCount(opts *RootOptions, url string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	st, cfg, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := newFetcher(st, cfg).Count(ctx, url)
	if err != nil {
		return out.Fail(ExitFailure, "E_COUNT", "failed to read request count", err)
	}

	return out.Success(CountResult{URL: url, Count: n}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, n)
		return err
	})
}
