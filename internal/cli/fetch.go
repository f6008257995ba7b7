package cli

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/roach88/kvcache/internal/config"
	"github.com/roach88/kvcache/internal/pagecache"
	"github.com/roach88/kvcache/internal/store"
)

// FetchResult is the JSON payload of the fetch command.
type FetchResult struct {
	URL   string `json:"url"`
	Count int64  `json:"count"`
	Text  string `json:"text"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a page through the short-lived page cache",
		Long: `Fetch a web page. A copy cached within the configured TTL is returned
without a network request; otherwise the page is fetched and cached.

Every call increments the count:<url> counter, hit or miss.

Examples:
  kvcache fetch http://example.com
  kvcache fetch http://example.com --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runFetch(opts *RootOptions, url string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	st, cfg, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	f := newFetcher(st, cfg)
	text, err := f.GetPage(ctx, url)
	if err != nil {
		return out.Fail(ExitFailure, "E_FETCH", fmt.Sprintf("failed to fetch %s", url), err)
	}
	n, err := f.Count(ctx, url)
	if err != nil {
		return out.Fail(ExitFailure, "E_COUNT", "failed to read request count", err)
	}

	return out.Success(FetchResult{URL: url, Count: n, Text: text}, func(w io.Writer) error {
		_, err := io.WriteString(w, text)
		return err
	})
}

// newFetcher builds a page fetcher from the page section of cfg.
func newFetcher(st store.Store, cfg config.Config) *pagecache.Fetcher {
	ua := cfg.Page.UserAgent
	if ua == "" {
		ua = "kvcache/" + Version
	}
	return pagecache.New(st,
		pagecache.WithTTL(cfg.Page.TTL),
		pagecache.WithHTTPClient(&http.Client{Timeout: cfg.Page.Timeout}),
		pagecache.WithUserAgent(ua),
	)
}
