package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/kvcache/internal/cache"
	"github.com/roach88/kvcache/internal/store"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	As string
}

// GetResult is the JSON payload of the get command.
type GetResult struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a stored value",
		Long: `Read the value stored under a key, optionally decoding it.

Exit codes:
  0 - Value found and decoded
  1 - Key not found or value could not be decoded
  2 - Command error (bad flags, store unreachable)

Examples:
  kvcache get 3f1c0a52-5c41-4c8e-9d0e-2b6f0f1d9a77
  kvcache get 3f1c0a52-5c41-4c8e-9d0e-2b6f0f1d9a77 --as int`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "raw", "decode as (raw|str|int|float)")

	return cmd
}

func runGet(opts *GetOptions, key string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	st, _, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var value any
	switch opts.As {
	case "raw":
		var raw []byte
		raw, err = cache.Lookup(ctx, st, key, cache.Bytes)
		value = string(raw)
	case "str":
		value, err = cache.Lookup(ctx, st, key, cache.String)
	case "int":
		value, err = cache.Lookup(ctx, st, key, cache.Int)
	case "float":
		value, err = cache.Lookup(ctx, st, key, cache.Float)
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --as %q: must be one of raw, str, int, float", opts.As))
	}
	if errors.Is(err, store.ErrNotFound) {
		return out.Fail(ExitFailure, "E_NOT_FOUND", fmt.Sprintf("key %s not found", key), nil)
	}
	if err != nil {
		return out.Fail(ExitFailure, "E_DECODE", "failed to read value", err)
	}

	return out.Success(GetResult{Key: key, Value: value}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, value)
		return err
	})
}
