package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/kvcache/internal/cache"
	"github.com/roach88/kvcache/internal/instrument"
)

// StoreOptions holds flags for the store command.
type StoreOptions struct {
	*RootOptions
	Type   string
	Replay bool
}

// StoreResult is the JSON payload of the store command.
type StoreResult struct {
	Keys    []string            `json:"keys"`
	History *instrument.History `json:"history,omitempty"`
}

// validValueTypes lists the accepted --type values.
var validValueTypes = []string{"str", "bytes", "int", "float"}

// NewStoreCommand creates the store command.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store <value>...",
		Short: "Flush the store, then store values under random keys",
		Long: `Flush the store database, then store each value under a new random key
and print the keys in argument order.

WARNING: the whole database is flushed first. Do not run this against a
shared Redis database.

Flags must come before the values. Everything after the first value is
taken as a value; when the first value itself starts with "-", end the
flags with "--".

Examples:
  kvcache store hello world
  kvcache store --type int --replay 42 -7
  kvcache store --type int -- -1 -20
  kvcache --backend sqlite --db ./kvcache.db store --type float 3.14 -0.5`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "str", "value type (str|bytes|int|float)")
	cmd.Flags().BoolVar(&opts.Replay, "replay", false, "print the call history after storing")
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func runStore(opts *StoreOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	values := make([]any, len(args))
	for i, arg := range args {
		v, err := parseValue(arg, opts.Type)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid value", err)
		}
		values[i] = v
	}

	st, _, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := cache.New(ctx, st)
	if err != nil {
		return out.Fail(ExitFailure, "E_FLUSH", "failed to flush store", err)
	}

	result := StoreResult{Keys: make([]string, 0, len(values))}
	for _, v := range values {
		key, err := c.Store(ctx, v)
		if err != nil {
			return out.Fail(ExitFailure, "E_STORE", "failed to store value", err)
		}
		result.Keys = append(result.Keys, key)
	}

	if opts.Replay {
		h, err := instrument.ReadHistory(ctx, st, cache.StoreOp)
		if err != nil {
			return out.Fail(ExitFailure, "E_REPLAY", "failed to read history", err)
		}
		result.History = &h
	}

	return out.Success(result, func(w io.Writer) error {
		for _, key := range result.Keys {
			fmt.Fprintln(w, key)
		}
		if result.History != nil {
			return instrument.WriteHistory(w, *result.History)
		}
		return nil
	})
}

// parseValue converts a command-line argument into the requested scalar type.
func parseValue(arg, typ string) (any, error) {
	switch typ {
	case "str":
		return arg, nil
	case "bytes":
		return []byte(arg), nil
	case "int":
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", arg)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a float", arg)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("invalid type %q: must be one of %v", typ, validValueTypes)
	}
}
