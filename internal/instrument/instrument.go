// Package instrument records how often an operation runs and what it was
// called with, using the key-value store as the ledger.
//
// Instrumentation is explicit middleware: an operation is a Func, and
// CountCalls and CallHistory each return a new Func that does the bookkeeping
// before delegating. Compose them at the call site:
//
//	op = instrument.CallHistory(st, name, instrument.CountCalls(st, name, op))
//
// Keys written for an operation named N:
//   - N          call counter (INCR)
//   - N:inputs   one formatted argument tuple per call (RPUSH)
//   - N:outputs  one formatted result per successful call (RPUSH)
package instrument

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/kvcache/internal/store"
)

// Func is an operation that can be instrumented.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Args carries several positional arguments through a single Func input.
// CallHistory records each element as its own tuple member.
type Args []any

// InputsKey returns the list key holding the input history of name.
func InputsKey(name string) string {
	return name + ":inputs"
}

// OutputsKey returns the list key holding the output history of name.
func OutputsKey(name string) string {
	return name + ":outputs"
}

// CountCalls increments the counter for name before every call to next.
// A nil counter disables counting and returns next unchanged.
func CountCalls[In, Out any](c store.Counter, name string, next Func[In, Out]) Func[In, Out] {
	if c == nil {
		return next
	}
	return func(ctx context.Context, in In) (Out, error) {
		n, err := c.Incr(ctx, name)
		if err != nil {
			var zero Out
			return zero, fmt.Errorf("count %s: %w", name, err)
		}
		slog.Debug("call counted", "op", name, "count", n)
		return next(ctx, in)
	}
}

// CallHistory appends the formatted input before calling next and the
// formatted result after it returns. A failed call leaves an input entry with
// no matching output. A nil lister disables recording.
func CallHistory[In, Out any](l store.Lister, name string, next Func[In, Out]) Func[In, Out] {
	if l == nil {
		return next
	}
	inKey, outKey := InputsKey(name), OutputsKey(name)
	return func(ctx context.Context, in In) (Out, error) {
		var zero Out
		if _, err := l.RPush(ctx, inKey, []byte(formatInput(in))); err != nil {
			return zero, fmt.Errorf("record input %s: %w", name, err)
		}

		out, err := next(ctx, in)
		if err != nil {
			return out, err
		}

		if _, err := l.RPush(ctx, outKey, []byte(FormatResult(out))); err != nil {
			return zero, fmt.Errorf("record output %s: %w", name, err)
		}
		return out, nil
	}
}

func formatInput(in any) string {
	if args, ok := in.(Args); ok {
		return FormatArgs(args...)
	}
	return FormatArgs(in)
}

// FormatArgs renders positional arguments as a parenthesised tuple.
//
// Strings are quoted, byte slices are written as b"...", everything else uses
// %v. A single argument keeps a trailing comma: ("hello",).
func FormatArgs(args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatArg(a)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatArg(a any) string {
	switch v := a.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return fmt.Sprintf("b%q", v)
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatResult renders a result as recorded in the outputs list: strings and
// byte slices verbatim, everything else with %v.
func FormatResult(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case []byte:
		return string(r)
	default:
		return fmt.Sprintf("%v", r)
	}
}
