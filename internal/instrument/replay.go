package instrument

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/encoding/unicode"
)

// Source reads back what CountCalls and CallHistory wrote.
type Source interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

// Call is one recorded invocation.
type Call struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// History is the recorded ledger of one operation.
type History struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Calls []Call `json:"calls"`
}

// ReadHistory loads the counter and the paired input/output lists of name.
// Entries are paired in call order up to the shorter list, so an input left
// behind by a failed call has no Call.
func ReadHistory(ctx context.Context, src Source, name string) (History, error) {
	h := History{Name: name, Calls: []Call{}}

	n, err := src.Exists(ctx, name)
	if err != nil {
		return h, fmt.Errorf("read history %s: %w", name, err)
	}
	if n != 0 {
		raw, err := src.Get(ctx, name)
		if err != nil {
			return h, fmt.Errorf("read history %s: %w", name, err)
		}
		h.Count, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return h, fmt.Errorf("read history %s: counter %q: %w", name, raw, err)
		}
	}

	inputs, err := src.LRange(ctx, InputsKey(name), 0, -1)
	if err != nil {
		return h, fmt.Errorf("read history %s: %w", name, err)
	}
	outputs, err := src.LRange(ctx, OutputsKey(name), 0, -1)
	if err != nil {
		return h, fmt.Errorf("read history %s: %w", name, err)
	}

	pairs := min(len(inputs), len(outputs))
	for i := 0; i < pairs; i++ {
		h.Calls = append(h.Calls, Call{
			Input:  DecodeText(inputs[i]),
			Output: DecodeText(outputs[i]),
		})
	}
	return h, nil
}

// Replay prints the history of name to w:
//
//	Cache.Store was called 2 times:
//	Cache.Store(*("foo",)) -> 3f1c...
//	Cache.Store(*(42,)) -> 9a0b...
//
// A nil source prints nothing.
func Replay(ctx context.Context, w io.Writer, src Source, name string) error {
	if src == nil {
		return nil
	}
	h, err := ReadHistory(ctx, src, name)
	if err != nil {
		return err
	}
	return WriteHistory(w, h)
}

// WriteHistory prints h in the replay text format.
func WriteHistory(w io.Writer, h History) error {
	if _, err := fmt.Fprintf(w, "%s was called %d times:\n", h.Name, h.Count); err != nil {
		return err
	}
	for _, c := range h.Calls {
		if _, err := fmt.Fprintf(w, "%s(*%s) -> %s\n", h.Name, c.Input, c.Output); err != nil {
			return err
		}
	}
	return nil
}

// DecodeText turns stored bytes into UTF-8 text, replacing invalid sequences.
func DecodeText(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
