package instrument

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvcache/internal/store"
)

func TestReplay_ZeroCalls(t *testing.T) {
	st := store.NewMemory()
	var buf bytes.Buffer

	require.NoError(t, Replay(context.Background(), &buf, st, opName))
	assert.Equal(t, "Cache.Store was called 0 times:\n", buf.String())
}

func TestReplay_NilSource(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Replay(context.Background(), &buf, nil, opName))
	assert.Empty(t, buf.String())
}

func TestReplay_Golden(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	op := CallHistory(st, opName, CountCalls(st, opName, keyOp()))

	for _, v := range []any{"foo", 42, []byte("bar"), 3.5} {
		_, err := op(ctx, v)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, Replay(ctx, &buf, st, opName))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "replay_store", buf.Bytes())
}

func TestReadHistory(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	op := CallHistory(st, opName, CountCalls(st, opName, keyOp()))

	_, err := op(ctx, "a")
	require.NoError(t, err)
	_, err = op(ctx, "b")
	require.NoError(t, err)

	got, err := ReadHistory(ctx, st, opName)
	require.NoError(t, err)

	want := History{
		Name:  opName,
		Count: 2,
		Calls: []Call{
			{Input: `("a",)`, Output: "key-1"},
			{Input: `("b",)`, Output: "key-2"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadHistory() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadHistory_PairsUpToShorterList(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	_, err := st.RPush(ctx, InputsKey(opName), []byte(`("ok",)`), []byte(`("failed",)`))
	require.NoError(t, err)
	_, err = st.RPush(ctx, OutputsKey(opName), []byte("key-1"))
	require.NoError(t, err)

	got, err := ReadHistory(ctx, st, opName)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Count)
	assert.Equal(t, []Call{{Input: `("ok",)`, Output: "key-1"}}, got.Calls)
}

func TestReadHistory_InvalidUTF8Replaced(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	_, err := st.RPush(ctx, InputsKey(opName), []byte{'(', 0xff, ',', ')'})
	require.NoError(t, err)
	_, err = st.RPush(ctx, OutputsKey(opName), []byte("out"))
	require.NoError(t, err)

	got, err := ReadHistory(ctx, st, opName)
	require.NoError(t, err)
	require.Len(t, got.Calls, 1)
	assert.Equal(t, "(�,)", got.Calls[0].Input)
}

func TestReadHistory_CorruptCounter(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, opName, []byte("many"), 0))

	_, err := ReadHistory(ctx, st, opName)
	assert.Error(t, err)
}
