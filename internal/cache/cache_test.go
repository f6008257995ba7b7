package cache

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvcache/internal/instrument"
	"github.com/roach88/kvcache/internal/store"
	"github.com/roach88/kvcache/internal/testutil"
)

func newTestCache(t *testing.T, opts ...Option) (*Cache, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	c, err := New(context.Background(), st, opts...)
	require.NoError(t, err)
	return c, st
}

func TestNew_FlushesStore(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "leftover", []byte("x"), 0))

	_, err := New(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
}

func TestNew_NilStore(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestStore_ReturnsUUIDKey(t *testing.T) {
	c, _ := newTestCache(t)

	key, err := c.Store(context.Background(), "hello")
	require.NoError(t, err)

	parsed, err := uuid.Parse(key)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestStore_UniqueKeys(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := c.Store(ctx, i)
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestStore_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		value any
		raw   []byte
	}{
		{"text", "foo", []byte("foo")},
		{"binary", []byte{0x00, 0x01, 0xfe}, []byte{0x00, 0x01, 0xfe}},
		{"integer", 123, []byte("123")},
		{"float", 1.5, []byte("1.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := c.Store(ctx, tt.value)
			require.NoError(t, err)

			got, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, got)
		})
	}
}

func TestStore_UnsupportedValue(t *testing.T) {
	c, st := newTestCache(t)
	ctx := context.Background()

	_, err := c.Store(ctx, map[string]int{"a": 1})
	assert.ErrorIs(t, err, store.ErrUnsupportedValue)

	// The attempt is still counted and its input recorded; no output is.
	h, err := instrument.ReadHistory(ctx, st, StoreOp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.Count)
	assert.Empty(t, h.Calls)
}

func TestStore_CountsCalls(t *testing.T) {
	c, st := newTestCache(t)
	ctx := context.Background()

	const n = 4
	for i := 0; i < n; i++ {
		_, err := c.Store(ctx, "v")
		require.NoError(t, err)
	}

	got, err := Lookup(ctx, st, StoreOp, Int)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got)
}

func TestStore_HistoryInCallOrder(t *testing.T) {
	c, st := newTestCache(t, WithKeyGenerator(testutil.NewSequentialKeys("")))
	ctx := context.Background()

	for _, v := range []any{"first", "second", 3} {
		_, err := c.Store(ctx, v)
		require.NoError(t, err)
	}

	h, err := instrument.ReadHistory(ctx, st, StoreOp)
	require.NoError(t, err)
	assert.Equal(t, []instrument.Call{
		{Input: `("first",)`, Output: "key-1"},
		{Input: `("second",)`, Output: "key-2"},
		{Input: `(3,)`, Output: "key-3"},
	}, h.Calls)
}

func TestStore_WithoutInstrumentation(t *testing.T) {
	c, st := newTestCache(t, WithoutInstrumentation())
	ctx := context.Background()

	_, err := c.Store(ctx, "v")
	require.NoError(t, err)

	n, err := st.Exists(ctx, StoreOp, instrument.InputsKey(StoreOp), instrument.OutputsKey(StoreOp))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestGet_Absent(t *testing.T) {
	c, _ := newTestCache(t)

	got, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetStr(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	key, err := c.Store(ctx, "héllo")
	require.NoError(t, err)

	got, err := c.GetStr(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "héllo", got)
}

func TestGetStr_InvalidUTF8(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	key, err := c.Store(ctx, []byte{0xff, 0xfe})
	require.NoError(t, err)

	_, err = c.GetStr(ctx, key)
	assert.Error(t, err)
}

func TestGetInt(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	key, err := c.Store(ctx, -42)
	require.NoError(t, err)

	got, err := c.GetInt(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(-42), got)

	textKey, err := c.Store(ctx, "forty-two")
	require.NoError(t, err)
	_, err = c.GetInt(ctx, textKey)
	assert.Error(t, err)
}

func TestGetFloat(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	key, err := c.Store(ctx, 2.75)
	require.NoError(t, err)

	got, err := c.GetFloat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2.75, got)
}

func TestGetAs_AbsentIsNotFound(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.GetInt(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetAs_CustomDecoder(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	key, err := c.Store(ctx, "abc")
	require.NoError(t, err)

	length := func(raw []byte) (int, error) { return len(raw), nil }
	got, err := GetAs(ctx, c, key, length)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestReplay(t *testing.T) {
	c, _ := newTestCache(t, WithKeyGenerator(testutil.NewSequentialKeys("")))
	ctx := context.Background()

	_, err := c.Store(ctx, "foo")
	require.NoError(t, err)
	_, err = c.Store(ctx, 7)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Replay(ctx, &buf))
	assert.Equal(t,
		"Cache.Store was called 2 times:\n"+
			"Cache.Store(*(\"foo\",)) -> key-1\n"+
			"Cache.Store(*(7,)) -> key-2\n",
		buf.String())
}

func TestReplay_NoCalls(t *testing.T) {
	c, _ := newTestCache(t)

	var buf bytes.Buffer
	require.NoError(t, c.Replay(context.Background(), &buf))
	assert.Equal(t, "Cache.Store was called 0 times:\n", buf.String())
}
