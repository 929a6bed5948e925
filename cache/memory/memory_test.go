package memory

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/eatinator/cache/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answer struct {
	Text string `json:"text"`
}

func TestMemory_SetGetDelete(t *testing.T) {
	m, err := NewMemory(DefaultConfig())
	require.NoError(t, err)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", answer{Text: "Try the risotto"}, time.Minute))

	var got answer
	require.NoError(t, m.Get(ctx, "k", &got))
	assert.Equal(t, "Try the risotto", got.Text)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.True(t, types.IsCacheMiss(m.Get(ctx, "k", &got)))
}

func TestMemory_Miss(t *testing.T) {
	m, err := NewMemory(DefaultConfig())
	require.NoError(t, err)
	defer m.Close()

	var s string
	err = m.Get(context.Background(), "absent", &s)
	assert.ErrorIs(t, err, types.ErrCacheMiss)
	assert.Equal(t, "memory", m.Name())
}
