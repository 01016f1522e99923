package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed(t *testing.T) {
	ctx := context.Background()

	t.Run("Deterministic", func(t *testing.T) {
		e := NewFixed(8)

		a, err := e.Embed(ctx, "green tea whisk")
		require.NoError(t, err)
		b, err := e.Embed(ctx, "green tea whisk")
		require.NoError(t, err)
		assert.Equal(t, a, b)

		other, err := e.Embed(ctx, "ceramic bowl")
		require.NoError(t, err)
		assert.NotEqual(t, a, other)
	})

	t.Run("UnitNorm", func(t *testing.T) {
		e := NewFixed(16)

		vec, err := e.Embed(ctx, "green tea whisk")
		require.NoError(t, err)
		require.Len(t, vec, 16)

		var sq float64
		for _, v := range vec {
			sq += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, sq, 1e-5)
	})

	t.Run("BatchAlignsWithInputs", func(t *testing.T) {
		e := NewFixed(4)

		texts := []string{"a", "b", "c"}
		vecs, err := e.EmbedBatch(ctx, texts)
		require.NoError(t, err)
		require.Len(t, vecs, 3)

		for i, text := range texts {
			single, err := e.Embed(ctx, text)
			require.NoError(t, err)
			assert.Equal(t, single, vecs[i])
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		e := NewFixed(4)

		_, err := e.Embed(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyInput)
		_, err = e.EmbedBatch(ctx, nil)
		assert.ErrorIs(t, err, ErrEmptyInput)
		_, err = e.EmbedBatch(ctx, []string{"ok", ""})
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("InvalidDimension", func(t *testing.T) {
		assert.Panics(t, func() { NewFixed(0) })
	})

	t.Run("Dimension", func(t *testing.T) {
		assert.Equal(t, 384, NewFixed(384).Dimension())
	})
}
