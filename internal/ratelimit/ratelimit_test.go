package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidRule(t *testing.T) {
	_, err := New("not-a-rule")
	assert.Error(t, err)
}

func TestAllowEnforcesLimit(t *testing.T) {
	l, err := New("2-M")
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "pub_abc123")
		require.NoError(t, err)
		assert.False(t, res.Reached)
	}

	res, err := l.Allow(ctx, "pub_abc123")
	require.NoError(t, err)
	assert.True(t, res.Reached)
}

func TestAllowTracksKeysIndependently(t *testing.T) {
	l, err := New("1-M")
	require.NoError(t, err)

	ctx := context.Background()
	res, err := l.Allow(ctx, "pub_a")
	require.NoError(t, err)
	assert.False(t, res.Reached)

	res, err = l.Allow(ctx, "pub_b")
	require.NoError(t, err)
	assert.False(t, res.Reached)
}
