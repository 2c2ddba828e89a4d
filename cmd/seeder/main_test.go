package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	count int
	err   error
}

func (s stubCounter) CountTransfers(ctx context.Context) (int, error) {
	return s.count, s.err
}

func TestNeedsSeed(t *testing.T) {
	seed, err := needsSeed(context.Background(), stubCounter{count: 0})
	require.NoError(t, err)
	assert.True(t, seed)

	seed, err = needsSeed(context.Background(), stubCounter{count: TotalTransfers})
	require.NoError(t, err)
	assert.False(t, seed)
}

func TestNeedsSeed_CountError(t *testing.T) {
	boom := errors.New("connection refused")
	seed, err := needsSeed(context.Background(), stubCounter{err: boom})
	require.ErrorIs(t, err, boom)
	assert.False(t, seed)
}
