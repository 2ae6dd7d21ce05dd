package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryWithFakes(t *testing.T, factoryCalls *atomic.Int32) *Registry {
	t.Helper()

	srv, _ := newNERServer(t, func(int, nerPayload) []nerEntity { return nil })
	cm := &scriptedChatModel{}

	return NewRegistry(func(ctx context.Context, sessionID string) (*Agent, error) {
		if factoryCalls != nil {
			factoryCalls.Add(1)
		}
		return newTestAgent(t, srv.URL, cm), nil
	})
}

func TestGetOrCreateReturnsSameAgent(t *testing.T) {
	var calls atomic.Int32
	r := newRegistryWithFakes(t, &calls)
	ctx := context.Background()

	a1, err := r.GetOrCreate(ctx, "farmer-1")
	require.NoError(t, err)
	a2, err := r.GetOrCreate(ctx, "farmer-1")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, r.Len())
}

func TestGetOrCreateSeparatesSessions(t *testing.T) {
	r := newRegistryWithFakes(t, nil)
	ctx := context.Background()

	a1, err := r.GetOrCreate(ctx, "farmer-1")
	require.NoError(t, err)
	a2, err := r.GetOrCreate(ctx, "farmer-2")
	require.NoError(t, err)

	assert.NotSame(t, a1, a2)
	assert.Equal(t, 2, r.Len())
}

func TestConcurrentGetOrCreateBuildsOnce(t *testing.T) {
	var calls atomic.Int32
	r := newRegistryWithFakes(t, &calls)

	const n = 32
	agents := make([]*Agent, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := r.GetOrCreate(context.Background(), "farmer-1")
			assert.NoError(t, err)
			agents[i] = a
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "the factory must run once per session id")
	for i := 1; i < n; i++ {
		assert.Same(t, agents[0], agents[i])
	}
}

func TestGetOrCreateFactoryErrorIsNotCached(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("factory boom")

	r := NewRegistry(func(ctx context.Context, sessionID string) (*Agent, error) {
		if calls.Add(1) == 1 {
			return nil, fmt.Errorf("building %s: %w", sessionID, boom)
		}
		return &Agent{sessionID: sessionID}, nil
	})

	_, err := r.GetOrCreate(context.Background(), "farmer-1")
	require.ErrorIs(t, err, boom)
	assert.Zero(t, r.Len(), "a failed construction must not register the session")

	a, err := r.GetOrCreate(context.Background(), "farmer-1")
	require.NoError(t, err)
	assert.NotNil(t, a)
	assert.Equal(t, 1, r.Len())
}
