package whale

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whalescan/internal/domain/whale"
	"whalescan/pkg/errors"
)

// graphSource serves a fixed transaction graph keyed by address and counts
// fetches per address.
type graphSource struct {
	mockSource
	mu    sync.Mutex
	graph map[string][]whale.Transaction
	calls map[string]int
}

func newGraphSource(graph map[string][]whale.Transaction) *graphSource {
	g := &graphSource{graph: graph, calls: map[string]int{}}
	g.getTransactionsFunc = func(_ context.Context, _, address string, _ int) ([]whale.Transaction, error) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.calls[address]++
		return g.graph[address], nil
	}
	return g
}

func tx(from, to, value string, block int64) whale.Transaction {
	return whale.Transaction{
		Hash:        from + "-" + to,
		From:        from,
		To:          to,
		Value:       dec(value),
		BlockNumber: block,
		Success:     true,
	}
}

func TestDiscoverTopWhales_CycleTerminates(t *testing.T) {
	const a = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	const b = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	source := newGraphSource(map[string][]whale.Transaction{
		a: {tx(a, b, "5000", 1)},
		b: {tx(b, a, "5000", 2)},
	})

	s := newTestService(source)
	candidates, err := s.DiscoverTopWhales(context.Background(), "ethereum", a, 3)
	require.NoError(t, err)

	// the seed never comes back as its own candidate
	require.Len(t, candidates, 1)
	assert.Equal(t, b, candidates[0].Address)
	assert.Equal(t, a, candidates[0].Via)
	assert.Equal(t, 1, candidates[0].Hops)

	// each address fetched exactly once despite the cycle
	assert.Equal(t, 1, source.calls[a])
	assert.Equal(t, 1, source.calls[b])
}

func TestDiscoverTopWhales_RanksByObservedValue(t *testing.T) {
	const seed = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	const big = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	const mid = "0xcccccccccccccccccccccccccccccccccccccccc"
	const far = "0xdddddddddddddddddddddddddddddddddddddddd"

	source := newGraphSource(map[string][]whale.Transaction{
		seed: {
			tx(seed, big, "9000", 1),
			tx(mid, seed, "400", 2),
		},
		big: {tx(big, far, "50000", 3)},
	})

	s := newTestService(source)
	candidates, err := s.DiscoverTopWhales(context.Background(), "ethereum", seed, 2)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, far, candidates[0].Address)
	assert.True(t, candidates[0].MaxObserved.Equal(dec("50000")))
	assert.Equal(t, 2, candidates[0].Hops)
	assert.Equal(t, big, candidates[0].Via)

	assert.Equal(t, big, candidates[1].Address)
	assert.Equal(t, mid, candidates[2].Address)
}

func TestDiscoverTopWhales_DepthClamped(t *testing.T) {
	const a = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	const b = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	const c = "0xcccccccccccccccccccccccccccccccccccccccc"
	const d = "0xdddddddddddddddddddddddddddddddddddddddd"
	const e = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

	source := newGraphSource(map[string][]whale.Transaction{
		a: {tx(a, b, "100", 1)},
		b: {tx(b, c, "100", 2)},
		c: {tx(c, d, "100", 3)},
		d: {tx(d, e, "100", 4)},
	})

	s := newTestService(source)
	candidates, err := s.DiscoverTopWhales(context.Background(), "ethereum", a, 99)
	require.NoError(t, err)

	// clamped to three hops: b, c, d reachable, e is not
	require.Len(t, candidates, 3)
	for _, cand := range candidates {
		assert.LessOrEqual(t, cand.Hops, MaxDiscoveryDepth)
		assert.NotEqual(t, e, cand.Address)
	}
}

func TestDiscoverTopWhales_SeedFailureAborts(t *testing.T) {
	source := &mockSource{
		getTransactionsFunc: func(context.Context, string, string, int) ([]whale.Transaction, error) {
			return nil, errors.Wrap(errors.ErrUpstreamUnavailable, "explorer down")
		},
	}

	s := newTestService(source)
	candidates, err := s.DiscoverTopWhales(context.Background(), "ethereum", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 0)
	require.Error(t, err)
	assert.Nil(t, candidates)
	assert.True(t, errors.Is(err, errors.ErrUpstreamUnavailable))
}

func TestDiscoverTopWhales_DeepFailurePrunesBranch(t *testing.T) {
	const seed = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	const b = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	source := newGraphSource(map[string][]whale.Transaction{
		seed: {tx(seed, b, "1000", 1)},
	})
	inner := source.getTransactionsFunc
	source.getTransactionsFunc = func(ctx context.Context, chainID, address string, limit int) ([]whale.Transaction, error) {
		if address == b {
			return nil, errors.ErrRateLimited
		}
		return inner(ctx, chainID, address, limit)
	}

	s := newTestService(source)
	candidates, err := s.DiscoverTopWhales(context.Background(), "ethereum", seed, 2)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, b, candidates[0].Address)
}

func TestDiscoverTopWhales_FanOutBounded(t *testing.T) {
	const seed = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	txs := []whale.Transaction{
		tx(seed, "0x1111111111111111111111111111111111111111", "10", 1),
		tx(seed, "0x2222222222222222222222222222222222222222", "20", 2),
		tx(seed, "0x3333333333333333333333333333333333333333", "30", 3),
		tx(seed, "0x4444444444444444444444444444444444444444", "40", 4),
		tx(seed, "0x5555555555555555555555555555555555555555", "50", 5),
		tx(seed, "0x6666666666666666666666666666666666666666", "60", 6),
		tx(seed, "0x7777777777777777777777777777777777777777", "70", 7),
	}

	source := newGraphSource(map[string][]whale.Transaction{seed: txs})

	s := newTestService(source)
	candidates, err := s.DiscoverTopWhales(context.Background(), "ethereum", seed, 1)
	require.NoError(t, err)

	// only the five largest counterparties survive the cut
	require.Len(t, candidates, discoveryFanOut)
	assert.True(t, candidates[0].MaxObserved.Equal(dec("70")))
	assert.True(t, candidates[len(candidates)-1].MaxObserved.Equal(dec("30")))
}
