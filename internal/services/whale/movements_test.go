package whale

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whalescan/internal/domain/whale"
	"whalescan/pkg/errors"
)

func TestDetectMovements(t *testing.T) {
	const addr = "0x1111111111111111111111111111111111111111"
	const other = "0x2222222222222222222222222222222222222222"

	source := &mockSource{
		getTransactionsFunc: func(_ context.Context, _, _ string, _ int) ([]whale.Transaction, error) {
			return []whale.Transaction{
				// newest first, as the explorer returns them
				{Hash: "0xsmall", From: other, To: addr, Value: dec("100"), BlockNumber: 400, Success: true},
				{Hash: "0xfailed", From: addr, To: other, Value: dec("9000"), BlockNumber: 300, Success: false},
				{Hash: "0xout", From: addr, To: other, Value: dec("100.000001"), BlockNumber: 200, Success: true},
				{Hash: "0xin", From: other, To: addr, Value: dec("750"), BlockNumber: 100, Success: true},
			}, nil
		},
		getTokenTransfersFunc: func(_ context.Context, _, _ string, _ int) ([]whale.TokenTransfer, error) {
			return []whale.TokenTransfer{
				{Hash: "0xtoken", From: other, To: addr, TokenSymbol: "USDT", Amount: dec("150"), BlockNumber: 250},
			}, nil
		},
	}

	s := newTestService(source)
	seq, err := s.DetectMovements(context.Background(), "ethereum", addr, dec("100"))
	require.NoError(t, err)

	var events []whale.MovementEvent
	for ev := range seq {
		events = append(events, ev)
	}

	// exactly-threshold and failed entries are dropped, order is ascending
	require.Len(t, events, 3)
	assert.Equal(t, "0xin", events[0].TxHash)
	assert.Equal(t, "0xout", events[1].TxHash)
	assert.Equal(t, "0xtoken", events[2].TxHash)

	assert.Equal(t, whale.DirectionInbound, events[0].Direction)
	assert.Equal(t, other, events[0].Counterparty)
	assert.Equal(t, whale.MovementNative, events[0].Kind)

	assert.Equal(t, whale.DirectionOutbound, events[1].Direction)
	assert.Equal(t, other, events[1].Counterparty)

	assert.Equal(t, whale.MovementToken, events[2].Kind)
	assert.Equal(t, "USDT", events[2].TokenSymbol)

	for _, ev := range events {
		assert.NotEmpty(t, ev.ID)
		assert.True(t, ev.ExceedsThreshold)
		assert.Equal(t, addr, ev.Address)
	}
}

func TestDetectMovements_EarlyBreak(t *testing.T) {
	const addr = "0x1111111111111111111111111111111111111111"
	const other = "0x2222222222222222222222222222222222222222"

	source := &mockSource{
		getTransactionsFunc: func(_ context.Context, _, _ string, _ int) ([]whale.Transaction, error) {
			return []whale.Transaction{
				{Hash: "0xa", From: other, To: addr, Value: dec("500"), BlockNumber: 1, Success: true},
				{Hash: "0xb", From: other, To: addr, Value: dec("600"), BlockNumber: 2, Success: true},
			}, nil
		},
	}

	s := newTestService(source)
	seq, err := s.DetectMovements(context.Background(), "ethereum", addr, dec("100"))
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestDetectMovements_FetchErrorPropagates(t *testing.T) {
	source := &mockSource{
		getTransactionsFunc: func(context.Context, string, string, int) ([]whale.Transaction, error) {
			return nil, errors.ErrRateLimited
		},
	}

	s := newTestService(source)
	seq, err := s.DetectMovements(context.Background(), "ethereum", "0x1111111111111111111111111111111111111111", dec("10"))
	require.Error(t, err)
	assert.Nil(t, seq)
	assert.True(t, errors.Is(err, errors.ErrRateLimited))
}

func TestTrackExchangeWhales(t *testing.T) {
	const binance = "0x28c6c06298d514db089934071355e5743bf21d60"
	const trader = "0x3333333333333333333333333333333333333333"

	source := &mockSource{
		getTransactionsFunc: func(_ context.Context, _, address string, _ int) ([]whale.Transaction, error) {
			require.Equal(t, binance, address)
			return []whale.Transaction{
				{Hash: "0xdep", From: trader, To: binance, Value: dec("2000"), BlockNumber: 2, Success: true},
				{Hash: "0xwd", From: binance, To: trader, Value: dec("5000"), BlockNumber: 1, Success: true},
			}, nil
		},
	}

	s := newTestService(source)
	movements, err := s.TrackExchangeWhales(context.Background(), "ethereum", []string{binance}, dec("100"))
	require.NoError(t, err)
	require.Len(t, movements, 2)

	// sorted by magnitude descending
	assert.Equal(t, "0xwd", movements[0].TxHash)
	assert.Equal(t, "withdrawal", movements[0].MovementType)
	assert.Equal(t, "0xdep", movements[1].TxHash)
	assert.Equal(t, "deposit", movements[1].MovementType)

	for _, m := range movements {
		assert.Equal(t, "Binance", m.ExchangeLabel)
	}
}

func TestTrackExchangeWhales_SkipsFailingAddress(t *testing.T) {
	const good = "0x4444444444444444444444444444444444444444"
	const bad = "0x5555555555555555555555555555555555555555"

	source := &mockSource{
		getTransactionsFunc: func(_ context.Context, _, address string, _ int) ([]whale.Transaction, error) {
			if address == bad {
				return nil, errors.ErrUpstreamUnavailable
			}
			return []whale.Transaction{
				{Hash: "0xok", From: bad, To: good, Value: dec("900"), BlockNumber: 1, Success: true},
			}, nil
		},
	}

	s := newTestService(source)
	movements, err := s.TrackExchangeWhales(context.Background(), "ethereum", []string{bad, good}, dec("100"))
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "0xok", movements[0].TxHash)
}

func TestTrackExchangeWhales_UnknownChainAborts(t *testing.T) {
	source := &mockSource{
		getTransactionsFunc: func(context.Context, string, string, int) ([]whale.Transaction, error) {
			return nil, errors.Wrap(errors.ErrUnknownChain, "solana")
		},
	}

	s := newTestService(source)
	movements, err := s.TrackExchangeWhales(context.Background(), "solana", []string{"0x6666666666666666666666666666666666666666"}, dec("1"))
	require.Error(t, err)
	assert.Nil(t, movements)
	assert.True(t, errors.Is(err, errors.ErrUnknownChain))
}

func TestDiscoverWhaleMovements(t *testing.T) {
	const counterparty = "0x7777777777777777777777777777777777777777"

	source := &mockSource{
		getBalanceFunc: func(_ context.Context, chainID, address string) (*whale.AccountSnapshot, error) {
			return &whale.AccountSnapshot{Address: address, ChainID: chainID, Balance: dec("50000")}, nil
		},
		getTransactionsFunc: func(_ context.Context, _, address string, _ int) ([]whale.Transaction, error) {
			if address != "0x28c6c06298d514db089934071355e5743bf21d60" {
				return nil, nil
			}
			return []whale.Transaction{
				{Hash: "0xbig", From: address, To: counterparty, Value: dec("3000"), Timestamp: testNow, BlockNumber: 5, Success: true},
				{Hash: "0xtiny", From: address, To: counterparty, Value: dec("10"), Timestamp: testNow, BlockNumber: 4, Success: true},
			}, nil
		},
	}

	s := newTestService(source)
	movements, err := s.DiscoverWhaleMovements(context.Background(), "ethereum", dec("1000"))
	require.NoError(t, err)
	require.Len(t, movements, 1)

	m := movements[0]
	assert.Equal(t, "0xbig", m.Event.TxHash)
	assert.True(t, m.Event.ExceedsThreshold)
	assert.Equal(t, whale.ClassMegaWhale, m.FromClass)
	assert.Equal(t, whale.ClassMegaWhale, m.ToClass)
	assert.Equal(t, "Binance 14", m.FromLabel)
	assert.Empty(t, m.ToLabel)
}

func TestDiscoverWhaleMovements_BalanceLookupsCached(t *testing.T) {
	const addr = "0x28c6c06298d514db089934071355e5743bf21d60"
	const counterparty = "0x8888888888888888888888888888888888888888"

	balanceCalls := map[string]int{}
	source := &mockSource{
		getBalanceFunc: func(_ context.Context, chainID, address string) (*whale.AccountSnapshot, error) {
			balanceCalls[address]++
			return &whale.AccountSnapshot{Address: address, ChainID: chainID, Balance: dec("20000")}, nil
		},
		getTransactionsFunc: func(_ context.Context, _, address string, _ int) ([]whale.Transaction, error) {
			if address != addr {
				return nil, nil
			}
			return []whale.Transaction{
				{Hash: "0x1", From: addr, To: counterparty, Value: dec("5000"), Timestamp: testNow, BlockNumber: 2, Success: true},
				{Hash: "0x2", From: counterparty, To: addr, Value: dec("4000"), Timestamp: testNow, BlockNumber: 1, Success: true},
			}, nil
		},
	}

	s := newTestService(source)
	movements, err := s.DiscoverWhaleMovements(context.Background(), "ethereum", dec("1000"))
	require.NoError(t, err)
	require.Len(t, movements, 2)

	assert.Equal(t, 1, balanceCalls[addr])
	assert.Equal(t, 1, balanceCalls[counterparty])
}

func TestDetectMovements_EmptyHistory(t *testing.T) {
	s := newTestService(&mockSource{})

	seq, err := s.DetectMovements(context.Background(), "ethereum", "0x9999999999999999999999999999999999999999", dec("0"))
	require.NoError(t, err)
	for range seq {
		t.Fatal("no movements expected from an empty history")
	}
}
