package whale

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whalescan/internal/domain/whale"
	"whalescan/pkg/errors"
)

// mockSource implements DataSource for testing
type mockSource struct {
	getBalanceFunc        func(ctx context.Context, chainID, address string) (*whale.AccountSnapshot, error)
	getTransactionsFunc   func(ctx context.Context, chainID, address string, limit int) ([]whale.Transaction, error)
	getTokenTransfersFunc func(ctx context.Context, chainID, address string, limit int) ([]whale.TokenTransfer, error)
}

func (m *mockSource) GetBalance(ctx context.Context, chainID, address string) (*whale.AccountSnapshot, error) {
	if m.getBalanceFunc != nil {
		return m.getBalanceFunc(ctx, chainID, address)
	}
	return &whale.AccountSnapshot{Address: address, ChainID: chainID}, nil
}

func (m *mockSource) GetTransactions(ctx context.Context, chainID, address string, limit int) ([]whale.Transaction, error) {
	if m.getTransactionsFunc != nil {
		return m.getTransactionsFunc(ctx, chainID, address, limit)
	}
	return nil, nil
}

func (m *mockSource) GetTokenTransfers(ctx context.Context, chainID, address string, limit int) ([]whale.TokenTransfer, error) {
	if m.getTokenTransfersFunc != nil {
		return m.getTokenTransfersFunc(ctx, chainID, address, limit)
	}
	return nil, nil
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(source DataSource) *Service {
	s := NewService(source, 2)
	s.now = func() time.Time { return testNow }
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassify(t *testing.T) {
	s := newTestService(&mockSource{})

	tests := []struct {
		balance string
		want    whale.Class
	}{
		{"0", whale.ClassShrimp},
		{"9.999999", whale.ClassShrimp},
		{"10", whale.ClassSmallWhale},
		{"99.99", whale.ClassSmallWhale},
		{"100", whale.ClassMediumWhale},
		{"999.5", whale.ClassMediumWhale},
		{"1000", whale.ClassLargeWhale},
		{"9999.99", whale.ClassLargeWhale},
		{"10000", whale.ClassMegaWhale},
		{"250000", whale.ClassMegaWhale},
	}
	for _, tt := range tests {
		t.Run(tt.balance, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Classify(dec(tt.balance)))
		})
	}
}

func TestClassify_NegativeBalanceIsShrimp(t *testing.T) {
	s := newTestService(&mockSource{})
	assert.Equal(t, whale.ClassShrimp, s.Classify(dec("-1")))
}

func TestAnalyzeWhale(t *testing.T) {
	const addr = "0x1111111111111111111111111111111111111111"
	const other = "0x2222222222222222222222222222222222222222"

	source := &mockSource{
		getBalanceFunc: func(_ context.Context, chainID, address string) (*whale.AccountSnapshot, error) {
			return &whale.AccountSnapshot{
				Address: address,
				ChainID: chainID,
				Balance: dec("1500"),
			}, nil
		},
		getTransactionsFunc: func(_ context.Context, _, _ string, _ int) ([]whale.Transaction, error) {
			return []whale.Transaction{
				{Hash: "0xa", From: other, To: addr, Value: dec("100"), Timestamp: testNow.Add(-time.Hour), BlockNumber: 300, Success: true},
				{Hash: "0xb", From: addr, To: other, Value: dec("30"), Timestamp: testNow.Add(-2 * time.Hour), BlockNumber: 200, Success: true},
				{Hash: "0xc", From: other, To: addr, Value: dec("500"), Timestamp: testNow.Add(-3 * time.Hour), BlockNumber: 100, Success: false},
			}, nil
		},
		getTokenTransfersFunc: func(_ context.Context, _, _ string, _ int) ([]whale.TokenTransfer, error) {
			return []whale.TokenTransfer{
				{Hash: "0xd", ContractAddress: "0xusdt", TokenSymbol: "USDT", Amount: dec("5000")},
				{Hash: "0xe", ContractAddress: "0xusdc", TokenSymbol: "USDC", Amount: dec("100")},
				{Hash: "0xf", ContractAddress: "0xusdt", TokenSymbol: "USDT", Amount: dec("1")},
			}, nil
		},
	}

	s := newTestService(source)
	report, err := s.AnalyzeWhale(context.Background(), "ethereum", addr)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, addr, report.Address)
	assert.Equal(t, "ethereum", report.ChainID)
	assert.Equal(t, whale.ClassLargeWhale, report.Class)
	assert.True(t, report.Balance.Equal(dec("1500")))
	assert.Equal(t, testNow, report.GeneratedAt)

	assert.Equal(t, 3, report.TotalTransactions)
	// values above 50: the 100 inbound and the failed 500
	assert.Equal(t, 2, report.LargeTransactions)
	assert.True(t, report.MaxTransaction.Equal(dec("500")))
	// net flow counts successful transactions only: +100 - 30
	assert.True(t, report.NetFlow.Equal(dec("70")), "net flow %s", report.NetFlow)
	assert.True(t, report.AvgTransaction.Equal(dec("210")), "avg %s", report.AvgTransaction)

	assert.Equal(t, testNow.Add(-2*time.Hour), report.FirstSeen)
	assert.Equal(t, testNow.Add(-time.Hour), report.LastActivity)

	// 3 of the 20-transaction window fall within 30 days
	assert.InDelta(t, 15.0, report.ActivityScore, 0.001)
	// +30 balance above 1000, +40 history younger than 30 days
	assert.InDelta(t, 70.0, report.RiskScore, 0.001)
	assert.Equal(t, 2, report.TokenDiversity)
	assert.Empty(t, report.Label)
}

func TestAnalyzeWhale_KnownWhaleLabeled(t *testing.T) {
	const foundation = "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"

	source := &mockSource{
		getBalanceFunc: func(_ context.Context, chainID, address string) (*whale.AccountSnapshot, error) {
			return &whale.AccountSnapshot{Address: address, ChainID: chainID, Balance: dec("300000")}, nil
		},
	}

	s := newTestService(source)
	report, err := s.AnalyzeWhale(context.Background(), "ethereum", foundation)
	require.NoError(t, err)

	assert.Equal(t, whale.ClassMegaWhale, report.Class)
	assert.Equal(t, "Ethereum Foundation", report.Label)
	// +30 balance, -20 curated label, no transaction history
	assert.InDelta(t, 10.0, report.RiskScore, 0.001)
	assert.Zero(t, report.ActivityScore)
}

func TestAnalyzeWhale_ErrorPropagates(t *testing.T) {
	source := &mockSource{
		getBalanceFunc: func(context.Context, string, string) (*whale.AccountSnapshot, error) {
			return nil, errors.Wrap(errors.ErrUpstreamUnavailable, "explorer down")
		},
	}

	s := newTestService(source)
	report, err := s.AnalyzeWhale(context.Background(), "ethereum", "0x1111111111111111111111111111111111111111")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, errors.ErrUpstreamUnavailable))
}

func TestSignificance(t *testing.T) {
	s := newTestService(&mockSource{})

	assert.Equal(t, "mega movement", s.Significance(dec("10000")))
	assert.Equal(t, "critical", s.Significance(dec("5000")))
	assert.Equal(t, "major", s.Significance(dec("1500")))
	assert.Equal(t, "significant", s.Significance(dec("500")))
	assert.Equal(t, "notable", s.Significance(dec("499.99")))
}
