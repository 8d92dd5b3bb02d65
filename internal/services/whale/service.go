package whale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"whalescan/internal/chains"
	"whalescan/internal/domain/whale"
	"whalescan/pkg/logger"
)

// DataSource is the slice of the explorer client the engine consumes.
// Retry and rate limiting live behind it; the engine never retries.
type DataSource interface {
	GetBalance(ctx context.Context, chainID, address string) (*whale.AccountSnapshot, error)
	GetTransactions(ctx context.Context, chainID, address string, limit int) ([]whale.Transaction, error)
	GetTokenTransfers(ctx context.Context, chainID, address string, limit int) ([]whale.TokenTransfer, error)
}

// Classification thresholds in native units. Each tier is inclusive on its
// lower bound, so equality at a boundary belongs to the higher tier.
var (
	megaWhaleMin   = decimal.NewFromInt(10000)
	largeWhaleMin  = decimal.NewFromInt(1000)
	mediumWhaleMin = decimal.NewFromInt(100)
	smallWhaleMin  = decimal.NewFromInt(10)

	// largeTxMin marks a single transaction as "large" in report metrics.
	largeTxMin = decimal.NewFromInt(50)
)

// Fetch windows per analysis.
const (
	analysisTxWindow       = 100
	analysisTransferWindow = 50
)

// Service is the whale analysis engine. It holds no state between calls;
// every result is recomputed from a fresh fetch.
type Service struct {
	source         DataSource
	maxConcurrency int
	log            *logger.Logger
	now            func() time.Time
}

// NewService creates the analysis engine. maxConcurrency bounds the fan-out
// of batch operations; the shared rate limiter still paces actual requests.
func NewService(source DataSource, maxConcurrency int) *Service {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Service{
		source:         source,
		maxConcurrency: maxConcurrency,
		log:            logger.Get().With("component", "whale_engine"),
		now:            time.Now,
	}
}

// Classify buckets a native balance into a whale tier. Total over all
// non-negative balances; the five tiers partition the domain with no gap
// or overlap at 10, 100, 1000 and 10000.
func (s *Service) Classify(balance decimal.Decimal) whale.Class {
	switch {
	case balance.GreaterThanOrEqual(megaWhaleMin):
		return whale.ClassMegaWhale
	case balance.GreaterThanOrEqual(largeWhaleMin):
		return whale.ClassLargeWhale
	case balance.GreaterThanOrEqual(mediumWhaleMin):
		return whale.ClassMediumWhale
	case balance.GreaterThanOrEqual(smallWhaleMin):
		return whale.ClassSmallWhale
	default:
		return whale.ClassShrimp
	}
}

// KnownWhaleLabel returns the curated label for an address, if any.
func (s *Service) KnownWhaleLabel(chainID, address string) string {
	return chains.KnownWhales(chainID)[strings.ToLower(address)]
}

// ExchangeLabel returns the exchange name for an address, if any.
func (s *Service) ExchangeLabel(chainID, address string) string {
	return chains.ExchangeAddresses(chainID)[strings.ToLower(address)]
}

// Significance labels the severity of a movement magnitude.
func (s *Service) Significance(value decimal.Decimal) string {
	switch {
	case value.GreaterThanOrEqual(decimal.NewFromInt(10000)):
		return "mega movement"
	case value.GreaterThanOrEqual(decimal.NewFromInt(5000)):
		return "critical"
	case value.GreaterThanOrEqual(decimal.NewFromInt(1000)):
		return "major"
	case value.GreaterThanOrEqual(decimal.NewFromInt(500)):
		return "significant"
	default:
		return "notable"
	}
}

// FormatSummary renders a one-paragraph human-readable digest of a report.
func (s *Service) FormatSummary(r *whale.Report) string {
	balance, _ := r.Balance.Float64()
	var b strings.Builder

	fmt.Fprintf(&b, "%s is a %s holding %s native tokens",
		r.Address, strings.ReplaceAll(r.Class.String(), "_", " "),
		humanize.CommafWithDigits(balance, 4))
	if r.Label != "" {
		fmt.Fprintf(&b, " (%s)", r.Label)
	}
	fmt.Fprintf(&b, ". %d transactions in window, %d large.",
		r.TotalTransactions, r.LargeTransactions)
	if !r.LastActivity.IsZero() {
		fmt.Fprintf(&b, " Last active %s.", humanize.Time(r.LastActivity))
	}
	return b.String()
}
