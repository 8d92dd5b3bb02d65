package whale

import (
	"context"
	"sort"
	"sync"

	"whalescan/internal/domain/whale"
	"whalescan/pkg/errors"
)

// ComparisonEntry is the per-address outcome of a batch comparison. Exactly
// one of Report and Err is set.
type ComparisonEntry struct {
	Address string
	Report  *whale.Report
	Err     error
}

// CompareWhales analyzes a batch of addresses concurrently and returns one
// entry per input address, successes first ranked by balance descending,
// failures after in input order. Individual failures do not abort the
// batch; the call errors only when every address failed with an unknown
// chain, which means the whole request was misdirected.
func (s *Service) CompareWhales(ctx context.Context, chainID string, addresses []string) ([]ComparisonEntry, error) {
	entries := make([]ComparisonEntry, len(addresses))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrency)

	for i, address := range addresses {
		wg.Add(1)
		go func(i int, address string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				entries[i] = ComparisonEntry{Address: address, Err: ctx.Err()}
				return
			}

			report, err := s.AnalyzeWhale(ctx, chainID, address)
			entries[i] = ComparisonEntry{Address: address, Report: report, Err: err}
		}(i, address)
	}
	wg.Wait()

	if len(entries) > 0 && allUnknownChain(entries) {
		return nil, errors.Wrapf(errors.ErrUnknownChain, "comparison on chain %q", chainID)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Err == nil && b.Err != nil:
			return true
		case a.Err != nil && b.Err == nil:
			return false
		case a.Err != nil:
			return false // failures keep input order
		default:
			return a.Report.Balance.GreaterThan(b.Report.Balance)
		}
	})
	return entries, nil
}

func allUnknownChain(entries []ComparisonEntry) bool {
	for _, e := range entries {
		if !errors.Is(e.Err, errors.ErrUnknownChain) {
			return false
		}
	}
	return true
}
