package whale

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"whalescan/internal/domain/whale"
	"whalescan/pkg/errors"
)

// Discovery traversal bounds.
const (
	DefaultDiscoveryDepth = 2
	MaxDiscoveryDepth     = 3

	discoveryTxWindow = 50
	discoveryFanOut   = 5
)

// DiscoverTopWhales walks the transaction graph breadth-first from a seed
// address, following the largest counterparties at each hop, and returns
// every address visited past the seed with the largest transaction value
// observed for it. Each address is visited at most once, so cycles
// terminate naturally. A failure on the seed itself fails the call; deeper
// fetch failures prune that branch.
func (s *Service) DiscoverTopWhales(ctx context.Context, chainID, seed string, depth int) ([]whale.Candidate, error) {
	if depth <= 0 {
		depth = DefaultDiscoveryDepth
	}
	if depth > MaxDiscoveryDepth {
		depth = MaxDiscoveryDepth
	}

	seed = strings.ToLower(seed)
	visited := map[string]struct{}{seed: {}}
	found := make(map[string]*whale.Candidate)

	frontier := []string{seed}
	for hop := 1; hop <= depth && len(frontier) > 0; hop++ {
		var next []string
		for _, address := range frontier {
			txs, err := s.source.GetTransactions(ctx, chainID, address, discoveryTxWindow)
			if err != nil {
				if hop == 1 || errors.Is(err, errors.ErrUnknownChain) {
					return nil, err
				}
				s.log.Debugw("discovery branch pruned", "address", address, "hop", hop, "error", err)
				continue
			}

			for _, cp := range topCounterparties(address, txs, discoveryFanOut) {
				if cp.Address == seed {
					continue
				}
				cand, ok := found[cp.Address]
				if !ok {
					cand = &whale.Candidate{
						Address:     cp.Address,
						Via:         address,
						MaxObserved: cp.MaxObserved,
						Hops:        hop,
					}
					found[cp.Address] = cand
				} else if cp.MaxObserved.GreaterThan(cand.MaxObserved) {
					cand.MaxObserved = cp.MaxObserved
				}

				if _, seen := visited[cp.Address]; !seen {
					visited[cp.Address] = struct{}{}
					next = append(next, cp.Address)
				}
			}
		}
		frontier = next
	}

	candidates := make([]whale.Candidate, 0, len(found))
	for _, c := range found {
		candidates = append(candidates, *c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].MaxObserved.Equal(candidates[j].MaxObserved) {
			return candidates[i].MaxObserved.GreaterThan(candidates[j].MaxObserved)
		}
		return candidates[i].Address < candidates[j].Address
	})
	return candidates, nil
}

type counterparty struct {
	Address     string
	MaxObserved decimal.Decimal
}

// topCounterparties collapses an address's transactions into its distinct
// counterparties and keeps the n with the largest single observed value.
func topCounterparties(address string, txs []whale.Transaction, n int) []counterparty {
	best := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.Success {
			continue
		}
		_, cp := directionFor(address, tx.From, tx.To)
		if cp == "" || cp == address {
			continue
		}
		if prev, ok := best[cp]; !ok || tx.Value.GreaterThan(prev) {
			best[cp] = tx.Value
		}
	}

	out := make([]counterparty, 0, len(best))
	for addr, val := range best {
		out = append(out, counterparty{Address: addr, MaxObserved: val})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].MaxObserved.Equal(out[j].MaxObserved) {
			return out[i].MaxObserved.GreaterThan(out[j].MaxObserved)
		}
		return out[i].Address < out[j].Address
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
