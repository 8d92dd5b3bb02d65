package whale

import (
	"context"
	"iter"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"whalescan/internal/chains"
	"whalescan/internal/domain/whale"
	"whalescan/internal/metrics"
	"whalescan/pkg/errors"
)

// Caps carried over from operating against free-tier API quotas.
const (
	movementTxWindow       = 100
	movementTransferWindow = 100
	maxTrackedExchanges    = 5
	maxExchangeMovements   = 30
	maxMonitoredAddresses  = 10
	maxDiscoveredMovements = 50
)

// DetectMovements scans an address's recent transactions and token
// transfers in chronological (ascending) order and yields the entries whose
// magnitude strictly exceeds the threshold. The returned sequence is a lazy
// single pass over data fetched by this call; re-fetch to scan again.
func (s *Service) DetectMovements(ctx context.Context, chainID, address string, threshold decimal.Decimal) (iter.Seq[whale.MovementEvent], error) {
	txs, err := s.source.GetTransactions(ctx, chainID, address, movementTxWindow)
	if err != nil {
		metrics.RecordAnalysis(chainID, "detect_movements", err)
		return nil, err
	}
	transfers, err := s.source.GetTokenTransfers(ctx, chainID, address, movementTransferWindow)
	if err != nil {
		metrics.RecordAnalysis(chainID, "detect_movements", err)
		return nil, err
	}
	metrics.RecordAnalysis(chainID, "detect_movements", nil)

	records := collectRecords(address, txs, transfers)
	// Movement detection wants chronological order; the upstream returns
	// newest first, so sort a local copy ascending.
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].BlockNumber != records[j].BlockNumber {
			return records[i].BlockNumber < records[j].BlockNumber
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	seq := func(yield func(whale.MovementEvent) bool) {
		for _, rec := range records {
			if !rec.Magnitude.GreaterThan(threshold) {
				continue // boundary excluded: exactly-threshold is not flagged
			}
			rec.ID = uuid.NewString()
			rec.ExceedsThreshold = true
			metrics.MovementsDetected.WithLabelValues(chainID, string(rec.Direction)).Inc()
			if !yield(rec) {
				return
			}
		}
	}
	return seq, nil
}

// collectRecords merges native transactions and token transfers into
// movement events relative to the observed address. Failed transactions are
// dropped since they moved nothing.
func collectRecords(address string, txs []whale.Transaction, transfers []whale.TokenTransfer) []whale.MovementEvent {
	addr := strings.ToLower(address)
	records := make([]whale.MovementEvent, 0, len(txs)+len(transfers))

	for _, tx := range txs {
		if !tx.Success {
			continue
		}
		dir, counterparty := directionFor(addr, tx.From, tx.To)
		records = append(records, whale.MovementEvent{
			Kind:         whale.MovementNative,
			TxHash:       tx.Hash,
			Address:      addr,
			Counterparty: counterparty,
			Direction:    dir,
			Magnitude:    tx.Value,
			Timestamp:    tx.Timestamp,
			BlockNumber:  tx.BlockNumber,
		})
	}
	for _, tr := range transfers {
		dir, counterparty := directionFor(addr, tr.From, tr.To)
		records = append(records, whale.MovementEvent{
			Kind:         whale.MovementToken,
			TxHash:       tr.Hash,
			Address:      addr,
			Counterparty: counterparty,
			Direction:    dir,
			Magnitude:    tr.Amount,
			TokenSymbol:  tr.TokenSymbol,
			Timestamp:    tr.Timestamp,
			BlockNumber:  tr.BlockNumber,
		})
	}
	return records
}

func directionFor(addr, from, to string) (whale.Direction, string) {
	if strings.EqualFold(to, addr) {
		return whale.DirectionInbound, strings.ToLower(from)
	}
	return whale.DirectionOutbound, strings.ToLower(to)
}

// TrackExchangeWhales runs movement detection across a set of exchange
// addresses to approximate deposit/withdrawal flow. With no explicit set,
// the registry's curated exchange table is used. Per-address failures are
// logged and skipped; only an unknown chain aborts.
func (s *Service) TrackExchangeWhales(ctx context.Context, chainID string, exchangeAddrs []string, threshold decimal.Decimal) ([]whale.MovementEvent, error) {
	labels := chains.ExchangeAddresses(chainID)
	if len(exchangeAddrs) == 0 {
		exchangeAddrs = sortedKeys(labels)
		if len(exchangeAddrs) > maxTrackedExchanges {
			exchangeAddrs = exchangeAddrs[:maxTrackedExchanges]
		}
	}

	var movements []whale.MovementEvent
	for _, exchangeAddr := range exchangeAddrs {
		seq, err := s.DetectMovements(ctx, chainID, exchangeAddr, threshold)
		if err != nil {
			if errors.Is(err, errors.ErrUnknownChain) {
				return nil, err
			}
			s.log.Warnw("exchange address skipped", "address", exchangeAddr, "error", err)
			continue
		}

		label := labels[strings.ToLower(exchangeAddr)]
		for ev := range seq {
			// Relative to the exchange: inbound funds are a deposit by the
			// counterparty, outbound funds are a withdrawal to it.
			if ev.Direction == whale.DirectionInbound {
				ev.MovementType = "deposit"
			} else {
				ev.MovementType = "withdrawal"
			}
			ev.ExchangeLabel = label
			movements = append(movements, ev)
		}
	}

	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].Magnitude.GreaterThan(movements[j].Magnitude)
	})
	if len(movements) > maxExchangeMovements {
		movements = movements[:maxExchangeMovements]
	}
	return movements, nil
}

// LargeMovement is a flagged movement enriched with both-side
// classification for the whale-movement feed.
type LargeMovement struct {
	Event     whale.MovementEvent
	FromClass whale.Class
	ToClass   whale.Class
	FromLabel string
	ToLabel   string
}

// DiscoverWhaleMovements scans the curated whale and exchange addresses for
// transactions at or above minValue and classifies both sides of each.
// Balance lookups for classification are cached for the duration of the
// call only.
func (s *Service) DiscoverWhaleMovements(ctx context.Context, chainID string, minValue decimal.Decimal) ([]LargeMovement, error) {
	monitored := sortedKeys(chains.KnownWhales(chainID))
	monitored = append(monitored, sortedKeys(chains.ExchangeAddresses(chainID))...)
	monitored = dedupe(monitored)
	if len(monitored) > maxMonitoredAddresses {
		monitored = monitored[:maxMonitoredAddresses]
	}

	classCache := make(map[string]whale.Class)
	var movements []LargeMovement

	for _, address := range monitored {
		txs, err := s.source.GetTransactions(ctx, chainID, address, movementTxWindow)
		if err != nil {
			if errors.Is(err, errors.ErrUnknownChain) {
				return nil, err
			}
			s.log.Debugw("monitored address skipped", "address", address, "error", err)
			continue
		}

		for _, tx := range txs {
			if !tx.Success || tx.Value.LessThan(minValue) {
				continue
			}

			fromClass, err := s.classifyBalance(ctx, chainID, tx.From, classCache)
			if err != nil {
				return nil, err
			}
			toClass, err := s.classifyBalance(ctx, chainID, tx.To, classCache)
			if err != nil {
				return nil, err
			}

			dir, counterparty := directionFor(address, tx.From, tx.To)
			movements = append(movements, LargeMovement{
				Event: whale.MovementEvent{
					ID:               uuid.NewString(),
					Kind:             whale.MovementNative,
					TxHash:           tx.Hash,
					Address:          address,
					Counterparty:     counterparty,
					Direction:        dir,
					Magnitude:        tx.Value,
					Timestamp:        tx.Timestamp,
					BlockNumber:      tx.BlockNumber,
					ExceedsThreshold: true,
				},
				FromClass: fromClass,
				ToClass:   toClass,
				FromLabel: s.KnownWhaleLabel(chainID, tx.From),
				ToLabel:   s.KnownWhaleLabel(chainID, tx.To),
			})
		}
	}

	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].Event.Magnitude.GreaterThan(movements[j].Event.Magnitude)
	})
	if len(movements) > maxDiscoveredMovements {
		movements = movements[:maxDiscoveredMovements]
	}
	return movements, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dedupe(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := addrs[:0]
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
